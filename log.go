package mqtt

import (
	"github.com/rs/xid"
	"go.uber.org/zap"
)

// connAttemptID returns a globally sortable correlation id attached to
// log lines for one connection attempt/reconnect cycle, grounded on
// mochi-mqtt-server's use of github.com/rs/xid for similar correlation
// purposes.
func connAttemptID() string {
	return xid.New().String()
}

func sessionLogger(base *zap.Logger, clientID string) *zap.Logger {
	if base == nil {
		base = zap.NewNop()
	}
	return base.With(zap.String("client_id", clientID))
}
