package mqtt

import (
	"time"

	"github.com/valyala/fastrand"
	"go.uber.org/zap"

	"github.com/go-mqtt/session/internal/wire"
	"github.com/go-mqtt/session/mqtt/store"
)

const clientIDHexChars = "0123456789abcdef"

// generateClientID produces a "mqttjs_"-style probably-unique client id
// using a cryptographically insignificant RNG — the broker assigns
// final identity regardless. Grounded on lybxkl-simq's use of
// github.com/valyala/fastrand for exactly this kind of non-cryptographic
// random generation.
func generateClientID() string {
	b := make([]byte, 8)
	for i := range b {
		b[i] = clientIDHexChars[fastrand.Uint32n(16)]
	}
	return "mqttjs_" + string(b)
}

// DefaultOptions returns an Options populated with this package's
// stated defaults.
func DefaultOptions() Options {
	return Options{
		Keepalive:            60 * time.Second,
		ReschedulePings:      true,
		ProtocolVersion:      4,
		ReconnectPeriod:      1 * time.Second,
		ConnectTimeout:       30 * time.Second,
		Clean:                true,
		Resubscribe:          true,
		QueueQoSZero:         true,
		AutoAssignTopicAlias: false,
		AutoUseTopicAlias:    false,
		Validate:             true,
		Logger:               zap.NewNop(),
		OutgoingStore:        store.NewMemStore(),
		IncomingStore:        store.NewMemStore(),
	}
}

func applyOptions(opts []SessionOption) Options {
	o := DefaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.ClientID == "" {
		o.ClientID = generateClientID()
	}
	if o.MessageIDProvider == nil {
		o.MessageIDProvider = NewPacketIdProvider()
	}
	if o.CustomHandleAcks == nil {
		o.CustomHandleAcks = defaultCustomHandleAcks
	}
	if o.Logger == nil {
		o.Logger = zap.NewNop()
	}
	return o
}

func defaultCustomHandleAcks(string, []byte, wire.Packet) (wire.ReasonCode, error) {
	return wire.Success, nil
}
