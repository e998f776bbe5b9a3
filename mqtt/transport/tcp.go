package transport

import (
	"context"
	"net"
)

// TCP returns a Builder that dials addr with net.Dialer on each
// connect/reconnect attempt.
func TCP(addr string) Builder {
	return BuilderFunc(func(ctx context.Context) (Stream, error) {
		var d net.Dialer
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, err
		}
		return conn, nil
	})
}
