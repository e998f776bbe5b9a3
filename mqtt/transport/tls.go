package transport

import (
	"context"
	"crypto/tls"
)

// TLS returns a Builder that dials addr over TLS. No protocol logic
// lives here — cfg is passed straight to crypto/tls.
func TLS(addr string, cfg *tls.Config) Builder {
	return BuilderFunc(func(ctx context.Context) (Stream, error) {
		d := tls.Dialer{Config: cfg}
		conn, err := d.DialContext(ctx, "tcp", addr)
		if err != nil {
			return nil, err
		}
		return conn, nil
	})
}
