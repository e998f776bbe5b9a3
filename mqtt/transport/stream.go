// Package transport provides StreamBuilder implementations that open the
// duplex byte stream a Session runs the MQTT protocol over. Session code
// depends only on the Stream interface declared here; this package is
// consumed, not required, by the session layer.
package transport

import (
	"context"
	"io"
)

// Stream is the duplex byte connection a Session reads and writes framed
// packets over.
type Stream interface {
	io.Reader
	io.Writer
	io.Closer
}

// Builder opens a new Stream for a connection attempt. Implementations
// live in this package (TCP, TLS, WebSocket); a Session is handed a
// Builder at construction and calls it once per connect/reconnect cycle.
type Builder interface {
	Build(ctx context.Context) (Stream, error)
}

// BuilderFunc adapts a plain function to Builder.
type BuilderFunc func(ctx context.Context) (Stream, error)

func (f BuilderFunc) Build(ctx context.Context) (Stream, error) { return f(ctx) }
