package mqtt

import (
	"context"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/go-mqtt/session/internal/wire"
	"github.com/go-mqtt/session/mqtt/transport"
)

// fakeBroker hands out one net.Pipe per connect attempt: the client end
// becomes the transport.Stream a Session runs on, the server end is
// queued for the test to drive by hand with wire.DecodePacket/EncodePacket.
type fakeBroker struct {
	servers   chan net.Conn
	failNextN int
}

func newFakeBroker() *fakeBroker {
	return &fakeBroker{servers: make(chan net.Conn, 8)}
}

func (b *fakeBroker) Builder() transport.Builder {
	return transport.BuilderFunc(b.build)
}

func (b *fakeBroker) build(ctx context.Context) (transport.Stream, error) {
	if b.failNextN > 0 {
		b.failNextN--
		return nil, errors.New("fakeBroker: simulated dial failure")
	}
	client, server := net.Pipe()
	b.servers <- server
	return client, nil
}

// failNextDial makes the next n connect attempts fail before reaching
// net.Pipe, exercising the reconnect backoff path.
func (b *fakeBroker) failNextDial(n int) { b.failNextN = n }

func (b *fakeBroker) nextServer(t *testing.T) net.Conn {
	t.Helper()
	select {
	case c := <-b.servers:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("fakeBroker: timed out waiting for a connect attempt")
		return nil
	}
}

// serverHandshake reads the CONNECT the client just sent and answers with
// a CONNACK carrying the given session-present flag.
func serverHandshake(t *testing.T, server net.Conn, version int, sessionPresent bool) wire.Packet {
	t.Helper()
	connect := serverReadPacket(t, server, version)
	if connect.Type != wire.ConnectType {
		t.Fatalf("serverHandshake: expected CONNECT, got %v", connect.Type)
	}
	connack := wire.Packet{
		Type: wire.ConnackType,
		Connack: &wire.Connack{
			SessionPresent: sessionPresent,
			ReasonCode:     wire.Success,
		},
	}
	serverWritePacket(t, server, connack, version)
	return connect
}

func serverReadPacket(t *testing.T, server net.Conn, version int) wire.Packet {
	t.Helper()
	_ = server.SetReadDeadline(time.Now().Add(2 * time.Second))
	p, err := wire.DecodePacket(server, version)
	if err != nil {
		t.Fatalf("serverReadPacket: %v", err)
	}
	return p
}

func serverWritePacket(t *testing.T, server net.Conn, p wire.Packet, version int) {
	t.Helper()
	_ = server.SetWriteDeadline(time.Now().Add(2 * time.Second))
	if err := wire.EncodePacket(server, p, version); err != nil {
		t.Fatalf("serverWritePacket: %v", err)
	}
}
