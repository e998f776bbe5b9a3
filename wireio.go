package mqtt

import (
	"sync"

	"go.uber.org/zap"

	"github.com/go-mqtt/session/internal/wire"
	"github.com/go-mqtt/session/mqtt/transport"
)

// WireIO owns one connection attempt's transport stream: it writes
// encoded packets (applying the optional RateLimiter in place of
// explicit write-backpressure bookkeeping) and runs a read loop that
// decodes inbound bytes into packets. Adapted from RxTx (rxtx.go),
// split into a writer half used directly by SessionMachine and a reader
// half that runs on its own goroutine.
//
// Ordering: the read loop sends each decoded packet on an unbuffered
// channel. Because the channel is unbuffered, the goroutine blocks on
// the send until SessionMachine's single-threaded command loop receives
// it — which only happens once that loop has finished handling the
// previous packet. That guarantees a packet is never handed to the
// session until the previous one's handler has run to completion,
// without needing an explicit completion callback. The read loop does
// not wait for that handler before reading on: it decodes the following
// packet as soon as its send is taken, so one packet may already be
// parsed while the current one is being handled.
type WireIO struct {
	codec   Codec
	version int
	logger  *zap.Logger
	rl      *RateLimiter
	bus     *eventBus

	writeMu sync.Mutex
	stream  transport.Stream
}

func newWireIO(codec Codec, version int, logger *zap.Logger, rl *RateLimiter, bus *eventBus) *WireIO {
	return &WireIO{codec: codec, version: version, logger: logger, rl: rl, bus: bus}
}

// Attach binds a freshly built transport stream to this WireIO,
// replacing any previous one (used once per connect/reconnect attempt).
func (w *WireIO) Attach(stream transport.Stream) {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	w.stream = stream
}

// Write encodes and writes p to the current stream, applying the rate
// limiter (if any) before writing. It emits packetsend on success.
func (w *WireIO) Write(p wire.Packet) error {
	if w.rl != nil {
		w.rl.Wait()
	}
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	if w.stream == nil {
		return ErrNoConnection
	}
	if err := w.codec.WriteToStream(w.stream, p, w.version); err != nil {
		return err
	}
	w.bus.packetSend(p)
	return nil
}

// ReadLoop decodes packets from stream until it errors or is closed,
// delivering each to out (see the ordering note above) and finally
// reporting the terminal error on errc. Runs on its own goroutine; the
// caller selects on out/errc from SessionMachine's command loop.
func (w *WireIO) ReadLoop(stream transport.Stream, out chan<- wire.Packet, errc chan<- error) {
	for {
		p, err := w.codec.Parse(stream, w.version)
		if err != nil {
			errc <- err
			return
		}
		w.bus.packetReceive(p)
		out <- p
	}
}

// Close closes the underlying stream, if any.
func (w *WireIO) Close() error {
	w.writeMu.Lock()
	defer w.writeMu.Unlock()
	if w.stream == nil {
		return nil
	}
	return w.stream.Close()
}
