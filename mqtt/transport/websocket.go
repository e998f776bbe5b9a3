package transport

import (
	"bytes"
	"context"
	"net/http"

	"github.com/gorilla/websocket"
)

// WebSocket returns a Builder dialing url. Each Write call is sent as one
// binary websocket message (the codec may split one packet across
// several writes); reads return the bytes of received messages as one
// continuous stream. Grounded in
// bromq-dev-broker's and mochi-mqtt-server's use of
// github.com/gorilla/websocket for broker-side MQTT-over-WS transport.
func WebSocket(url string, header http.Header) Builder {
	return BuilderFunc(func(ctx context.Context) (Stream, error) {
		conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, header)
		if err != nil {
			return nil, err
		}
		return &wsStream{conn: conn}, nil
	})
}

// wsStream adapts a *websocket.Conn's message framing to a plain
// io.Reader/io.Writer: WireIO writes and reads raw MQTT bytes and must
// not see websocket message boundaries.
type wsStream struct {
	conn *websocket.Conn
	rbuf bytes.Buffer
}

func (s *wsStream) Read(p []byte) (int, error) {
	for s.rbuf.Len() == 0 {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			return 0, err
		}
		s.rbuf.Write(data)
	}
	return s.rbuf.Read(p)
}

func (s *wsStream) Write(p []byte) (int, error) {
	if err := s.conn.WriteMessage(websocket.BinaryMessage, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (s *wsStream) Close() error {
	return s.conn.Close()
}
