// Package wsio exposes a WebSocket connection as a line source and a prompt
// sink.
package wsio

import (
	"context"
	"io"
	"time"

	"github.com/gorilla/websocket"
)

const closeGracePeriod = time.Second

// Conn is the part of *websocket.Conn used here.
type Conn interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	WriteControl(messageType int, data []byte, deadline time.Time) error
	SetReadDeadline(t time.Time) error
	Close() error
}

var _ Conn = (*websocket.Conn)(nil)

// Source delivers every data message as one chunk. A normal closure from
// the peer is the end of the stream.
type Source struct {
	conn Conn
}

func NewSource(conn Conn) *Source {
	return &Source{conn: conn}
}

// Read blocks until the next message. The context deadline, if any, becomes
// the read deadline of the connection.
func (s *Source) Read(ctx context.Context) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if dl, ok := ctx.Deadline(); ok {
		_ = s.conn.SetReadDeadline(dl)
	} else {
		_ = s.conn.SetReadDeadline(time.Time{})
	}

	_, data, err := s.conn.ReadMessage()
	if err != nil {
		if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
			return nil, io.EOF
		}
		return nil, err
	}

	return data, nil
}

// Sink writes every prompt as one message.
type Sink struct {
	conn        Conn
	messageType int
}

// NewSink returns a sink sending text messages, or binary messages when
// binary is set.
func NewSink(conn Conn, binary bool) *Sink {
	mt := websocket.TextMessage
	if binary {
		mt = websocket.BinaryMessage
	}

	return &Sink{conn: conn, messageType: mt}
}

func (s *Sink) Write(p []byte) (int, error) {
	if err := s.conn.WriteMessage(s.messageType, p); err != nil {
		return 0, err
	}
	return len(p), nil
}

// Close sends a normal closure frame and closes the connection.
func (s *Sink) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = s.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(closeGracePeriod))
	return s.conn.Close()
}
