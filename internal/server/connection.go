package server

import (
	"bytes"
	"encoding/json"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/safarnama/safarnama/pkg/generic"
)

var bufferPool = generic.NewPool(func() *bytes.Buffer { return new(bytes.Buffer) }, (*bytes.Buffer).Reset)

// Connection serializes writes to one websocket. Reads happen on a single
// goroutine owned by the session.
type Connection struct {
	conn         *websocket.Conn
	writeTimeout time.Duration
	writeMu      sync.Mutex
	closed       int32

	messagesSent uint64
	bytesSent    uint64
}

func NewConnection(conn *websocket.Conn, writeTimeout time.Duration, readLimit int64) *Connection {
	if readLimit > 0 {
		conn.SetReadLimit(readLimit)
	}
	return &Connection{conn: conn, writeTimeout: writeTimeout}
}

// SendJSON encodes v and writes it as one text frame.
func (c *Connection) SendJSON(v any) error {
	if c.IsClosed() {
		return ErrConnectionClosed
	}

	buf := bufferPool.Get()
	defer bufferPool.Put(buf)
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		return errors.Wrap(err, "encode message")
	}

	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	if c.writeTimeout > 0 {
		if err := c.conn.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
			return errors.Wrap(err, "set write deadline")
		}
	}
	if err := c.conn.WriteMessage(websocket.TextMessage, buf.Bytes()); err != nil {
		return errors.Wrap(err, "write message")
	}

	atomic.AddUint64(&c.messagesSent, 1)
	atomic.AddUint64(&c.bytesSent, uint64(buf.Len()))
	return nil
}

// ReadMessage blocks for the next client message.
func (c *Connection) ReadMessage() (*ClientMessage, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, errors.Wrap(err, "read message")
	}
	var msg ClientMessage
	if err = json.Unmarshal(data, &msg); err != nil {
		return nil, errors.Wrap(ErrInvalidMessage, err.Error())
	}
	return &msg, nil
}

// Close sends a close frame when possible and releases the socket. Safe to
// call more than once.
func (c *Connection) Close() error {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil
	}
	_ = c.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second))
	return c.conn.Close()
}

func (c *Connection) IsClosed() bool { return atomic.LoadInt32(&c.closed) == 1 }

func (c *Connection) MessagesSent() uint64 { return atomic.LoadUint64(&c.messagesSent) }
