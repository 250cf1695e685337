// Package client provides a Go client for the genre field websocket stream
package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/safarnama/safarnama/internal/core/observability/log"
	"github.com/safarnama/safarnama/internal/server"
)

// Client is one renderer connection to a field server
type Client struct {
	// Connection management
	conn    *websocket.Conn
	writeMu sync.Mutex

	// Session state, fixed once connected
	sessionID string
	width     float64
	height    float64
	palette   []string

	// Handlers
	frameHandlers    []FrameHandler
	navigateHandlers []NavigateHandler
	eventHandlers    []EventHandler
	handlerMutex     sync.RWMutex

	// Counters
	framesReceived atomic.Uint64
	lastTick       atomic.Uint64

	// Lifecycle
	dialing   int32 // atomic bool, claimed by the first Connect
	connected int32 // atomic bool, set once the ready handshake is done
	closed    int32 // atomic bool
	done      chan struct{}
	doneOnce  sync.Once

	config Config
	logger log.Log

	// Background reader
	workerGroup sync.WaitGroup
}

// Config holds configuration for the client
type Config struct {
	// ServerURL is the websocket endpoint, e.g. ws://127.0.0.1:8090/ws
	ServerURL      string
	ConnectTimeout time.Duration
	WriteTimeout   time.Duration

	// Arena requested from the server; zero keeps the server default
	Width  float64
	Height float64
}

// DefaultClientConfig returns default client configuration
func DefaultClientConfig() Config {
	return Config{
		ServerURL:      "ws://127.0.0.1:8090/ws",
		ConnectTimeout: 10 * time.Second,
		WriteTimeout:   5 * time.Second,
	}
}

// FrameHandler receives every frame pushed by the server
type FrameHandler func(frame server.FrameMessage)

// NavigateHandler receives the result of an activation
type NavigateHandler func(nav server.NavigateMessage)

// EventHandler receives connection lifecycle and server error events
type EventHandler func(event Event)

// EventType represents different types of client events
type EventType string

const (
	EventTypeConnected    EventType = "connected"
	EventTypeDisconnected EventType = "disconnected"
	EventTypeError        EventType = "error"
)

// Event represents a client event
type Event struct {
	Type      EventType
	Timestamp time.Time
	Message   string
	Error     error
}

// NewClient creates a client; nothing is dialed until Connect.
func NewClient(config Config, logger log.Log) *Client {
	if config.ConnectTimeout <= 0 {
		config.ConnectTimeout = DefaultClientConfig().ConnectTimeout
	}
	return &Client{
		done:   make(chan struct{}),
		config: config,
		logger: logger.With(log.String("component", "field_client")),
	}
}

// Connect dials the server and waits for its ready message. Handlers
// registered before Connect see every frame.
func (c *Client) Connect(ctx context.Context) error {
	if atomic.LoadInt32(&c.closed) == 1 {
		return ErrClientClosed
	}
	if !atomic.CompareAndSwapInt32(&c.dialing, 0, 1) {
		return ErrAlreadyConnected
	}

	target, err := c.endpoint()
	if err != nil {
		atomic.StoreInt32(&c.dialing, 0)
		return err
	}

	connectCtx, cancel := context.WithTimeout(ctx, c.config.ConnectTimeout)
	defer cancel()

	conn, _, err := websocket.DefaultDialer.DialContext(connectCtx, target, nil)
	if err != nil {
		atomic.StoreInt32(&c.dialing, 0)
		c.logger.Error("Failed to connect to server", log.String("url", target), log.Error(err))
		return fmt.Errorf("dial %s: %w", target, err)
	}

	ready, err := readReady(conn, c.config.ConnectTimeout)
	if err != nil {
		atomic.StoreInt32(&c.dialing, 0)
		_ = conn.Close()
		return err
	}

	c.sessionID = ready.SessionID
	c.width, c.height = ready.Width, ready.Height
	c.palette = ready.Palette

	c.writeMu.Lock()
	if atomic.LoadInt32(&c.closed) == 1 {
		c.writeMu.Unlock()
		_ = conn.Close()
		return ErrClientClosed
	}
	c.conn = conn
	atomic.StoreInt32(&c.connected, 1)
	c.writeMu.Unlock()

	c.logger.Info("Connected to server",
		log.String("session_id", c.sessionID),
		log.Float64("width", c.width),
		log.Float64("height", c.height))

	c.workerGroup.Add(1)
	go c.readLoop()

	c.emitEvent(Event{Type: EventTypeConnected, Timestamp: time.Now()})
	return nil
}

// Init asks the server to build a field for labels.
func (c *Client) Init(labels []string) error {
	return c.send(server.ClientMessage{Action: server.ActionInit, Labels: labels})
}

// Activate asks the server to activate the body with the given id; the
// answer arrives through the navigate handlers.
func (c *Client) Activate(id string) error {
	return c.send(server.ClientMessage{Action: server.ActionActivate, ID: id})
}

func (c *Client) OnFrame(h FrameHandler) {
	c.handlerMutex.Lock()
	c.frameHandlers = append(c.frameHandlers, h)
	c.handlerMutex.Unlock()
}

func (c *Client) OnNavigate(h NavigateHandler) {
	c.handlerMutex.Lock()
	c.navigateHandlers = append(c.navigateHandlers, h)
	c.handlerMutex.Unlock()
}

func (c *Client) OnEvent(h EventHandler) {
	c.handlerMutex.Lock()
	c.eventHandlers = append(c.eventHandlers, h)
	c.handlerMutex.Unlock()
}

func (c *Client) SessionID() string        { return c.sessionID }
func (c *Client) Size() (float64, float64) { return c.width, c.height }
func (c *Client) Palette() []string        { return c.palette }
func (c *Client) FramesReceived() uint64   { return c.framesReceived.Load() }
func (c *Client) LastTick() uint64         { return c.lastTick.Load() }
func (c *Client) IsConnected() bool        { return atomic.LoadInt32(&c.connected) == 1 }

// Done is closed once the connection is gone, by Close or by the server.
func (c *Client) Done() <-chan struct{} { return c.done }

// Close closes the connection and waits for the reader to exit.
func (c *Client) Close() error {
	if !atomic.CompareAndSwapInt32(&c.closed, 0, 1) {
		return nil // Already closed
	}

	var err error
	c.writeMu.Lock()
	conn := c.conn
	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(time.Second))
	}
	c.writeMu.Unlock()
	if conn != nil {
		err = conn.Close()
	}

	c.workerGroup.Wait()
	c.doneOnce.Do(func() { close(c.done) })

	c.logger.Info("Client closed", log.Uint64("frames_received", c.framesReceived.Load()))
	return err
}

func (c *Client) endpoint() (string, error) {
	u, err := url.Parse(c.config.ServerURL)
	if err != nil || (u.Scheme != "ws" && u.Scheme != "wss") {
		return "", fmt.Errorf("%w: server url %q", ErrInvalidConfig, c.config.ServerURL)
	}
	q := u.Query()
	if c.config.Width > 0 {
		q.Set("width", strconv.FormatFloat(c.config.Width, 'f', -1, 64))
	}
	if c.config.Height > 0 {
		q.Set("height", strconv.FormatFloat(c.config.Height, 'f', -1, 64))
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func (c *Client) send(msg server.ClientMessage) error {
	if atomic.LoadInt32(&c.closed) == 1 {
		return ErrClientClosed
	}
	c.writeMu.Lock()
	defer c.writeMu.Unlock()
	if c.conn == nil || atomic.LoadInt32(&c.connected) == 0 {
		return ErrNotConnected
	}
	if c.config.WriteTimeout > 0 {
		_ = c.conn.SetWriteDeadline(time.Now().Add(c.config.WriteTimeout))
	}
	return c.conn.WriteJSON(msg)
}

func (c *Client) readLoop() {
	defer c.workerGroup.Done()
	defer c.doneOnce.Do(func() { close(c.done) })
	defer atomic.StoreInt32(&c.connected, 0)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if atomic.LoadInt32(&c.closed) == 0 {
				c.logger.Warn("Connection lost", log.Error(err))
				c.emitEvent(Event{Type: EventTypeDisconnected, Timestamp: time.Now(), Error: err})
			}
			return
		}
		if err = c.dispatch(data); err != nil {
			c.logger.Warn("Dropping server message", log.Error(err))
		}
	}
}

func (c *Client) dispatch(data []byte) error {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return fmt.Errorf("%w: %v", ErrUnexpectedMessage, err)
	}

	c.handlerMutex.RLock()
	defer c.handlerMutex.RUnlock()

	switch head.Type {
	case server.TypeFrame:
		var frame server.FrameMessage
		if err := json.Unmarshal(data, &frame); err != nil {
			return err
		}
		c.framesReceived.Add(1)
		c.lastTick.Store(frame.Tick)
		for _, h := range c.frameHandlers {
			h(frame)
		}
	case server.TypeNavigate:
		var nav server.NavigateMessage
		if err := json.Unmarshal(data, &nav); err != nil {
			return err
		}
		for _, h := range c.navigateHandlers {
			h(nav)
		}
	case server.TypeError:
		var msg server.ErrorMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			return err
		}
		for _, h := range c.eventHandlers {
			h(Event{Type: EventTypeError, Timestamp: time.Now(), Message: msg.Message})
		}
	default:
		return fmt.Errorf("%w: type %q", ErrUnexpectedMessage, head.Type)
	}
	return nil
}

func (c *Client) emitEvent(e Event) {
	c.handlerMutex.RLock()
	defer c.handlerMutex.RUnlock()
	for _, h := range c.eventHandlers {
		h(e)
	}
}

func readReady(conn *websocket.Conn, timeout time.Duration) (server.ReadyMessage, error) {
	var ready server.ReadyMessage
	_ = conn.SetReadDeadline(time.Now().Add(timeout))
	if err := conn.ReadJSON(&ready); err != nil {
		return ready, fmt.Errorf("read ready: %w", err)
	}
	_ = conn.SetReadDeadline(time.Time{})
	if ready.Type != server.TypeReady {
		return ready, fmt.Errorf("%w: expected %q, got %q", ErrUnexpectedMessage, server.TypeReady, ready.Type)
	}
	return ready, nil
}
