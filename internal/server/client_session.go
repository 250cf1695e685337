package server

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/safarnama/safarnama/internal/core/events/bus"
	"github.com/safarnama/safarnama/internal/core/observability/log"
	"github.com/safarnama/safarnama/internal/core/systems/ballfield"
	"github.com/safarnama/safarnama/internal/core/systems/loop"
)

// ClientSession is one renderer connection. It owns at most one field and
// the loop driving it; the field is only touched with mu held, so frames and
// activations never interleave.
type ClientSession struct {
	ID          string
	Connection  *Connection
	ConnectedAt time.Time

	width  float64
	height float64

	server *Server
	logger log.Log

	mu    sync.Mutex
	field *ballfield.Field
	loop  *loop.Loop
}

func (s *Server) newClientSession(id string, conn *Connection, width, height float64) *ClientSession {
	return &ClientSession{
		ID:          id,
		Connection:  conn,
		ConnectedAt: time.Now(),
		width:       width,
		height:      height,
		server:      s,
		logger:      s.logger.With(log.String("client_id", id)),
	}
}

// serve reads client messages until the connection fails, then tears the
// session down. It runs on the HTTP handler goroutine.
func (cs *ClientSession) serve(ctx context.Context) {
	defer cs.shutdown()

	_ = cs.Connection.SendJSON(ReadyMessage{
		Type:      TypeReady,
		SessionID: cs.ID,
		Width:     cs.width,
		Height:    cs.height,
		Palette:   paletteNames(),
	})

	for {
		msg, err := cs.Connection.ReadMessage()
		if err != nil {
			if isInvalidMessage(err) {
				cs.sendError(err)
				continue
			}
			if !cs.Connection.IsClosed() {
				cs.logger.Debug("Client read ended", log.Error(err))
			}
			return
		}

		if err = cs.handle(ctx, msg); err != nil {
			cs.logger.Warn("Client message rejected", log.String("action", msg.Action), log.Error(err))
			cs.sendError(err)
		}
	}
}

func (cs *ClientSession) handle(ctx context.Context, msg *ClientMessage) error {
	switch msg.Action {
	case ActionInit:
		return cs.init(ctx, msg)
	case ActionActivate:
		return cs.activate(msg.ID)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, msg.Action)
	}
}

// init (re)builds the field. The same labels at the same size keep the
// running field; anything else discards it and starts over.
func (cs *ClientSession) init(ctx context.Context, msg *ClientMessage) error {
	width, height := cs.width, cs.height
	if msg.Width > 0 {
		width = msg.Width
	}
	if msg.Height > 0 {
		height = msg.Height
	}
	if err := cs.server.validateLabels(msg.Labels); err != nil {
		return err
	}

	fingerprint := ballfield.Fingerprint(msg.Labels)

	cs.mu.Lock()
	if cs.field != nil && cs.field.Fingerprint() == fingerprint {
		if w, h := cs.field.Size(); w == width && h == height {
			cs.mu.Unlock()
			cs.logger.Debug("Field unchanged, keeping it")
			return nil
		}
	}
	old := cs.loop
	cs.loop = nil
	cs.mu.Unlock()

	// Stop outside the lock: a frame in flight needs mu to finish.
	if old != nil {
		_ = old.Stop()
	}

	field := ballfield.NewField(msg.Labels, width, height, cs.server.newSource())
	l := loop.New(cs.server.config.Loop, cs.frame, cs.logger)

	cs.mu.Lock()
	cs.field = field
	cs.loop = l
	cs.mu.Unlock()

	if err := cs.Connection.SendJSON(FrameMessage{Type: TypeFrame, Tick: 0, Bodies: field.Snapshot()}); err != nil {
		_ = l.Stop()
		return err
	}
	if err := l.Start(ctx); err != nil {
		return err
	}

	cs.server.publish(bus.NewEvent(bus.TypeFieldRebuilt, cs.ID, bus.Rebuild{
		SessionID:   cs.ID,
		Bodies:      field.Len(),
		Fingerprint: fingerprint,
		Width:       width,
		Height:      height,
	}, nil))

	cs.logger.Info("Field built",
		log.Int("bodies", field.Len()),
		log.Float64("width", width),
		log.Float64("height", height))
	return nil
}

// frame is the loop step: advance, then push the snapshot.
func (cs *ClientSession) frame(_ uint64) error {
	cs.mu.Lock()
	if cs.field == nil {
		cs.mu.Unlock()
		return nil
	}
	bodies := cs.field.Step()
	tick := cs.field.Tick()
	cs.mu.Unlock()

	if err := cs.Connection.SendJSON(FrameMessage{Type: TypeFrame, Tick: tick, Bodies: bodies}); err != nil {
		// Closing unblocks the reader, which stops this loop.
		_ = cs.Connection.Close()
		return err
	}
	cs.server.framesSent.Add(1)
	return nil
}

func (cs *ClientSession) activate(id string) error {
	cs.mu.Lock()
	if cs.field == nil {
		cs.mu.Unlock()
		return ErrNoField
	}
	label, err := cs.field.Activate(id, nil)
	cs.mu.Unlock()
	if err != nil {
		return err
	}

	route := ballfield.GenreRoute(label)
	cs.logger.Info("Body activated", log.String("id", id), log.String("route", route))

	cs.server.publish(bus.NewEvent(bus.TypeBodyActivated, cs.ID, bus.Activation{
		SessionID: cs.ID,
		BodyID:    id,
		Label:     label,
		Route:     route,
	}, nil))

	return cs.Connection.SendJSON(NavigateMessage{Type: TypeNavigate, ID: id, Label: label, Route: route})
}

func (cs *ClientSession) sendError(err error) {
	_ = cs.Connection.SendJSON(ErrorMessage{Type: TypeError, Message: err.Error()})
}

func (cs *ClientSession) shutdown() {
	cs.mu.Lock()
	l := cs.loop
	cs.loop = nil
	cs.mu.Unlock()

	if l != nil {
		_ = l.Stop()
	}
	_ = cs.Connection.Close()
}
