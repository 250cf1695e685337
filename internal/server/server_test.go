package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/safarnama/safarnama/internal/api"
	"github.com/safarnama/safarnama/internal/core/events/bus"
	"github.com/safarnama/safarnama/internal/core/observability/log"
	"github.com/safarnama/safarnama/internal/core/systems/loop"
)

type envelope struct {
	Type string `json:"type"`
	raw  []byte
}

func testConfig() Config {
	cfg := DefaultServerConfig()
	cfg.ListenAddr = "127.0.0.1:0"
	cfg.Seed = 7
	cfg.Loop = loop.Config{FrameRate: 200}
	return cfg
}

func startServer(t *testing.T, events bus.EventBus) *Server {
	t.Helper()
	s := NewServer(testConfig(), events, nil, log.Nop())
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.Stop(ctx)
	})
	return s
}

func dial(t *testing.T, s *Server, query string) *websocket.Conn {
	t.Helper()
	url := "ws://" + s.Addr().String() + "/ws" + query
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

// readUntil skips messages until one of type typ arrives.
func readUntil(t *testing.T, conn *websocket.Conn, typ string) envelope {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	for {
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var env envelope
		require.NoError(t, json.Unmarshal(data, &env))
		if env.Type == typ {
			env.raw = data
			return env
		}
	}
}

func TestServer_FramesAndActivation(t *testing.T) {
	defer goleak.VerifyNone(t)

	events := bus.New()
	var (
		mu          sync.Mutex
		activations []bus.Activation
	)
	_, err := events.SubscribeTopic(bus.TopicField, bus.TypeBodyActivated, func(e bus.Event) error {
		mu.Lock()
		activations = append(activations, e.Data().(bus.Activation))
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)

	s := NewServer(testConfig(), events, nil, log.Nop())
	require.NoError(t, s.Start(context.Background()))

	conn := dial(t, s, "?width=800&height=400")

	var ready ReadyMessage
	require.NoError(t, json.Unmarshal(readUntil(t, conn, TypeReady).raw, &ready))
	assert.Equal(t, 800.0, ready.Width)
	assert.Equal(t, 400.0, ready.Height)
	assert.Len(t, ready.Palette, 8)
	assert.NotEmpty(t, ready.SessionID)

	require.NoError(t, conn.WriteJSON(ClientMessage{Action: ActionInit, Labels: []string{"Travel", "Food", "Culture"}}))

	var first FrameMessage
	require.NoError(t, json.Unmarshal(readUntil(t, conn, TypeFrame).raw, &first))
	assert.Equal(t, uint64(0), first.Tick)
	require.Len(t, first.Bodies, 3)

	var later FrameMessage
	require.NoError(t, json.Unmarshal(readUntil(t, conn, TypeFrame).raw, &later))
	assert.Greater(t, later.Tick, uint64(0))
	for _, b := range later.Bodies {
		assert.GreaterOrEqual(t, b.X, b.Radius)
		assert.LessOrEqual(t, b.X, 800-b.Radius)
	}

	require.NoError(t, conn.WriteJSON(ClientMessage{Action: ActionActivate, ID: "Travel"}))
	var nav NavigateMessage
	require.NoError(t, json.Unmarshal(readUntil(t, conn, TypeNavigate).raw, &nav))
	assert.Equal(t, "travel", nav.Label)
	assert.Equal(t, "/blogs/genre/travel", nav.Route)

	mu.Lock()
	require.Len(t, activations, 1)
	assert.Equal(t, "/blogs/genre/travel", activations[0].Route)
	assert.Equal(t, ready.SessionID, activations[0].SessionID)
	mu.Unlock()

	stats := s.Stats()
	assert.Equal(t, int64(1), stats.ClientCount)
	assert.Equal(t, uint64(1), stats.Activations)
	assert.True(t, stats.Running)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.Equal(t, int64(0), s.Stats().ClientCount)
	assert.ErrorIs(t, s.Stop(ctx), ErrServerNotRunning)
	assert.ErrorIs(t, s.Start(ctx), ErrServerClosed)
}

func TestServer_RejectsBadMessages(t *testing.T) {
	s := startServer(t, nil)
	conn := dial(t, s, "")
	readUntil(t, conn, TypeReady)

	tests := []struct {
		name string
		send string
		want error
	}{
		{"malformed json", `{"action":`, ErrInvalidMessage},
		{"unknown action", `{"action":"explode"}`, ErrUnknownAction},
		{"activate before init", `{"action":"activate","id":"Travel"}`, ErrNoField},
		{"duplicate labels", `{"action":"init","labels":["A","A"]}`, ErrDuplicateLabel},
		{"empty label", `{"action":"init","labels":["A",""]}`, ErrEmptyLabel},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(tt.send)))
			var msg ErrorMessage
			require.NoError(t, json.Unmarshal(readUntil(t, conn, TypeError).raw, &msg))
			assert.Contains(t, msg.Message, tt.want.Error())
		})
	}

	require.NoError(t, conn.WriteJSON(ClientMessage{Action: ActionInit, Labels: []string{"Travel"}}))
	readUntil(t, conn, TypeFrame)
	require.NoError(t, conn.WriteJSON(ClientMessage{Action: ActionActivate, ID: "Nowhere"}))
	var msg ErrorMessage
	require.NoError(t, json.Unmarshal(readUntil(t, conn, TypeError).raw, &msg))
	assert.Contains(t, msg.Message, "Nowhere")
}

func TestServer_RebuildOnlyWhenLabelsChange(t *testing.T) {
	events := bus.New()
	var (
		mu       sync.Mutex
		rebuilds int
	)
	_, err := events.SubscribeTopic(bus.TopicField, bus.TypeFieldRebuilt, func(bus.Event) error {
		mu.Lock()
		rebuilds++
		mu.Unlock()
		return nil
	})
	require.NoError(t, err)

	s := startServer(t, events)
	conn := dial(t, s, "")
	readUntil(t, conn, TypeReady)

	send := func(labels ...string) {
		require.NoError(t, conn.WriteJSON(ClientMessage{Action: ActionInit, Labels: labels}))
	}
	count := func() int {
		mu.Lock()
		defer mu.Unlock()
		return rebuilds
	}

	send("Travel", "Food")
	assert.Eventually(t, func() bool { return count() == 1 }, 2*time.Second, 5*time.Millisecond)

	send("Travel", "Food")
	// An activation round trip orders the repeated init before the assertion.
	require.NoError(t, conn.WriteJSON(ClientMessage{Action: ActionActivate, ID: "Food"}))
	readUntil(t, conn, TypeNavigate)
	assert.Equal(t, 1, count())

	send("Travel", "Food", "Culture")
	assert.Eventually(t, func() bool { return count() == 2 }, 2*time.Second, 5*time.Millisecond)
}

func TestServer_MaxClients(t *testing.T) {
	cfg := testConfig()
	cfg.MaxClients = 0
	s := NewServer(cfg, nil, nil, log.Nop())
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestServer_InvalidArena(t *testing.T) {
	s := NewServer(testConfig(), nil, nil, log.Nop())
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/ws?width=-3")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestServer_CheckOrigin(t *testing.T) {
	s := NewServer(testConfig(), nil, nil, log.Nop())
	req := httptest.NewRequest(http.MethodGet, "http://game.example/ws", nil)
	assert.True(t, s.checkOrigin(req))

	req.Header.Set("Origin", "http://game.example")
	assert.True(t, s.checkOrigin(req))
	req.Header.Set("Origin", "http://evil.example")
	assert.False(t, s.checkOrigin(req))

	s.config.AllowedOrigins = []string{"http://evil.example"}
	assert.True(t, s.checkOrigin(req))
}

type stubGenres []api.Genre

func (g stubGenres) All(context.Context) []api.Genre { return g }

func TestServer_GenreField(t *testing.T) {
	s := NewServer(testConfig(), nil, stubGenres{{ID: 1, Name: "Travel"}, {ID: 2, Name: "Food"}}, log.Nop())
	srv := httptest.NewServer(s.Handler())
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/genres/field?width=900&height=500")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Width   float64 `json:"width"`
		Palette []string
		Bodies  []struct {
			ID         string  `json:"id"`
			X          float64 `json:"x"`
			Radius     float64 `json:"radius"`
			ColorIndex int     `json:"colorIndex"`
		}
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 900.0, body.Width)
	assert.Len(t, body.Palette, 8)
	require.Len(t, body.Bodies, 2)
	assert.Equal(t, "Travel", body.Bodies[0].ID)
	assert.Equal(t, 1, body.Bodies[1].ColorIndex)

	noGenres := NewServer(testConfig(), nil, nil, log.Nop())
	rec := httptest.NewRecorder()
	noGenres.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/genres/field", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestServer_Health(t *testing.T) {
	s := NewServer(testConfig(), nil, nil, log.Nop())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"clients":0,"framesSent":0,"activations":0,"eventsPublished":0,"topics":["field"],"running":false}`, rec.Body.String())
}

func TestServer_GenreFieldDropsRepeatedNames(t *testing.T) {
	genres := stubGenres{{ID: 1, Name: "Travel"}, {ID: 2, Name: ""}, {ID: 3, Name: "Travel"}, {ID: 4, Name: "Food"}}
	s := NewServer(testConfig(), nil, genres, log.Nop())
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/genres/field", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Bodies []struct {
			ID string `json:"id"`
		} `json:"bodies"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	ids := make([]string, 0, len(body.Bodies))
	for _, b := range body.Bodies {
		ids = append(ids, b.ID)
	}
	assert.Equal(t, []string{"Travel", "Food"}, ids)
}

func TestServer_ActivationsCountedFromBus(t *testing.T) {
	events := bus.New()
	s := NewServer(testConfig(), events, nil, log.Nop())

	err := events.PublishToTopic(bus.TopicField, bus.NewEvent(bus.TypeBodyActivated, "elsewhere", bus.Activation{Label: "food"}, nil))
	require.NoError(t, err)
	assert.Equal(t, uint64(1), s.Stats().Activations)
	assert.Equal(t, uint64(1), s.Stats().EventsPublished)

	// Default topic events are not field events.
	require.NoError(t, events.Publish(bus.NewEvent(bus.TypeBodyActivated, "elsewhere", nil, nil)))
	assert.Equal(t, uint64(1), s.Stats().Activations)
}
