// Package bridge connects the controller to the browser map page over a
// websocket. The page owns the real map camera, the gamepad API, the
// settings UI and device geolocation; the bridge mirrors their state and
// forwards camera and UI commands back.
package bridge

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/paulmach/orb"

	"mapstick/pkg/camera"
	"mapstick/pkg/dispatch"
	"mapstick/pkg/gamepad"
	"mapstick/pkg/inputctx"
	"mapstick/pkg/logging"
)

const (
	sendBuffer   = 256
	writeTimeout = 5 * time.Second
	pongTimeout  = 60 * time.Second
	pingPeriod   = 25 * time.Second
	readLimit    = 64 << 10
)

// ErrNotConnected is returned when no map page is attached.
var ErrNotConnected = errors.New("no map page connected")

// Handlers receive page events that target the controller. They run through
// the bridge's post func, i.e. on the frame loop goroutine.
type Handlers struct {
	LongPress func(at orb.Point, anchor *camera.ScreenPoint)
	Dismiss   func()
	Command   func(key string)
}

// Config holds the state the bridge reports before a page is attached.
type Config struct {
	Start   camera.Pose
	Terrain float64
	// Post schedules fn on the frame loop goroutine. Nil runs fn inline.
	Post func(fn func())
}

type client struct {
	id   string
	conn *websocket.Conn
	send chan []byte
	done chan struct{}
	once sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.done) })
}

// Bridge serves the /ws endpoint. Only one page is attached at a time; a new
// connection replaces the previous one.
type Bridge struct {
	camera.Signals

	logger   *slog.Logger
	post     func(fn func())
	upgrader websocket.Upgrader

	mu           sync.RWMutex
	client       *client
	handlers     Handlers
	pose         camera.Pose
	terrain      float64
	pad          gamepad.Snapshot
	padConnected bool
	ui           inputctx.UIState
	nextAnim     camera.AnimationID
	flying       camera.AnimationID
	pending      map[string]chan geolocationData
}

// New creates a detached bridge.
func New(cfg Config, logger *slog.Logger) *Bridge {
	if logger == nil {
		logger = slog.Default()
	}
	return &Bridge{
		logger:  logger,
		post:    cfg.Post,
		pose:    cfg.Start,
		terrain: cfg.Terrain,
		pending: make(map[string]chan geolocationData),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
			// The page is served by the same process or opened from a local file.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// SetHandlers installs the controller callbacks.
func (b *Bridge) SetHandlers(h Handlers) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = h
}

// Alive reports whether a page is attached.
func (b *Bridge) Alive() bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.client != nil
}

// Session returns the id of the attached page, or "".
func (b *Bridge) Session() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.client == nil {
		return ""
	}
	return b.client.id
}

// ServeHTTP upgrades the request and serves the page until it disconnects
// or is replaced.
func (b *Bridge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := b.upgrader.Upgrade(w, r, nil)
	if err != nil {
		b.logger.Warn("Websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}
	c := &client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
	b.attach(c)
	go b.writeLoop(c)
	b.readLoop(c)
	b.detach(c)
}

func (b *Bridge) attach(c *client) {
	b.mu.Lock()
	old := b.client
	b.client = c
	terrain := b.terrain
	b.mu.Unlock()

	if old != nil {
		b.logger.Info("Map page replaced", "old", old.id, "new", c.id)
		old.close()
	}
	b.logger.Info("Map page connected", "session", c.id, "remote", c.conn.RemoteAddr().String())
	logging.LogEvent(logging.Event{Type: "bridge", Title: "connected", Summary: c.id})
	b.send(OutHello, helloData{Session: c.id, Terrain: terrain})
}

// detach clears c if it is still the attached page. Pending lookups fail and
// an animation in flight is reported as ended so no transition hangs.
func (b *Bridge) detach(c *client) {
	c.close()
	b.mu.Lock()
	if b.client != c {
		b.mu.Unlock()
		return
	}
	b.client = nil
	b.padConnected = false
	b.pad = gamepad.Snapshot{}
	b.ui = inputctx.UIState{}
	flying := b.flying
	b.flying = 0
	pending := b.pending
	b.pending = make(map[string]chan geolocationData)
	b.mu.Unlock()

	for _, ch := range pending {
		ch <- geolocationData{Error: "unavailable"}
	}
	if flying != 0 {
		b.dispatch(func() { b.EmitMoveEnd(camera.MoveEnd{Animation: flying}) })
	}
	b.logger.Info("Map page disconnected", "session", c.id)
	logging.LogEvent(logging.Event{Type: "bridge", Title: "disconnected", Summary: c.id})
}

func (b *Bridge) writeLoop(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()
	for {
		select {
		case msg := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				b.logger.Debug("Websocket write failed", "session", c.id, "error", err)
				c.close()
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				c.close()
				return
			}
		case <-c.done:
			_ = c.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, "replaced"),
				time.Now().Add(writeTimeout))
			return
		}
	}
}

func (b *Bridge) readLoop(c *client) {
	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongTimeout))
	})
	for {
		typ, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				b.logger.Warn("Websocket read failed", "session", c.id, "error", err)
			}
			return
		}
		if typ != websocket.TextMessage {
			continue
		}
		// Frames from a replaced page are dropped.
		if !b.current(c) {
			return
		}
		var msg Message
		if err := json.Unmarshal(data, &msg); err != nil {
			b.logger.Warn("Malformed bridge message", "session", c.id, "error", err)
			continue
		}
		if err := b.handle(msg); err != nil {
			b.logger.Warn("Bad bridge message", "type", msg.Type, "error", err)
		}
	}
}

func (b *Bridge) current(c *client) bool {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.client == c
}

// send queues a message for the attached page. Without a page, or with a
// full queue, the message is dropped.
func (b *Bridge) send(typ string, data any) bool {
	raw, err := encode(typ, data)
	if err != nil {
		b.logger.Error("Failed to encode bridge message", "type", typ, "error", err)
		return false
	}
	b.mu.RLock()
	c := b.client
	b.mu.RUnlock()
	if c == nil {
		return false
	}
	select {
	case c.send <- raw:
		logging.Trace(b.logger, "Bridge send", "type", typ)
		return true
	case <-c.done:
		return false
	default:
		b.logger.Warn("Bridge send queue full, dropping message", "type", typ)
		return false
	}
}

func (b *Bridge) dispatch(fn func()) {
	if b.post == nil {
		fn()
		return
	}
	b.post(fn)
}

// Poll implements gamepad.Device.
func (b *Bridge) Poll() (gamepad.Snapshot, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.client == nil || !b.padConnected {
		return gamepad.Snapshot{}, false
	}
	return b.pad.Clone(), true
}

// UIState implements inputctx.UISource.
func (b *Bridge) UIState() inputctx.UIState {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.ui
}

// Locate implements dispatch.Geolocator by asking the page for the device
// position.
func (b *Bridge) Locate(ctx context.Context) (orb.Point, error) {
	id := uuid.NewString()
	ch := make(chan geolocationData, 1)

	b.mu.Lock()
	if b.client == nil {
		b.mu.Unlock()
		return orb.Point{}, fmt.Errorf("%w: %w", dispatch.ErrUnavailable, ErrNotConnected)
	}
	b.pending[id] = ch
	b.mu.Unlock()

	defer func() {
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
	}()

	deadline, ok := ctx.Deadline()
	if !b.send(OutLocate, locateData{ID: id, TimeoutMS: timeoutMS(deadline, ok)}) {
		return orb.Point{}, fmt.Errorf("%w: %w", dispatch.ErrUnavailable, ErrNotConnected)
	}

	select {
	case res := <-ch:
		switch res.Error {
		case "":
			return orb.Point{res.Lon, res.Lat}, nil
		case "permission_denied":
			return orb.Point{}, dispatch.ErrPermissionDenied
		case "timeout":
			return orb.Point{}, dispatch.ErrTimeout
		default:
			return orb.Point{}, fmt.Errorf("%w: %s", dispatch.ErrUnavailable, res.Error)
		}
	case <-ctx.Done():
		return orb.Point{}, fmt.Errorf("%w: %w", dispatch.ErrTimeout, ctx.Err())
	}
}
