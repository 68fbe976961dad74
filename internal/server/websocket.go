package server

import (
	"context"
	"encoding/json"
	"math"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/gogpu/glowmap"
	"github.com/gogpu/glowmap/internal/host"
)

// WebSocket timing, following the usual gorilla ping/pong scheme.
const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4 << 10
	maxSurfaceSide = 4096
)

func newUpgrader(allowedOrigins []string) websocket.Upgrader {
	return websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 64 << 10,
		CheckOrigin:     originChecker(allowedOrigins),
	}
}

// originChecker accepts requests whose Origin header is listed in
// allowed. "*" allows any origin. Requests without an Origin header do
// not come from a browser page and are accepted.
func originChecker(allowed []string) func(*http.Request) bool {
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		for _, o := range allowed {
			if o == "*" || strings.EqualFold(o, origin) {
				return true
			}
		}
		return false
	}
}

// clientMessage is a viewer event. Coordinates are CSS pixels; DPR is
// the device pixel ratio of the viewer.
type clientMessage struct {
	Type   string  `json:"type"` // move, leave, select, clear, resize
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	DPR    float64 `json:"dpr"`
	Period int     `json:"period"`
	Tier   int     `json:"tier"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// serverMessage is a JSON text message to the viewer. Frames travel as
// binary PNG messages.
type serverMessage struct {
	Type    string `json:"type"` // hello, tooltip
	Session string `json:"session,omitempty"`
	Text    string `json:"text,omitempty"`
	Visible bool   `json:"visible"`
}

// session is one connected viewer with its own engine loop. Frames and
// tooltips each keep only their latest pending value, so a slow viewer
// skips intermediate frames but always receives the last one.
type session struct {
	id       string
	conn     *websocket.Conn
	loop     *host.Loop
	frames   chan []byte
	tooltips chan []byte
	done     <-chan struct{}
	cancel   context.CancelFunc

	closeOnce sync.Once
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		glowmap.Logger().Warn("server: websocket upgrade failed", "err", err)
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	sess := newSession(uuid.New().String(), conn, ctx.Done(), cancel)
	sess.loop = host.New(host.Config{
		Width:        s.cfg.Width,
		Height:       s.cfg.Height,
		TickInterval: s.cfg.TickInterval,
		Options:      s.cfg.Options,
	}, sess)

	// Nothing else writes to conn until writePump starts.
	hello, _ := json.Marshal(serverMessage{Type: "hello", Session: sess.id})
	if !sess.write(websocket.TextMessage, hello) {
		sess.close()
		return
	}

	go sess.loop.Run(ctx)
	go sess.writePump()
	s.hub.add(sess)
	glowmap.Logger().Info("server: viewer connected", "session", sess.id, "viewers", s.hub.Len())

	sess.readPump()

	s.hub.remove(sess.id)
	sess.close()
	glowmap.Logger().Info("server: viewer disconnected", "session", sess.id)
}

func newSession(id string, conn *websocket.Conn, done <-chan struct{}, cancel context.CancelFunc) *session {
	return &session{
		id:       id,
		conn:     conn,
		frames:   make(chan []byte, 1),
		tooltips: make(chan []byte, 1),
		done:     done,
		cancel:   cancel,
	}
}

// Frame implements host.FrameSink. A frame the viewer has not received
// yet is replaced by f.
func (sess *session) Frame(f host.Frame) {
	if replaceLatest(sess.frames, f.PNG) {
		glowmap.Logger().Debug("server: superseded frame", "session", sess.id, "seq", f.Seq)
	}
}

// Tooltip implements host.FrameSink. Like frames, only the latest
// pending tooltip is delivered.
func (sess *session) Tooltip(text string, visible bool) {
	data, err := json.Marshal(serverMessage{Type: "tooltip", Text: text, Visible: visible})
	if err != nil {
		return
	}
	replaceLatest(sess.tooltips, data)
}

// replaceLatest puts data into the one-slot channel ch, discarding a
// value still waiting there. It reports whether one was discarded.
// ch must have a single sender.
func replaceLatest(ch chan []byte, data []byte) (replaced bool) {
	for {
		select {
		case ch <- data:
			return replaced
		default:
		}
		select {
		case <-ch:
			replaced = true
		default:
		}
	}
}

func (sess *session) close() {
	sess.closeOnce.Do(func() {
		sess.cancel()
		sess.conn.Close()
	})
}

func (sess *session) readPump() {
	sess.conn.SetReadLimit(maxMessageSize)
	sess.conn.SetReadDeadline(time.Now().Add(pongWait))
	sess.conn.SetPongHandler(func(string) error {
		return sess.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := sess.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				glowmap.Logger().Warn("server: websocket read", "session", sess.id, "err", err)
			}
			return
		}
		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			glowmap.Logger().Debug("server: bad client message", "session", sess.id, "err", err)
			continue
		}
		if err := sess.dispatch(msg); err != nil {
			return
		}
	}
}

// dispatch forwards a client message to the loop. It only fails once
// the loop has stopped.
func (sess *session) dispatch(msg clientMessage) error {
	switch msg.Type {
	case "move":
		return sess.loop.Pointer(host.Pointer{X: msg.X, Y: msg.Y, Scale: msg.DPR})
	case "leave":
		return sess.loop.Pointer(host.Pointer{Leave: true})
	case "select":
		return sess.loop.Select(host.Selection{Period: msg.Period, Tier: msg.Tier})
	case "clear":
		return sess.loop.Select(host.Selection{Clear: true})
	case "resize":
		if size, ok := surfaceSize(msg.Width, msg.Height, msg.DPR); ok {
			return sess.loop.Resize(size)
		}
	default:
		glowmap.Logger().Debug("server: unknown message type", "session", sess.id, "type", msg.Type)
	}
	return nil
}

// surfaceSize converts a CSS size at dpr into surface pixels.
func surfaceSize(w, h, dpr float64) (host.Size, bool) {
	if dpr <= 0 || math.IsNaN(dpr) || math.IsInf(dpr, 0) {
		dpr = 1
	}
	pw := int(math.Round(w * dpr))
	ph := int(math.Round(h * dpr))
	if pw <= 0 || ph <= 0 || pw > maxSurfaceSide || ph > maxSurfaceSide {
		return host.Size{}, false
	}
	return host.Size{Width: pw, Height: ph}, true
}

func (sess *session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		sess.close()
	}()

	for {
		select {
		case <-sess.done:
			return
		case data := <-sess.tooltips:
			if !sess.write(websocket.TextMessage, data) {
				return
			}
		case data := <-sess.frames:
			if !sess.write(websocket.BinaryMessage, data) {
				return
			}
		case <-ticker.C:
			if !sess.write(websocket.PingMessage, nil) {
				return
			}
		}
	}
}

func (sess *session) write(kind int, data []byte) bool {
	sess.conn.SetWriteDeadline(time.Now().Add(writeWait))
	if err := sess.conn.WriteMessage(kind, data); err != nil {
		glowmap.Logger().Debug("server: websocket write", "session", sess.id, "err", err)
		return false
	}
	return true
}
