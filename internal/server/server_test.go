package server

import (
	"bytes"
	"encoding/json"
	"image/png"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/gogpu/glowmap"
)

func testSnapshot() *glowmap.Snapshot {
	return &glowmap.Snapshot{Cells: []glowmap.Cell{
		{Period: 2020, Tier: 1, TrackedRecords: 50, UntrackedRecords: 20},
		{Period: 2024, Tier: 5, TrackedRecords: 10, UntrackedRecords: 4},
	}}
}

func newTestServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	s := New(Config{
		Width:        320,
		Height:       200,
		TickInterval: 10 * time.Millisecond,
		Options:      []glowmap.Option{glowmap.WithFace(nil)},
	})
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Hub().CloseAll()
		ts.Close()
	})
	return s, ts
}

func TestHealthz(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK || string(body) != "ok" {
		t.Errorf("healthz = %d %q", resp.StatusCode, body)
	}
}

func TestViewerPage(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	if !strings.Contains(string(body), "/ws") {
		t.Error("viewer page does not open the websocket")
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q", ct)
	}
}

func TestFramePNG(t *testing.T) {
	s, ts := newTestServer(t)
	s.Hub().SetSnapshot(testSnapshot())

	tests := []struct {
		name       string
		query      string
		wantStatus int
		wantW      int
		wantH      int
	}{
		{"default size", "", http.StatusOK, 320, 200},
		{"custom size", "?width=200&height=100", http.StatusOK, 200, 100},
		{"active cell", "?active=2022/3", http.StatusOK, 320, 200},
		{"bad width", "?width=abc", http.StatusBadRequest, 0, 0},
		{"too large", "?height=100000", http.StatusBadRequest, 0, 0},
		{"bad active", "?active=2022", http.StatusBadRequest, 0, 0},
		{"active outside grid", "?active=2030/3", http.StatusBadRequest, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := http.Get(ts.URL + "/frame.png" + tt.query)
			if err != nil {
				t.Fatal(err)
			}
			defer resp.Body.Close()
			if resp.StatusCode != tt.wantStatus {
				t.Fatalf("status = %d, want %d", resp.StatusCode, tt.wantStatus)
			}
			if tt.wantStatus != http.StatusOK {
				return
			}
			img, err := png.Decode(resp.Body)
			if err != nil {
				t.Fatalf("decoding: %v", err)
			}
			if b := img.Bounds(); b.Dx() != tt.wantW || b.Dy() != tt.wantH {
				t.Errorf("size = %dx%d, want %dx%d", b.Dx(), b.Dy(), tt.wantW, tt.wantH)
			}
		})
	}
}

func TestFramePNGBeforeData(t *testing.T) {
	_, ts := newTestServer(t)
	resp, err := http.Get(ts.URL + "/frame.png")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d", resp.StatusCode)
	}
}

// wsClient reads messages from a viewer connection.
type wsClient struct {
	t    *testing.T
	conn *websocket.Conn
}

func dial(t *testing.T, ts *httptest.Server) *wsClient {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return &wsClient{t: t, conn: conn}
}

func (c *wsClient) send(msg clientMessage) {
	c.t.Helper()
	if err := c.conn.WriteJSON(msg); err != nil {
		c.t.Fatalf("write: %v", err)
	}
}

// until reads messages until match accepts one.
func (c *wsClient) until(match func(kind int, data []byte) bool) {
	c.t.Helper()
	c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	for {
		kind, data, err := c.conn.ReadMessage()
		if err != nil {
			c.t.Fatalf("read: %v", err)
		}
		if match(kind, data) {
			return
		}
	}
}

func TestWebSocketSession(t *testing.T) {
	s, ts := newTestServer(t)
	c := dial(t, ts)

	var hello serverMessage
	c.until(func(kind int, data []byte) bool {
		return kind == websocket.TextMessage && json.Unmarshal(data, &hello) == nil && hello.Type == "hello"
	})
	if hello.Session == "" {
		t.Error("hello without session id")
	}

	s.Hub().SetSnapshot(testSnapshot())
	c.send(clientMessage{Type: "resize", Width: 200, Height: 150, DPR: 2})
	c.until(func(kind int, data []byte) bool {
		if kind != websocket.BinaryMessage {
			return false
		}
		img, err := png.Decode(bytes.NewReader(data))
		return err == nil && img.Bounds().Dx() == 400 && img.Bounds().Dy() == 300
	})

	layout := glowmap.NewLayout(400, 300, 5, 2020, glowmap.DefaultInsets(), 2)
	x, y := layout.CellCenter(glowmap.CellKey{Period: 2024, Tier: 5})
	c.send(clientMessage{Type: "move", X: x / 2, Y: y / 2, DPR: 2})
	c.until(func(kind int, data []byte) bool {
		var msg serverMessage
		if kind != websocket.TextMessage || json.Unmarshal(data, &msg) != nil {
			return false
		}
		return msg.Type == "tooltip" && msg.Visible && strings.HasPrefix(msg.Text, "2024 · Tier 5")
	})

	c.send(clientMessage{Type: "leave"})
	c.until(func(kind int, data []byte) bool {
		var msg serverMessage
		return kind == websocket.TextMessage && json.Unmarshal(data, &msg) == nil &&
			msg.Type == "tooltip" && !msg.Visible
	})
}

func TestWebSocketDisconnect(t *testing.T) {
	s, ts := newTestServer(t)
	c := dial(t, ts)
	c.until(func(kind int, _ []byte) bool { return kind == websocket.TextMessage })

	deadline := time.Now().Add(5 * time.Second)
	for s.Hub().Len() != 1 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if s.Hub().Len() != 1 {
		t.Fatalf("Len() = %d, want 1", s.Hub().Len())
	}

	c.conn.Close()
	for s.Hub().Len() != 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}
	if s.Hub().Len() != 0 {
		t.Errorf("session not removed after disconnect")
	}
}

func TestSurfaceSize(t *testing.T) {
	tests := []struct {
		name      string
		w, h, dpr float64
		want      [2]int
		ok        bool
	}{
		{"1x", 300, 200, 1, [2]int{300, 200}, true},
		{"2x", 300, 200, 2, [2]int{600, 400}, true},
		{"fractional", 301, 201, 1.5, [2]int{452, 302}, true},
		{"zero dpr", 300, 200, 0, [2]int{300, 200}, true},
		{"empty", 0, 200, 1, [2]int{}, false},
		{"huge", 5000, 200, 1, [2]int{}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := surfaceSize(tt.w, tt.h, tt.dpr)
			if ok != tt.ok || (ok && (got.Width != tt.want[0] || got.Height != tt.want[1])) {
				t.Errorf("surfaceSize = %+v, %v", got, ok)
			}
		})
	}
}
