package server

import (
	"bytes"
	"net/http"
	"strconv"

	"github.com/gogpu/gg"

	"github.com/gogpu/glowmap"
)

// handleFrame renders the latest snapshot as a still PNG. Optional
// query parameters: width, height and active=period/tier.
func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	width, ok := dimension(q.Get("width"), s.cfg.Width)
	if !ok {
		http.Error(w, "invalid width", http.StatusBadRequest)
		return
	}
	height, ok := dimension(q.Get("height"), s.cfg.Height)
	if !ok {
		http.Error(w, "invalid height", http.StatusBadRequest)
		return
	}

	e := glowmap.New(width, height, s.cfg.Options...)
	if latest := s.hub.Latest(); latest != nil {
		e.SetSnapshot(latest)
	} else {
		e.SetLoading(true)
	}
	if active := q.Get("active"); active != "" {
		k, err := glowmap.ParseCellKey(active)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if err := e.SetActiveCell(k.Period, k.Tier); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
	}

	dc := gg.NewContext(width, height)
	e.Render(dc)

	var buf bytes.Buffer
	if err := dc.EncodePNG(&buf); err != nil {
		http.Error(w, "encoding frame", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(buf.Bytes())
}

// dimension parses a surface side, falling back to def when empty.
func dimension(v string, def int) (int, bool) {
	if v == "" {
		return def, def > 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 || n > maxSurfaceSide {
		return 0, false
	}
	return n, true
}
