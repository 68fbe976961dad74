// Package server serves an interactive glowmap viewer over HTTP: a
// static page, a PNG endpoint and a websocket carrying pointer events
// in and rendered frames out.
package server

import (
	"context"
	_ "embed"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"github.com/gogpu/glowmap"
)

//go:embed viewer.html
var viewerHTML []byte

// Config configures a Server.
type Config struct {
	Addr           string
	AllowedOrigins []string

	// Width and Height are the default surface size for /frame.png and
	// for viewers that have not reported their size yet.
	Width, Height int
	TickInterval  time.Duration
	Options       []glowmap.Option
}

// Server represents the HTTP server.
type Server struct {
	cfg      Config
	hub      *Hub
	router   *chi.Mux
	server   *http.Server
	upgrader websocket.Upgrader
}

// New creates a server. Snapshots and touches reach viewers through Hub.
func New(cfg Config) *Server {
	if len(cfg.AllowedOrigins) == 0 {
		cfg.AllowedOrigins = []string{"*"}
	}
	s := &Server{cfg: cfg, hub: NewHub(), upgrader: newUpgrader(cfg.AllowedOrigins)}

	router := chi.NewRouter()
	router.Use(middleware.RequestID)
	router.Use(middleware.RealIP)
	router.Use(requestLogger)
	router.Use(middleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{"GET", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
		MaxAge:         300,
	}))

	router.Get("/", s.handleViewer)
	router.Get("/frame.png", s.handleFrame)
	router.Get("/healthz", s.handleHealth)
	router.Get("/ws", s.handleWebSocket)

	s.router = router
	s.server = &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Hub returns the viewer hub.
func (s *Server) Hub() *Hub { return s.hub }

// ListenAndServe serves until ctx is canceled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	errc := make(chan error, 1)
	go func() {
		glowmap.Logger().Info("server: listening", "addr", s.cfg.Addr)
		errc <- s.server.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.hub.CloseAll()
	if err := s.server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) handleViewer(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(viewerHTML)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

// requestLogger logs each request through the glowmap logger.
func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		glowmap.Logger().LogAttrs(r.Context(), slog.LevelDebug, "server: request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("took", time.Since(start)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}
