package status

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/Hara602/micStreamer/internal/supervisor"
	"github.com/Hara602/micStreamer/internal/sysutil"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// Server read-only inspection surface for the running agent.
// Serves the per-stream report; never mutates supervisor state.
type Server struct {
	sup  *supervisor.Supervisor
	http *http.Server
}

func NewServer(listen string, sup *supervisor.Supervisor) *Server {
	s := &Server{sup: sup}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Get("/healthz", s.handleHealthz)
	r.Get("/streams", s.handleStreams)

	s.http = &http.Server{
		Addr:              listen,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Start serves in the background; listen errors are logged, not fatal
// (the agent keeps streaming even if the status port is taken).
func (s *Server) Start() {
	go func() {
		sysutil.Log.Info("status server listening", zap.String("addr", s.http.Addr))
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			sysutil.Log.Error("status server stopped", zap.Error(err))
		}
	}()
}

func (s *Server) Stop() {
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = s.http.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleStreams(w http.ResponseWriter, _ *http.Request) {
	report := s.sup.Snapshot()
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(report); err != nil {
		sysutil.Log.Error("encode stream report", zap.Error(err))
	}
}
