package http

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/APerson241/pending-subs/internal/model"
	"github.com/APerson241/pending-subs/internal/service"
)

// Pipeline is what the dashboard needs from the service layer.
type Pipeline interface {
	View(required model.TagSet, query string) service.View
	Submit(ctx context.Context) *model.Run
	GetRun(ctx context.Context, id string) (*model.Run, error)
	LatestRun() (*model.Run, error)
	ListRuns() []*model.Run
}

var _ Pipeline = (*service.PipelineService)(nil)

type Server struct {
	router      *http.ServeMux
	pipeline    Pipeline
	articleBase string
	logger      *zap.Logger
}

func NewServer(pipeline Pipeline, articleBase string, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	server := &Server{
		router:      http.NewServeMux(),
		pipeline:    pipeline,
		articleBase: articleBase,
		logger:      logger,
	}
	server.router.HandleFunc("GET /{$}", server.handleDashboard)
	server.router.HandleFunc("GET /api/records", server.handleRecords)
	server.router.HandleFunc("GET /api/runs", server.handleListRuns)
	server.router.HandleFunc("GET /api/runs/latest", server.handleLatestRun)
	server.router.HandleFunc("GET /api/runs/{id}", server.handleGetRun)
	server.router.HandleFunc("POST /refresh", server.handleRefresh)
	server.router.HandleFunc("GET /healthz", server.handleHealth)
	return server
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	s.router.ServeHTTP(w, r)
	s.logger.Debug("http request",
		zap.String("method", r.Method),
		zap.String("path", r.URL.Path),
		zap.Duration("elapsed", time.Since(start)))
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return nil
	}
}
