// Package server is the HTTP surface of the bridge: a JSON API under
// /api/v1, Prometheus metrics, and an MCP endpoint exposing the same
// actions as tools.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"xhsmcp/history"
	"xhsmcp/metrics"
	"xhsmcp/queue"
	"xhsmcp/scheduler"
	"xhsmcp/xiaohongshu"
)

const (
	shutdownGrace       = 10 * time.Second
	defaultLoginTimeout = 5 * time.Minute
)

// Actions is the site automation the server exposes.
type Actions interface {
	CheckLoginStatus(ctx context.Context) (*xiaohongshu.LoginStatus, error)
	Login(ctx context.Context, timeout, interval time.Duration) error
	GetFeeds(ctx context.Context, page, size int) (*xiaohongshu.FeedResult, error)
	GetNoteDetail(ctx context.Context, noteID string) (*xiaohongshu.NoteDetailResult, error)
	Search(ctx context.Context, keyword string, page, size int) (*xiaohongshu.SearchResult, error)
	PostComment(ctx context.Context, req xiaohongshu.CommentRequest) (*xiaohongshu.CommentResult, error)
	PublishContent(ctx context.Context, req xiaohongshu.PublishRequest) (*xiaohongshu.PublishResult, error)
}

// HistoryReader lists recent actions.
type HistoryReader interface {
	Recent(ctx context.Context, limit int) ([]history.Episode, error)
}

// Options carries the optional collaborators. Nil fields disable the routes
// that need them.
type Options struct {
	History    HistoryReader
	Metrics    *metrics.Metrics
	LoginProbe *scheduler.LoginProbe
	Logger     *slog.Logger
	Version    string

	// LoginTimeout caps POST /api/v1/login; LoginInterval is its poll period.
	LoginTimeout  time.Duration
	LoginInterval time.Duration
}

type Server struct {
	actions Actions
	queue   *queue.Queue
	history HistoryReader
	metrics *metrics.Metrics
	probe   *scheduler.LoginProbe
	logger  *slog.Logger

	loginTimeout  time.Duration
	loginInterval time.Duration

	router *mux.Router
	mcp    *mcpserver.MCPServer
}

// New wires the routes. Every page action goes through q.
func New(actions Actions, q *queue.Queue, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	version := opts.Version
	if version == "" {
		version = "dev"
	}
	s := &Server{
		actions: actions,
		queue:   q,
		history: opts.History,
		metrics: opts.Metrics,
		probe:   opts.LoginProbe,
		logger:  logger.With("component", "server"),
		router:  mux.NewRouter(),

		loginTimeout:  opts.LoginTimeout,
		loginInterval: opts.LoginInterval,
	}
	if s.loginTimeout <= 0 {
		s.loginTimeout = defaultLoginTimeout
	}
	s.mcp = s.newMCPServer(version)
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.Use(s.observe)

	s.router.HandleFunc("/health", s.handleHealth).Methods("GET")

	api := s.router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/check_login", s.handleCheckLogin).Methods("GET")
	api.HandleFunc("/login", s.handleLogin).Methods("POST")
	api.HandleFunc("/feeds", s.handleFeeds).Methods("GET")
	api.HandleFunc("/search", s.handleSearch).Methods("GET")
	api.HandleFunc("/note_detail", s.handleNoteDetail).Methods("GET")
	api.HandleFunc("/comment", s.handleComment).Methods("POST")
	api.HandleFunc("/publish", s.handlePublish).Methods("POST")
	api.HandleFunc("/jobs/{id}", s.handleGetJob).Methods("GET")
	api.HandleFunc("/history", s.handleHistory).Methods("GET")
	api.HandleFunc("/login_probe", s.handleLoginProbe).Methods("GET")

	if s.metrics != nil {
		s.router.Handle("/metrics", s.metrics.Handler()).Methods("GET")
	}
	s.router.Handle("/mcp", mcpserver.NewStreamableHTTPServer(s.mcp))
}

func (s *Server) Handler() http.Handler { return s.router }

// ListenAndServe serves until ctx ends, then drains in-flight requests for
// up to ten seconds.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.logger.Info("listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server: %w", err)
	case <-ctx.Done():
	}

	s.logger.Info("shutting down", "grace", shutdownGrace)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	return nil
}

type statusRecorder struct {
	http.ResponseWriter
	code int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.code = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// observe logs every request and feeds the HTTP metrics.
func (s *Server) observe(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := r.URL.Path
		if cur := mux.CurrentRoute(r); cur != nil {
			if tpl, err := cur.GetPathTemplate(); err == nil {
				route = tpl
			}
		}
		elapsed := time.Since(start)
		if s.metrics != nil {
			s.metrics.ObserveRequest(route, rec.code, elapsed)
		}
		s.logger.Debug("request", "method", r.Method, "route", route, "status", rec.code, "elapsed", elapsed)
	})
}
