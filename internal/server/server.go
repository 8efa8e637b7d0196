package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/iksnae/agentlog-viewer/internal"
	"github.com/iksnae/agentlog-viewer/internal/storage"
)

// History is the upload history the server records to.
type History interface {
	Add(ctx context.Context, rec internal.HistoryRecord) (*internal.HistoryRecord, error)
	List(ctx context.Context, limit int) ([]internal.HistoryRecord, error)
	Get(ctx context.Context, id string) (*internal.HistoryRecord, error)
	Delete(ctx context.Context, id string) error
}

// ObjectStore is the bucket the server uploads to.
type ObjectStore interface {
	Enabled() bool
	Upload(ctx context.Context, name, contentType string, body []byte) (*storage.Object, error)
	Delete(ctx context.Context, key string) error
	PresignUpload(ctx context.Context, name string, size int64, contentType string) (*storage.PresignedUpload, error)
}

// Options wires the server's collaborators. Processor is required.
type Options struct {
	Processor      *internal.Processor
	History        History
	Store          ObjectStore
	Metrics        *Metrics
	Gatherer       prometheus.Gatherer
	MaxUploadBytes int64
	Version        string
}

// Server is the HTTP front end of the pipeline.
type Server struct {
	opts   Options
	router chi.Router
}

// New builds a Server and its routes.
func New(opts Options) *Server {
	if opts.Processor == nil {
		opts.Processor = internal.NewProcessor(internal.DefaultConfig())
	}
	if opts.MaxUploadBytes <= 0 {
		opts.MaxUploadBytes = 100 << 20
	}
	if opts.Gatherer == nil {
		opts.Gatherer = prometheus.DefaultGatherer
	}
	if opts.Version == "" {
		opts.Version = "dev"
	}
	s := &Server{opts: opts}
	s.router = s.routes()
	return s
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: internal.StdLogger(), NoColor: true}))
	r.Use(middleware.Recoverer)
	r.Use(cors)
	r.Use(s.countRequests)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, "not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusMethodNotAllowed, "method not allowed", nil)
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/analyze-csv", s.handleAnalyze)
		r.Post("/generate-html", s.handleGenerate)
		r.Post("/preview", s.handlePreview)
		r.Post("/get-upload-url", s.handleUploadURL)
		r.Post("/upload-to-r2", s.handleUpload)
		r.Get("/upload-history", s.handleHistoryList)
		r.Delete("/upload-history", s.handleHistoryDelete)
		r.Get("/health", s.handleHealth)
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.opts.Gatherer, promhttp.HandlerOpts{}))

	return r
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		internal.LogInfo("Listening on %s", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		internal.LogInfo("Shutting down server")
		return srv.Shutdown(shutdownCtx)
	}
}

// cors allows any origin and answers preflight requests directly.
func cors(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		s.opts.Metrics.ObserveRequest(route, status)
	})
}
