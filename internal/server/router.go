package server

import (
	"log/slog"
	"net/http"

	"github.com/rs/cors"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"viraflow-api/internal/logging"
	"viraflow-api/internal/tasks"
)

type Options struct {
	Version        string
	MaxBodyBytes   int64
	HTTP2Cleartext bool
	// Metrics is mounted at /metrics when non-nil.
	Metrics http.Handler
	Log     *slog.Logger
}

// New wires every endpoint onto one mux and wraps it with middleware and
// CORS (any origin, credentials allowed).
func New(h *tasks.TaskHandler, opts Options) http.Handler {
	if opts.Log == nil {
		opts.Log = logging.Nop()
	}

	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("OK"))
	})
	mux.HandleFunc("GET /{$}", tasks.StatusHandler(opts.Version))

	mux.HandleFunc("POST "+tasks.PathAnalyzeMixed, tasks.AnalyzeMixedHandler(h))
	mux.HandleFunc("POST "+tasks.PathCoachMe, tasks.CoachMeHandler(h))
	mux.HandleFunc("POST "+tasks.PathDecomposeTask, tasks.DecomposeTaskHandler(h))

	if opts.Metrics != nil {
		mux.Handle("GET /metrics", opts.Metrics)
	}

	c := cors.New(cors.Options{
		AllowOriginFunc: func(string) bool { return true },
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch,
			http.MethodDelete, http.MethodHead, http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{HeaderRequestID},
		AllowCredentials: true,
	})

	handler := c.Handler(NewMiddleware(opts.Log, opts.MaxBodyBytes).Wrap(mux))

	if opts.HTTP2Cleartext {
		handler = h2c.NewHandler(handler, &http2.Server{})
	}
	return handler
}
