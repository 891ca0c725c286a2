package httpserver

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// Server is the chi router behind the listings API.
type Server struct{ mux *chi.Mux }

// New installs the middleware chain. Routes are added later by MountHandlers and
// Mount, chi rejects Use after the first route.
func New(l zerolog.Logger, timeout time.Duration) *Server {
	m := chi.NewRouter()
	m.Use(
		chimw.RealIP,
		chimw.RequestID,
		chimw.Recoverer,
		chimw.StripSlashes,
		Timeout(timeout),
		Metrics,
		Logger(l),
	)
	m.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, http.StatusNotFound, "Not Found", "no route for "+r.URL.Path)
	})
	m.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeProblem(w, http.StatusMethodNotAllowed, "Method Not Allowed", r.Method+" is not supported here")
	})
	return &Server{mux: m}
}

func (s *Server) Mux() http.Handler { return s.mux }

// Mount attaches an extra handler such as /metrics.
func (s *Server) Mount(path string, h http.Handler) { s.mux.Handle(path, h) }

// MountHandlers registers the health probe and the /v1/listings resource.
func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("ok"))
	})
	s.mux.Route("/v1/listings", func(r chi.Router) {
		r.Get("/", h.index)
		r.Post("/", h.create)
		r.Get("/search", h.search)
		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.show)
			r.Put("/", h.update)
			r.Delete("/", h.destroy)
			r.Get("/edit", h.edit)
		})
	})
}
