package httpapi

import (
	"booklist/internal/core/service"
	"booklist/internal/logger"
	"booklist/internal/metrics"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	apiBasePath    = "/api"
	booksBasePath  = "/books"
	searchBasePath = "/search"
	memoSubPath    = "/memo"

	paramID = "id"

	headerRequestID = "X-Request-ID"
)

// Server exposes the reading list and the search data source over HTTP.
type Server struct {
	books  *service.ReadingListService
	search *service.SearchDataSource
}

func NewServer(books *service.ReadingListService, search *service.SearchDataSource) *Server {
	return &Server{books: books, search: search}
}

// Routes builds the router with the middleware stack applied.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(requestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(instrument)

	r.Route(apiBasePath, func(r chi.Router) {
		r.Route(booksBasePath, func(r chi.Router) {
			r.Get("/", makeHandler(s.handleListBooks))
			r.Post("/", makeHandler(s.handleAddBook))
			r.Put("/{"+paramID+"}"+memoSubPath, makeHandler(s.handleUpdateMemo))
			r.Delete("/{"+paramID+"}", makeHandler(s.handleDeleteBook))
		})
		r.Route(searchBasePath, func(r chi.Router) {
			r.Get("/", makeHandler(s.handleGetSearch))
			r.Post("/", makeHandler(s.handlePostSearch))
		})
	})

	r.Get("/healthz", handleHealthCheck)
	r.Handle("/metrics", promhttp.Handler())

	return r
}

func handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// requestID reuses the caller's X-Request-ID or generates one, and attaches
// it to the request context for logging.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(headerRequestID)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(headerRequestID, id)
		next.ServeHTTP(w, r.WithContext(logger.ContextWithID(r.Context(), id)))
	})
}

func requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.For(r.Context()).
			WithField("status", ww.Status()).
			WithField("bytes", ww.BytesWritten()).
			WithField("duration", time.Since(start).String()).
			Infof("%s %s", r.Method, r.URL.Path)
	})
}

// instrument records request counts and durations labelled by route pattern.
func instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		path := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				path = pattern
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		metrics.HttpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(status)).Inc()
		metrics.HttpRequestDuration.WithLabelValues(path).Observe(time.Since(start).Seconds())
	})
}
