// Package httpapi serves the tutoring operations over JSON HTTP.
package httpapi

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/samber/lo"

	"github.com/abhisek/coursemate/internal/app"
)

// DefaultRequestTimeout bounds every request, model calls included.
const DefaultRequestTimeout = 120 * time.Second

// MaxUploadBytes caps PDF uploads.
const MaxUploadBytes = 50 << 20

// Options configures the Server.
type Options struct {
	RequestTimeout time.Duration

	// CORSOrigins lists allowed origins. "*" or an empty list allows any.
	CORSOrigins []string
	Logger      *slog.Logger
}

// Server routes HTTP requests to an app.Service.
type Server struct {
	svc     *app.Service
	opts    Options
	logger  *slog.Logger
	handler http.Handler
}

// New creates a Server.
func New(svc *app.Service, opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = DefaultRequestTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{svc: svc, opts: opts, logger: logger}
	s.handler = s.routes()
	return s
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) routes() http.Handler {
	router := mux.NewRouter()

	router.Use(s.corsMiddleware)
	router.Use(jsonMiddleware)
	router.Use(s.timeoutMiddleware)

	router.PathPrefix("/").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Methods("OPTIONS")

	router.HandleFunc("/", s.root).Methods("GET")
	router.HandleFunc("/health", s.health).Methods("GET")
	router.HandleFunc("/documents/", s.documents).Methods("GET")

	router.HandleFunc("/upload-pdf/", s.uploadPDF).Methods("POST")
	router.HandleFunc("/ask/", s.ask).Methods("POST")
	router.HandleFunc("/summarize/", s.summarize).Methods("POST")
	router.HandleFunc("/generate-quiz/", s.generateQuiz).Methods("POST")
	router.HandleFunc("/generate-adaptive-quiz/", s.generateAdaptiveQuiz).Methods("POST")
	router.HandleFunc("/submit-quiz/", s.submitQuiz).Methods("POST")
	router.HandleFunc("/student-progress/", s.studentProgress).Methods("POST")
	router.HandleFunc("/teacher-dashboard/", s.teacherDashboard).Methods("POST")

	return router
}

func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	allowAny := len(s.opts.CORSOrigins) == 0 || lo.Contains(s.opts.CORSOrigins, "*")
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		origin := r.Header.Get("Origin")
		switch {
		case allowAny:
			w.Header().Set("Access-Control-Allow-Origin", "*")
		case origin != "" && lo.Contains(s.opts.CORSOrigins, origin):
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Credentials", "true")
			w.Header().Add("Vary", "Origin")
		}
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "*")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func jsonMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) timeoutMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.opts.RequestTimeout)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) root(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "Backend running"})
}

func (s *Server) health(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Ping(r.Context()); err != nil {
		s.logger.Error("health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func writeJSON(w http.ResponseWriter, statusCode int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}
