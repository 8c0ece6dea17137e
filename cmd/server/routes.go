package main

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/wavesketch/wavesketch/pkg/logger"
	"github.com/wavesketch/wavesketch/pkg/utils"
)

// setupRoutes registers every HTTP route and wraps them with CORS.
func (s *Server) setupRoutes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/", s.handleRoot)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/api/health/metrics", s.handleMetrics)
	mux.HandleFunc("/api/tracks", s.handleTracks)
	mux.HandleFunc("/api/tracks/", s.handleTrack)
	mux.HandleFunc("/api/query", s.handleQuery)

	return corsMiddleware(s.config.AllowedOrigins)(mux)
}

// corsMiddleware adds CORS headers to responses, adapted from the
// teacher's origin allow-list middleware.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			allowed := false
			if len(allowedOrigins) == 0 || (len(allowedOrigins) == 1 && allowedOrigins[0] == "*") {
				w.Header().Set("Access-Control-Allow-Origin", "*")
				allowed = true
			} else {
				for _, allowedOrigin := range allowedOrigins {
					if allowedOrigin == origin {
						w.Header().Set("Access-Control-Allow-Origin", origin)
						allowed = true
						break
					}
				}
			}

			if allowed {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
				w.Header().Set("Access-Control-Max-Age", "3600")
			}

			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// loggingMiddleware tags every request with a fresh request id (so its
// log lines can be correlated end to end through the service and query
// engine), logs it and the resulting status code, and echoes it back
// as a response header.
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := utils.NewRequestID()
		w.Header().Set("X-Request-Id", reqID)
		r = r.WithContext(utils.WithRequestID(r.Context(), reqID))

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		log := logger.GetLogger().WithRequestID(r.Context())
		log.Infof("%s %s from %s", r.Method, r.URL.Path, clientIP(r))
		next.ServeHTTP(wrapped, r)
		log.Infof("%s %s -> %d", r.Method, r.URL.Path, wrapped.statusCode)
	})
}

type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func clientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ips := strings.Split(xff, ","); len(ips) > 0 {
			return strings.TrimSpace(ips[0])
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return xri
	}
	ip := r.RemoteAddr
	if idx := strings.LastIndex(ip, ":"); idx != -1 {
		ip = ip[:idx]
	}
	return ip
}

// Start runs the HTTP server until it errors or the process exits.
func (s *Server) Start() error {
	handler := loggingMiddleware(s.setupRoutes())

	addr := fmt.Sprintf(":%d", s.config.Port)
	s.log.Infof("wavesketch server starting on %s", addr)
	s.log.Infof("  database: %s", s.config.DBPath)
	s.log.Infof("  sample rate: %d Hz", s.config.SampleRate)
	s.log.Infof("  CORS origins: %v", s.config.AllowedOrigins)
	s.log.Infof("endpoints:")
	s.log.Infof("  GET    /health                - health check")
	s.log.Infof("  GET    /api/health/metrics    - server metrics")
	s.log.Infof("  GET    /api/tracks            - list tracks")
	s.log.Infof("  POST   /api/tracks            - add a track from an uploaded file")
	s.log.Infof("  GET    /api/tracks/{id}       - get a track by id")
	s.log.Infof("  DELETE /api/tracks/{id}       - delete a track and its index rows")
	s.log.Infof("  POST   /api/query             - find similar tracks for an uploaded file")

	return http.ListenAndServe(addr, handler)
}
