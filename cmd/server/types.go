package main

import "github.com/wavesketch/wavesketch/pkg/wavesketch"

// ServerConfig holds the HTTP server's own configuration, layered on
// top of the wavesketch.Service it wraps.
type ServerConfig struct {
	Port           int
	DBPath         string
	TempDir        string
	SampleRate     int
	AllowedOrigins []string
}

// Server encapsulates the HTTP server and its dependencies.
type Server struct {
	service wavesketch.Service
	config  *ServerConfig
	log     wavesketch.Logger
}

// TrackDTO is a track in API responses.
type TrackDTO struct {
	ID         uint   `json:"id"`
	Title      string `json:"title"`
	Artist     string `json:"artist"`
	DurationMs int    `json:"duration_ms"`
}

// ListTracksResponse is the response for GET /api/tracks.
type ListTracksResponse struct {
	Tracks []TrackDTO `json:"tracks"`
	Count  int        `json:"count"`
}

// AddTrackResponse is the response for a successful POST /api/tracks.
type AddTrackResponse struct {
	Message string `json:"message"`
	ID      uint   `json:"id"`
	Title   string `json:"title"`
	Artist  string `json:"artist"`
}

// MatchResultDTO is one ranked query result in API responses.
type MatchResultDTO struct {
	TrackID    uint    `json:"track_id"`
	Title      string  `json:"title"`
	Artist     string  `json:"artist"`
	Similarity float64 `json:"similarity"`
	Votes      int     `json:"votes"`
	Ordering   float64 `json:"ordering"`
}

// QueryResponse is the response for POST /api/query.
type QueryResponse struct {
	Matches []MatchResultDTO `json:"matches"`
	Count   int              `json:"count"`
}

// MetricsResponse reports server health and index size.
type MetricsResponse struct {
	Status     string `json:"status"`
	DatabasePath string `json:"database_path"`
	TrackCount int64  `json:"track_count"`
	SampleRate int    `json:"sample_rate"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
	Code    int    `json:"code,omitempty"`
}
