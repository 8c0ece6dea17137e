package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/wavesketch/wavesketch/internal/audio"
	"github.com/wavesketch/wavesketch/pkg/logger"
	"github.com/wavesketch/wavesketch/pkg/models"
	"github.com/wavesketch/wavesketch/pkg/utils"
	"github.com/wavesketch/wavesketch/pkg/wavesketch"
)

// NewServer wires a wavesketch.Service into an HTTP server.
func NewServer(service wavesketch.Service, config *ServerConfig) *Server {
	return &Server{service: service, config: config, log: logger.GetLogger()}
}

func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("failed to encode JSON response: %v", err)
	}
}

func (s *Server) respondError(w http.ResponseWriter, statusCode int, message string) {
	s.respondJSON(w, statusCode, ErrorResponse{
		Error:   http.StatusText(statusCode),
		Message: message,
		Code:    statusCode,
	})
}

// httpStatusFor maps a facade error Kind to the HTTP status it should
// surface as.
func httpStatusFor(err error) int {
	kind, ok := wavesketch.KindOf(err)
	if !ok {
		return http.StatusInternalServerError
	}
	switch kind {
	case wavesketch.AudioTooShort, wavesketch.InvalidConfig, wavesketch.SchemaMismatch:
		return http.StatusBadRequest
	case wavesketch.Cancelled:
		return http.StatusRequestTimeout
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": "wavesketch API",
		"endpoints": map[string]string{
			"health":      "GET /health",
			"metrics":     "GET /api/health/metrics",
			"tracks":      "GET /api/tracks",
			"addTrack":    "POST /api/tracks",
			"getTrack":    "GET /api/tracks/{id}",
			"deleteTrack": "DELETE /api/tracks/{id}",
			"query":       "POST /api/query",
		},
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	count, err := s.service.CountTracks()
	if err != nil {
		s.log.Errorf("failed to count tracks: %v", err)
		s.respondError(w, http.StatusInternalServerError, "failed to retrieve metrics")
		return
	}
	s.respondJSON(w, http.StatusOK, MetricsResponse{
		Status:       "healthy",
		DatabasePath: s.config.DBPath,
		TrackCount:   count,
		SampleRate:   s.config.SampleRate,
	})
}

func (s *Server) handleListTracks(w http.ResponseWriter, r *http.Request) {
	filter := models.ListFilter{
		ArtistLike: r.URL.Query().Get("artist"),
		TitleLike:  r.URL.Query().Get("title"),
	}
	tracks, err := s.service.ListTracks(filter)
	if err != nil {
		s.log.Errorf("failed to list tracks: %v", err)
		s.respondError(w, http.StatusInternalServerError, "failed to retrieve tracks")
		return
	}

	dtos := make([]TrackDTO, len(tracks))
	for i, t := range tracks {
		dtos[i] = TrackDTO{ID: t.ID, Title: t.Title, Artist: t.Artist, DurationMs: t.DurationMs}
	}
	s.respondJSON(w, http.StatusOK, ListTracksResponse{Tracks: dtos, Count: len(dtos)})
}

func (s *Server) handleGetTrack(w http.ResponseWriter, r *http.Request, id uint) {
	track, err := s.service.GetTrackByID(id)
	if err != nil {
		s.log.Errorf("failed to read track %d: %v", id, err)
		s.respondError(w, http.StatusInternalServerError, "failed to retrieve track")
		return
	}
	if track == nil {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("track %d not found", id))
		return
	}
	s.respondJSON(w, http.StatusOK, TrackDTO{
		ID: track.ID, Title: track.Title, Artist: track.Artist, DurationMs: track.DurationMs,
	})
}

// saveUpload writes a multipart file field to a temp file and returns
// its path; the caller owns cleanup.
func (s *Server) saveUpload(r *http.Request, field, prefix string) (string, error) {
	file, header, err := r.FormFile(field)
	if err != nil {
		return "", err
	}
	defer file.Close()

	tempFile := filepath.Join(s.config.TempDir, fmt.Sprintf("%s_%d_%s", prefix, time.Now().UnixNano(), header.Filename))
	out, err := os.Create(tempFile)
	if err != nil {
		return "", err
	}
	defer out.Close()

	if _, err := io.Copy(out, file); err != nil {
		utils.DeleteFile(tempFile)
		return "", err
	}
	return tempFile, nil
}

// quarantineUpload moves a temp upload that failed ingestion into a
// "failed" subdirectory of the temp dir instead of discarding it, so
// it can be inspected after the fact rather than lost.
func (s *Server) quarantineUpload(tempFile string) {
	quarantineDir := filepath.Join(s.config.TempDir, "failed")
	if err := utils.MakeDir(quarantineDir); err != nil {
		s.log.Warnf("failed to create quarantine dir, deleting upload instead: %v", err)
		utils.DeleteFile(tempFile)
		return
	}
	dst := filepath.Join(quarantineDir, filepath.Base(tempFile))
	if err := utils.MoveFile(tempFile, dst); err != nil {
		s.log.Warnf("failed to quarantine upload %s: %v", tempFile, err)
		utils.DeleteFile(tempFile)
	}
}

func (s *Server) handleAddTrack(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Minute)
	defer cancel()

	if err := r.ParseMultipartForm(100 << 20); err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to parse form data")
		return
	}

	title := r.FormValue("title")
	artist := r.FormValue("artist")
	if title == "" || artist == "" {
		s.respondError(w, http.StatusBadRequest, "title and artist are required")
		return
	}

	tempFile, err := s.saveUpload(r, "audio", "upload")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "audio file is required")
		return
	}

	pcm, _, err := audio.DecodeFile(tempFile)
	if err != nil {
		utils.DeleteFile(tempFile)
		s.respondError(w, http.StatusBadRequest, fmt.Sprintf("failed to decode audio: %v", err))
		return
	}

	id, err := s.service.IngestTrack(ctx, models.Track{Artist: artist, Title: title, Path: tempFile}, pcm)
	if err != nil {
		s.log.Errorf("failed to ingest track: %v", err)
		s.quarantineUpload(tempFile)
		s.respondError(w, httpStatusFor(err), err.Error())
		return
	}
	utils.DeleteFile(tempFile)

	s.respondJSON(w, http.StatusCreated, AddTrackResponse{
		Message: "track added successfully", ID: id, Title: title, Artist: artist,
	})
}

func (s *Server) handleQueryTrack(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Minute)
	defer cancel()

	if err := r.ParseMultipartForm(50 << 20); err != nil {
		s.respondError(w, http.StatusBadRequest, "failed to parse form data")
		return
	}

	tempFile, err := s.saveUpload(r, "audio", "query")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "audio file is required")
		return
	}
	defer utils.DeleteFile(tempFile)

	searchAll := r.FormValue("search_all") == "true"

	results, err := s.service.FindSimilarFromFile(ctx, tempFile, wavesketch.WithSearchAll(searchAll))
	if err != nil {
		s.log.Errorf("query failed: %v", err)
		s.respondError(w, httpStatusFor(err), err.Error())
		return
	}

	dtos := make([]MatchResultDTO, len(results))
	for i, m := range results {
		dtos[i] = MatchResultDTO{
			TrackID: m.Track.ID, Title: m.Track.Title, Artist: m.Track.Artist,
			Similarity: m.Stats.Similarity, Votes: m.Stats.TotalTableVotes, Ordering: m.Ordering,
		}
	}
	s.respondJSON(w, http.StatusOK, QueryResponse{Matches: dtos, Count: len(dtos)})
}

func (s *Server) handleTracks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.handleListTracks(w, r)
	case http.MethodPost:
		s.handleAddTrack(w, r)
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleDeleteTrack(w http.ResponseWriter, r *http.Request, id uint) {
	ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
	defer cancel()

	track, err := s.service.GetTrackByID(id)
	if err != nil {
		s.log.Errorf("failed to read track %d before delete: %v", id, err)
		s.respondError(w, http.StatusInternalServerError, "failed to look up track")
		return
	}
	if track == nil {
		s.respondError(w, http.StatusNotFound, fmt.Sprintf("track %d not found", id))
		return
	}

	if err := s.service.DeleteTrack(ctx, id); err != nil {
		s.log.Errorf("failed to delete track %d: %v", id, err)
		s.respondError(w, httpStatusFor(err), err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTrack(w http.ResponseWriter, r *http.Request) {
	idStr := r.URL.Path[len("/api/tracks/"):]
	if idStr == "" {
		s.respondError(w, http.StatusBadRequest, "track id required")
		return
	}
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid track id")
		return
	}
	switch r.Method {
	case http.MethodGet:
		s.handleGetTrack(w, r, uint(id))
	case http.MethodDelete:
		s.handleDeleteTrack(w, r, uint(id))
	default:
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.respondError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.handleQueryTrack(w, r)
}
