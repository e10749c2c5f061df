package main

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/beatlink/backend/internal/scan"
	"github.com/beatlink/backend/pkg/logger"
)

const (
	serviceName    = "BeatLink API"
	serviceVersion = "2.0.0"
	healthMessage  = "BeatLink API is running"
)

// Server encapsulates the HTTP server and its dependencies.
type Server struct {
	service scan.Service
	config  *ServerConfig
	log     *logger.Logger
}

// ServerConfig holds server configuration.
type ServerConfig struct {
	Port           int
	AllowedOrigins []string
}

// NewServer creates a new server instance.
func NewServer(service scan.Service, config *ServerConfig) *Server {
	return &Server{
		service: service,
		config:  config,
		log:     logger.GetLogger(),
	}
}

// respondJSON writes a JSON response.
func (s *Server) respondJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.log.Errorf("Failed to encode JSON response: %v", err)
	}
}

// respondScanError writes the success:false envelope. The scan contract
// keeps HTTP 200 for failures.
func (s *Server) respondScanError(w http.ResponseWriter, code scan.Code, message string) {
	s.respondJSON(w, http.StatusOK, ScanErrorResponse{
		Success: false,
		Error:   string(code),
		Message: message,
	})
}

// handleRoot handles GET /.
func (s *Server) handleRoot(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"service": serviceName,
		"version": serviceVersion,
		"endpoints": map[string]string{
			"health": "GET /health",
			"scan":   "POST /scan",
		},
	})
}

// handleHealth handles GET /health. It performs no outbound calls, so it
// reports healthy regardless of collaborator availability.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Message: healthMessage,
		Version: serviceVersion,
	})
}

// handleScan handles POST /scan.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondScanError(w, scan.CodeInvalidInput, "request body must be JSON with a youtube_url field")
		return
	}
	if err := req.Validate(); err != nil {
		s.respondScanError(w, scan.CodeInvalidInput, err.Error())
		return
	}

	scanID := uuid.NewString()
	s.log.Infof("scan %s: scanning %s", scanID, req.YouTubeURL)

	result, err := s.service.Scan(r.Context(), req.YouTubeURL)
	if err != nil {
		var scanErr *scan.Error
		if errors.As(err, &scanErr) {
			s.log.Warnf("scan %s: failed: %v", scanID, scanErr)
			s.respondScanError(w, scanErr.Code, scanErr.Message)
			return
		}
		s.log.Errorf("scan %s: unexpected error: %v", scanID, err)
		s.respondScanError(w, scan.CodeUpstreamError, "internal server error")
		return
	}

	s.log.Infof("scan %s: done, %d matched songs", scanID, result.ResultsCount)
	s.respondJSON(w, http.StatusOK, ScanSuccessResponse{
		Success:      true,
		UploadedBeat: result.UploadedBeat,
		MatchedSongs: result.MatchedSongs,
		ResultsCount: result.ResultsCount,
	})
}
