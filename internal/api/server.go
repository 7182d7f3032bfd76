package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"fylr/internal/auth"
	"fylr/internal/files"
	"fylr/internal/websocket"

	"go.uber.org/zap"
)

type Server struct {
	files          *files.Service
	verifier       auth.Verifier
	wsHub          *websocket.Hub
	logger         *zap.Logger
	maxUploadBytes int64
}

func NewServer(svc *files.Service, verifier auth.Verifier, wsHub *websocket.Hub, logger *zap.Logger, maxUploadBytes int64) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Server{
		files:          svc,
		verifier:       verifier,
		wsHub:          wsHub,
		logger:         logger,
		maxUploadBytes: maxUploadBytes,
	}
}

type ErrorResponse struct {
	Error string `json:"error" example:"File not found"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}

// writeServiceError maps file service errors to responses. Internal
// failures are logged and reported with a generic message.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, files.ErrUnauthorized):
		writeError(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, files.ErrNotFound):
		writeError(w, http.StatusNotFound, "File not found")
	case errors.Is(err, files.ErrInvalidParent):
		writeError(w, http.StatusBadRequest, "Parent folder not found")
	case errors.Is(err, files.ErrInvalidName),
		errors.Is(err, files.ErrInvalidInput),
		errors.Is(err, files.ErrUnsupportedType):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, files.ErrTooLarge):
		writeError(w, http.StatusRequestEntityTooLarge, err.Error())
	case errors.Is(err, files.ErrCycle):
		writeError(w, http.StatusConflict, err.Error())
	default:
		s.logger.Error("request failed",
			zap.String("method", r.Method), zap.String("path", r.URL.Path), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}
