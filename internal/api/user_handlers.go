package api

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type CurrentUserResponse struct {
	UserID    string     `json:"userId" example:"user_2abc"`
	Email     string     `json:"email,omitempty" example:"jane@example.com"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// @Summary      Get current user info
// @Description  Returns the identity asserted by the bearer token.
// @Tags         users
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  CurrentUserResponse
// @Failure      401  {object}  ErrorResponse
// @Router       /me [get]
func (s *Server) GetCurrentUserHandler(w http.ResponseWriter, r *http.Request) {
	claims := GetUserFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	resp := CurrentUserResponse{UserID: claims.OwnerID(), Email: claims.Email}
	if claims.ExpiresAt != nil {
		exp := claims.ExpiresAt.Time
		resp.ExpiresAt = &exp
	}

	writeJSON(w, http.StatusOK, resp)
}

type HealthResponse struct {
	Status string `json:"status" example:"ok"`
}

// @Summary      Health check
// @Description  Reports whether the metadata store is reachable.
// @Tags         health
// @Produce      json
// @Success      200  {object}  HealthResponse
// @Failure      503  {object}  HealthResponse
// @Router       /health [get]
func (s *Server) HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.files.Ping(ctx); err != nil {
		s.logger.Warn("health check failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, HealthResponse{Status: "unavailable"})
		return
	}

	writeJSON(w, http.StatusOK, HealthResponse{Status: "ok"})
}
