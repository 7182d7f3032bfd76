package api

import (
	"net/http"

	"fylr/internal/websocket"

	"go.uber.org/zap"
)

// ServeWsHandler upgrades to a websocket that receives the caller's journal
// events. Browsers cannot set headers on the upgrade request, so the token
// travels in the query string.
func (s *Server) ServeWsHandler(w http.ResponseWriter, r *http.Request) {
	tokenString := r.URL.Query().Get("token")
	if tokenString == "" {
		writeError(w, http.StatusUnauthorized, "token query parameter required")
		return
	}

	claims, err := s.verifier.Verify(tokenString)
	if err != nil {
		s.logger.Debug("websocket connection with invalid token", zap.Error(err))
		writeError(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	conn, err := websocket.Upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	client := websocket.NewClient(s.wsHub, conn, claims.OwnerID())
	if !s.wsHub.Add(client) {
		s.logger.Debug("websocket hub stopped, dropping connection", zap.String("owner_id", claims.OwnerID()))
		conn.Close()
		return
	}

	go client.ReadPump()
	go client.WritePump()
}
