package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"
)

type EventResponse struct {
	ID        int64           `json:"id" example:"123"`
	EventType string          `json:"event_type" example:"file_trashed"`
	EventTime time.Time       `json:"event_time"`
	Payload   json.RawMessage `json:"payload" swaggertype:"object"`
}

// @Summary      Get new events
// @Description  Retrieves up to 100 events that have occurred since a given event ID. Used for client-side cache synchronization.
// @Tags         events
// @Produce      json
// @Security     BearerAuth
// @Param        since  query     int  false  "The ID of the last event received. Omit or use 0 to get all events."
// @Success      200    {array}   EventResponse
// @Failure      400    {object}  ErrorResponse
// @Failure      401    {object}  ErrorResponse
// @Failure      500    {object}  ErrorResponse
// @Router       /events [get]
func (s *Server) GetEventsHandler(w http.ResponseWriter, r *http.Request) {
	sinceStr := r.URL.Query().Get("since")
	if sinceStr == "" {
		sinceStr = "0"
	}

	sinceID, err := strconv.ParseInt(sinceStr, 10, 64)
	if err != nil || sinceID < 0 {
		writeError(w, http.StatusBadRequest, "Invalid 'since' parameter, must be a non-negative number")
		return
	}

	events, err := s.files.Events(r.Context(), ownerID(r), sinceID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	resp := make([]EventResponse, len(events))
	for i, e := range events {
		resp[i] = EventResponse{ID: e.ID, EventType: e.EventType, EventTime: e.EventTime, Payload: e.Payload}
	}

	writeJSON(w, http.StatusOK, resp)
}
