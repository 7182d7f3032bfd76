package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// @Summary      Toggle trash
// @Description  Moves a file or folder to the trash, or restores it. Folders cascade the new state to every descendant.
// @Tags         trash
// @Produce      json
// @Security     BearerAuth
// @Param        fileId  path      string  true  "File or folder ID"
// @Success      200     {object}  models.Node
// @Failure      401     {object}  ErrorResponse
// @Failure      404     {object}  ErrorResponse
// @Failure      500     {object}  ErrorResponse
// @Router       /files/{fileId}/trash [patch]
func (s *Server) ToggleTrashHandler(w http.ResponseWriter, r *http.Request) {
	node, err := s.files.ToggleTrash(r.Context(), ownerID(r), chi.URLParam(r, "fileId"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, node)
}

type EmptyTrashResponse struct {
	Success      bool   `json:"success" example:"true"`
	Message      string `json:"message" example:"Trash emptied successfully"`
	DeletedCount int64  `json:"deletedCount" example:"3"`
}

// @Summary      Empty trash
// @Description  Permanently deletes every trashed file and folder of the user. This action cannot be undone.
// @Tags         trash
// @Produce      json
// @Security     BearerAuth
// @Success      200  {object}  EmptyTrashResponse
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /files/empty-trash [delete]
func (s *Server) EmptyTrashHandler(w http.ResponseWriter, r *http.Request) {
	count, err := s.files.EmptyTrash(r.Context(), ownerID(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, EmptyTrashResponse{
		Success:      true,
		Message:      "Trash emptied successfully",
		DeletedCount: count,
	})
}

// @Summary      List trash contents
// @Description  Retrieves every file and folder whose own trash flag is set.
// @Tags         trash
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   models.Node
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /files/trash [get]
func (s *Server) ListTrashHandler(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.files.ListTrash(r.Context(), ownerID(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, nodes)
}
