package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"fylr/internal/files"

	"github.com/go-chi/chi/v5"
)

func optionalID(value string) *string {
	if value == "" {
		return nil
	}
	return &value
}

// @Summary      List files
// @Description  Lists the children of a folder, or of the root when parentId is omitted. Children of a trashed folder are reported with isTrash=true.
// @Tags         files
// @Produce      json
// @Security     BearerAuth
// @Param        parentId  query     string  false  "Folder to list"
// @Param        userId    query     string  false  "Must match the authenticated user when given"
// @Success      200       {array}   models.Node
// @Failure      400       {object}  ErrorResponse
// @Failure      401       {object}  ErrorResponse
// @Failure      404       {object}  ErrorResponse
// @Failure      500       {object}  ErrorResponse
// @Router       /files [get]
func (s *Server) ListFilesHandler(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)

	if queryUserID := r.URL.Query().Get("userId"); queryUserID != "" && queryUserID != owner {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	nodes, err := s.files.List(r.Context(), owner, optionalID(r.URL.Query().Get("parentId")))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, nodes)
}

// @Summary      Create a folder
// @Tags         files
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      files.CreateFolderInput  true  "Folder name and optional parent"
// @Success      201      {object}  models.Node
// @Failure      400      {object}  ErrorResponse
// @Failure      401      {object}  ErrorResponse
// @Failure      500      {object}  ErrorResponse
// @Router       /folders [post]
func (s *Server) CreateFolderHandler(w http.ResponseWriter, r *http.Request) {
	var req files.CreateFolderInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	folder, err := s.files.CreateFolder(r.Context(), ownerID(r), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, folder)
}

// @Summary      Upload a file
// @Description  Uploads an image or PDF into the root or into a folder.
// @Tags         files
// @Accept       multipart/form-data
// @Produce      json
// @Security     BearerAuth
// @Param        file      formData  file    true   "File to upload"
// @Param        parentId  formData  string  false  "Target folder"
// @Param        userId    formData  string  false  "Must match the authenticated user when given"
// @Success      200       {object}  models.Node
// @Failure      400       {object}  ErrorResponse
// @Failure      401       {object}  ErrorResponse
// @Failure      413       {object}  ErrorResponse
// @Failure      500       {object}  ErrorResponse
// @Router       /files/upload [post]
func (s *Server) UploadFileHandler(w http.ResponseWriter, r *http.Request) {
	owner := ownerID(r)

	if s.maxUploadBytes > 0 {
		// Headroom for the multipart envelope and the other form fields.
		r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes+1<<20)
	}

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, files.ErrTooLarge.Error())
			return
		}
		writeError(w, http.StatusBadRequest, "Error parsing multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	if formUserID := r.FormValue("userId"); formUserID != "" && formUserID != owner {
		writeError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	node, err := s.files.Upload(r.Context(), owner, files.UploadInput{
		ParentID:    optionalID(r.FormValue("parentId")),
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Size:        header.Size,
		Body:        file,
	})
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, node)
}

// @Summary      Register a client-side upload
// @Description  Records a file the client uploaded directly to the storage provider.
// @Tags         files
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        request  body      files.RegisterUploadInput  true  "Uploaded file metadata"
// @Success      200      {object}  models.Node
// @Failure      400      {object}  ErrorResponse
// @Failure      401      {object}  ErrorResponse
// @Failure      500      {object}  ErrorResponse
// @Router       /files/register [post]
func (s *Server) RegisterUploadHandler(w http.ResponseWriter, r *http.Request) {
	var req files.RegisterUploadInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	node, err := s.files.RegisterUpload(r.Context(), ownerID(r), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, node)
}

// @Summary      Toggle star
// @Tags         files
// @Produce      json
// @Security     BearerAuth
// @Param        fileId  path      string  true  "File or folder ID"
// @Success      200     {object}  models.Node
// @Failure      401     {object}  ErrorResponse
// @Failure      404     {object}  ErrorResponse
// @Failure      500     {object}  ErrorResponse
// @Router       /files/{fileId}/star [patch]
func (s *Server) ToggleStarHandler(w http.ResponseWriter, r *http.Request) {
	node, err := s.files.ToggleStar(r.Context(), ownerID(r), chi.URLParam(r, "fileId"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, node)
}

// @Summary      Rename a file or folder
// @Tags         files
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        fileId   path      string             true  "File or folder ID"
// @Param        request  body      files.RenameInput  true  "New name"
// @Success      200      {object}  models.Node
// @Failure      400      {object}  ErrorResponse
// @Failure      401      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Failure      500      {object}  ErrorResponse
// @Router       /files/{fileId} [patch]
func (s *Server) RenameHandler(w http.ResponseWriter, r *http.Request) {
	var req files.RenameInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	node, err := s.files.Rename(r.Context(), ownerID(r), chi.URLParam(r, "fileId"), req)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, node)
}

type MoveRequest struct {
	ParentID *string `json:"parentId"`
}

// @Summary      Move a file or folder
// @Description  Re-parents a node. parentId null moves it to the root. A folder cannot be moved into its own subtree.
// @Tags         files
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        fileId   path      string       true  "File or folder ID"
// @Param        request  body      MoveRequest  true  "Target folder"
// @Success      200      {object}  models.Node
// @Failure      400      {object}  ErrorResponse
// @Failure      401      {object}  ErrorResponse
// @Failure      404      {object}  ErrorResponse
// @Failure      409      {object}  ErrorResponse
// @Failure      500      {object}  ErrorResponse
// @Router       /files/{fileId}/move [patch]
func (s *Server) MoveHandler(w http.ResponseWriter, r *http.Request) {
	var req MoveRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ParentID != nil && *req.ParentID == "" {
		req.ParentID = nil
	}

	node, err := s.files.Move(r.Context(), ownerID(r), chi.URLParam(r, "fileId"), req.ParentID)
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, node)
}

type DeleteResponse struct {
	Message     string      `json:"message" example:"File deleted permanently"`
	DeletedFile interface{} `json:"deletedFile"`
}

// @Summary      Delete permanently
// @Description  Removes exactly one file or folder row. Children of a folder are not removed.
// @Tags         files
// @Produce      json
// @Security     BearerAuth
// @Param        fileId  path      string  true  "File or folder ID"
// @Success      200     {object}  DeleteResponse
// @Failure      401     {object}  ErrorResponse
// @Failure      404     {object}  ErrorResponse
// @Failure      500     {object}  ErrorResponse
// @Router       /files/{fileId} [delete]
func (s *Server) DeleteFileHandler(w http.ResponseWriter, r *http.Request) {
	node, err := s.files.Delete(r.Context(), ownerID(r), chi.URLParam(r, "fileId"))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, DeleteResponse{Message: "File deleted permanently", DeletedFile: node})
}

// @Summary      List starred files
// @Description  Starred files and folders that are not in the trash.
// @Tags         files
// @Produce      json
// @Security     BearerAuth
// @Success      200  {array}   models.Node
// @Failure      401  {object}  ErrorResponse
// @Failure      500  {object}  ErrorResponse
// @Router       /files/starred [get]
func (s *Server) ListStarredHandler(w http.ResponseWriter, r *http.Request) {
	nodes, err := s.files.ListStarred(r.Context(), ownerID(r))
	if err != nil {
		s.writeServiceError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, nodes)
}
