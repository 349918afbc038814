package handler

import (
	"encoding/json"
	"net/http"
	"strings"

	"app/internal/api/v1/dto"
	"app/internal/middleware"
	"app/internal/service"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
)

// FileHandler exposes the file lifecycle endpoints.
type FileHandler struct {
	fileService service.FileService
	validate    *validator.Validate
	logger      zerolog.Logger
}

func NewFileHandler(fileService service.FileService, validate *validator.Validate, logger zerolog.Logger) *FileHandler {
	return &FileHandler{fileService: fileService, validate: validate, logger: logger}
}

// RegisterRoutes mounts the file routes.
func (h *FileHandler) RegisterRoutes(mux *http.ServeMux, authMw func(http.Handler) http.Handler) {
	mux.Handle("/user/files", authMw(http.HandlerFunc(h.handleFiles)))
	mux.Handle("/user/files/", authMw(http.HandlerFunc(h.handleFile)))
}

func (h *FileHandler) handleFiles(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.listFiles(w, r)
	case http.MethodPost:
		h.createFile(w, r)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *FileHandler) handleFile(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/user/files/")
	fileID, action, _ := strings.Cut(rest, "/")
	if fileID == "" {
		http.NotFound(w, r)
		return
	}

	switch {
	case r.Method == http.MethodPost && action == "process":
		h.processFile(w, r, fileID)
	case r.Method == http.MethodPost && action == "purchase":
		h.purchaseFile(w, r, fileID)
	case r.Method == http.MethodPost && action == "download":
		h.downloadFile(w, r, fileID)
	case r.Method == http.MethodDelete && action == "":
		h.deleteFile(w, r, fileID)
	default:
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (h *FileHandler) listFiles(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	files, err := h.fileService.ListFiles(r.Context(), userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	out := make([]dto.FileDTO, 0, len(files))
	for i := range files {
		out = append(out, dto.NewFileDTO(&files[i]))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *FileHandler) createFile(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	var req dto.CreateFileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON payload")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "missing required fields")
		return
	}
	file, uploadURL, err := h.fileService.CreateFile(r.Context(), userID, req.FileName, req.FileType)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to create file")
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.CreateFileData{File: dto.NewFileDTO(file), UploadURL: uploadURL})
}

func (h *FileHandler) processFile(w http.ResponseWriter, r *http.Request, fileID string) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.fileService.StartProcessing(r.Context(), fileID, userID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *FileHandler) purchaseFile(w http.ResponseWriter, r *http.Request, fileID string) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.fileService.Purchase(r.Context(), fileID, userID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}

func (h *FileHandler) downloadFile(w http.ResponseWriter, r *http.Request, fileID string) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	url, err := h.fileService.Download(r.Context(), fileID, userID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.DownloadData{DownloadURL: url})
}

func (h *FileHandler) deleteFile(w http.ResponseWriter, r *http.Request, fileID string) {
	userID, ok := r.Context().Value(middleware.UserContextKey).(string)
	if !ok || userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}
	if err := h.fileService.Delete(r.Context(), fileID, userID); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, nil)
}
