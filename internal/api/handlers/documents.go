package handlers

import (
	"context"
	"net/http"

	"github.com/cloo-solutions/ragchat/internal/api"
	"github.com/cloo-solutions/ragchat/internal/service"
)

type DocumentService interface {
	UpdateDocuments(ctx context.Context, paths []string) (*service.IngestResult, error)
}

type DocumentsHandler struct {
	svc DocumentService
}

func NewDocumentsHandler(svc DocumentService) *DocumentsHandler {
	return &DocumentsHandler{svc: svc}
}

type UpdateDocumentsRequest struct {
	FilePaths []string `json:"file_paths" validate:"omitempty,dive,required"`
}

type UpdateDocumentsResponse struct {
	Message      string `json:"message"`
	ChangedFiles int    `json:"changed_files"`
	Documents    int    `json:"documents"`
	Chunks       int    `json:"chunks"`
}

func (h *DocumentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateDocumentsRequest
	if !decodeAndValidate(w, r, &req, true) {
		return
	}

	result, err := h.svc.UpdateDocuments(r.Context(), req.FilePaths)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, UpdateDocumentsResponse{
		Message:      result.Message,
		ChangedFiles: result.ChangedFiles,
		Documents:    result.Documents,
		Chunks:       result.Chunks,
	})
}
