package handlers

import (
	"context"
	"net/http"

	"github.com/cloo-solutions/ragchat/internal/api"
	"github.com/cloo-solutions/ragchat/internal/service"
)

type ChatService interface {
	Answer(ctx context.Context, threadID, question string) (*service.TurnResult, error)
}

type ChatHandler struct {
	svc ChatService
}

func NewChatHandler(svc ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

type ChatRequest struct {
	Question string `json:"question" validate:"required"`
	ThreadID string `json:"thread_id" validate:"required"`
}

type ChatResponse struct {
	Answer   string `json:"answer"`
	ThreadID string `json:"thread_id"`
}

// Chat runs one conversation turn. A turn that fails inside the model still
// answers 200 with the failure text; only transport faults become errors.
func (h *ChatHandler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if !decodeAndValidate(w, r, &req, false) {
		return
	}

	result, err := h.svc.Answer(r.Context(), req.ThreadID, req.Question)
	if err != nil {
		api.HandleError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, ChatResponse{
		Answer:   result.Answer,
		ThreadID: result.ThreadID,
	})
}
