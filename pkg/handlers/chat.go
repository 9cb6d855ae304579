package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"

	"go.uber.org/zap"

	"github.com/mangoo-ai/mangoo-engine/pkg/auth"
	"github.com/mangoo-ai/mangoo-engine/pkg/models"
	"github.com/mangoo-ai/mangoo-engine/pkg/services"
)

// ChatHistoryResponse for GET /chat/history/{id}.
type ChatHistoryResponse struct {
	ChatID   string            `json:"chat_id"`
	Messages []*models.Message `json:"messages"`
}

// DeleteHistoryResponse reports how many messages were removed.
type DeleteHistoryResponse struct {
	ChatID          string `json:"chat_id"`
	MessagesDeleted int64  `json:"messages_deleted"`
}

// ChatHandler handles streaming chat and history endpoints.
type ChatHandler struct {
	chatService services.ChatService
	logger      *zap.Logger
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatService services.ChatService, logger *zap.Logger) *ChatHandler {
	return &ChatHandler{chatService: chatService, logger: logger}
}

// RegisterRoutes registers the chat handler's routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/v1/chat/stream", authMiddleware.RequireAuth(h.Stream))
	mux.HandleFunc("GET /api/v1/chat/history/{id}", authMiddleware.RequireAuth(h.GetHistory))
	mux.HandleFunc("DELETE /api/v1/chat/history/{id}", authMiddleware.RequireAuth(h.DeleteHistory))
}

// Stream handles POST /api/v1/chat/stream
// This endpoint uses Server-Sent Events (SSE) to stream the response.
func (h *ChatHandler) Stream(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var req services.ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_body", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	// Pre-stream failures still get an ordinary JSON error response; SSE
	// headers go out only once the turn is accepted.
	events, err := h.chatService.StreamChat(r.Context(), userID, req)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to start chat")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Error("SSE not supported")
		if err := ErrorResponse(w, http.StatusInternalServerError, "sse_unsupported", "SSE not supported"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	for event := range events {
		data, err := json.Marshal(event)
		if err != nil {
			h.logger.Error("Failed to marshal event", zap.Error(err))
			continue
		}

		fmt.Fprintf(w, "data: %s\n\n", data)
		flusher.Flush()

		if event.Type == models.ChatEventDone || event.Type == models.ChatEventError {
			break
		}
	}
}

// GetHistory handles GET /api/v1/chat/history/{id}
func (h *ChatHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	chatID := r.PathValue("id")

	messages, err := h.chatService.GetHistory(r.Context(), userID, chatID)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to load chat history")
		return
	}

	data := ChatHistoryResponse{ChatID: chatID, Messages: messages}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: data}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// DeleteHistory handles DELETE /api/v1/chat/history/{id}
func (h *ChatHandler) DeleteHistory(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())
	chatID := r.PathValue("id")

	deleted, err := h.chatService.DeleteHistory(r.Context(), userID, chatID)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to delete chat history")
		return
	}

	data := DeleteHistoryResponse{ChatID: chatID, MessagesDeleted: deleted}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: data}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
