package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/mangoo-ai/mangoo-engine/pkg/auth"
	"github.com/mangoo-ai/mangoo-engine/pkg/models"
	"github.com/mangoo-ai/mangoo-engine/pkg/services"
)

// ListBotsResponse wraps the bot array.
type ListBotsResponse struct {
	Bots []*models.Bot `json:"bots"`
}

// BotsHandler handles bot CRUD endpoints.
type BotsHandler struct {
	botService services.BotService
	logger     *zap.Logger
}

// NewBotsHandler creates a new BotsHandler.
func NewBotsHandler(botService services.BotService, logger *zap.Logger) *BotsHandler {
	return &BotsHandler{botService: botService, logger: logger}
}

// RegisterRoutes registers the bots handler's routes on the given mux.
func (h *BotsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/v1/bots", authMiddleware.RequireAuth(h.Create))
	mux.HandleFunc("GET /api/v1/bots", authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("GET /api/v1/bots/{id}", authMiddleware.RequireAuth(h.Get))
	mux.HandleFunc("PUT /api/v1/bots/{id}", authMiddleware.RequireAuth(h.Update))
	mux.HandleFunc("DELETE /api/v1/bots/{id}", authMiddleware.RequireAuth(h.Delete))
}

// Create handles POST /api/v1/bots
func (h *BotsHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	var input services.BotCreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_body", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	bot, err := h.botService.Create(r.Context(), userID, input)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to create bot")
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: bot}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// List handles GET /api/v1/bots
// Query params: include_public (default true), marketplace_only.
func (h *BotsHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	includePublic := r.URL.Query().Get("include_public") != "false"
	marketplaceOnly := r.URL.Query().Get("marketplace_only") == "true"

	bots, err := h.botService.List(r.Context(), userID, includePublic, marketplaceOnly)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to list bots")
		return
	}

	response := ApiResponse{Success: true, Data: ListBotsResponse{Bots: bots}}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/v1/bots/{id}
func (h *BotsHandler) Get(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_bot_id", "Invalid bot ID format"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	bot, err := h.botService.Get(r.Context(), userID, id)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to get bot")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: bot}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PUT /api/v1/bots/{id}
func (h *BotsHandler) Update(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_bot_id", "Invalid bot ID format"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	var input services.BotUpdateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_body", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	bot, err := h.botService.Update(r.Context(), userID, id, input)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to update bot")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: bot}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/v1/bots/{id}
func (h *BotsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := auth.UserIDFromContext(r.Context())

	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_bot_id", "Invalid bot ID format"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.botService.Delete(r.Context(), userID, id); err != nil {
		writeServiceError(w, h.logger, err, "Failed to delete bot")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "Bot deleted"}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
