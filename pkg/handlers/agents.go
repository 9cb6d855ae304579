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

// ListAgentsResponse wraps the agent array.
type ListAgentsResponse struct {
	Agents []*models.Agent `json:"agents"`
}

// ListCategoriesResponse wraps the category array.
type ListCategoriesResponse struct {
	Categories []string `json:"categories"`
}

// AgentsHandler handles marketplace agent endpoints. Reads are public;
// writes are admin-only.
type AgentsHandler struct {
	agentService services.AgentService
	logger       *zap.Logger
}

// NewAgentsHandler creates a new AgentsHandler.
func NewAgentsHandler(agentService services.AgentService, logger *zap.Logger) *AgentsHandler {
	return &AgentsHandler{agentService: agentService, logger: logger}
}

// RegisterRoutes registers the agents handler's routes on the given mux.
func (h *AgentsHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("GET /api/v1/agents", authMiddleware.RequireAuth(h.List))
	mux.HandleFunc("GET /api/v1/agents/categories", authMiddleware.RequireAuth(h.ListCategories))
	mux.HandleFunc("GET /api/v1/agents/{id}", authMiddleware.RequireAuth(h.Get))
	mux.HandleFunc("POST /api/v1/agents", authMiddleware.RequireAdmin(h.Create))
	mux.HandleFunc("PUT /api/v1/agents/{id}", authMiddleware.RequireAdmin(h.Update))
	mux.HandleFunc("DELETE /api/v1/agents/{id}", authMiddleware.RequireAdmin(h.Delete))
	mux.HandleFunc("POST /api/v1/agents/{id}/usage", authMiddleware.RequireAuth(h.RecordUsage))
}

// List handles GET /api/v1/agents
// Query params: category. Non-admin callers see only listable agents.
func (h *AgentsHandler) List(w http.ResponseWriter, r *http.Request) {
	agents, err := h.agentService.List(r.Context(), r.URL.Query().Get("category"))
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to list agents")
		return
	}

	claims, _ := auth.GetClaims(r.Context())
	if claims == nil || !claims.IsAdmin() {
		visible := make([]*models.Agent, 0, len(agents))
		for _, agent := range agents {
			if agent.Listable() {
				visible = append(visible, agent)
			}
		}
		agents = visible
	}

	response := ApiResponse{Success: true, Data: ListAgentsResponse{Agents: agents}}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// ListCategories handles GET /api/v1/agents/categories
func (h *AgentsHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.agentService.ListCategories(r.Context())
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to list categories")
		return
	}

	response := ApiResponse{Success: true, Data: ListCategoriesResponse{Categories: categories}}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Get handles GET /api/v1/agents/{id}
func (h *AgentsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_agent_id", "Invalid agent ID format"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	agent, err := h.agentService.Get(r.Context(), id)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to get agent")
		return
	}

	claims, _ := auth.GetClaims(r.Context())
	if (claims == nil || !claims.IsAdmin()) && !agent.Listable() {
		if err := ErrorResponse(w, http.StatusNotFound, "not_found", "Agent not found"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: agent}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Create handles POST /api/v1/agents
func (h *AgentsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var input services.AgentCreateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_body", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	agent, err := h.agentService.Create(r.Context(), input)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to create agent")
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: agent}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Update handles PUT /api/v1/agents/{id}
func (h *AgentsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_agent_id", "Invalid agent ID format"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	var input services.AgentUpdateInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_body", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	agent, err := h.agentService.Update(r.Context(), id, input)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to update agent")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: agent}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/v1/agents/{id}
func (h *AgentsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_agent_id", "Invalid agent ID format"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.agentService.Delete(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, err, "Failed to delete agent")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "Agent deleted"}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// RecordUsage handles POST /api/v1/agents/{id}/usage
func (h *AgentsHandler) RecordUsage(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_agent_id", "Invalid agent ID format"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.agentService.RecordUsage(r.Context(), id); err != nil {
		writeServiceError(w, h.logger, err, "Failed to record usage")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
