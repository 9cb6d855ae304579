package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/mangoo-ai/mangoo-engine/pkg/auth"
	"github.com/mangoo-ai/mangoo-engine/pkg/models"
	"github.com/mangoo-ai/mangoo-engine/pkg/services"
)

// AddChunksRequest for POST chunks body.
type AddChunksRequest struct {
	Chunks []services.ChunkInput `json:"chunks"`
}

// AddChunksResponse reports how many chunks were stored.
type AddChunksResponse struct {
	KnowledgeBaseID string `json:"knowledge_base_id"`
	ChunksAdded     int    `json:"chunks_added"`
}

// SearchRequest for POST search body.
type SearchRequest struct {
	Query     string  `json:"query"`
	TopK      int     `json:"top_k"`
	Threshold float64 `json:"threshold"`
}

// SearchResponse wraps similarity search results.
type SearchResponse struct {
	Results []*models.SearchResult `json:"results"`
}

// DeleteKnowledgeBaseResponse reports how many chunks were removed.
type DeleteKnowledgeBaseResponse struct {
	KnowledgeBaseID string `json:"knowledge_base_id"`
	ChunksDeleted   int64  `json:"chunks_deleted"`
}

// KnowledgeHandler handles knowledge base ingestion and search endpoints.
type KnowledgeHandler struct {
	knowledgeService services.KnowledgeService
	logger           *zap.Logger
}

// NewKnowledgeHandler creates a new KnowledgeHandler.
func NewKnowledgeHandler(knowledgeService services.KnowledgeService, logger *zap.Logger) *KnowledgeHandler {
	return &KnowledgeHandler{knowledgeService: knowledgeService, logger: logger}
}

// RegisterRoutes registers the knowledge handler's routes on the given mux.
func (h *KnowledgeHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/v1/knowledge/{kb}/chunks", authMiddleware.RequireAuth(h.AddChunks))
	mux.HandleFunc("POST /api/v1/knowledge/{kb}/search", authMiddleware.RequireAuth(h.Search))
	mux.HandleFunc("DELETE /api/v1/knowledge/{kb}", authMiddleware.RequireAuth(h.Delete))
}

// AddChunks handles POST /api/v1/knowledge/{kb}/chunks
// Embeds and stores all chunks atomically.
func (h *KnowledgeHandler) AddChunks(w http.ResponseWriter, r *http.Request) {
	kbID := r.PathValue("kb")

	var req AddChunksRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_body", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	count, err := h.knowledgeService.AddChunks(r.Context(), kbID, req.Chunks)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to add chunks")
		return
	}

	data := AddChunksResponse{KnowledgeBaseID: kbID, ChunksAdded: count}
	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: data}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Search handles POST /api/v1/knowledge/{kb}/search
func (h *KnowledgeHandler) Search(w http.ResponseWriter, r *http.Request) {
	kbID := r.PathValue("kb")

	var req SearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_body", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	results, err := h.knowledgeService.SearchSimilar(r.Context(), kbID, req.Query, req.TopK, req.Threshold)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to search knowledge base")
		return
	}

	response := ApiResponse{Success: true, Data: SearchResponse{Results: results}}
	if err := WriteJSON(w, http.StatusOK, response); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Delete handles DELETE /api/v1/knowledge/{kb}
func (h *KnowledgeHandler) Delete(w http.ResponseWriter, r *http.Request) {
	kbID := r.PathValue("kb")

	deleted, err := h.knowledgeService.DeleteKnowledgeBase(r.Context(), kbID)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to delete knowledge base")
		return
	}

	data := DeleteKnowledgeBaseResponse{KnowledgeBaseID: kbID, ChunksDeleted: deleted}
	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: data}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
