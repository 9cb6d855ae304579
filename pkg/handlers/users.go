package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/mangoo-ai/mangoo-engine/pkg/auth"
	"github.com/mangoo-ai/mangoo-engine/pkg/services"
)

// UpdateRoleRequest for PUT role body.
type UpdateRoleRequest struct {
	Role string `json:"role"`
}

// UsersHandler handles user registration and profile endpoints.
type UsersHandler struct {
	userService services.UserService
	logger      *zap.Logger
}

// NewUsersHandler creates a new UsersHandler.
func NewUsersHandler(userService services.UserService, logger *zap.Logger) *UsersHandler {
	return &UsersHandler{userService: userService, logger: logger}
}

// RegisterRoutes registers the users handler's routes on the given mux.
func (h *UsersHandler) RegisterRoutes(mux *http.ServeMux, authMiddleware *auth.Middleware) {
	mux.HandleFunc("POST /api/v1/users/register", authMiddleware.RequireAuth(h.Register))
	mux.HandleFunc("GET /api/v1/users/me", authMiddleware.RequireAuth(h.Me))
	mux.HandleFunc("PUT /api/v1/users/{id}/role", authMiddleware.RequireAdmin(h.UpdateRole))
}

// Register handles POST /api/v1/users/register
// Upserts the caller's profile from token claims.
func (h *UsersHandler) Register(w http.ResponseWriter, r *http.Request) {
	claims, ok := auth.GetClaims(r.Context())
	if !ok {
		if err := ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Missing token claims"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	user, err := h.userService.Register(r.Context(), claims)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to register user")
		return
	}

	if err := WriteJSON(w, http.StatusCreated, ApiResponse{Success: true, Data: user}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// Me handles GET /api/v1/users/me
// Returns the caller's stored profile.
func (h *UsersHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserIDFromContext(r.Context())
	if !ok {
		if err := ErrorResponse(w, http.StatusUnauthorized, "unauthorized", "Missing token claims"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	user, err := h.userService.GetByID(r.Context(), userID)
	if err != nil {
		writeServiceError(w, h.logger, err, "Failed to load user")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Data: user}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}

// UpdateRole handles PUT /api/v1/users/{id}/role
// Admin-only role assignment.
func (h *UsersHandler) UpdateRole(w http.ResponseWriter, r *http.Request) {
	var req UpdateRoleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err := ErrorResponse(w, http.StatusBadRequest, "invalid_body", "Invalid request body"); err != nil {
			h.logger.Error("Failed to write error response", zap.Error(err))
		}
		return
	}

	if err := h.userService.UpdateRole(r.Context(), r.PathValue("id"), req.Role); err != nil {
		writeServiceError(w, h.logger, err, "Failed to update role")
		return
	}

	if err := WriteJSON(w, http.StatusOK, ApiResponse{Success: true, Message: "Role updated"}); err != nil {
		h.logger.Error("Failed to write response", zap.Error(err))
	}
}
