package models

import (
	"time"

	"github.com/google/uuid"
)

// Agent status values.
const (
	AgentStatusActive      = "active"
	AgentStatusInactive    = "inactive"
	AgentStatusMaintenance = "maintenance"
)

// Agent is a marketplace-curated, admin-managed agent listing.
// Read-only for non-admin users.
type Agent struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	DisplayName string    `json:"display_name"`
	Description string    `json:"description"`
	Category    string    `json:"category"`

	AgentType    string         `json:"agent_type"`
	Capabilities []string       `json:"capabilities,omitempty"`
	Config       map[string]any `json:"config,omitempty"`

	Status   string `json:"status"`
	IsPublic bool   `json:"is_public"`

	PricingModel    string `json:"pricing_model,omitempty"`
	PricePerRequest int    `json:"price_per_request,omitempty"` // cents

	IconURL  string         `json:"icon_url,omitempty"`
	Tags     []string       `json:"tags,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`

	TotalRequests int `json:"total_requests"`
	SuccessRate   int `json:"success_rate"` // percentage

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Listable reports whether the agent appears in public marketplace listings.
func (a *Agent) Listable() bool {
	return a.IsPublic && a.Status == AgentStatusActive
}
