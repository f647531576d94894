// Package dto defines request payloads for the domain endpoints.
package dto

// CreateDomainRequest registers a new domain.
type CreateDomainRequest struct {
	Name string `json:"name" binding:"required"`
}

// UpdateDomainRequest carries a heartbeat update. The api_key authenticates
// the domain server itself; the domain map holds public field names and
// values.
type UpdateDomainRequest struct {
	APIKey string         `json:"api_key"`
	Domain map[string]any `json:"domain" binding:"required"`
}

// CreatePlaceRequest registers a place under a domain.
type CreatePlaceRequest struct {
	Name        string `json:"name" binding:"required"`
	Description string `json:"description"`
	Path        string `json:"path"`
}
