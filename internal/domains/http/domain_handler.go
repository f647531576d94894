// Package http provides HTTP handlers for domain and place management.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	authDomain "github.com/metagrid/directory/internal/auth/domain"
	authHTTP "github.com/metagrid/directory/internal/auth/http"
	domainsDomain "github.com/metagrid/directory/internal/domains/domain"
	"github.com/metagrid/directory/internal/domains/http/dto"
	domainsUseCase "github.com/metagrid/directory/internal/domains/usecase"
	apperrors "github.com/metagrid/directory/internal/errors"
	"github.com/metagrid/directory/internal/httputil"
	"github.com/metagrid/directory/internal/metrics"
	"github.com/metagrid/directory/internal/permission"
)

// DomainHandler serves the domain and place endpoints.
type DomainHandler struct {
	domains domainsUseCase.DomainUseCase
	roles   permission.AccountSource
	metrics metrics.DirectoryMetrics
	logger  *slog.Logger
}

// NewDomainHandler creates a DomainHandler. metrics may be nil.
func NewDomainHandler(
	domains domainsUseCase.DomainUseCase,
	roles permission.AccountSource,
	m metrics.DirectoryMetrics,
	logger *slog.Logger,
) *DomainHandler {
	return &DomainHandler{
		domains: domains,
		roles:   roles,
		metrics: m,
		logger:  logger,
	}
}

// CreateDomain handles POST /api/v1/domains. The response carries the API
// key explicitly: it is shown once at creation, afterwards only the bound
// sponsor can read it back.
func (h *DomainHandler) CreateDomain(c *gin.Context) {
	var req dto.CreateDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	domain, err := h.domains.CreateDomain(c.Request.Context(), req.Name)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	httputil.Success(c, http.StatusCreated, gin.H{
		"domain": gin.H{
			"domainId":     domain.ID.String(),
			"name":         domain.Name,
			"api_key":      domain.APIKey,
			"when_created": domain.CreatedAt.Format(time.RFC3339),
		},
	})
}

// ListDomains handles GET /api/v1/domains.
func (h *DomainHandler) ListDomains(c *gin.Context) {
	pager, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	domains, err := h.domains.List(c.Request.Context(), pager)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	ident := authHTTP.GetIdentity(c.Request.Context())
	out := make([]map[string]any, 0, len(domains))
	for _, domain := range domains {
		out = append(out, h.domains.DomainInfo(c.Request.Context(), ident, domain))
	}
	httputil.Success(c, http.StatusOK, gin.H{"domains": out})
}

// GetDomain handles GET /api/v1/domains/:domainId. An authenticated caller
// touching an unsponsored domain becomes its sponsor as a side effect of
// capability resolution.
func (h *DomainHandler) GetDomain(c *gin.Context) {
	domain, ok := h.loadDomain(c)
	if !ok {
		return
	}

	ident := authHTTP.GetIdentity(c.Request.Context())
	httputil.Success(c, http.StatusOK, gin.H{
		"domain": h.domains.DomainInfo(c.Request.Context(), ident, domain),
	})
}

// UpdateDomain handles PUT /api/v1/domains/:domainId, the heartbeat path.
// The API key in the body authenticates the domain server independently of
// any personal token.
func (h *DomainHandler) UpdateDomain(c *gin.Context) {
	domain, ok := h.loadDomain(c)
	if !ok {
		return
	}

	var req dto.UpdateDomainRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	ident := authHTTP.GetIdentity(c.Request.Context())
	ident.APIKey = req.APIKey

	// A key-less heartbeat from the address that last presented the key
	// keeps its domain identity.
	if ident.APIKey == "" && domain.LastSenderKey != "" && ident.SenderKey == domain.LastSenderKey {
		ident.APIKey = domain.APIKey
	}

	applied, err := h.domains.UpdateDomainFields(c.Request.Context(), ident, domain, req.Domain)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	if len(applied) > 0 && h.metrics != nil {
		h.metrics.RecordHeartbeat(c.Request.Context(), "domain")
	}
	httputil.Success(c, http.StatusOK, gin.H{"updated": applied})
}

// DeleteDomain handles DELETE /api/v1/domains/:domainId. Sponsor or
// administrator only.
func (h *DomainHandler) DeleteDomain(c *gin.Context) {
	domain, ok := h.loadDomain(c)
	if !ok {
		return
	}
	if !h.callerSponsorsOrAdmin(c, domain) {
		httputil.HandleErrorGin(c, apperrors.ErrForbidden, h.logger)
		return
	}

	if err := h.domains.DeleteDomain(c.Request.Context(), domain.ID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	httputil.Success(c, http.StatusOK, nil)
}

// RegenerateAPIKey handles POST /api/v1/domains/:domainId/api_key.
func (h *DomainHandler) RegenerateAPIKey(c *gin.Context) {
	domain, ok := h.loadDomain(c)
	if !ok {
		return
	}
	if !h.callerSponsorsOrAdmin(c, domain) {
		httputil.HandleErrorGin(c, apperrors.ErrForbidden, h.logger)
		return
	}

	key, err := h.domains.RegenerateAPIKey(c.Request.Context(), domain.ID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	httputil.Success(c, http.StatusOK, gin.H{"api_key": key})
}

// CreatePlace handles POST /api/v1/domains/:domainId/places.
func (h *DomainHandler) CreatePlace(c *gin.Context) {
	domain, ok := h.loadDomain(c)
	if !ok {
		return
	}
	if !h.callerSponsorsOrAdmin(c, domain) {
		httputil.HandleErrorGin(c, apperrors.ErrForbidden, h.logger)
		return
	}

	var req dto.CreatePlaceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	place, err := h.domains.CreatePlace(c.Request.Context(), domain.ID, req.Name, req.Description, req.Path)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	httputil.Success(c, http.StatusCreated, gin.H{"place": placePayload(place)})
}

// ListPlaces handles GET /api/v1/places.
func (h *DomainHandler) ListPlaces(c *gin.Context) {
	pager, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	places, err := h.domains.ListPlaces(c.Request.Context(), pager)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	out := make([]gin.H, 0, len(places))
	for _, place := range places {
		out = append(out, placePayload(place))
	}
	httputil.Success(c, http.StatusOK, gin.H{"places": out})
}

// GetPlace handles GET /api/v1/places/:placeRef where the ref is an id or a
// name.
func (h *DomainHandler) GetPlace(c *gin.Context) {
	place, err := h.domains.GetPlaceByRef(c.Request.Context(), c.Param("placeRef"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	httputil.Success(c, http.StatusOK, gin.H{"place": placePayload(place)})
}

// DeletePlace handles DELETE /api/v1/places/:placeRef.
func (h *DomainHandler) DeletePlace(c *gin.Context) {
	place, err := h.domains.GetPlaceByRef(c.Request.Context(), c.Param("placeRef"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	domain, err := h.domains.GetByID(c.Request.Context(), place.DomainID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	if !h.callerSponsorsOrAdmin(c, domain) {
		httputil.HandleErrorGin(c, apperrors.ErrForbidden, h.logger)
		return
	}

	if err := h.domains.DeletePlace(c.Request.Context(), place.ID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	httputil.Success(c, http.StatusOK, nil)
}

func (h *DomainHandler) loadDomain(c *gin.Context) (*domainsDomain.Domain, bool) {
	id, err := uuid.Parse(c.Param("domainId"))
	if err != nil {
		httputil.Failure(c, http.StatusBadRequest, "invalid domain id")
		return nil, false
	}

	domain, err := h.domains.GetByID(c.Request.Context(), id)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return nil, false
	}
	return domain, true
}

// callerSponsorsOrAdmin reports whether the caller sponsors the domain or
// holds the admin role.
func (h *DomainHandler) callerSponsorsOrAdmin(c *gin.Context, domain *domainsDomain.Domain) bool {
	ident := authHTTP.GetIdentity(c.Request.Context())
	if ident.Token == nil {
		return false
	}
	if domain.OwnedBy(ident.Token.AccountID) {
		return true
	}
	roles, err := h.roles.RolesForAccount(c.Request.Context(), ident.Token.AccountID)
	if err != nil {
		return false
	}
	for _, role := range roles {
		if role == authDomain.RoleAdmin {
			return true
		}
	}
	return false
}

func placePayload(place *domainsDomain.Place) gin.H {
	return gin.H{
		"placeId":      place.ID.String(),
		"domainId":     place.DomainID.String(),
		"name":         place.Name,
		"description":  place.Description,
		"path":         place.Path,
		"when_created": place.CreatedAt.Format(time.RFC3339),
	}
}

// Register wires the domain and place routes onto the router.
func (h *DomainHandler) Register(r gin.IRouter, requireAccount gin.HandlerFunc) {
	v1 := r.Group("/api/v1")

	v1.POST("/domains", h.CreateDomain)
	v1.GET("/domains", h.ListDomains)
	v1.GET("/domains/:domainId", h.GetDomain)
	v1.PUT("/domains/:domainId", h.UpdateDomain)
	v1.DELETE("/domains/:domainId", requireAccount, h.DeleteDomain)
	v1.POST("/domains/:domainId/api_key", requireAccount, h.RegenerateAPIKey)
	v1.POST("/domains/:domainId/places", requireAccount, h.CreatePlace)

	v1.GET("/places", h.ListPlaces)
	v1.GET("/places/:placeRef", h.GetPlace)
	v1.DELETE("/places/:placeRef", requireAccount, h.DeletePlace)
}
