// Package http provides HTTP handlers for account management.
package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	accountDomain "github.com/metagrid/directory/internal/account/domain"
	"github.com/metagrid/directory/internal/account/http/dto"
	accountUseCase "github.com/metagrid/directory/internal/account/usecase"
	authDomain "github.com/metagrid/directory/internal/auth/domain"
	authHTTP "github.com/metagrid/directory/internal/auth/http"
	apperrors "github.com/metagrid/directory/internal/errors"
	"github.com/metagrid/directory/internal/httputil"
	"github.com/metagrid/directory/internal/metrics"
)

// AccountHandler serves the account endpoints.
type AccountHandler struct {
	accounts accountUseCase.AccountUseCase
	metrics  metrics.DirectoryMetrics
	logger   *slog.Logger
}

// NewAccountHandler creates an AccountHandler. metrics may be nil.
func NewAccountHandler(accounts accountUseCase.AccountUseCase, m metrics.DirectoryMetrics, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{
		accounts: accounts,
		metrics:  m,
		logger:   logger,
	}
}

// CreateAccount handles POST /api/v1/accounts. Open endpoint; the creator's
// address is recorded on the account.
func (h *AccountHandler) CreateAccount(c *gin.Context) {
	var req dto.CreateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	account, err := h.accounts.CreateAccount(c.Request.Context(), req.Username, req.Email, req.Password, c.ClientIP())
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordAccountCreated(c.Request.Context())
	}

	ident := authHTTP.GetIdentity(c.Request.Context())
	httputil.Success(c, http.StatusCreated, gin.H{
		"account": h.accounts.AccountInfo(c.Request.Context(), ident, account),
	})
}

// ListAccounts handles GET /api/v1/accounts. Every caller gets the list;
// per-account field visibility still depends on who is asking.
func (h *AccountHandler) ListAccounts(c *gin.Context) {
	pager, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	accounts, err := h.accounts.List(c.Request.Context(), pager)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	ident := authHTTP.GetIdentity(c.Request.Context())
	out := make([]map[string]any, 0, len(accounts))
	for _, account := range accounts {
		out = append(out, h.accounts.AccountInfo(c.Request.Context(), ident, account))
	}
	httputil.Success(c, http.StatusOK, gin.H{"accounts": out})
}

// GetAccount handles GET /api/v1/account/:accountRef where the ref is an id
// or a username.
func (h *AccountHandler) GetAccount(c *gin.Context) {
	account, err := h.accounts.GetByRef(c.Request.Context(), c.Param("accountRef"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	ident := authHTTP.GetIdentity(c.Request.Context())
	httputil.Success(c, http.StatusOK, gin.H{
		"account": h.accounts.AccountInfo(c.Request.Context(), ident, account),
	})
}

// UpdateAccount handles POST /api/v1/account/:accountRef. The body is a map
// of public field names to values; writes the caller is not entitled to are
// dropped silently and reported back in the updated list.
func (h *AccountHandler) UpdateAccount(c *gin.Context) {
	account, err := h.accounts.GetByRef(c.Request.Context(), c.Param("accountRef"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	var updates map[string]any
	if err := c.ShouldBindJSON(&updates); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	ident := authHTTP.GetIdentity(c.Request.Context())
	applied, err := h.accounts.UpdateAccountFields(c.Request.Context(), ident, account, updates)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	httputil.Success(c, http.StatusOK, gin.H{"updated": applied})
}

// DeleteAccount handles DELETE /api/v1/account/:accountRef. Only the
// account itself or an administrator may delete.
func (h *AccountHandler) DeleteAccount(c *gin.Context) {
	account, err := h.accounts.GetByRef(c.Request.Context(), c.Param("accountRef"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	if !h.callerOwnsOrAdmin(c, account) {
		httputil.HandleErrorGin(c, apperrors.ErrForbidden, h.logger)
		return
	}

	if err := h.accounts.DeleteAccount(c.Request.Context(), account.ID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	httputil.Success(c, http.StatusOK, nil)
}

// Heartbeat handles PUT /api/v1/account/:accountRef/heartbeat.
func (h *AccountHandler) Heartbeat(c *gin.Context) {
	account, err := h.accounts.GetByRef(c.Request.Context(), c.Param("accountRef"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	if !h.callerOwnsOrAdmin(c, account) {
		httputil.HandleErrorGin(c, apperrors.ErrForbidden, h.logger)
		return
	}

	if err := h.accounts.Heartbeat(c.Request.Context(), account.ID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	if h.metrics != nil {
		h.metrics.RecordHeartbeat(c.Request.Context(), "account")
	}
	httputil.Success(c, http.StatusOK, nil)
}

// AddFriend handles POST /api/v1/user/friends for the calling account.
func (h *AccountHandler) AddFriend(c *gin.Context) {
	h.relationship(c, h.accounts.MakeFriends)
}

// RemoveFriend handles DELETE /api/v1/user/friends/:username.
func (h *AccountHandler) RemoveFriend(c *gin.Context) {
	h.relationshipParam(c, h.accounts.RemoveFriend)
}

// AddConnection handles POST /api/v1/user/connections.
func (h *AccountHandler) AddConnection(c *gin.Context) {
	h.relationship(c, h.accounts.MakeConnection)
}

// RemoveConnection handles DELETE /api/v1/user/connections/:username.
func (h *AccountHandler) RemoveConnection(c *gin.Context) {
	h.relationshipParam(c, h.accounts.RemoveConnection)
}

// relationship applies a symmetric relationship operation between the
// calling account and the username in the request body.
func (h *AccountHandler) relationship(c *gin.Context, op func(ctx context.Context, a, b string) error) {
	var req dto.RelationshipRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}
	h.applyRelationship(c, req.Username, op)
}

// relationshipParam is the same with the username taken from the path.
func (h *AccountHandler) relationshipParam(c *gin.Context, op func(ctx context.Context, a, b string) error) {
	h.applyRelationship(c, c.Param("username"), op)
}

func (h *AccountHandler) applyRelationship(c *gin.Context, other string, op func(ctx context.Context, a, b string) error) {
	ident := authHTTP.GetIdentity(c.Request.Context())
	caller, err := h.accounts.GetByID(c.Request.Context(), ident.Token.AccountID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	if err := op(c.Request.Context(), caller.Username, other); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	httputil.Success(c, http.StatusOK, nil)
}

// callerOwnsOrAdmin reports whether the caller is the account itself or
// holds the admin role.
func (h *AccountHandler) callerOwnsOrAdmin(c *gin.Context, account *accountDomain.Account) bool {
	ident := authHTTP.GetIdentity(c.Request.Context())
	if ident.Token == nil {
		return false
	}
	if ident.Token.AccountID == account.ID {
		return true
	}
	roles, err := h.accounts.RolesForAccount(c.Request.Context(), ident.Token.AccountID)
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

// Register wires the account routes onto the router.
func (h *AccountHandler) Register(r gin.IRouter, requireAccount gin.HandlerFunc) {
	v1 := r.Group("/api/v1")

	v1.POST("/accounts", h.CreateAccount)
	v1.GET("/accounts", h.ListAccounts)
	v1.GET("/account/:accountRef", h.GetAccount)
	v1.POST("/account/:accountRef", h.UpdateAccount)
	v1.DELETE("/account/:accountRef", requireAccount, h.DeleteAccount)
	v1.PUT("/account/:accountRef/heartbeat", requireAccount, h.Heartbeat)

	user := v1.Group("/user", requireAccount)
	user.POST("/friends", h.AddFriend)
	user.DELETE("/friends/:username", h.RemoveFriend)
	user.POST("/connections", h.AddConnection)
	user.DELETE("/connections/:username", h.RemoveConnection)
}
