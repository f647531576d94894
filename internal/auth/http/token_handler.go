package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	accountDomain "github.com/metagrid/directory/internal/account/domain"
	authDomain "github.com/metagrid/directory/internal/auth/domain"
	"github.com/metagrid/directory/internal/auth/http/dto"
	authUseCase "github.com/metagrid/directory/internal/auth/usecase"
	apperrors "github.com/metagrid/directory/internal/errors"
	"github.com/metagrid/directory/internal/httputil"
	"github.com/metagrid/directory/internal/metrics"
)

// AccountAuthenticator is the slice of the account use case the token
// endpoints need.
type AccountAuthenticator interface {
	Authenticate(ctx context.Context, username, password string) (*accountDomain.Account, error)
	GetByID(ctx context.Context, id uuid.UUID) (*accountDomain.Account, error)
	RolesForAccount(ctx context.Context, accountID uuid.UUID) ([]string, error)
}

// TokenHandler serves the token grant and token management endpoints.
type TokenHandler struct {
	tokens   authUseCase.TokenUseCase
	accounts AccountAuthenticator
	metrics  metrics.DirectoryMetrics
	logger   *slog.Logger
}

// NewTokenHandler creates a TokenHandler. metrics may be nil when metrics
// are disabled.
func NewTokenHandler(
	tokens authUseCase.TokenUseCase,
	accounts AccountAuthenticator,
	m metrics.DirectoryMetrics,
	logger *slog.Logger,
) *TokenHandler {
	return &TokenHandler{
		tokens:   tokens,
		accounts: accounts,
		metrics:  m,
		logger:   logger,
	}
}

// GrantToken handles POST /oauth/token with the password and refresh_token
// grant types.
func (h *TokenHandler) GrantToken(c *gin.Context) {
	var req dto.TokenGrantRequest
	if err := c.ShouldBind(&req); err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	switch req.GrantType {
	case "password":
		h.passwordGrant(c, &req)
	case "refresh_token":
		h.refreshGrant(c, &req)
	default:
		httputil.Failure(c, http.StatusBadRequest, "unsupported grant_type")
	}
}

func (h *TokenHandler) passwordGrant(c *gin.Context, req *dto.TokenGrantRequest) {
	account, err := h.accounts.Authenticate(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	scopes := req.Scopes()
	if len(scopes) == 0 {
		scopes = []authDomain.Scope{authDomain.ScopeOwner}
	}

	token, err := h.tokens.Issue(c.Request.Context(), account.ID, scopes, 0)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.recordIssued(c, token)
	c.JSON(http.StatusOK, dto.NewTokenResponse(token, account.Username))
}

func (h *TokenHandler) refreshGrant(c *gin.Context, req *dto.TokenGrantRequest) {
	if req.RefreshToken == "" {
		httputil.Failure(c, http.StatusBadRequest, "refresh_token is required")
		return
	}

	old, err := h.tokens.LookupByRefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	if !h.tokens.IsValid(old) {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	token, err := h.tokens.Issue(c.Request.Context(), old.AccountID, old.Scope, 0)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	// The old token stays alive until it expires or is revoked; clients in
	// mid-flight keep working.
	var accountName string
	if account, err := h.accounts.GetByID(c.Request.Context(), old.AccountID); err == nil {
		accountName = account.Username
	}

	h.recordIssued(c, token)
	c.JSON(http.StatusOK, dto.NewTokenResponse(token, accountName))
}

// NewToken handles GET /api/v1/token/new. The caller must hold a valid
// personal token; scope and expiration come from query parameters.
func (h *TokenHandler) NewToken(c *gin.Context) {
	ident := GetIdentity(c.Request.Context())
	if ident.Token == nil {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return
	}

	scopes := []authDomain.Scope{authDomain.ScopeOwner}
	if raw := c.Query("scope"); raw != "" {
		scopes = (&dto.TokenGrantRequest{Scope: raw}).Scopes()
	}

	expireHours := 0
	if raw := c.Query("expiration"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			httputil.Failure(c, http.StatusBadRequest, "invalid expiration parameter")
			return
		}
		expireHours = parsed
	}

	token, err := h.tokens.Issue(c.Request.Context(), ident.Token.AccountID, scopes, expireHours)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	h.recordIssued(c, token)
	httputil.Success(c, http.StatusCreated, dto.NewTokenResponse(token, ""))
}

// ListTokens handles GET /api/v1/account/:accountRef/tokens. Only the
// account itself or an administrator may list.
func (h *TokenHandler) ListTokens(c *gin.Context) {
	accountID, ok := h.authorizeAccountAccess(c)
	if !ok {
		return
	}

	pager, err := httputil.ParsePagination(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	tokens, err := h.tokens.ListForAccount(c.Request.Context(), accountID, pager)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	out := make([]dto.TokenInfoResponse, 0, len(tokens))
	for _, token := range tokens {
		out = append(out, dto.NewTokenInfoResponse(token))
	}
	httputil.Success(c, http.StatusOK, gin.H{"tokens": out})
}

// DeleteToken handles DELETE /api/v1/account/:accountRef/tokens/:tokenId.
func (h *TokenHandler) DeleteToken(c *gin.Context) {
	accountID, ok := h.authorizeAccountAccess(c)
	if !ok {
		return
	}

	tokenID, err := uuid.Parse(c.Param("tokenId"))
	if err != nil {
		httputil.Failure(c, http.StatusBadRequest, "invalid token id")
		return
	}

	token, err := h.tokens.LookupByID(c.Request.Context(), tokenID)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	if token.AccountID != accountID {
		httputil.HandleErrorGin(c, authDomain.ErrTokenNotFound, h.logger)
		return
	}

	if _, err := h.tokens.Delete(c.Request.Context(), tokenID); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	httputil.Success(c, http.StatusOK, nil)
}

// authorizeAccountAccess parses the account id from the path and verifies
// the caller is that account or an administrator.
func (h *TokenHandler) authorizeAccountAccess(c *gin.Context) (uuid.UUID, bool) {
	accountID, err := uuid.Parse(c.Param("accountRef"))
	if err != nil {
		httputil.Failure(c, http.StatusBadRequest, "invalid account id")
		return uuid.Nil, false
	}

	ident := GetIdentity(c.Request.Context())
	if ident.Token == nil {
		httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, h.logger)
		return uuid.Nil, false
	}

	if ident.Token.AccountID != accountID && !h.callerIsAdmin(c.Request.Context(), ident.Token.AccountID) {
		httputil.HandleErrorGin(c, apperrors.ErrForbidden, h.logger)
		return uuid.Nil, false
	}
	return accountID, true
}

func (h *TokenHandler) callerIsAdmin(ctx context.Context, accountID uuid.UUID) bool {
	roles, err := h.accounts.RolesForAccount(ctx, accountID)
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

func (h *TokenHandler) recordIssued(c *gin.Context, token *authDomain.Token) {
	if h.metrics == nil {
		return
	}
	scope := "none"
	if len(token.Scope) > 0 {
		scope = string(token.Scope[0])
	}
	h.metrics.RecordTokenIssued(c.Request.Context(), scope)
}

// Register wires the token routes onto the router. rateLimit may be nil.
func (h *TokenHandler) Register(r gin.IRouter, rateLimit gin.HandlerFunc) {
	if rateLimit != nil {
		r.POST("/oauth/token", rateLimit, h.GrantToken)
	} else {
		r.POST("/oauth/token", h.GrantToken)
	}

	v1 := r.Group("/api/v1")
	v1.GET("/token/new", h.NewToken)
	v1.GET("/account/:accountRef/tokens", h.ListTokens)
	v1.DELETE("/account/:accountRef/tokens/:tokenId", h.DeleteToken)
}
