// Package dto defines request and response payloads for the auth endpoints.
package dto

import (
	"strings"
	"time"

	authDomain "github.com/metagrid/directory/internal/auth/domain"
)

// TokenGrantRequest is the OAuth-style token request, form-encoded.
type TokenGrantRequest struct {
	GrantType    string `form:"grant_type" json:"grant_type"`
	Username     string `form:"username" json:"username"`
	Password     string `form:"password" json:"password"`
	Scope        string `form:"scope" json:"scope"`
	RefreshToken string `form:"refresh_token" json:"refresh_token"`
}

// Scopes parses the space-separated scope string.
func (r *TokenGrantRequest) Scopes() []authDomain.Scope {
	fields := strings.Fields(r.Scope)
	scopes := make([]authDomain.Scope, 0, len(fields))
	for _, f := range fields {
		scopes = append(scopes, authDomain.Scope(f))
	}
	return scopes
}

// TokenResponse is the token grant payload.
type TokenResponse struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	RefreshToken string `json:"refresh_token"`
	Scope        string `json:"scope"`
	CreatedAt    int64  `json:"created_at"`
	AccountID    string `json:"account_id"`
	AccountName  string `json:"account_name,omitempty"`
}

// NewTokenResponse builds the grant payload from a token.
func NewTokenResponse(token *authDomain.Token, accountName string) TokenResponse {
	scopes := make([]string, 0, len(token.Scope))
	for _, s := range token.Scope {
		scopes = append(scopes, string(s))
	}
	return TokenResponse{
		AccessToken:  token.Token,
		TokenType:    "Bearer",
		ExpiresIn:    int64(time.Until(token.ExpiresAt).Seconds()),
		RefreshToken: token.RefreshToken,
		Scope:        strings.Join(scopes, " "),
		CreatedAt:    token.CreatedAt.Unix(),
		AccountID:    token.AccountID.String(),
		AccountName:  accountName,
	}
}

// TokenInfoResponse describes a token in listings; the bearer string itself
// is never echoed back.
type TokenInfoResponse struct {
	TokenID     string   `json:"token_id"`
	Scope       []string `json:"scope"`
	WhenCreated string   `json:"when_created"`
	WhenExpires string   `json:"when_expires"`
}

// NewTokenInfoResponse builds a listing entry from a token.
func NewTokenInfoResponse(token *authDomain.Token) TokenInfoResponse {
	scopes := make([]string, 0, len(token.Scope))
	for _, s := range token.Scope {
		scopes = append(scopes, string(s))
	}
	return TokenInfoResponse{
		TokenID:     token.ID.String(),
		Scope:       scopes,
		WhenCreated: token.CreatedAt.Format(time.RFC3339),
		WhenExpires: token.ExpiresAt.Format(time.RFC3339),
	}
}
