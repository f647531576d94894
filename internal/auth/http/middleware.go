package http

import (
	"log/slog"
	"strings"

	"github.com/gin-gonic/gin"

	authUseCase "github.com/metagrid/directory/internal/auth/usecase"
	apperrors "github.com/metagrid/directory/internal/errors"
	"github.com/metagrid/directory/internal/httputil"
	"github.com/metagrid/directory/internal/permission"
)

// IdentityMiddleware resolves the caller identity for every request and
// never aborts: most endpoints serve anonymous callers with reduced field
// visibility, so a missing or dead token simply yields an anonymous
// identity.
//
// The middleware:
//  1. Extracts the Bearer token from the Authorization header (case-insensitive)
//  2. Looks the token up and keeps it only while still valid
//  3. Records the sender's address:port for sender-key checks
//  4. Stores the permission.Identity in the request context
func IdentityMiddleware(tokenUseCase authUseCase.TokenUseCase, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := permission.Identity{
			SenderKey: c.Request.RemoteAddr,
		}

		if bearer := extractBearer(c.GetHeader("Authorization")); bearer != "" {
			token, err := tokenUseCase.LookupByToken(c.Request.Context(), bearer)
			switch {
			case err != nil:
				logger.Debug("bearer token not found")
			case !tokenUseCase.IsValid(token):
				logger.Debug("bearer token expired",
					slog.String("token_id", token.ID.String()))
			default:
				ident.Token = token
			}
		}

		c.Request = c.Request.WithContext(WithIdentity(c.Request.Context(), ident))
		c.Next()
	}
}

// RequireAccount aborts with 401 unless the caller presented a valid
// personal token. Used on endpoints that make no sense anonymously.
func RequireAccount(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ident := GetIdentity(c.Request.Context())
		if ident.Token == nil {
			httputil.HandleErrorGin(c, apperrors.ErrUnauthorized, logger)
			c.Abort()
			return
		}
		c.Next()
	}
}

// extractBearer parses an Authorization header of the form "Bearer <token>"
// with a case-insensitive scheme. Returns "" when the header does not carry
// a bearer token.
func extractBearer(header string) string {
	const prefix = "bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}
