package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	authDomain "github.com/metagrid/directory/internal/auth/domain"
	"github.com/metagrid/directory/internal/config"
	apperrors "github.com/metagrid/directory/internal/errors"
	"github.com/metagrid/directory/internal/store"
)

const (
	// maxExpireHours caps explicit lifetimes at roughly 114 years.
	maxExpireHours = 1_000_000
	// specialAdminTokenLifetime keeps the internal token single-use in
	// practice: it must be consumed by the next in-process call.
	specialAdminTokenLifetime = time.Second
)

// infiniteExpiry stands in for "never expires" (expireHours == -1).
var infiniteExpiry = time.Date(2400, time.January, 1, 0, 0, 0, 0, time.UTC)

// tokenUseCase implements TokenUseCase.
type tokenUseCase struct {
	config *config.Config
	repo   TokenRepository
	logger *slog.Logger

	// adminToken is the fixed bearer string recognized for internal
	// trusted-process calls, regenerated on every process start.
	adminToken string
}

// NewTokenUseCase creates a TokenUseCase with the provided dependencies.
func NewTokenUseCase(cfg *config.Config, repo TokenRepository, logger *slog.Logger) TokenUseCase {
	return &tokenUseCase{
		config:     cfg,
		repo:       repo,
		logger:     logger,
		adminToken: uuid.NewString(),
	}
}

// Issue creates and persists a new token for the account.
func (t *tokenUseCase) Issue(
	ctx context.Context,
	accountID uuid.UUID,
	scopes []authDomain.Scope,
	expireHours int,
) (*authDomain.Token, error) {
	now := time.Now().UTC()

	// Unrecognized scope tags are dropped, not rejected. A token can end
	// up with zero scopes; it stays valid but privilege-less.
	kept := make([]authDomain.Scope, 0, len(scopes))
	for _, s := range scopes {
		if authDomain.KnownScope(s) {
			kept = append(kept, s)
		}
	}

	token := &authDomain.Token{
		ID:           uuid.New(),
		Token:        uuid.NewString(),
		RefreshToken: uuid.NewString(),
		AccountID:    accountID,
		Scope:        kept,
		CreatedAt:    now,
	}

	switch {
	case expireHours == 0:
		token.ExpiresAt = t.defaultExpiration(kept, now)
	case expireHours < 0:
		token.ExpiresAt = infiniteExpiry
	default:
		hours := min(expireHours, maxExpireHours)
		token.ExpiresAt = now.Add(time.Duration(hours) * time.Hour)
	}

	if err := t.repo.Create(ctx, token); err != nil {
		return nil, apperrors.Wrap(err, "failed to issue token")
	}

	t.logger.Debug("token issued",
		slog.String("token_id", token.ID.String()),
		slog.String("account_id", accountID.String()),
		slog.Time("expires_at", token.ExpiresAt))

	return token, nil
}

// defaultExpiration derives the scope-dependent default lifetime: domain
// tokens live for the configured domain hours, everything else gets the
// owner hours.
func (t *tokenUseCase) defaultExpiration(scopes []authDomain.Scope, base time.Time) time.Time {
	hours := t.config.OwnerTokenExpireHours
	for _, s := range scopes {
		if s == authDomain.ScopeDomain {
			hours = t.config.DomainTokenExpireHours
			break
		}
	}
	return base.Add(time.Duration(hours) * time.Hour)
}

// LookupByID retrieves a token by its id.
func (t *tokenUseCase) LookupByID(ctx context.Context, id uuid.UUID) (*authDomain.Token, error) {
	if id == uuid.Nil {
		return nil, authDomain.ErrTokenNotFound
	}
	return t.repo.GetByID(ctx, id)
}

// LookupByToken retrieves a token by its bearer string.
func (t *tokenUseCase) LookupByToken(ctx context.Context, token string) (*authDomain.Token, error) {
	if token == "" {
		return nil, authDomain.ErrTokenNotFound
	}
	return t.repo.GetByToken(ctx, token)
}

// LookupByRefreshToken retrieves a token by its refresh string.
func (t *tokenUseCase) LookupByRefreshToken(ctx context.Context, refreshToken string) (*authDomain.Token, error) {
	if refreshToken == "" {
		return nil, authDomain.ErrTokenNotFound
	}
	return t.repo.GetByRefreshToken(ctx, refreshToken)
}

// ListForAccount returns the tokens issued to an account.
func (t *tokenUseCase) ListForAccount(ctx context.Context, accountID uuid.UUID, pager store.Pagination) ([]*authDomain.Token, error) {
	return t.repo.ListForAccount(ctx, accountID, pager)
}

// Delete removes a token by id.
func (t *tokenUseCase) Delete(ctx context.Context, id uuid.UUID) (bool, error) {
	return t.repo.Delete(ctx, id)
}

// DeleteForAccount removes every token issued to an account.
func (t *tokenUseCase) DeleteForAccount(ctx context.Context, accountID uuid.UUID) (int64, error) {
	return t.repo.DeleteForAccount(ctx, accountID)
}

// IsValid reports whether the token has not expired. Strictly
// expiration > now; a token exactly at its expiration is dead.
func (t *tokenUseCase) IsValid(token *authDomain.Token) bool {
	if token == nil {
		return false
	}
	return token.ExpiresAt.After(time.Now().UTC())
}

// SpecialAdminToken creates the internal trusted-process token. The account
// id is synthetic and never resolves to a real account.
func (t *tokenUseCase) SpecialAdminToken() *authDomain.Token {
	now := time.Now().UTC()
	return &authDomain.Token{
		ID:           uuid.New(),
		Token:        t.adminToken,
		RefreshToken: uuid.NewString(),
		AccountID:    uuid.New(),
		Scope:        []authDomain.Scope{authDomain.ScopeOwner},
		CreatedAt:    now,
		ExpiresAt:    now.Add(specialAdminTokenLifetime),
	}
}

// IsSpecialAdminToken recognizes the internal token by string and expiry
// comparison only.
func (t *tokenUseCase) IsSpecialAdminToken(token *authDomain.Token) bool {
	return token != nil && token.Token == t.adminToken && t.IsValid(token)
}

// SweepExpired deletes all tokens whose expiration has passed.
func (t *tokenUseCase) SweepExpired(ctx context.Context) (int64, error) {
	count, err := t.repo.DeleteExpired(ctx, time.Now().UTC())
	if err != nil {
		return 0, apperrors.Wrap(err, "failed to sweep expired tokens")
	}
	if count > 0 {
		t.logger.Debug("expired tokens swept", slog.Int64("count", count))
	}
	return count, nil
}

// StartSweeper runs SweepExpired on the configured period until ctx is
// cancelled. Sweep failures are logged and the ticker keeps going; every
// lookup path re-checks expiration independently.
func (t *tokenUseCase) StartSweeper(ctx context.Context) {
	ticker := time.NewTicker(t.config.TokenSweepInterval)
	defer ticker.Stop()

	t.logger.Info("token sweeper started",
		slog.Duration("interval", t.config.TokenSweepInterval))

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("token sweeper stopped")
			return
		case <-ticker.C:
			if _, err := t.SweepExpired(ctx); err != nil {
				t.logger.Error("token sweep failed", slog.Any("error", err))
			}
		}
	}
}
