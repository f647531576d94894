package usecase

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authDomain "github.com/metagrid/directory/internal/auth/domain"
	"github.com/metagrid/directory/internal/config"
	"github.com/metagrid/directory/internal/store"
)

// fakeTokenRepository is an in-memory TokenRepository.
type fakeTokenRepository struct {
	tokens map[uuid.UUID]*authDomain.Token
}

func newFakeTokenRepository() *fakeTokenRepository {
	return &fakeTokenRepository{tokens: make(map[uuid.UUID]*authDomain.Token)}
}

func (f *fakeTokenRepository) Create(_ context.Context, token *authDomain.Token) error {
	f.tokens[token.ID] = token
	return nil
}

func (f *fakeTokenRepository) GetByID(_ context.Context, id uuid.UUID) (*authDomain.Token, error) {
	if t, ok := f.tokens[id]; ok {
		return t, nil
	}
	return nil, authDomain.ErrTokenNotFound
}

func (f *fakeTokenRepository) GetByToken(_ context.Context, token string) (*authDomain.Token, error) {
	for _, t := range f.tokens {
		if t.Token == token {
			return t, nil
		}
	}
	return nil, authDomain.ErrTokenNotFound
}

func (f *fakeTokenRepository) GetByRefreshToken(_ context.Context, refreshToken string) (*authDomain.Token, error) {
	for _, t := range f.tokens {
		if t.RefreshToken == refreshToken {
			return t, nil
		}
	}
	return nil, authDomain.ErrTokenNotFound
}

func (f *fakeTokenRepository) ListForAccount(_ context.Context, accountID uuid.UUID, _ store.Pagination) ([]*authDomain.Token, error) {
	var out []*authDomain.Token
	for _, t := range f.tokens {
		if t.AccountID == accountID {
			out = append(out, t)
		}
	}
	return out, nil
}

func (f *fakeTokenRepository) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	if _, ok := f.tokens[id]; !ok {
		return false, nil
	}
	delete(f.tokens, id)
	return true, nil
}

func (f *fakeTokenRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	var count int64
	for id, t := range f.tokens {
		if t.ExpiresAt.Before(now) {
			delete(f.tokens, id)
			count++
		}
	}
	return count, nil
}

func (f *fakeTokenRepository) DeleteForAccount(_ context.Context, accountID uuid.UUID) (int64, error) {
	var count int64
	for id, t := range f.tokens {
		if t.AccountID == accountID {
			delete(f.tokens, id)
			count++
		}
	}
	return count, nil
}

func newTokenUseCaseForTest(t *testing.T) (TokenUseCase, *fakeTokenRepository) {
	t.Helper()
	repo := newFakeTokenRepository()
	cfg := &config.Config{
		OwnerTokenExpireHours:  12,
		DomainTokenExpireHours: 8760,
		TokenSweepInterval:     5 * time.Minute,
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewTokenUseCase(cfg, repo, logger), repo
}

func TestIssueExpirationPolicy(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTokenUseCaseForTest(t)
	accountID := uuid.New()

	t.Run("zero derives the owner default", func(t *testing.T) {
		token, err := uc.Issue(ctx, accountID, []authDomain.Scope{authDomain.ScopeOwner}, 0)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().UTC().Add(12*time.Hour), token.ExpiresAt, time.Minute)
	})

	t.Run("zero derives the domain default for domain scope", func(t *testing.T) {
		token, err := uc.Issue(ctx, accountID, []authDomain.Scope{authDomain.ScopeDomain}, 0)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().UTC().Add(8760*time.Hour), token.ExpiresAt, time.Minute)
	})

	t.Run("negative means effectively never", func(t *testing.T) {
		token, err := uc.Issue(ctx, accountID, []authDomain.Scope{authDomain.ScopeOwner}, -1)
		require.NoError(t, err)
		assert.Equal(t, 2400, token.ExpiresAt.Year())
	})

	t.Run("explicit hours are honored", func(t *testing.T) {
		token, err := uc.Issue(ctx, accountID, []authDomain.Scope{authDomain.ScopeOwner}, 5)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().UTC().Add(5*time.Hour), token.ExpiresAt, time.Minute)
	})

	t.Run("excessive hours clamp to the maximum", func(t *testing.T) {
		token, err := uc.Issue(ctx, accountID, []authDomain.Scope{authDomain.ScopeOwner}, 2_000_000)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now().UTC().Add(1_000_000*time.Hour), token.ExpiresAt, time.Minute)
	})
}

func TestIssueScopeFiltering(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTokenUseCaseForTest(t)

	t.Run("unknown scopes are dropped silently", func(t *testing.T) {
		token, err := uc.Issue(ctx, uuid.New(), []authDomain.Scope{authDomain.ScopeOwner, "bogus", authDomain.ScopeRead}, 0)
		require.NoError(t, err)
		assert.Equal(t, []authDomain.Scope{authDomain.ScopeOwner, authDomain.ScopeRead}, token.Scope)
	})

	t.Run("all unknown scopes still issue a token", func(t *testing.T) {
		token, err := uc.Issue(ctx, uuid.New(), []authDomain.Scope{"bogus", "worse"}, 0)
		require.NoError(t, err)
		assert.Empty(t, token.Scope)
		assert.True(t, uc.IsValid(token))
	})
}

func TestIsValid(t *testing.T) {
	uc, _ := newTokenUseCaseForTest(t)

	t.Run("future expiration is valid", func(t *testing.T) {
		token := &authDomain.Token{ExpiresAt: time.Now().UTC().Add(time.Minute)}
		assert.True(t, uc.IsValid(token))
	})

	t.Run("past expiration is invalid", func(t *testing.T) {
		token := &authDomain.Token{ExpiresAt: time.Now().UTC().Add(-time.Millisecond)}
		assert.False(t, uc.IsValid(token))
	})

	t.Run("nil token is invalid", func(t *testing.T) {
		assert.False(t, uc.IsValid(nil))
	})
}

func TestSpecialAdminToken(t *testing.T) {
	uc, repo := newTokenUseCaseForTest(t)

	t.Run("recognized while fresh", func(t *testing.T) {
		token := uc.SpecialAdminToken()
		assert.True(t, uc.IsSpecialAdminToken(token))
		assert.True(t, token.HasScope(authDomain.ScopeOwner))
	})

	t.Run("never persisted", func(t *testing.T) {
		uc.SpecialAdminToken()
		assert.Empty(t, repo.tokens)
	})

	t.Run("stale copy is rejected", func(t *testing.T) {
		token := uc.SpecialAdminToken()
		token.ExpiresAt = time.Now().UTC().Add(-time.Second)
		assert.False(t, uc.IsSpecialAdminToken(token))
	})

	t.Run("same bearer string for the process lifetime", func(t *testing.T) {
		first := uc.SpecialAdminToken()
		second := uc.SpecialAdminToken()
		assert.Equal(t, first.Token, second.Token)
	})

	t.Run("a random token is not the admin token", func(t *testing.T) {
		token := uc.SpecialAdminToken()
		token.Token = uuid.NewString()
		assert.False(t, uc.IsSpecialAdminToken(token))
	})
}

func TestSweepExpired(t *testing.T) {
	ctx := context.Background()
	uc, repo := newTokenUseCaseForTest(t)
	accountID := uuid.New()

	live, err := uc.Issue(ctx, accountID, []authDomain.Scope{authDomain.ScopeOwner}, 0)
	require.NoError(t, err)
	dead, err := uc.Issue(ctx, accountID, []authDomain.Scope{authDomain.ScopeOwner}, 1)
	require.NoError(t, err)
	dead.ExpiresAt = time.Now().UTC().Add(-time.Hour)

	count, err := uc.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)

	_, ok := repo.tokens[live.ID]
	assert.True(t, ok)
	_, ok = repo.tokens[dead.ID]
	assert.False(t, ok)

	t.Run("sweep is idempotent", func(t *testing.T) {
		count, err := uc.SweepExpired(ctx)
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}
