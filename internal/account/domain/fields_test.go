package domain

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/metagrid/directory/internal/account/service"
	authDomain "github.com/metagrid/directory/internal/auth/domain"
	"github.com/metagrid/directory/internal/permission"
)

type stubTokenChecker struct{}

func (stubTokenChecker) IsValid(token *authDomain.Token) bool {
	return token != nil && token.ExpiresAt.After(time.Now().UTC())
}

func (stubTokenChecker) IsSpecialAdminToken(*authDomain.Token) bool { return false }

type stubRoles map[uuid.UUID][]string

func (s stubRoles) RolesForAccount(_ context.Context, accountID uuid.UUID) ([]string, error) {
	roles, ok := s[accountID]
	if !ok {
		return nil, errors.New("no such account")
	}
	return roles, nil
}

func newAccountEvaluator(hasher PasswordHasher, accounts stubRoles) *permission.Evaluator[*Account] {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	resolver := permission.NewResolver(stubTokenChecker{}, accounts, nil, logger)
	return permission.NewEvaluator(NewAccountFields(hasher), resolver)
}

func ownerIdentity(account *Account, accounts stubRoles) permission.Identity {
	accounts[account.ID] = []string{authDomain.RoleUser}
	return permission.Identity{Token: &authDomain.Token{
		ID:        uuid.New(),
		Token:     uuid.NewString(),
		AccountID: account.ID,
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}}
}

func TestPasswordRoundTrip(t *testing.T) {
	ctx := context.Background()
	hasher := service.NewPasswordService()
	accounts := stubRoles{}
	ev := newAccountEvaluator(hasher, accounts)

	account := &Account{ID: uuid.New(), Username: "fred"}
	ident := ownerIdentity(account, accounts)

	require.True(t, ev.Set(ctx, ident, account, "password", "correct-horse"))

	t.Run("write fans out into hash and salt", func(t *testing.T) {
		update := ev.BuildUpdate(account, "password")
		assert.Equal(t, account.PasswordHash, update["password_hash"])
		assert.Equal(t, account.PasswordSalt, update["password_salt"])
		assert.NotContains(t, update, "password")
	})

	t.Run("stored hash verifies the original password only", func(t *testing.T) {
		assert.True(t, hasher.Verify("correct-horse", account.PasswordSalt, account.PasswordHash))
		assert.False(t, hasher.Verify("wrong-horse", account.PasswordSalt, account.PasswordHash))
	})

	t.Run("password is hidden even from its owner", func(t *testing.T) {
		_, ok := ev.Get(ctx, ident, account, "password")
		assert.False(t, ok)
	})

	t.Run("rewriting derives a fresh salt", func(t *testing.T) {
		before := account.PasswordSalt
		require.True(t, ev.Set(ctx, ident, account, "password", "correct-horse"))
		assert.NotEqual(t, before, account.PasswordSalt)
	})
}

func TestProfileFieldsReadableByAnyone(t *testing.T) {
	ctx := context.Background()
	ev := newAccountEvaluator(service.NewPasswordService(), stubRoles{})

	account := &Account{
		ID:              uuid.New(),
		AccountSettings: `{"theme":"dark"}`,
		Locker:          `{"items":[]}`,
		CreatorIP:       "203.0.113.7",
	}

	for name, want := range map[string]any{
		"account_settings": account.AccountSettings,
		"locker":           account.Locker,
		"creation_ip":      account.CreatorIP,
	} {
		value, ok := ev.Get(ctx, permission.Identity{}, account, name)
		require.True(t, ok, name)
		assert.Equal(t, want, value, name)
	}
}

func TestWhenCreatedField(t *testing.T) {
	ctx := context.Background()
	accounts := stubRoles{}
	ev := newAccountEvaluator(service.NewPasswordService(), accounts)

	created := time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)
	account := &Account{ID: uuid.New(), CreatedAt: created}
	ident := ownerIdentity(account, accounts)

	t.Run("reads back as a formatted string", func(t *testing.T) {
		value, ok := ev.Get(ctx, permission.Identity{}, account, "when_created")
		require.True(t, ok)
		assert.Equal(t, created.Format(time.RFC3339), value)
	})

	t.Run("owner writes a parseable date", func(t *testing.T) {
		require.True(t, ev.Set(ctx, ident, account, "when_created", "2021-06-07T08:09:10Z"))
		assert.Equal(t, time.Date(2021, 6, 7, 8, 9, 10, 0, time.UTC), account.CreatedAt)
	})

	t.Run("non-date value is rejected", func(t *testing.T) {
		assert.False(t, ev.Set(ctx, ident, account, "when_created", "yesterday"))
	})

	t.Run("anonymous write is denied", func(t *testing.T) {
		assert.False(t, ev.Set(ctx, permission.Identity{}, account, "when_created", "2022-01-01T00:00:00Z"))
	})
}

func TestCreationIPIsImmutable(t *testing.T) {
	ctx := context.Background()
	accounts := stubRoles{}
	ev := newAccountEvaluator(service.NewPasswordService(), accounts)

	account := &Account{ID: uuid.New(), CreatorIP: "203.0.113.7"}
	ident := ownerIdentity(account, accounts)

	assert.False(t, ev.Set(ctx, ident, account, "creation_ip", "198.51.100.1"))
	assert.Equal(t, "203.0.113.7", account.CreatorIP)
}
