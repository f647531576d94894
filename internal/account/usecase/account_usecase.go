package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	accountDomain "github.com/metagrid/directory/internal/account/domain"
	authDomain "github.com/metagrid/directory/internal/auth/domain"
	"github.com/metagrid/directory/internal/config"
	apperrors "github.com/metagrid/directory/internal/errors"
	"github.com/metagrid/directory/internal/permission"
	"github.com/metagrid/directory/internal/store"
	"github.com/metagrid/directory/internal/validation"
)

// accountUseCase implements AccountUseCase.
type accountUseCase struct {
	config    *config.Config
	repo      AccountRepository
	hasher    accountDomain.PasswordHasher
	tokens    TokenRevoker
	sponsored SponsoredDeleter
	evaluator *permission.Evaluator[*accountDomain.Account]
	logger    *slog.Logger
}

// NewAccountUseCase creates an AccountUseCase. The field evaluator is
// attached afterwards with SetEvaluator because the capability resolver it
// wraps needs this use case as its account source.
func NewAccountUseCase(
	cfg *config.Config,
	repo AccountRepository,
	hasher accountDomain.PasswordHasher,
	tokens TokenRevoker,
	sponsored SponsoredDeleter,
	logger *slog.Logger,
) AccountUseCase {
	return &accountUseCase{
		config:    cfg,
		repo:      repo,
		hasher:    hasher,
		tokens:    tokens,
		sponsored: sponsored,
		logger:    logger,
	}
}

// SetEvaluator attaches the field evaluator once the resolver is wired.
func (a *accountUseCase) SetEvaluator(ev *permission.Evaluator[*accountDomain.Account]) {
	a.evaluator = ev
}

// CreateAccount registers a new account.
func (a *accountUseCase) CreateAccount(ctx context.Context, username, email, password, creatorIP string) (*accountDomain.Account, error) {
	if err := validation.Username(username); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
	}
	if err := validation.Email(email); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
	}
	if err := validation.Password(password); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
	}

	// The unique indexes are the real guard; these lookups exist to return
	// a specific error instead of a bare conflict.
	if _, err := a.repo.GetByUsername(ctx, username); err == nil {
		return nil, accountDomain.ErrUsernameTaken
	} else if !apperrors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}
	if _, err := a.repo.GetByEmail(ctx, email); err == nil {
		return nil, accountDomain.ErrEmailTaken
	} else if !apperrors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	hash, salt := a.hasher.Hash(password)
	account := &accountDomain.Account{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: hash,
		PasswordSalt: salt,
		Connections:  []string{},
		Friends:      []string{},
		Roles:        []string{authDomain.RoleUser},
		CreatorIP:    creatorIP,
		CreatedAt:    time.Now().UTC(),
	}

	if err := a.repo.Create(ctx, account); err != nil {
		if apperrors.Is(err, apperrors.ErrConflict) {
			return nil, accountDomain.ErrUsernameTaken
		}
		return nil, apperrors.Wrap(err, "failed to create account")
	}

	a.logger.Info("account created",
		slog.String("account_id", account.ID.String()),
		slog.String("username", account.Username))

	return account, nil
}

// GetByID retrieves an account by id.
func (a *accountUseCase) GetByID(ctx context.Context, id uuid.UUID) (*accountDomain.Account, error) {
	return a.repo.GetByID(ctx, id)
}

// GetByUsername retrieves an account by username, case-insensitively.
func (a *accountUseCase) GetByUsername(ctx context.Context, username string) (*accountDomain.Account, error) {
	return a.repo.GetByUsername(ctx, username)
}

// GetByRef resolves an account reference that may be an id or a username.
func (a *accountUseCase) GetByRef(ctx context.Context, ref string) (*accountDomain.Account, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return a.repo.GetByID(ctx, id)
	}
	return a.repo.GetByUsername(ctx, ref)
}

// List returns accounts ordered by username.
func (a *accountUseCase) List(ctx context.Context, pager store.Pagination) ([]*accountDomain.Account, error) {
	return a.repo.List(ctx, pager)
}

// Authenticate verifies a username and password pair.
func (a *accountUseCase) Authenticate(ctx context.Context, username, password string) (*accountDomain.Account, error) {
	account, err := a.repo.GetByUsername(ctx, username)
	if err != nil {
		if apperrors.Is(err, apperrors.ErrNotFound) {
			return nil, authDomain.ErrInvalidCredentials
		}
		return nil, err
	}
	if !a.hasher.Verify(password, account.PasswordSalt, account.PasswordHash) {
		return nil, authDomain.ErrInvalidCredentials
	}
	return account, nil
}

// DeleteAccount removes the account and everything referencing it.
func (a *accountUseCase) DeleteAccount(ctx context.Context, id uuid.UUID) error {
	account, err := a.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}

	deleted, err := a.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return accountDomain.ErrAccountNotFound
	}

	// Cleanup after the document is gone. The three targets are
	// independent, so they run concurrently. Failures here leave stale
	// references, not a resurrectable account, so they are logged and the
	// deletion still reports success.
	var g errgroup.Group
	g.Go(func() error {
		if err := a.repo.RemoveFromRelationships(ctx, account.Username); err != nil {
			return fmt.Errorf("remove relationship back-references for %s: %w", account.Username, err)
		}
		return nil
	})
	g.Go(func() error {
		if _, err := a.tokens.DeleteForAccount(ctx, id); err != nil {
			return fmt.Errorf("delete tokens for account %s: %w", id, err)
		}
		return nil
	})
	g.Go(func() error {
		if _, err := a.sponsored.DeleteForSponsor(ctx, id); err != nil {
			return fmt.Errorf("delete sponsored domains for account %s: %w", id, err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		a.logger.Error("account cleanup incomplete",
			slog.String("account_id", id.String()), slog.Any("error", err))
	}

	a.logger.Info("account deleted",
		slog.String("account_id", id.String()),
		slog.String("username", account.Username))

	return nil
}

// MakeFriends records a symmetric friendship, implying a connection.
func (a *accountUseCase) MakeFriends(ctx context.Context, usernameA, usernameB string) error {
	return a.updatePair(ctx, usernameA, usernameB, func(acct *accountDomain.Account, other string) map[string]any {
		changed := map[string]any{}
		if !acct.HasFriend(other) {
			acct.Friends = append(acct.Friends, other)
			changed["friends"] = acct.Friends
		}
		if !acct.HasConnection(other) {
			acct.Connections = append(acct.Connections, other)
			changed["connections"] = acct.Connections
		}
		return changed
	})
}

// RemoveFriend removes the friendship from both sides.
func (a *accountUseCase) RemoveFriend(ctx context.Context, usernameA, usernameB string) error {
	return a.updatePair(ctx, usernameA, usernameB, func(acct *accountDomain.Account, other string) map[string]any {
		if !acct.HasFriend(other) {
			return nil
		}
		acct.Friends = remove(acct.Friends, other)
		return map[string]any{"friends": acct.Friends}
	})
}

// MakeConnection records a symmetric connection.
func (a *accountUseCase) MakeConnection(ctx context.Context, usernameA, usernameB string) error {
	return a.updatePair(ctx, usernameA, usernameB, func(acct *accountDomain.Account, other string) map[string]any {
		if acct.HasConnection(other) {
			return nil
		}
		acct.Connections = append(acct.Connections, other)
		return map[string]any{"connections": acct.Connections}
	})
}

// RemoveConnection removes the connection and any friendship riding on it.
func (a *accountUseCase) RemoveConnection(ctx context.Context, usernameA, usernameB string) error {
	return a.updatePair(ctx, usernameA, usernameB, func(acct *accountDomain.Account, other string) map[string]any {
		changed := map[string]any{}
		if acct.HasConnection(other) {
			acct.Connections = remove(acct.Connections, other)
			changed["connections"] = acct.Connections
		}
		if acct.HasFriend(other) {
			acct.Friends = remove(acct.Friends, other)
			changed["friends"] = acct.Friends
		}
		return changed
	})
}

// updatePair loads both accounts and applies a mutation to each side,
// persisting whatever changed. Both accounts must exist before either side
// is touched.
func (a *accountUseCase) updatePair(
	ctx context.Context,
	usernameA, usernameB string,
	mutate func(acct *accountDomain.Account, other string) map[string]any,
) error {
	first, err := a.repo.GetByUsername(ctx, usernameA)
	if err != nil {
		return err
	}
	second, err := a.repo.GetByUsername(ctx, usernameB)
	if err != nil {
		return err
	}

	if changed := mutate(first, second.Username); len(changed) > 0 {
		if err := a.repo.UpdateFields(ctx, first.ID, changed); err != nil {
			return err
		}
	}
	if changed := mutate(second, first.Username); len(changed) > 0 {
		if err := a.repo.UpdateFields(ctx, second.ID, changed); err != nil {
			return err
		}
	}
	return nil
}

// Heartbeat records client liveness.
func (a *accountUseCase) Heartbeat(ctx context.Context, id uuid.UUID) error {
	return a.repo.UpdateFields(ctx, id, map[string]any{
		"last_heartbeat_at": time.Now().UTC(),
	})
}

// IsOnline reports whether the last heartbeat is within the window.
func (a *accountUseCase) IsOnline(account *accountDomain.Account) bool {
	if account == nil || account.LastHeartbeatAt.IsZero() {
		return false
	}
	return time.Since(account.LastHeartbeatAt) < a.config.HeartbeatTimeout
}

// DateWhenNotOnline returns the moment the account stopped (or will stop)
// counting as online: the last heartbeat plus the timeout. Zero when the
// account never heartbeated. Shares the IsOnline boundary: the account is
// online strictly before this moment.
func (a *accountUseCase) DateWhenNotOnline(account *accountDomain.Account) time.Time {
	if account == nil || account.LastHeartbeatAt.IsZero() {
		return time.Time{}
	}
	return account.LastHeartbeatAt.Add(a.config.HeartbeatTimeout)
}

// RolesForAccount implements permission.AccountSource.
func (a *accountUseCase) RolesForAccount(ctx context.Context, accountID uuid.UUID) ([]string, error) {
	account, err := a.repo.GetByID(ctx, accountID)
	if err != nil {
		return nil, err
	}
	return account.Roles, nil
}

// AccountInfo returns the caller-visible view of an account. Hidden and
// unknown fields are simply absent.
func (a *accountUseCase) AccountInfo(ctx context.Context, ident permission.Identity, account *accountDomain.Account) map[string]any {
	info := map[string]any{
		"accountId": account.ID.String(),
		"online":    a.IsOnline(account),
	}
	if when := a.DateWhenNotOnline(account); !when.IsZero() && !a.IsOnline(account) {
		info["when_account_went_offline"] = when.Format(time.RFC3339)
	}
	for _, name := range a.evaluator.Table().Names() {
		if value, ok := a.evaluator.Get(ctx, ident, account, name); ok {
			info[name] = value
		}
	}
	return info
}

// UpdateAccountFields applies field writes through the access table and
// persists the successful ones in one store update.
func (a *accountUseCase) UpdateAccountFields(ctx context.Context, ident permission.Identity, account *accountDomain.Account, updates map[string]any) ([]string, error) {
	// Deterministic application order; last write wins on duplicates at
	// the transport layer.
	names := make([]string, 0, len(updates))
	for name := range updates {
		names = append(names, name)
	}
	sort.Strings(names)

	applied := make([]string, 0, len(names))
	for _, name := range names {
		if a.evaluator.Set(ctx, ident, account, name, updates[name]) {
			applied = append(applied, name)
		}
	}
	if len(applied) == 0 {
		return nil, nil
	}

	fields := a.evaluator.BuildUpdate(account, applied...)
	if err := a.repo.UpdateFields(ctx, account.ID, fields); err != nil {
		return nil, apperrors.Wrap(err, "failed to persist account fields")
	}
	return applied, nil
}

func remove(set []string, value string) []string {
	out := set[:0]
	for _, v := range set {
		if v != value {
			out = append(out, v)
		}
	}
	return out
}
