package permission

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	authDomain "github.com/metagrid/directory/internal/auth/domain"
)

// Identity is everything a request carries that can authenticate its sender:
// a resolved bearer token (nil when absent or unknown), an optional domain
// API key from the request body, and the sender's address:port key.
type Identity struct {
	Token     *authDomain.Token
	APIKey    string
	SenderKey string
}

// Target is an entity that access is checked against.
type Target interface {
	// OwnedBy reports whether the given account owns the entity.
	OwnedBy(accountID uuid.UUID) bool
}

// APIKeyed is implemented by targets that can authenticate a caller by
// API key instead of a personal token.
type APIKeyed interface {
	MatchesAPIKey(key string) bool
}

// Sponsorable is implemented by targets whose owner is bound lazily on the
// first successful authenticated access.
type Sponsorable interface {
	EntityID() uuid.UUID
	Sponsored() bool
	SetSponsor(accountID uuid.UUID)
}

// TokenChecker validates tokens during resolution.
type TokenChecker interface {
	IsValid(token *authDomain.Token) bool
	IsSpecialAdminToken(token *authDomain.Token) bool
}

// AccountSource looks up the role tags for a caller's account.
type AccountSource interface {
	RolesForAccount(ctx context.Context, accountID uuid.UUID) ([]string, error)
}

// SponsorBinder persists a lazy sponsor binding.
type SponsorBinder interface {
	BindSponsor(ctx context.Context, domainID, accountID uuid.UUID) error
}

// Resolver classifies a caller against a target entity into a capability set.
type Resolver struct {
	tokens   TokenChecker
	accounts AccountSource
	binder   SponsorBinder
	logger   *slog.Logger
}

// NewResolver creates a resolver. binder may be nil when sponsor binding is
// not wired (tests, tooling).
func NewResolver(tokens TokenChecker, accounts AccountSource, binder SponsorBinder, logger *slog.Logger) *Resolver {
	return &Resolver{
		tokens:   tokens,
		accounts: accounts,
		binder:   binder,
		logger:   logger,
	}
}

// Resolve returns the capabilities the identity holds against the target.
//
// An unresolvable token (nil, expired, unknown account) yields a set with
// only CapabilityAll; all privileged checks then fail closed. Resolution
// never returns an error.
//
// One documented side effect: the first successful authenticated access to
// an unsponsored Sponsorable target binds the caller as its sponsor.
func (r *Resolver) Resolve(ctx context.Context, ident Identity, target Target) CapabilitySet {
	caps := NewCapabilitySet(CapabilityAll)

	// A matching API key authenticates the domain server itself,
	// independent of any personal token.
	if keyed, ok := target.(APIKeyed); ok && ident.APIKey != "" && keyed.MatchesAPIKey(ident.APIKey) {
		caps.Add(CapabilityDomain)
	}

	token := ident.Token
	if token == nil || !r.tokens.IsValid(token) {
		return caps
	}

	// The special admin token authorizes trusted internal calls. It points
	// at a synthetic account, so it never resolves further.
	if r.tokens.IsSpecialAdminToken(token) {
		caps.Add(CapabilityAdmin)
		return caps
	}

	// A valid token whose account no longer resolves grants nothing: a
	// dead account cannot own anything.
	roles, err := r.accounts.RolesForAccount(ctx, token.AccountID)
	if err != nil {
		return caps
	}

	for _, role := range roles {
		if role == authDomain.RoleAdmin {
			caps.Add(CapabilityAdmin)
			break
		}
	}

	// Lazy sponsor binding: an authenticated account touching an
	// unsponsored domain becomes its sponsor.
	if sponsorable, ok := target.(Sponsorable); ok && !sponsorable.Sponsored() && r.binder != nil {
		if bindErr := r.binder.BindSponsor(ctx, sponsorable.EntityID(), token.AccountID); bindErr != nil {
			r.logger.Warn("sponsor binding failed",
				slog.String("domain_id", sponsorable.EntityID().String()),
				slog.Any("error", bindErr))
		} else {
			sponsorable.SetSponsor(token.AccountID)
		}
	}

	if target.OwnedBy(token.AccountID) {
		caps.Add(CapabilityOwner)
	}

	return caps
}
