package usecase

import (
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	authDomain "github.com/metagrid/directory/internal/auth/domain"
	"github.com/metagrid/directory/internal/config"
	domainsDomain "github.com/metagrid/directory/internal/domains/domain"
	apperrors "github.com/metagrid/directory/internal/errors"
	"github.com/metagrid/directory/internal/permission"
	"github.com/metagrid/directory/internal/store"
)

// fakeDomainRepository is an in-memory DomainRepository.
type fakeDomainRepository struct {
	domains map[uuid.UUID]*domainsDomain.Domain
	places  map[uuid.UUID]*domainsDomain.Place
}

func newFakeDomainRepository() *fakeDomainRepository {
	return &fakeDomainRepository{
		domains: make(map[uuid.UUID]*domainsDomain.Domain),
		places:  make(map[uuid.UUID]*domainsDomain.Place),
	}
}

func (f *fakeDomainRepository) Create(_ context.Context, d *domainsDomain.Domain) error {
	f.domains[d.ID] = d
	return nil
}

func (f *fakeDomainRepository) GetByID(_ context.Context, id uuid.UUID) (*domainsDomain.Domain, error) {
	if d, ok := f.domains[id]; ok {
		return d, nil
	}
	return nil, domainsDomain.ErrDomainNotFound
}

func (f *fakeDomainRepository) GetByAPIKey(_ context.Context, apiKey string) (*domainsDomain.Domain, error) {
	for _, d := range f.domains {
		if d.APIKey == apiKey {
			return d, nil
		}
	}
	return nil, domainsDomain.ErrDomainNotFound
}

func (f *fakeDomainRepository) List(_ context.Context, _ store.Pagination) ([]*domainsDomain.Domain, error) {
	out := make([]*domainsDomain.Domain, 0, len(f.domains))
	for _, d := range f.domains {
		out = append(out, d)
	}
	return out, nil
}

func (f *fakeDomainRepository) ListForSponsor(_ context.Context, accountID uuid.UUID) ([]*domainsDomain.Domain, error) {
	var out []*domainsDomain.Domain
	for _, d := range f.domains {
		if d.SponsorAccountID == accountID {
			out = append(out, d)
		}
	}
	return out, nil
}

func (f *fakeDomainRepository) UpdateFields(_ context.Context, id uuid.UUID, fields map[string]any) error {
	d, ok := f.domains[id]
	if !ok {
		return domainsDomain.ErrDomainNotFound
	}
	for name, value := range fields {
		switch name {
		case "sponsor_account_id":
			d.SponsorAccountID = value.(uuid.UUID)
		case "api_key":
			d.APIKey = value.(string)
		case "num_users":
			d.NumUsers = value.(int64)
		case "anon_users":
			d.AnonUsers = value.(int64)
		case "total_users":
			d.TotalUsers = value.(int64)
		case "last_sender_key":
			d.LastSenderKey = value.(string)
		case "last_heartbeat_at":
			d.LastHeartbeatAt = value.(time.Time)
		}
	}
	return nil
}

func (f *fakeDomainRepository) Delete(_ context.Context, id uuid.UUID) (bool, error) {
	if _, ok := f.domains[id]; !ok {
		return false, nil
	}
	delete(f.domains, id)
	return true, nil
}

func (f *fakeDomainRepository) CreatePlace(_ context.Context, p *domainsDomain.Place) error {
	f.places[p.ID] = p
	return nil
}

func (f *fakeDomainRepository) GetPlaceByID(_ context.Context, id uuid.UUID) (*domainsDomain.Place, error) {
	if p, ok := f.places[id]; ok {
		return p, nil
	}
	return nil, domainsDomain.ErrPlaceNotFound
}

func (f *fakeDomainRepository) GetPlaceByName(_ context.Context, name string) (*domainsDomain.Place, error) {
	for _, p := range f.places {
		if strings.EqualFold(p.Name, name) {
			return p, nil
		}
	}
	return nil, domainsDomain.ErrPlaceNotFound
}

func (f *fakeDomainRepository) ListPlaces(_ context.Context, _ store.Pagination) ([]*domainsDomain.Place, error) {
	out := make([]*domainsDomain.Place, 0, len(f.places))
	for _, p := range f.places {
		out = append(out, p)
	}
	return out, nil
}

func (f *fakeDomainRepository) ListPlacesForDomain(_ context.Context, domainID uuid.UUID) ([]*domainsDomain.Place, error) {
	var out []*domainsDomain.Place
	for _, p := range f.places {
		if p.DomainID == domainID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeDomainRepository) DeletePlace(_ context.Context, id uuid.UUID) (bool, error) {
	if _, ok := f.places[id]; !ok {
		return false, nil
	}
	delete(f.places, id)
	return true, nil
}

func (f *fakeDomainRepository) DeletePlacesForDomain(_ context.Context, domainID uuid.UUID) (int64, error) {
	var count int64
	for id, p := range f.places {
		if p.DomainID == domainID {
			delete(f.places, id)
			count++
		}
	}
	return count, nil
}

// staticRoles serves fixed roles per account id.
type staticRoles map[uuid.UUID][]string

func (s staticRoles) RolesForAccount(_ context.Context, accountID uuid.UUID) ([]string, error) {
	if roles, ok := s[accountID]; ok {
		return roles, nil
	}
	return nil, apperrors.ErrNotFound
}

type validTokens struct{}

func (validTokens) IsValid(token *authDomain.Token) bool       { return token != nil }
func (validTokens) IsSpecialAdminToken(*authDomain.Token) bool { return false }

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(strings.TrimSpace(string(p)))
	return len(p), nil
}

func tokenFor(accountID uuid.UUID, scopes ...authDomain.Scope) *authDomain.Token {
	return &authDomain.Token{
		ID:        uuid.New(),
		Token:     uuid.NewString(),
		AccountID: accountID,
		Scope:     scopes,
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
}

func newTestUseCase(t *testing.T, roles staticRoles) (*domainUseCase, *fakeDomainRepository) {
	t.Helper()
	repo := newFakeDomainRepository()
	cfg := &config.Config{HeartbeatTimeout: 300 * time.Second}
	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	uc := NewDomainUseCase(cfg, repo, logger).(*domainUseCase)
	resolver := permission.NewResolver(validTokens{}, roles, uc, logger)
	uc.SetEvaluator(permission.NewEvaluator(domainsDomain.NewDomainFields(), resolver))
	return uc, repo
}

func TestCreateDomain(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestUseCase(t, staticRoles{})

	t.Run("creates an unsponsored domain with an api key", func(t *testing.T) {
		domain, err := uc.CreateDomain(ctx, "sandbox")
		require.NoError(t, err)
		assert.False(t, domain.Sponsored())
		assert.NotEmpty(t, domain.APIKey)
		assert.Equal(t, domainsDomain.MaturityUnrated, domain.Maturity)
	})

	t.Run("rejects an empty name", func(t *testing.T) {
		_, err := uc.CreateDomain(ctx, "")
		assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
	})
}

func TestSponsorBinding(t *testing.T) {
	ctx := context.Background()
	sponsor := uuid.New()
	uc, _ := newTestUseCase(t, staticRoles{sponsor: {authDomain.RoleUser}})

	domain, err := uc.CreateDomain(ctx, "sandbox")
	require.NoError(t, err)

	t.Run("first authenticated access binds the sponsor", func(t *testing.T) {
		ident := permission.Identity{Token: tokenFor(sponsor, authDomain.ScopeOwner)}
		info := uc.DomainInfo(ctx, ident, domain)
		assert.True(t, domain.Sponsored())
		assert.Equal(t, sponsor, domain.SponsorAccountID)
		assert.Equal(t, sponsor.String(), info["sponsor_account_id"])
	})

	t.Run("a later caller does not displace the sponsor", func(t *testing.T) {
		other := uuid.New()
		ident := permission.Identity{Token: tokenFor(other, authDomain.ScopeOwner)}
		uc.DomainInfo(ctx, ident, domain)
		assert.Equal(t, sponsor, domain.SponsorAccountID)
	})
}

func TestUpdateDomainFields(t *testing.T) {
	ctx := context.Background()
	sponsor := uuid.New()
	uc, _ := newTestUseCase(t, staticRoles{sponsor: {authDomain.RoleUser}})

	t.Run("api key update refreshes heartbeat, sender key and totals", func(t *testing.T) {
		domain, err := uc.CreateDomain(ctx, "sandbox")
		require.NoError(t, err)

		ident := permission.Identity{APIKey: domain.APIKey, SenderKey: "203.0.113.9:40102"}
		applied, err := uc.UpdateDomainFields(ctx, ident, domain, map[string]any{
			"num_users":  float64(12),
			"anon_users": float64(3),
			"version":    "5.2.1",
		})
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"num_users", "anon_users", "version"}, applied)
		assert.Equal(t, int64(15), domain.TotalUsers)
		assert.Equal(t, "203.0.113.9:40102", domain.LastSenderKey)
		assert.True(t, uc.IsOnline(domain))
	})

	t.Run("anonymous caller updates nothing", func(t *testing.T) {
		domain, err := uc.CreateDomain(ctx, "other")
		require.NoError(t, err)

		applied, err := uc.UpdateDomainFields(ctx, permission.Identity{}, domain, map[string]any{
			"num_users": float64(99),
		})
		require.NoError(t, err)
		assert.Empty(t, applied)
		assert.False(t, uc.IsOnline(domain))
	})

	t.Run("api key holder cannot set sponsor-only fields", func(t *testing.T) {
		domain, err := uc.CreateDomain(ctx, "third")
		require.NoError(t, err)

		ident := permission.Identity{APIKey: domain.APIKey}
		applied, err := uc.UpdateDomainFields(ctx, ident, domain, map[string]any{
			"restriction": "acl",
		})
		require.NoError(t, err)
		assert.Empty(t, applied)
	})
}

func TestDomainInfoHidesAPIKey(t *testing.T) {
	ctx := context.Background()
	sponsor := uuid.New()
	uc, _ := newTestUseCase(t, staticRoles{sponsor: {authDomain.RoleUser}})

	domain, err := uc.CreateDomain(ctx, "sandbox")
	require.NoError(t, err)
	domain.SetSponsor(sponsor)

	t.Run("anonymous caller does not see the api key", func(t *testing.T) {
		info := uc.DomainInfo(ctx, permission.Identity{}, domain)
		_, visible := info["api_key"]
		assert.False(t, visible)
		assert.Equal(t, domain.ID.String(), info["domainId"])
	})

	t.Run("sponsor sees the api key", func(t *testing.T) {
		ident := permission.Identity{Token: tokenFor(sponsor, authDomain.ScopeOwner)}
		info := uc.DomainInfo(ctx, ident, domain)
		assert.Equal(t, domain.APIKey, info["api_key"])
	})
}

func TestDeleteForSponsor(t *testing.T) {
	ctx := context.Background()
	sponsor := uuid.New()
	uc, repo := newTestUseCase(t, staticRoles{sponsor: {authDomain.RoleUser}})

	first, err := uc.CreateDomain(ctx, "first")
	require.NoError(t, err)
	first.SetSponsor(sponsor)
	second, err := uc.CreateDomain(ctx, "second")
	require.NoError(t, err)
	second.SetSponsor(sponsor)
	unrelated, err := uc.CreateDomain(ctx, "unrelated")
	require.NoError(t, err)

	_, err = uc.CreatePlace(ctx, first.ID, "lobby", "", "/0,0,0")
	require.NoError(t, err)

	count, err := uc.DeleteForSponsor(ctx, sponsor)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)

	_, err = uc.GetByID(ctx, first.ID)
	assert.ErrorIs(t, err, domainsDomain.ErrDomainNotFound)
	assert.Empty(t, repo.places)

	_, err = uc.GetByID(ctx, unrelated.ID)
	assert.NoError(t, err)
}

func TestPlaces(t *testing.T) {
	ctx := context.Background()
	uc, _ := newTestUseCase(t, staticRoles{})
	domain, err := uc.CreateDomain(ctx, "sandbox")
	require.NoError(t, err)

	t.Run("place names are unique case-insensitively", func(t *testing.T) {
		_, err := uc.CreatePlace(ctx, domain.ID, "Lobby", "", "/0,0,0")
		require.NoError(t, err)
		_, err = uc.CreatePlace(ctx, domain.ID, "lobby", "", "/1,1,1")
		assert.ErrorIs(t, err, domainsDomain.ErrPlaceNameTaken)
	})

	t.Run("place requires an existing domain", func(t *testing.T) {
		_, err := uc.CreatePlace(ctx, uuid.New(), "elsewhere", "", "")
		assert.ErrorIs(t, err, domainsDomain.ErrDomainNotFound)
	})

	t.Run("resolves by name or id", func(t *testing.T) {
		place, err := uc.GetPlaceByRef(ctx, "Lobby")
		require.NoError(t, err)
		again, err := uc.GetPlaceByRef(ctx, place.ID.String())
		require.NoError(t, err)
		assert.Equal(t, place.ID, again.ID)
	})
}
