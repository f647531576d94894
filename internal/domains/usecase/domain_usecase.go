package usecase

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/metagrid/directory/internal/config"
	domainsDomain "github.com/metagrid/directory/internal/domains/domain"
	apperrors "github.com/metagrid/directory/internal/errors"
	"github.com/metagrid/directory/internal/permission"
	"github.com/metagrid/directory/internal/store"
	"github.com/metagrid/directory/internal/validation"
)

// domainUseCase implements DomainUseCase.
type domainUseCase struct {
	config    *config.Config
	repo      DomainRepository
	evaluator *permission.Evaluator[*domainsDomain.Domain]
	logger    *slog.Logger
}

// NewDomainUseCase creates a DomainUseCase. The field evaluator is attached
// afterwards with SetEvaluator, once the capability resolver exists.
func NewDomainUseCase(cfg *config.Config, repo DomainRepository, logger *slog.Logger) DomainUseCase {
	return &domainUseCase{
		config: cfg,
		repo:   repo,
		logger: logger,
	}
}

// SetEvaluator attaches the field evaluator once the resolver is wired.
func (d *domainUseCase) SetEvaluator(ev *permission.Evaluator[*domainsDomain.Domain]) {
	d.evaluator = ev
}

// CreateDomain registers a new unsponsored domain.
func (d *domainUseCase) CreateDomain(ctx context.Context, name string) (*domainsDomain.Domain, error) {
	if err := validation.DomainName(name); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
	}

	domain := &domainsDomain.Domain{
		ID:        uuid.New(),
		Name:      name,
		APIKey:    uuid.NewString(),
		Maturity:  domainsDomain.MaturityUnrated,
		Tags:      []string{},
		Hosts:     []string{},
		CreatedAt: time.Now().UTC(),
	}

	if err := d.repo.Create(ctx, domain); err != nil {
		return nil, apperrors.Wrap(err, "failed to create domain")
	}

	d.logger.Info("domain created",
		slog.String("domain_id", domain.ID.String()),
		slog.String("name", domain.Name))

	return domain, nil
}

// GetByID retrieves a domain by id.
func (d *domainUseCase) GetByID(ctx context.Context, id uuid.UUID) (*domainsDomain.Domain, error) {
	return d.repo.GetByID(ctx, id)
}

// GetByAPIKey retrieves a domain by its API key.
func (d *domainUseCase) GetByAPIKey(ctx context.Context, apiKey string) (*domainsDomain.Domain, error) {
	return d.repo.GetByAPIKey(ctx, apiKey)
}

// List returns domains ordered by name.
func (d *domainUseCase) List(ctx context.Context, pager store.Pagination) ([]*domainsDomain.Domain, error) {
	return d.repo.List(ctx, pager)
}

// ListForSponsor returns the domains sponsored by an account.
func (d *domainUseCase) ListForSponsor(ctx context.Context, accountID uuid.UUID) ([]*domainsDomain.Domain, error) {
	return d.repo.ListForSponsor(ctx, accountID)
}

// BindSponsor persists the lazy sponsor binding.
func (d *domainUseCase) BindSponsor(ctx context.Context, domainID, accountID uuid.UUID) error {
	if err := d.repo.UpdateFields(ctx, domainID, map[string]any{
		"sponsor_account_id": accountID,
	}); err != nil {
		return apperrors.Wrap(err, "failed to bind sponsor")
	}

	d.logger.Info("domain sponsor bound",
		slog.String("domain_id", domainID.String()),
		slog.String("account_id", accountID.String()))

	return nil
}

// RegenerateAPIKey replaces the domain's API key.
func (d *domainUseCase) RegenerateAPIKey(ctx context.Context, id uuid.UUID) (string, error) {
	key := uuid.NewString()
	if err := d.repo.UpdateFields(ctx, id, map[string]any{"api_key": key}); err != nil {
		return "", apperrors.Wrap(err, "failed to regenerate api key")
	}
	return key, nil
}

// DeleteDomain removes the domain and its places.
func (d *domainUseCase) DeleteDomain(ctx context.Context, id uuid.UUID) error {
	deleted, err := d.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return domainsDomain.ErrDomainNotFound
	}

	if _, err := d.repo.DeletePlacesForDomain(ctx, id); err != nil {
		d.logger.Error("failed to delete domain places",
			slog.String("domain_id", id.String()), slog.Any("error", err))
	}

	d.logger.Info("domain deleted", slog.String("domain_id", id.String()))
	return nil
}

// DeleteForSponsor removes every domain sponsored by the account.
func (d *domainUseCase) DeleteForSponsor(ctx context.Context, accountID uuid.UUID) (int64, error) {
	domains, err := d.repo.ListForSponsor(ctx, accountID)
	if err != nil {
		return 0, err
	}

	var count int64
	for _, domain := range domains {
		if err := d.DeleteDomain(ctx, domain.ID); err != nil {
			d.logger.Error("failed to delete sponsored domain",
				slog.String("domain_id", domain.ID.String()), slog.Any("error", err))
			continue
		}
		count++
	}
	return count, nil
}

// IsOnline reports whether the last heartbeat is within the window.
func (d *domainUseCase) IsOnline(domain *domainsDomain.Domain) bool {
	if domain == nil || domain.LastHeartbeatAt.IsZero() {
		return false
	}
	return time.Since(domain.LastHeartbeatAt) < d.config.HeartbeatTimeout
}

// DomainInfo returns the caller-visible view of a domain.
func (d *domainUseCase) DomainInfo(ctx context.Context, ident permission.Identity, domain *domainsDomain.Domain) map[string]any {
	info := map[string]any{
		"domainId": domain.ID.String(),
		"online":   d.IsOnline(domain),
	}
	for _, name := range d.evaluator.Table().Names() {
		if value, ok := d.evaluator.Get(ctx, ident, domain, name); ok {
			info[name] = value
		}
	}
	return info
}

// UpdateDomainFields applies field writes through the access table. A
// successful update doubles as a heartbeat: the timestamp and the sender key
// refresh alongside the fields.
func (d *domainUseCase) UpdateDomainFields(ctx context.Context, ident permission.Identity, domain *domainsDomain.Domain, updates map[string]any) ([]string, error) {
	names := make([]string, 0, len(updates))
	for name := range updates {
		names = append(names, name)
	}
	sort.Strings(names)

	applied := make([]string, 0, len(names))
	for _, name := range names {
		if d.evaluator.Set(ctx, ident, domain, name, updates[name]) {
			applied = append(applied, name)
		}
	}
	if len(applied) == 0 {
		return nil, nil
	}

	fields := d.evaluator.BuildUpdate(domain, applied...)

	now := time.Now().UTC()
	domain.LastHeartbeatAt = now
	fields["last_heartbeat_at"] = now
	if ident.SenderKey != "" {
		domain.LastSenderKey = ident.SenderKey
		fields["last_sender_key"] = ident.SenderKey
	}

	if err := d.repo.UpdateFields(ctx, domain.ID, fields); err != nil {
		return nil, apperrors.Wrap(err, "failed to persist domain fields")
	}
	return applied, nil
}

// CreatePlace registers a place under a domain. The domain must exist and
// the name must be globally unique.
func (d *domainUseCase) CreatePlace(ctx context.Context, domainID uuid.UUID, name, description, path string) (*domainsDomain.Place, error) {
	if err := validation.DomainName(name); err != nil {
		return nil, apperrors.Wrap(apperrors.ErrInvalidInput, err.Error())
	}
	if _, err := d.repo.GetByID(ctx, domainID); err != nil {
		return nil, err
	}
	if _, err := d.repo.GetPlaceByName(ctx, name); err == nil {
		return nil, domainsDomain.ErrPlaceNameTaken
	} else if !apperrors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	place := &domainsDomain.Place{
		ID:          uuid.New(),
		DomainID:    domainID,
		Name:        name,
		Description: description,
		Path:        path,
		CreatedAt:   time.Now().UTC(),
	}

	if err := d.repo.CreatePlace(ctx, place); err != nil {
		if apperrors.Is(err, apperrors.ErrConflict) {
			return nil, domainsDomain.ErrPlaceNameTaken
		}
		return nil, apperrors.Wrap(err, "failed to create place")
	}
	return place, nil
}

// GetPlaceByRef resolves a place reference that may be an id or a name.
func (d *domainUseCase) GetPlaceByRef(ctx context.Context, ref string) (*domainsDomain.Place, error) {
	if id, err := uuid.Parse(ref); err == nil {
		return d.repo.GetPlaceByID(ctx, id)
	}
	return d.repo.GetPlaceByName(ctx, ref)
}

// ListPlaces returns places ordered by name.
func (d *domainUseCase) ListPlaces(ctx context.Context, pager store.Pagination) ([]*domainsDomain.Place, error) {
	return d.repo.ListPlaces(ctx, pager)
}

// ListPlacesForDomain returns the places under a domain.
func (d *domainUseCase) ListPlacesForDomain(ctx context.Context, domainID uuid.UUID) ([]*domainsDomain.Place, error) {
	return d.repo.ListPlacesForDomain(ctx, domainID)
}

// DeletePlace removes a place by id.
func (d *domainUseCase) DeletePlace(ctx context.Context, id uuid.UUID) error {
	deleted, err := d.repo.DeletePlace(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return domainsDomain.ErrPlaceNotFound
	}
	return nil
}
