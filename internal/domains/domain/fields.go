package domain

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/metagrid/directory/internal/permission"
)

// NewDomainFields builds the field access table for domains. Operational
// fields are writable by the domain server itself (API key or domain-scoped
// token) as well as the sponsor; policy fields belong to the sponsor alone.
func NewDomainFields() *permission.Table[*Domain] {
	readAll := []permission.Capability{permission.CapabilityAll}
	serverWrite := []permission.Capability{permission.CapabilityDomain, permission.CapabilityOwner, permission.CapabilityAdmin}
	sponsorWrite := []permission.Capability{permission.CapabilityOwner, permission.CapabilityAdmin}

	return permission.NewTable(
		permission.Field[*Domain]{
			Name:      "name",
			Attribute: "name",
			ReadCaps:  readAll,
			WriteCaps: serverWrite,
			Validate: func(value any, _ *Domain) bool {
				s, ok := asString(value)
				return ok && s != ""
			},
			Getter: func(d *Domain) any { return d.Name },
			Setter: func(_ context.Context, d *Domain, value any) error {
				d.Name, _ = asString(value)
				return nil
			},
			Raw: func(d *Domain) any { return d.Name },
		},
		permission.Field[*Domain]{
			Name:      "version",
			Attribute: "version",
			ReadCaps:  readAll,
			WriteCaps: serverWrite,
			Validate:  stringValue,
			Getter:    func(d *Domain) any { return d.Version },
			Setter: func(_ context.Context, d *Domain, value any) error {
				d.Version, _ = asString(value)
				return nil
			},
			Raw: func(d *Domain) any { return d.Version },
		},
		permission.Field[*Domain]{
			Name:      "protocol",
			Attribute: "protocol",
			ReadCaps:  readAll,
			WriteCaps: serverWrite,
			Validate:  stringValue,
			Getter:    func(d *Domain) any { return d.Protocol },
			Setter: func(_ context.Context, d *Domain, value any) error {
				d.Protocol, _ = asString(value)
				return nil
			},
			Raw: func(d *Domain) any { return d.Protocol },
		},
		permission.Field[*Domain]{
			Name:      "network_address",
			Attribute: "network_address",
			ReadCaps:  readAll,
			WriteCaps: serverWrite,
			Validate:  stringValue,
			Getter:    func(d *Domain) any { return d.NetworkAddress },
			Setter: func(_ context.Context, d *Domain, value any) error {
				d.NetworkAddress, _ = asString(value)
				return nil
			},
			Raw: func(d *Domain) any { return d.NetworkAddress },
		},
		permission.Field[*Domain]{
			Name:      "network_port",
			Attribute: "network_port",
			ReadCaps:  readAll,
			WriteCaps: serverWrite,
			Validate:  stringValue,
			Getter:    func(d *Domain) any { return d.NetworkPort },
			Setter: func(_ context.Context, d *Domain, value any) error {
				d.NetworkPort, _ = asString(value)
				return nil
			},
			Raw: func(d *Domain) any { return d.NetworkPort },
		},
		permission.Field[*Domain]{
			Name:      "capacity",
			Attribute: "capacity",
			ReadCaps:  readAll,
			WriteCaps: serverWrite,
			Validate: func(value any, _ *Domain) bool {
				n, ok := asInt64(value)
				return ok && n >= 0
			},
			Getter: func(d *Domain) any { return d.Capacity },
			Setter: func(_ context.Context, d *Domain, value any) error {
				d.Capacity, _ = asInt64(value)
				return nil
			},
			Raw: func(d *Domain) any { return d.Capacity },
		},
		permission.Field[*Domain]{
			Name:      "description",
			Attribute: "description",
			ReadCaps:  readAll,
			WriteCaps: serverWrite,
			Validate:  stringValue,
			Getter:    func(d *Domain) any { return d.Description },
			Setter: func(_ context.Context, d *Domain, value any) error {
				d.Description, _ = asString(value)
				return nil
			},
			Raw: func(d *Domain) any { return d.Description },
		},
		permission.Field[*Domain]{
			Name:      "maturity",
			Attribute: "maturity",
			ReadCaps:  readAll,
			WriteCaps: serverWrite,
			Validate: func(value any, _ *Domain) bool {
				s, ok := asString(value)
				return ok && KnownMaturity(s)
			},
			Getter: func(d *Domain) any { return d.Maturity },
			Setter: func(_ context.Context, d *Domain, value any) error {
				d.Maturity, _ = asString(value)
				return nil
			},
			Raw: func(d *Domain) any { return d.Maturity },
		},
		permission.Field[*Domain]{
			Name:      "restriction",
			Attribute: "restriction",
			ReadCaps:  readAll,
			WriteCaps: sponsorWrite,
			Validate:  stringValue,
			Getter:    func(d *Domain) any { return d.Restriction },
			Setter: func(_ context.Context, d *Domain, value any) error {
				d.Restriction, _ = asString(value)
				return nil
			},
			Raw: func(d *Domain) any { return d.Restriction },
		},
		permission.Field[*Domain]{
			Name:      "tags",
			Attribute: "tags",
			ReadCaps:  readAll,
			WriteCaps: sponsorWrite,
			Validate:  stringSliceValue,
			Getter:    func(d *Domain) any { return d.Tags },
			Setter: func(_ context.Context, d *Domain, value any) error {
				d.Tags, _ = asStringSlice(value)
				return nil
			},
			Raw: func(d *Domain) any { return d.Tags },
		},
		permission.Field[*Domain]{
			Name:      "hosts",
			Attribute: "hosts",
			ReadCaps:  readAll,
			WriteCaps: sponsorWrite,
			Validate:  stringSliceValue,
			Getter:    func(d *Domain) any { return d.Hosts },
			Setter: func(_ context.Context, d *Domain, value any) error {
				d.Hosts, _ = asStringSlice(value)
				return nil
			},
			Raw: func(d *Domain) any { return d.Hosts },
		},
		// User counts fan out into the derived total on every write.
		permission.Field[*Domain]{
			Name:      "num_users",
			Attribute: "num_users",
			ReadCaps:  readAll,
			WriteCaps: serverWrite,
			Validate:  countValue,
			Getter:    func(d *Domain) any { return d.NumUsers },
			Setter: func(_ context.Context, d *Domain, value any) error {
				d.NumUsers, _ = asInt64(value)
				d.TotalUsers = d.NumUsers + d.AnonUsers
				return nil
			},
			Updater: func(d *Domain) map[string]any {
				return map[string]any{
					"num_users":   d.NumUsers,
					"total_users": d.TotalUsers,
				}
			},
		},
		permission.Field[*Domain]{
			Name:      "anon_users",
			Attribute: "anon_users",
			ReadCaps:  readAll,
			WriteCaps: serverWrite,
			Validate:  countValue,
			Getter:    func(d *Domain) any { return d.AnonUsers },
			Setter: func(_ context.Context, d *Domain, value any) error {
				d.AnonUsers, _ = asInt64(value)
				d.TotalUsers = d.NumUsers + d.AnonUsers
				return nil
			},
			Updater: func(d *Domain) map[string]any {
				return map[string]any{
					"anon_users":  d.AnonUsers,
					"total_users": d.TotalUsers,
				}
			},
		},
		permission.Field[*Domain]{
			Name:      "total_users",
			Attribute: "total_users",
			ReadCaps:  readAll,
			Getter:    func(d *Domain) any { return d.TotalUsers },
			Raw:       func(d *Domain) any { return d.TotalUsers },
		},
		// api_key is visible to the sponsor only and never written through
		// the table; regeneration is a dedicated operation.
		permission.Field[*Domain]{
			Name:      "api_key",
			Attribute: "api_key",
			ReadCaps:  sponsorWrite,
			Getter:    func(d *Domain) any { return d.APIKey },
			Raw:       func(d *Domain) any { return d.APIKey },
		},
		permission.Field[*Domain]{
			Name:      "sponsor_account_id",
			Attribute: "sponsor_account_id",
			ReadCaps:  readAll,
			WriteCaps: []permission.Capability{permission.CapabilityAdmin},
			Validate: func(value any, _ *Domain) bool {
				s, ok := asString(value)
				if !ok {
					return false
				}
				_, err := uuid.Parse(s)
				return err == nil
			},
			Getter: func(d *Domain) any {
				if !d.Sponsored() {
					return ""
				}
				return d.SponsorAccountID.String()
			},
			Setter: func(_ context.Context, d *Domain, value any) error {
				s, _ := asString(value)
				id, err := uuid.Parse(s)
				if err != nil {
					return err
				}
				d.SponsorAccountID = id
				return nil
			},
			Raw: func(d *Domain) any { return d.SponsorAccountID },
		},
		permission.Field[*Domain]{
			Name:      "when_created",
			Attribute: "created_at",
			ReadCaps:  readAll,
			Getter:    func(d *Domain) any { return d.CreatedAt.Format(time.RFC3339) },
			Raw:       func(d *Domain) any { return d.CreatedAt },
		},
	)
}

func stringValue(value any, _ *Domain) bool {
	_, ok := asString(value)
	return ok
}

func stringSliceValue(value any, _ *Domain) bool {
	_, ok := asStringSlice(value)
	return ok
}

func countValue(value any, _ *Domain) bool {
	n, ok := asInt64(value)
	return ok && n >= 0
}

func asString(value any) (string, bool) {
	s, ok := value.(string)
	return s, ok
}

func asStringSlice(value any) ([]string, bool) {
	switch v := value.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, false
			}
			out = append(out, s)
		}
		return out, true
	default:
		return nil, false
	}
}

// asInt64 accepts the integer shapes JSON decoding and native callers
// produce.
func asInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		if v != float64(int64(v)) {
			return 0, false
		}
		return int64(v), true
	default:
		return 0, false
	}
}
