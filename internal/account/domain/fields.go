package domain

import (
	"context"
	"strings"
	"time"

	authDomain "github.com/metagrid/directory/internal/auth/domain"
	"github.com/metagrid/directory/internal/permission"
	"github.com/metagrid/directory/internal/validation"
)

// PasswordHasher derives and verifies password hashes. The hash and salt
// persist as separate document fields.
type PasswordHasher interface {
	// Hash derives a hash for the password with a fresh salt.
	Hash(password string) (hash, salt string)
	// Verify reports whether the password matches the stored hash and salt.
	Verify(password, salt, hash string) bool
}

// NewAccountFields builds the field access table for accounts. The table is
// constructed once at startup and shared.
func NewAccountFields(hasher PasswordHasher) *permission.Table[*Account] {
	ownerWrite := []permission.Capability{permission.CapabilityOwner, permission.CapabilityAdmin}
	readAll := []permission.Capability{permission.CapabilityAll}

	return permission.NewTable(
		permission.Field[*Account]{
			Name:      "username",
			Attribute: "username",
			ReadCaps:  readAll,
			WriteCaps: ownerWrite,
			Validate: func(value any, _ *Account) bool {
				s, ok := asString(value)
				return ok && validation.Username(s) == nil
			},
			Getter: func(a *Account) any { return a.Username },
			Setter: func(_ context.Context, a *Account, value any) error {
				a.Username, _ = asString(value)
				return nil
			},
			Raw: func(a *Account) any { return a.Username },
		},
		permission.Field[*Account]{
			Name:      "email",
			Attribute: "email",
			ReadCaps:  readAll,
			WriteCaps: ownerWrite,
			Validate: func(value any, _ *Account) bool {
				s, ok := asString(value)
				return ok && validation.Email(s) == nil
			},
			Getter: func(a *Account) any { return a.Email },
			Setter: func(_ context.Context, a *Account, value any) error {
				a.Email, _ = asString(value)
				return nil
			},
			Raw: func(a *Account) any { return a.Email },
		},
		permission.Field[*Account]{
			Name:      "account_settings",
			Attribute: "account_settings",
			ReadCaps:  readAll,
			WriteCaps: ownerWrite,
			Validate:  stringValue,
			Getter:    func(a *Account) any { return a.AccountSettings },
			Setter: func(_ context.Context, a *Account, value any) error {
				a.AccountSettings, _ = asString(value)
				return nil
			},
			Raw: func(a *Account) any { return a.AccountSettings },
		},
		permission.Field[*Account]{
			Name:      "images_hero",
			Attribute: "images.hero",
			ReadCaps:  readAll,
			WriteCaps: ownerWrite,
			Validate:  stringValue,
			Getter:    func(a *Account) any { return a.Images.Hero },
			Setter: func(_ context.Context, a *Account, value any) error {
				a.Images.Hero, _ = asString(value)
				return nil
			},
			Raw: func(a *Account) any { return a.Images.Hero },
		},
		permission.Field[*Account]{
			Name:      "images_thumbnail",
			Attribute: "images.thumbnail",
			ReadCaps:  readAll,
			WriteCaps: ownerWrite,
			Validate:  stringValue,
			Getter:    func(a *Account) any { return a.Images.Thumbnail },
			Setter: func(_ context.Context, a *Account, value any) error {
				a.Images.Thumbnail, _ = asString(value)
				return nil
			},
			Raw: func(a *Account) any { return a.Images.Thumbnail },
		},
		permission.Field[*Account]{
			Name:      "images_tiny",
			Attribute: "images.tiny",
			ReadCaps:  readAll,
			WriteCaps: ownerWrite,
			Validate:  stringValue,
			Getter:    func(a *Account) any { return a.Images.Tiny },
			Setter: func(_ context.Context, a *Account, value any) error {
				a.Images.Tiny, _ = asString(value)
				return nil
			},
			Raw: func(a *Account) any { return a.Images.Tiny },
		},
		permission.Field[*Account]{
			Name:      "locker",
			Attribute: "locker",
			ReadCaps:  readAll,
			WriteCaps: ownerWrite,
			Validate:  stringValue,
			Getter:    func(a *Account) any { return a.Locker },
			Setter: func(_ context.Context, a *Account, value any) error {
				a.Locker, _ = asString(value)
				return nil
			},
			Raw: func(a *Account) any { return a.Locker },
		},
		// password is write-only: no getter, and the write fans out into the
		// hash and salt fields.
		permission.Field[*Account]{
			Name:      "password",
			Attribute: "password_hash",
			ReadCaps:  []permission.Capability{permission.CapabilityNone},
			WriteCaps: ownerWrite,
			Validate: func(value any, _ *Account) bool {
				s, ok := asString(value)
				return ok && validation.Password(s) == nil
			},
			Setter: func(_ context.Context, a *Account, value any) error {
				plain, _ := asString(value)
				a.PasswordHash, a.PasswordSalt = hasher.Hash(plain)
				return nil
			},
			Updater: func(a *Account) map[string]any {
				return map[string]any{
					"password_hash": a.PasswordHash,
					"password_salt": a.PasswordSalt,
				}
			},
		},
		// public_key reads back as the simplified single-line form; the PEM
		// as submitted is what persists.
		permission.Field[*Account]{
			Name:      "public_key",
			Attribute: "session_public_key",
			ReadCaps:  readAll,
			WriteCaps: ownerWrite,
			Validate:  stringValue,
			Getter:    func(a *Account) any { return SimplifyPublicKey(a.SessionPublicKey) },
			Setter: func(_ context.Context, a *Account, value any) error {
				a.SessionPublicKey, _ = asString(value)
				return nil
			},
			Raw: func(a *Account) any { return a.SessionPublicKey },
		},
		// public_key_pem exposes the key exactly as submitted, armor and
		// all. Read-only; writes go through public_key.
		permission.Field[*Account]{
			Name:      "public_key_pem",
			Attribute: "session_public_key",
			ReadCaps:  readAll,
			Getter:    func(a *Account) any { return a.SessionPublicKey },
			Raw:       func(a *Account) any { return a.SessionPublicKey },
		},
		permission.Field[*Account]{
			Name:      "friends",
			Attribute: "friends",
			ReadCaps:  readAll,
			WriteCaps: ownerWrite,
			Validate:  stringSliceValue,
			Getter:    func(a *Account) any { return a.Friends },
			Setter: func(_ context.Context, a *Account, value any) error {
				a.Friends, _ = asStringSlice(value)
				return nil
			},
			Raw: func(a *Account) any { return a.Friends },
		},
		permission.Field[*Account]{
			Name:      "connections",
			Attribute: "connections",
			ReadCaps:  readAll,
			WriteCaps: ownerWrite,
			Validate:  stringSliceValue,
			Getter:    func(a *Account) any { return a.Connections },
			Setter: func(_ context.Context, a *Account, value any) error {
				a.Connections, _ = asStringSlice(value)
				return nil
			},
			Raw: func(a *Account) any { return a.Connections },
		},
		permission.Field[*Account]{
			Name:      "roles",
			Attribute: "roles",
			ReadCaps:  readAll,
			WriteCaps: []permission.Capability{permission.CapabilityAdmin},
			Validate: func(value any, _ *Account) bool {
				roles, ok := asStringSlice(value)
				if !ok {
					return false
				}
				for _, role := range roles {
					if role != authDomain.RoleUser && role != authDomain.RoleAdmin {
						return false
					}
				}
				return true
			},
			Getter: func(a *Account) any { return a.Roles },
			Setter: func(_ context.Context, a *Account, value any) error {
				a.Roles, _ = asStringSlice(value)
				return nil
			},
			Raw: func(a *Account) any { return a.Roles },
		},
		// creation_ip has no setter: immutable after create.
		permission.Field[*Account]{
			Name:      "creation_ip",
			Attribute: "creator_ip",
			ReadCaps:  readAll,
			Getter:    func(a *Account) any { return a.CreatorIP },
			Raw:       func(a *Account) any { return a.CreatorIP },
		},
		permission.Field[*Account]{
			Name:      "when_created",
			Attribute: "created_at",
			ReadCaps:  readAll,
			WriteCaps: ownerWrite,
			Validate: func(value any, _ *Account) bool {
				s, ok := asString(value)
				if !ok {
					return false
				}
				_, err := time.Parse(time.RFC3339, s)
				return err == nil
			},
			Getter: func(a *Account) any { return a.CreatedAt.Format(time.RFC3339) },
			Setter: func(_ context.Context, a *Account, value any) error {
				s, _ := asString(value)
				when, err := time.Parse(time.RFC3339, s)
				if err != nil {
					return err
				}
				a.CreatedAt = when
				return nil
			},
			Raw: func(a *Account) any { return a.CreatedAt },
		},
	)
}

// SimplifyPublicKey collapses a PEM-encoded public key to its single-line
// base64 body, the form clients exchange with each other.
func SimplifyPublicKey(pemKey string) string {
	var b strings.Builder
	for _, line := range strings.Split(pemKey, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "-----") {
			continue
		}
		b.WriteString(line)
	}
	return b.String()
}

func stringValue(value any, _ *Account) bool {
	_, ok := asString(value)
	return ok
}

func stringSliceValue(value any, _ *Account) bool {
	_, ok := asStringSlice(value)
	return ok
}

func asString(value any) (string, bool) {
	s, ok := value.(string)
	return s, ok
}

// asStringSlice accepts []string directly or []any of strings, the shape
// JSON decoding produces.
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
