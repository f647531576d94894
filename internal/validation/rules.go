// Package validation holds shared input validation rules.
package validation

import (
	"regexp"

	"github.com/jellydator/validation"
	"github.com/jellydator/validation/is"
)

// usernameRegex permits a leading letter followed by letters, digits and a
// small set of punctuation. Usernames are compared case-insensitively, so
// the charset stays ASCII.
var usernameRegex = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+\-_.]*$`)

// Username validates an account username.
func Username(value string) error {
	return validation.Validate(value,
		validation.Required,
		validation.Length(2, 64),
		validation.Match(usernameRegex),
	)
}

// Email validates an account email address.
func Email(value string) error {
	return validation.Validate(value,
		validation.Required,
		is.Email,
	)
}

// Password validates a plaintext password before hashing.
func Password(value string) error {
	return validation.Validate(value,
		validation.Required,
		validation.Length(2, 256),
	)
}

// DomainName validates a domain's display name.
func DomainName(value string) error {
	return validation.Validate(value,
		validation.Required,
		validation.Length(1, 128),
	)
}
