package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestUsername(t *testing.T) {
	tests := []struct {
		name    string
		value   string
		wantErr bool
	}{
		{name: "valid simple", value: "alice", wantErr: false},
		{name: "valid with punctuation", value: "alice.b-c_d+e", wantErr: false},
		{name: "valid minimum length", value: "ab", wantErr: false},
		{name: "empty", value: "", wantErr: true},
		{name: "single character", value: "a", wantErr: true},
		{name: "leading digit", value: "1alice", wantErr: true},
		{name: "contains space", value: "alice smith", wantErr: true},
		{name: "non-ascii", value: "ålice", wantErr: true},
		{name: "too long", value: strings.Repeat("a", 65), wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Username(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestEmail(t *testing.T) {
	assert.NoError(t, Email("alice@example.com"))
	assert.Error(t, Email(""))
	assert.Error(t, Email("not-an-email"))
}

func TestPassword(t *testing.T) {
	assert.NoError(t, Password("s3cret"))
	assert.NoError(t, Password("ab"))
	assert.Error(t, Password(""))
	assert.Error(t, Password("x"))
	assert.Error(t, Password(strings.Repeat("x", 257)))
}

func TestDomainName(t *testing.T) {
	assert.NoError(t, DomainName("My World"))
	assert.Error(t, DomainName(""))
	assert.Error(t, DomainName(strings.Repeat("w", 129)))
}
