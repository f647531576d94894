// Package permission implements relationship-based access control over
// mutable entities: a caller's identity is classified into capabilities
// relative to a target entity, and per-field access rules are evaluated
// against those capabilities.
package permission

// Capability is a named permission tag granted to a caller relative to a
// target entity. The enumeration is closed; field rules reference these
// tags and nothing else.
type Capability string

const (
	// CapabilityOwner is granted when the caller's account is the target
	// account, or the bound sponsor for domain targets.
	CapabilityOwner Capability = "owner"
	// CapabilityAdmin is granted when the caller's account carries the
	// admin role, or the caller presented the special admin token.
	CapabilityAdmin Capability = "admin"
	// CapabilityDomain is granted when the caller authenticated with a
	// domain's API key rather than a personal token.
	CapabilityDomain Capability = "domain"
	// CapabilityAll is always granted; it marks fields without restriction.
	CapabilityAll Capability = "all"
	// CapabilityNone is never granted; it hard-disables a field operation.
	CapabilityNone Capability = "none"
)

// CapabilitySet is the set of capabilities a caller holds against a target.
type CapabilitySet map[Capability]struct{}

// NewCapabilitySet builds a set from the given capabilities.
func NewCapabilitySet(caps ...Capability) CapabilitySet {
	s := make(CapabilitySet, len(caps))
	for _, c := range caps {
		s[c] = struct{}{}
	}
	return s
}

// Has reports whether the set contains the capability.
func (s CapabilitySet) Has(c Capability) bool {
	_, ok := s[c]
	return ok
}

// Add inserts a capability into the set.
func (s CapabilitySet) Add(c Capability) {
	s[c] = struct{}{}
}

// Satisfies reports whether the caller holds at least one of the required
// capabilities. CapabilityNone is never held, so a requirement of only
// "none" fails for every caller including the entity's owner.
func (s CapabilitySet) Satisfies(required []Capability) bool {
	for _, r := range required {
		if s.Has(r) {
			return true
		}
	}
	return false
}
