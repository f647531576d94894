package permission

import "context"

// Field is the registered access-control and transform rule for one
// externally nameable entity attribute. The table of fields is built once
// at startup; evaluation is a plain map lookup with no reflection.
//
// Getter and Raw differ on purpose: Getter shapes the value for callers
// (fingerprints, formatted dates) while Raw reflects true current state for
// persistence. Updater overrides Raw when one logical field fans out into
// several physical ones (password into hash and salt).
type Field[E Target] struct {
	// Name is the public field name used by callers.
	Name string
	// Attribute is the physical document field the value persists under.
	Attribute string
	// ReadCaps is the capability set required to read the field.
	ReadCaps []Capability
	// WriteCaps is the capability set required to write the field.
	WriteCaps []Capability
	// Validate checks a candidate value against the entity. A nil
	// validator accepts everything.
	Validate func(value any, entity E) bool
	// Getter returns the caller-visible value. A nil getter makes the
	// field unreadable regardless of capabilities.
	Getter func(entity E) any
	// Setter applies the value to the in-memory entity, running any
	// derivations (hashing, recomputed totals). A nil setter makes the
	// field unwritable regardless of capabilities.
	Setter func(ctx context.Context, entity E, value any) error
	// Raw returns the stored value for persistence, bypassing Getter
	// transforms. Ignored when Updater is set.
	Raw func(entity E) any
	// Updater produces the physical field/value pairs an intended write
	// expands to. Nil means a single Attribute/Raw pair.
	Updater func(entity E) map[string]any
}

// Table is a static registry of field rules for one entity type.
type Table[E Target] struct {
	fields map[string]Field[E]
	names  []string
}

// NewTable builds a field table. Duplicate names panic at startup since the
// registry is code-defined.
func NewTable[E Target](fields ...Field[E]) *Table[E] {
	t := &Table[E]{fields: make(map[string]Field[E], len(fields))}
	for _, f := range fields {
		if _, dup := t.fields[f.Name]; dup {
			panic("permission: duplicate field entry " + f.Name)
		}
		t.fields[f.Name] = f
		t.names = append(t.names, f.Name)
	}
	return t
}

// Lookup returns the entry for a public field name.
func (t *Table[E]) Lookup(name string) (Field[E], bool) {
	f, ok := t.fields[name]
	return f, ok
}

// Names returns the registered public field names in registration order.
func (t *Table[E]) Names() []string {
	return t.names
}
