package permission

import "context"

// Evaluator performs field-level get/set against a table, enforcing
// capability checks and validators, and produces persistence-ready update
// fragments. Adding a field to a table never requires touching this type.
type Evaluator[E Target] struct {
	table    *Table[E]
	resolver *Resolver
}

// NewEvaluator binds a field table to a resolver.
func NewEvaluator[E Target](table *Table[E], resolver *Resolver) *Evaluator[E] {
	return &Evaluator[E]{table: table, resolver: resolver}
}

// Table returns the underlying field table.
func (ev *Evaluator[E]) Table() *Table[E] {
	return ev.table
}

// Get returns the caller-visible value of a field. Unknown fields and
// denied reads are both reported as ok=false with no error, so callers
// cannot distinguish "does not exist" from "hidden"; this is a deliberate
// anti-enumeration property.
func (ev *Evaluator[E]) Get(ctx context.Context, ident Identity, entity E, name string) (any, bool) {
	field, ok := ev.table.Lookup(name)
	if !ok || field.Getter == nil {
		return nil, false
	}

	caps := ev.resolver.Resolve(ctx, ident, entity)
	if !caps.Satisfies(field.ReadCaps) {
		return nil, false
	}

	return field.Getter(entity), true
}

// Set writes a field value onto the in-memory entity. Any failure (unknown
// field, missing write capability, failed validation, no setter) reports
// false uniformly and leaves the entity untouched for that field.
func (ev *Evaluator[E]) Set(ctx context.Context, ident Identity, entity E, name string, value any) bool {
	field, ok := ev.table.Lookup(name)
	if !ok || field.Setter == nil {
		return false
	}

	caps := ev.resolver.Resolve(ctx, ident, entity)
	if !caps.Satisfies(field.WriteCaps) {
		return false
	}

	if field.Validate != nil && !field.Validate(value, entity) {
		return false
	}

	return field.Setter(ctx, entity, value) == nil
}

// BuildUpdate produces the physical field/value pairs to persist for the
// named fields. It bypasses capability and getter logic entirely: the
// result must reflect true current state for storage. Call it only after
// Set has already succeeded; it is not an authorization boundary.
func (ev *Evaluator[E]) BuildUpdate(entity E, names ...string) map[string]any {
	update := make(map[string]any, len(names))
	for _, name := range names {
		field, ok := ev.table.Lookup(name)
		if !ok {
			continue
		}
		if field.Updater != nil {
			for attr, value := range field.Updater(entity) {
				update[attr] = value
			}
			continue
		}
		if field.Raw != nil {
			update[field.Attribute] = field.Raw(entity)
		}
	}
	return update
}
