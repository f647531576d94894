package permission

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// widget exercises the field table without dragging in a real entity type.
type widget struct {
	owner  uuid.UUID
	name   string
	secret string
	count  int64
	total  int64
}

func (w *widget) OwnedBy(accountID uuid.UUID) bool {
	return w.owner != uuid.Nil && w.owner == accountID
}

func widgetTable() *Table[*widget] {
	return NewTable(
		Field[*widget]{
			Name:      "name",
			Attribute: "name",
			ReadCaps:  []Capability{CapabilityAll},
			WriteCaps: []Capability{CapabilityOwner, CapabilityAdmin},
			Validate: func(value any, _ *widget) bool {
				s, ok := value.(string)
				return ok && s != ""
			},
			Getter: func(w *widget) any { return w.name },
			Setter: func(_ context.Context, w *widget, value any) error {
				w.name = value.(string)
				return nil
			},
			Raw: func(w *widget) any { return w.name },
		},
		Field[*widget]{
			Name:      "secret",
			Attribute: "secret",
			ReadCaps:  []Capability{CapabilityOwner},
			WriteCaps: []Capability{CapabilityNone},
			Getter:    func(w *widget) any { return w.secret },
			Setter: func(_ context.Context, w *widget, value any) error {
				w.secret = value.(string)
				return nil
			},
			Raw: func(w *widget) any { return w.secret },
		},
		// count fans out into a derived total.
		Field[*widget]{
			Name:      "count",
			Attribute: "count",
			ReadCaps:  []Capability{CapabilityAll},
			WriteCaps: []Capability{CapabilityOwner},
			Getter:    func(w *widget) any { return w.count },
			Setter: func(_ context.Context, w *widget, value any) error {
				n, ok := value.(int64)
				if !ok {
					return errors.New("not an int64")
				}
				w.count = n
				w.total = n * 2
				return nil
			},
			Updater: func(w *widget) map[string]any {
				return map[string]any{"count": w.count, "total": w.total}
			},
		},
		Field[*widget]{
			Name:     "write_only",
			ReadCaps: []Capability{CapabilityAll},
			// no getter: unreadable even though ReadCaps allow it
		},
	)
}

// anyAccount resolves every account with no roles, so ownership alone
// decides the outcome.
type anyAccount struct{}

func (anyAccount) RolesForAccount(context.Context, uuid.UUID) ([]string, error) {
	return nil, nil
}

func newWidgetEvaluator() *Evaluator[*widget] {
	resolver := NewResolver(stubTokens{}, anyAccount{}, nil, discardLogger())
	return NewEvaluator(widgetTable(), resolver)
}

func ownerIdent(w *widget) Identity {
	w.owner = uuid.New()
	return Identity{Token: liveToken(w.owner)}
}

func TestNewTableDuplicatePanics(t *testing.T) {
	assert.Panics(t, func() {
		NewTable(
			Field[*widget]{Name: "name"},
			Field[*widget]{Name: "name"},
		)
	})
}

func TestEvaluatorGet(t *testing.T) {
	ctx := context.Background()
	ev := newWidgetEvaluator()

	t.Run("open field is readable by anyone", func(t *testing.T) {
		w := &widget{name: "gizmo"}
		value, ok := ev.Get(ctx, Identity{}, w, "name")
		require.True(t, ok)
		assert.Equal(t, "gizmo", value)
	})

	t.Run("denied and unknown fields are indistinguishable", func(t *testing.T) {
		w := &widget{secret: "hidden"}
		_, deniedOK := ev.Get(ctx, Identity{}, w, "secret")
		_, unknownOK := ev.Get(ctx, Identity{}, w, "no_such_field")
		assert.False(t, deniedOK)
		assert.False(t, unknownOK)
	})

	t.Run("owner reads protected fields", func(t *testing.T) {
		w := &widget{secret: "hidden"}
		value, ok := ev.Get(ctx, ownerIdent(w), w, "secret")
		require.True(t, ok)
		assert.Equal(t, "hidden", value)
	})

	t.Run("field without a getter is unreadable", func(t *testing.T) {
		w := &widget{}
		_, ok := ev.Get(ctx, ownerIdent(w), w, "write_only")
		assert.False(t, ok)
	})
}

func TestEvaluatorSet(t *testing.T) {
	ctx := context.Background()
	ev := newWidgetEvaluator()

	t.Run("owner write passes validation and applies", func(t *testing.T) {
		w := &widget{}
		assert.True(t, ev.Set(ctx, ownerIdent(w), w, "name", "gadget"))
		assert.Equal(t, "gadget", w.name)
	})

	t.Run("failed validation reports false and changes nothing", func(t *testing.T) {
		w := &widget{name: "before"}
		assert.False(t, ev.Set(ctx, ownerIdent(w), w, "name", ""))
		assert.Equal(t, "before", w.name)
	})

	t.Run("anonymous write is denied", func(t *testing.T) {
		w := &widget{name: "before"}
		assert.False(t, ev.Set(ctx, Identity{}, w, "name", "after"))
		assert.Equal(t, "before", w.name)
	})

	t.Run("none-capability field denies even the owner", func(t *testing.T) {
		w := &widget{}
		assert.False(t, ev.Set(ctx, ownerIdent(w), w, "secret", "new"))
	})

	t.Run("setter runs derivations", func(t *testing.T) {
		w := &widget{}
		require.True(t, ev.Set(ctx, ownerIdent(w), w, "count", int64(21)))
		assert.Equal(t, int64(42), w.total)
	})
}

func TestBuildUpdate(t *testing.T) {
	ev := newWidgetEvaluator()

	t.Run("plain field uses attribute and raw value", func(t *testing.T) {
		w := &widget{name: "gizmo"}
		update := ev.BuildUpdate(w, "name")
		assert.Equal(t, map[string]any{"name": "gizmo"}, update)
	})

	t.Run("updater fans out derived fields", func(t *testing.T) {
		w := &widget{count: 3, total: 6}
		update := ev.BuildUpdate(w, "count")
		assert.Equal(t, map[string]any{"count": int64(3), "total": int64(6)}, update)
	})

	t.Run("unknown names are skipped", func(t *testing.T) {
		w := &widget{}
		update := ev.BuildUpdate(w, "no_such_field")
		assert.Empty(t, update)
	})
}
