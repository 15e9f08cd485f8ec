package renderdata

import (
	"context"
	"sort"

	"github.com/recruitsite/recruit/internal/entity"
)

// Factory builds RenderContexts from a registry's snapshot and
// caller-supplied required values.
type Factory struct {
	registry *Registry
}

// NewFactory creates a factory for reg.
func NewFactory(reg *Registry) *Factory {
	return &Factory{registry: reg}
}

// Build validates provided against the required slots and returns a context
// holding every registered slot.
//
// provided must name exactly the required slots: absent names fail with
// MissingRequiredSlotsError, extra names with UnexpectedSlotsError, and values
// of the wrong type with TypeMismatchError.
func (f *Factory) Build(ctx context.Context, provided map[string]any) (*RenderContext, error) {
	if !f.registry.Initialized() {
		return nil, ErrNotInitialized
	}

	required := f.registry.RequiredSlots()
	expected := make(map[string]Descriptor, len(required))
	var missing []string
	for _, d := range required {
		expected[d.Name] = d
		if _, ok := provided[d.Name]; !ok {
			missing = append(missing, d.Name)
		}
	}
	if len(missing) > 0 {
		return nil, &MissingRequiredSlotsError{Names: missing}
	}

	names := make([]string, 0, len(provided))
	var unexpected []string
	for name := range provided {
		if _, ok := expected[name]; !ok {
			unexpected = append(unexpected, name)
			continue
		}
		names = append(names, name)
	}
	if len(unexpected) > 0 {
		sort.Strings(unexpected)
		return nil, &UnexpectedSlotsError{Names: unexpected}
	}

	sort.Strings(names)
	for _, name := range names {
		d := expected[name]
		if value := provided[name]; !entity.Matches(d.EntityType, value) {
			return nil, &TypeMismatchError{Slot: name, Expected: d.EntityType, Actual: typeOf(value)}
		}
	}

	values := f.registry.Store().Snapshot(ctx)
	for _, name := range names {
		values[name] = provided[name]
	}
	return newRenderContext(values), nil
}
