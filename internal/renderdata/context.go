package renderdata

import (
	"maps"
	"slices"
)

// RenderContext is the per-request set of slot values handed to templates.
// It holds one attribute per registered slot and is never modified.
type RenderContext struct {
	values map[string]any
	names  []string
}

func newRenderContext(values map[string]any) *RenderContext {
	return &RenderContext{
		values: values,
		names:  slices.Sorted(maps.Keys(values)),
	}
}

// Get returns the value of slot name. ok is false for names that are not slots.
// Collections are returned as a fresh slice.
func (c *RenderContext) Get(name string) (any, bool) {
	v, ok := c.values[name]
	return detach(v), ok
}

// Value returns the value of slot name, or nil.
func (c *RenderContext) Value(name string) any {
	return detach(c.values[name])
}

// Names returns the slot names in sorted order.
func (c *RenderContext) Names() []string {
	return slices.Clone(c.names)
}

// Attrs returns a copy of the values keyed by slot name, for template execution.
func (c *RenderContext) Attrs() map[string]any {
	out := make(map[string]any, len(c.values))
	for name, v := range c.values {
		out[name] = detach(v)
	}
	return out
}

// Len returns the number of slots.
func (c *RenderContext) Len() int {
	return len(c.values)
}

// Lookup returns slot name as a T.
func Lookup[T any](c *RenderContext, name string) (T, bool) {
	v, ok := detach(c.values[name]).(T)
	return v, ok
}

// List returns the collection in slot name as a []T.
// Items of another type are left out; a missing or unavailable slot yields nil.
func List[T any](c *RenderContext, name string) []T {
	items, ok := c.values[name].([]any)
	if !ok {
		return nil
	}
	out := make([]T, 0, len(items))
	for _, item := range items {
		if v, ok := item.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

// detach copies a collection snapshot so callers cannot write into the
// slice shared with the snapshot store.
func detach(v any) any {
	if items, ok := v.([]any); ok && items != nil {
		return slices.Clone(items)
	}
	return v
}
