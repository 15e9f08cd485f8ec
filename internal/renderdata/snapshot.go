package renderdata

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"slices"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/recruitsite/recruit/internal/cachemanager"
	"github.com/recruitsite/recruit/internal/entity"
	"github.com/recruitsite/recruit/internal/log"
	"github.com/recruitsite/recruit/internal/tracing"
)

// SnapshotStore holds the current value of every cached slot.
//
// Singleton slots hold the entity instance; collection slots hold a []any that
// is never modified after it is stored. Replace swaps the whole value, so a
// reader that already holds a value keeps a complete snapshot.
type SnapshotStore struct {
	descriptors map[string]Descriptor
	names       []string
	cache       cachemanager.CacheManager[string, any]
	tracer      trace.Tracer
}

// NewSnapshotStore creates an empty store for the given cached descriptors.
// A nil cache is replaced by a non-expiring in-memory cache.
func NewSnapshotStore(descriptors []Descriptor, cache cachemanager.CacheManager[string, any]) *SnapshotStore {
	if cache == nil {
		cache = cachemanager.NewInMemoryCacheManager[string, any]("render-data", cachemanager.NoExpiration, 0)
	}
	s := &SnapshotStore{
		descriptors: make(map[string]Descriptor, len(descriptors)),
		names:       make([]string, 0, len(descriptors)),
		cache:       cache,
		tracer:      tracerOrNoop(nil),
	}
	for _, d := range descriptors {
		if !d.Kind.Cached() {
			continue
		}
		s.descriptors[d.Name] = d
		s.names = append(s.names, d.Name)
	}
	slices.Sort(s.names)
	return s
}

// PrimeAll reads every slot from reader. Slots whose storage is not
// provisioned are skipped and returned; any other error stops priming.
func (s *SnapshotStore) PrimeAll(ctx context.Context, reader entity.Reader) ([]string, error) {
	ctx, span := s.tracer.Start(ctx, tracing.SpanPrime,
		trace.WithAttributes(attribute.Int(tracing.AttrSlotCount, len(s.names))))
	defer span.End()

	var skipped []string
	for _, name := range s.names {
		d := s.descriptors[name]
		value, err := fetch(ctx, reader, d)
		if err != nil {
			if IsUnavailable(err) {
				log.Warn(log.CatRender, "slot unavailable, skipping", "slot", name, "error", err)
				span.AddEvent("slot skipped", trace.WithAttributes(attribute.String(tracing.AttrSlotName, name)))
				skipped = append(skipped, name)
				continue
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return skipped, fmt.Errorf("slot %q: %w", name, err)
		}
		s.cache.Set(ctx, name, value, cachemanager.NoExpiration)
		log.Debug(log.CatRender, "slot primed", "slot", name, "kind", d.Kind, "size", sizeOf(value))
	}

	span.SetAttributes(attribute.Int(tracing.AttrSlotSkipped, len(skipped)))
	return skipped, nil
}

// Get returns the current value of a cached slot. Collections are returned
// as a fresh slice.
func (s *SnapshotStore) Get(ctx context.Context, name string) (any, error) {
	if _, ok := s.descriptors[name]; !ok {
		return nil, &UnknownSlotError{Name: name}
	}
	value, found := s.cache.Get(ctx, name)
	if !found {
		return nil, &SlotUnavailableError{Name: name}
	}
	return detach(value), nil
}

// Replace swaps the value of a cached slot after checking its type.
// Collections are copied, so later changes to the caller's slice are not seen.
func (s *SnapshotStore) Replace(ctx context.Context, name string, value any) error {
	d, ok := s.descriptors[name]
	if !ok {
		return &UnknownSlotError{Name: name}
	}
	checked, err := check(d, value)
	if err != nil {
		return err
	}
	s.cache.Set(ctx, name, checked, cachemanager.NoExpiration)
	return nil
}

// Snapshot returns the value of every cached slot. Unavailable slots map to
// nil; collections are copied.
func (s *SnapshotStore) Snapshot(ctx context.Context) map[string]any {
	out := make(map[string]any, len(s.names))
	found, _ := s.cache.GetMultiple(ctx, s.names)
	for _, name := range s.names {
		out[name] = detach(found[name])
	}
	return out
}

// Names returns the cached slot names in sorted order.
func (s *SnapshotStore) Names() []string {
	return slices.Clone(s.names)
}

func (s *SnapshotStore) descriptor(name string) (Descriptor, bool) {
	d, ok := s.descriptors[name]
	return d, ok
}

// fetch reads the current value of d from reader and checks its type.
func fetch(ctx context.Context, reader entity.Reader, d Descriptor) (any, error) {
	var (
		value any
		err   error
	)
	switch d.Kind {
	case KindSingleton:
		value, err = reader.FetchSingleton(ctx, d.EntityType)
	case KindCollection:
		var items []any
		items, err = reader.FetchCollection(ctx, d.EntityType)
		value = items
	default:
		return nil, &InvalidKindError{Descriptor: d, Reason: "required slots are not cached"}
	}
	if err != nil {
		if errors.Is(err, entity.ErrNotProvisioned) {
			return nil, &SlotUnavailableError{Name: d.Name, Err: err}
		}
		return nil, err
	}
	return check(d, value)
}

// check validates value against d and returns the value to store.
func check(d Descriptor, value any) (any, error) {
	if d.Kind == KindCollection {
		items, ok := value.([]any)
		if !ok {
			if value != nil {
				return nil, &TypeMismatchError{Slot: d.Name, Expected: anySliceType, Actual: typeOf(value)}
			}
			items = nil
		}
		for _, item := range items {
			if !entity.Matches(d.EntityType, item) {
				return nil, &TypeMismatchError{Slot: d.Name, Expected: d.EntityType, Actual: typeOf(item)}
			}
		}
		out := make([]any, len(items))
		copy(out, items)
		return out, nil
	}
	if !entity.Matches(d.EntityType, value) {
		return nil, &TypeMismatchError{Slot: d.Name, Expected: d.EntityType, Actual: typeOf(value)}
	}
	return value, nil
}

var anySliceType = reflect.TypeFor[[]any]()

func typeOf(v any) reflect.Type {
	return reflect.TypeOf(v)
}

func sizeOf(value any) int {
	if items, ok := value.([]any); ok {
		return len(items)
	}
	if value == nil {
		return 0
	}
	return 1
}
