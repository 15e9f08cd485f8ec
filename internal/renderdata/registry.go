package renderdata

import (
	"context"
	"fmt"
	"reflect"
	"sort"
	"sync"

	"go.opentelemetry.io/otel/trace"

	"github.com/recruitsite/recruit/internal/cachemanager"
	"github.com/recruitsite/recruit/internal/entity"
	"github.com/recruitsite/recruit/internal/log"
	"github.com/recruitsite/recruit/internal/pubsub"
)

// Options are the collaborators Initialize wires the registry to.
type Options struct {
	// Reader primes and refreshes cached slots. Required.
	Reader entity.Reader

	// Notifier delivers write events. When nil, slots are only refreshed
	// through the subscriber's Refresh and RefreshAll.
	Notifier Notifier

	// Events receives one SlotRefresh per refresh attempt. Optional.
	Events pubsub.Publisher[SlotRefresh]

	// Tracer records priming and refresh spans. Defaults to a no-op tracer.
	Tracer trace.Tracer

	// Cache backs the snapshot store. Defaults to a non-expiring in-memory cache.
	Cache cachemanager.CacheManager[string, any]
}

// Registry is the table of slots exposed to render contexts.
// Registration happens at start-up; Initialize freezes the table.
type Registry struct {
	mu          sync.RWMutex
	cached      map[string]Descriptor
	required    map[string]Descriptor
	byType      map[reflect.Type]string
	initialized bool

	store      *SnapshotStore
	subscriber *InvalidationSubscriber
}

// NewRegistry creates an empty, unfrozen registry.
func NewRegistry() *Registry {
	return &Registry{
		cached:   make(map[string]Descriptor),
		required: make(map[string]Descriptor),
		byType:   make(map[reflect.Type]string),
	}
}

// RegisterSingletonOrCollection adds a cached slot.
func (r *Registry) RegisterSingletonOrCollection(d Descriptor) error {
	if err := validateDescriptor(d); err != nil {
		return err
	}
	switch d.Kind {
	case KindSingleton:
		if !entity.IsSingleton(d.EntityType) {
			return &InvalidKindError{Descriptor: d, Reason: entity.Name(d.EntityType) + " is not a singleton entity"}
		}
	case KindCollection:
	default:
		return &InvalidKindError{Descriptor: d, Reason: "required slots are registered with RegisterRequired"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return ErrAlreadyInitialized
	}
	if err := r.checkNameLocked(d.Name); err != nil {
		return err
	}
	if name, ok := r.byType[d.EntityType]; ok {
		return &DuplicateSlotError{Name: d.Name, Existing: r.cached[name]}
	}

	r.cached[d.Name] = d
	r.byType[d.EntityType] = d.Name
	return nil
}

// RegisterRequired adds a slot the caller supplies on every Build.
// Singleton entity types cannot be required: their one instance is cached.
func (r *Registry) RegisterRequired(d Descriptor) error {
	if err := validateDescriptor(d); err != nil {
		return err
	}
	if d.Kind != KindRequired {
		return &InvalidKindError{Descriptor: d, Reason: "cached slots are registered with RegisterSingletonOrCollection"}
	}
	if entity.IsSingleton(d.EntityType) {
		return &InvalidKindError{Descriptor: d, Reason: entity.Name(d.EntityType) + " is a singleton entity"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return ErrAlreadyInitialized
	}
	if err := r.checkNameLocked(d.Name); err != nil {
		return err
	}

	r.required[d.Name] = d
	return nil
}

// Register adds T as a singleton slot when it implements entity.Singleton,
// otherwise as a collection slot.
func Register[T any](r *Registry) error {
	t := entity.TypeOf[T]()
	kind := KindCollection
	if entity.IsSingleton(t) {
		kind = KindSingleton
	}
	return r.RegisterSingletonOrCollection(NewDescriptor(t, kind))
}

// Require adds T as a required slot.
func Require[T any](r *Registry) error {
	return r.RegisterRequired(NewDescriptor(entity.TypeOf[T](), KindRequired))
}

// checkNameLocked rejects names already used by either partition,
// since both share the render-context attribute namespace.
func (r *Registry) checkNameLocked(name string) error {
	if existing, ok := r.cached[name]; ok {
		return &DuplicateSlotError{Name: name, Existing: existing}
	}
	if existing, ok := r.required[name]; ok {
		return &DuplicateSlotError{Name: name, Existing: existing}
	}
	return nil
}

func validateDescriptor(d Descriptor) error {
	if d.EntityType == nil {
		return fmt.Errorf("%w: slot %q has no entity type", ErrInvalidDescriptor, d.Name)
	}
	if d.Name == "" {
		return fmt.Errorf("%w: %s has an empty slot name", ErrInvalidDescriptor, d.EntityType)
	}
	return nil
}

// Initialize freezes the registry, primes the snapshot store and wires the
// invalidation subscriber. Slots whose storage is not provisioned are logged
// and skipped; any other read error aborts initialization and leaves the
// registry unfrozen.
func (r *Registry) Initialize(ctx context.Context, opts Options) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.initialized {
		return ErrAlreadyInitialized
	}
	if opts.Reader == nil {
		return ErrNoReader
	}

	descriptors := sortedDescriptors(r.cached)
	store := NewSnapshotStore(descriptors, opts.Cache)
	store.tracer = tracerOrNoop(opts.Tracer)

	skipped, err := store.PrimeAll(ctx, opts.Reader)
	if err != nil {
		return fmt.Errorf("priming render data: %w", err)
	}

	subscriber := NewInvalidationSubscriber(store, opts.Reader, opts.Events, opts.Tracer)
	if opts.Notifier != nil {
		subscriber.Wire(opts.Notifier)
	}

	r.store = store
	r.subscriber = subscriber
	r.initialized = true

	log.Info(log.CatRender, "render data initialized",
		"cached", len(r.cached),
		"required", len(r.required),
		"skipped", len(skipped))
	return nil
}

// Initialized reports whether Initialize has completed.
func (r *Registry) Initialized() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.initialized
}

// Lookup returns the descriptor registered under name in either partition.
func (r *Registry) Lookup(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if d, ok := r.cached[name]; ok {
		return d, true
	}
	d, ok := r.required[name]
	return d, ok
}

// Slots returns the cached slot descriptors sorted by name.
func (r *Registry) Slots() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedDescriptors(r.cached)
}

// RequiredSlots returns the required slot descriptors sorted by name.
func (r *Registry) RequiredSlots() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return sortedDescriptors(r.required)
}

// All returns every descriptor sorted by name.
func (r *Registry) All() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	all := append(sortedDescriptors(r.cached), sortedDescriptors(r.required)...)
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	return all
}

// Store returns the snapshot store, or nil before Initialize.
func (r *Registry) Store() *SnapshotStore {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.store
}

// Subscriber returns the invalidation subscriber, or nil before Initialize.
func (r *Registry) Subscriber() *InvalidationSubscriber {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.subscriber
}

func sortedDescriptors(m map[string]Descriptor) []Descriptor {
	out := make([]Descriptor, 0, len(m))
	for _, d := range m {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
