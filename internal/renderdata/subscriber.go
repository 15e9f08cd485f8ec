package renderdata

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/recruitsite/recruit/internal/entity"
	"github.com/recruitsite/recruit/internal/log"
	"github.com/recruitsite/recruit/internal/pubsub"
	"github.com/recruitsite/recruit/internal/tracing"
)

// Notifier connects write receivers per entity type. *entity.Signal implements it.
type Notifier interface {
	Connect(t reflect.Type, fn pubsub.Receiver[entity.SavedEvent])
}

// SlotState is the refresh state of one cached slot.
type SlotState int32

const (
	StateIdle SlotState = iota
	StateRefreshing
)

func (s SlotState) String() string {
	if s == StateRefreshing {
		return "refreshing"
	}
	return "idle"
}

// SlotRefresh is published after every refresh attempt.
// Type UpdatedEvent means the slot was replaced; FailedEvent means the stale
// value was kept and Err says why.
type SlotRefresh struct {
	Slot       string
	EntityType string
	Size       int
	Duration   time.Duration
	Err        string
}

type slotGuard struct {
	mu    sync.Mutex
	state atomic.Int32
}

// InvalidationSubscriber re-reads a cached slot whenever its entity type is
// written and swaps the fresh value into the SnapshotStore.
//
// Refreshes of the same slot run one at a time; different slots refresh
// independently. A failed refresh keeps the previous value and is only logged,
// so it never reaches the writer.
type InvalidationSubscriber struct {
	store  *SnapshotStore
	reader entity.Reader
	events pubsub.Publisher[SlotRefresh]
	tracer trace.Tracer

	byType map[reflect.Type]string
	guards map[string]*slotGuard
}

// NewInvalidationSubscriber creates a subscriber for every slot in store.
// events and tracer may be nil.
func NewInvalidationSubscriber(store *SnapshotStore, reader entity.Reader, events pubsub.Publisher[SlotRefresh], tracer trace.Tracer) *InvalidationSubscriber {
	s := &InvalidationSubscriber{
		store:  store,
		reader: reader,
		events: events,
		tracer: tracerOrNoop(tracer),
		byType: make(map[reflect.Type]string, len(store.names)),
		guards: make(map[string]*slotGuard, len(store.names)),
	}
	for _, name := range store.names {
		d := store.descriptors[name]
		s.byType[d.EntityType] = name
		s.guards[name] = &slotGuard{}
	}
	return s
}

// Wire connects exactly one receiver per cached entity type.
func (s *InvalidationSubscriber) Wire(n Notifier) {
	for _, name := range s.store.names {
		d := s.store.descriptors[name]
		n.Connect(d.EntityType, s.HandleWrite)
	}
}

// HandleWrite refreshes the slot bound to ev.Type. Events for unregistered
// types are ignored. Errors are absorbed.
func (s *InvalidationSubscriber) HandleWrite(ctx context.Context, ev entity.SavedEvent) {
	name, ok := s.byType[ev.Type]
	if !ok {
		return
	}
	_ = s.Refresh(ctx, name)
}

// Refresh re-reads slot name and replaces its snapshot.
// On failure the previous value stays in place and the error is returned.
func (s *InvalidationSubscriber) Refresh(ctx context.Context, name string) error {
	guard, ok := s.guards[name]
	if !ok {
		return &UnknownSlotError{Name: name}
	}
	d, _ := s.store.descriptor(name)

	guard.mu.Lock()
	defer guard.mu.Unlock()
	guard.state.Store(int32(StateRefreshing))
	defer guard.state.Store(int32(StateIdle))

	ctx, span := s.tracer.Start(ctx, tracing.SpanPrefixRefresh+name,
		trace.WithAttributes(
			attribute.String(tracing.AttrSlotName, name),
			attribute.String(tracing.AttrSlotKind, d.Kind.String()),
			attribute.String(tracing.AttrEntityType, entity.Name(d.EntityType)),
		))
	defer span.End()

	start := time.Now()
	value, err := fetch(ctx, s.reader, d)
	if err == nil {
		err = s.store.Replace(ctx, name, value)
	}
	report := SlotRefresh{
		Slot:       name,
		EntityType: entity.Name(d.EntityType),
		Duration:   time.Since(start),
	}

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		if IsUnavailable(err) {
			log.Warn(log.CatRender, "slot refresh skipped, storage unavailable", "slot", name, "error", err)
		} else {
			log.ErrorErr(log.CatRender, "slot refresh failed, keeping stale value", err, "slot", name)
		}
		report.Err = err.Error()
		s.publish(pubsub.FailedEvent, report)
		return err
	}

	report.Size = sizeOf(value)
	span.SetAttributes(attribute.Int(tracing.AttrSlotSize, report.Size))
	log.Debug(log.CatRender, "slot refreshed", "slot", name, "size", report.Size, "took", report.Duration)
	s.publish(pubsub.UpdatedEvent, report)
	return nil
}

// RefreshAll refreshes every cached slot and joins the failures.
func (s *InvalidationSubscriber) RefreshAll(ctx context.Context) error {
	var errs []error
	for _, name := range s.store.names {
		if err := s.Refresh(ctx, name); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// State returns the refresh state of slot name.
func (s *InvalidationSubscriber) State(name string) (SlotState, bool) {
	guard, ok := s.guards[name]
	if !ok {
		return StateIdle, false
	}
	return SlotState(guard.state.Load()), true
}

func (s *InvalidationSubscriber) publish(eventType pubsub.EventType, report SlotRefresh) {
	if s.events == nil {
		return
	}
	s.events.Publish(eventType, report)
}

func tracerOrNoop(t trace.Tracer) trace.Tracer {
	if t != nil {
		return t
	}
	return noop.NewTracerProvider().Tracer("renderdata")
}
