// Package entity defines the vocabulary shared between the storage layer and the
// render-data cache: entity type tags, the singleton marker, the read boundary and
// the write-notification signal.
//
// The package is pure Go with no infrastructure dependencies beyond the pubsub
// dispatcher used for save notifications.
package entity

import (
	"context"
	"errors"
	"reflect"

	"github.com/recruitsite/recruit/internal/pubsub"
)

// ErrNotProvisioned is returned by a Reader when the backing storage for an
// entity type does not exist yet (for example, migrations were never applied).
var ErrNotProvisioned = errors.New("entity storage not provisioned")

// ErrNotFound is returned when a lookup by key matches no stored entity.
var ErrNotFound = errors.New("entity not found")

// Singleton is implemented by entity types that always have exactly one stored
// instance. SingletonID is the fixed primary key of that instance.
type Singleton interface {
	SingletonID() int64
}

var singletonType = reflect.TypeFor[Singleton]()

// Reader reads current entity state from the store.
// Both methods must be safe to call at priming time and at refresh time.
type Reader interface {
	// FetchSingleton returns the single instance of a Singleton entity type.
	FetchSingleton(ctx context.Context, t reflect.Type) (any, error)

	// FetchCollection returns every stored instance of t.
	FetchCollection(ctx context.Context, t reflect.Type) ([]any, error)
}

// SavedEvent is sent on a Signal after an instance was created, updated or deleted.
type SavedEvent struct {
	Type     reflect.Type
	Instance any
	Created  bool
	Deleted  bool
}

// Signal delivers SavedEvents synchronously to receivers connected per entity type.
type Signal = pubsub.Dispatcher[reflect.Type, SavedEvent]

// NewSignal creates an empty Signal.
func NewSignal() *Signal {
	return pubsub.NewDispatcher[reflect.Type, SavedEvent]()
}

// TypeOf returns the type tag for T.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}

// IsSingleton reports whether t implements Singleton.
func IsSingleton(t reflect.Type) bool {
	return t != nil && t.Implements(singletonType)
}

// Name returns the bare type name of t, looking through pointers.
func Name(t reflect.Type) string {
	if t == nil {
		return ""
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

// Matches reports whether v can be stored in a slot typed t.
func Matches(t reflect.Type, v any) bool {
	if t == nil || v == nil {
		return false
	}
	return reflect.TypeOf(v).AssignableTo(t)
}
