package renderdata

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/recruitsite/recruit/internal/entity"
)

// Lifecycle errors
var (
	ErrAlreadyInitialized = errors.New("render-data registry already initialized")
	ErrNotInitialized     = errors.New("render-data registry not initialized")
	ErrInvalidDescriptor  = errors.New("invalid slot descriptor")
	ErrNoReader           = errors.New("render-data registry needs an entity reader")
)

// DuplicateSlotError is returned when a slot name, or the entity type behind a
// cached slot, is already registered.
type DuplicateSlotError struct {
	Name     string
	Existing Descriptor
}

func (e *DuplicateSlotError) Error() string {
	return fmt.Sprintf("slot %q already registered as %s", e.Name, e.Existing)
}

// InvalidKindError is returned when a descriptor is registered through the
// wrong path for its kind or entity type.
type InvalidKindError struct {
	Descriptor Descriptor
	Reason     string
}

func (e *InvalidKindError) Error() string {
	return fmt.Sprintf("slot %q: invalid kind %s: %s", e.Descriptor.Name, e.Descriptor.Kind, e.Reason)
}

// UnknownSlotError is returned when a name is not a registered cached slot.
type UnknownSlotError struct {
	Name string
}

func (e *UnknownSlotError) Error() string {
	return fmt.Sprintf("unknown slot %q", e.Name)
}

// MissingRequiredSlotsError lists required slots absent from a Build call.
type MissingRequiredSlotsError struct {
	Names []string
}

func (e *MissingRequiredSlotsError) Error() string {
	return "missing required slots: " + strings.Join(e.Names, ", ")
}

// UnexpectedSlotsError lists values passed to Build that no required slot takes.
type UnexpectedSlotsError struct {
	Names []string
}

func (e *UnexpectedSlotsError) Error() string {
	return "unexpected slots: " + strings.Join(e.Names, ", ")
}

// TypeMismatchError is returned when a value's runtime type does not fit its slot.
type TypeMismatchError struct {
	Slot     string
	Expected reflect.Type
	Actual   reflect.Type
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("slot %q: expected %s, got %s", e.Slot, typeString(e.Expected), typeString(e.Actual))
}

// SlotUnavailableError marks a cached slot whose storage is not provisioned.
// It is a warning: priming skips the slot and carries on.
type SlotUnavailableError struct {
	Name string
	Err  error
}

func (e *SlotUnavailableError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("slot %q unavailable", e.Name)
	}
	return fmt.Sprintf("slot %q unavailable: %v", e.Name, e.Err)
}

func (e *SlotUnavailableError) Unwrap() error {
	return e.Err
}

// IsUnavailable reports whether err means the slot's storage is missing.
func IsUnavailable(err error) bool {
	var unavailable *SlotUnavailableError
	return errors.As(err, &unavailable) || errors.Is(err, entity.ErrNotProvisioned)
}

func typeString(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
