package presentation

import (
	"context"
	"errors"
	"reflect"

	"github.com/recruitsite/recruit/internal/entity"
	"github.com/recruitsite/recruit/internal/renderdata"
)

// Slot availability values.
const (
	StatusCached      = "cached"
	StatusUnavailable = "unavailable"
	StatusPerRequest  = "per_request"
)

// SlotDTO represents a render-data slot for presentation
type SlotDTO struct {
	Name       string `json:"name" yaml:"name"`
	Kind       string `json:"kind" yaml:"kind"`
	EntityType string `json:"entity_type" yaml:"entity_type"`
	Status     string `json:"status" yaml:"status"`
	Size       *int   `json:"size,omitempty" yaml:"size,omitempty"` // items in a collection slot
}

// FromDescriptor converts a slot descriptor to a DTO. When store is non-nil
// the cached value decides the status and size.
func FromDescriptor(ctx context.Context, d renderdata.Descriptor, store *renderdata.SnapshotStore) SlotDTO {
	dto := SlotDTO{
		Name:       d.Name,
		Kind:       d.Kind.String(),
		EntityType: entity.Name(d.EntityType),
		Status:     StatusPerRequest,
	}
	if !d.Kind.Cached() || store == nil {
		return dto
	}

	value, err := store.Get(ctx, d.Name)
	var unavailable *renderdata.SlotUnavailableError
	if errors.As(err, &unavailable) {
		dto.Status = StatusUnavailable
		return dto
	}
	dto.Status = StatusCached
	if items, ok := value.([]any); ok {
		n := len(items)
		dto.Size = &n
	}
	return dto
}

// FromRegistry converts every slot of reg to DTOs, ordered by name.
func FromRegistry(ctx context.Context, reg *renderdata.Registry) []SlotDTO {
	slots := reg.All()
	dtos := make([]SlotDTO, len(slots))
	for i, d := range slots {
		dtos[i] = FromDescriptor(ctx, d, reg.Store())
	}
	return dtos
}

// ContentResultDTO reports a content change made from the command line
type ContentResultDTO struct {
	Action string `json:"action" yaml:"action"`
	Entity string `json:"entity" yaml:"entity"`
	ID     int64  `json:"id,omitempty" yaml:"id,omitempty"`
}

// FromSaved converts a saved content entity to a result DTO.
func FromSaved(action string, v any, id int64) ContentResultDTO {
	return ContentResultDTO{Action: action, Entity: entity.Name(reflect.TypeOf(v)), ID: id}
}
