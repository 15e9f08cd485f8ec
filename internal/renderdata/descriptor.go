package renderdata

import (
	"fmt"
	"reflect"

	"github.com/recruitsite/recruit/internal/casing"
	"github.com/recruitsite/recruit/internal/entity"
)

// Kind is how a slot gets its value.
type Kind int

const (
	// KindSingleton holds the one stored instance of a singleton entity.
	KindSingleton Kind = iota
	// KindCollection holds every stored instance of an entity type.
	KindCollection
	// KindRequired is supplied by the caller on each Build.
	KindRequired
)

func (k Kind) String() string {
	switch k {
	case KindSingleton:
		return "singleton"
	case KindCollection:
		return "collection"
	case KindRequired:
		return "required"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Cached reports whether slots of this kind live in the SnapshotStore.
func (k Kind) Cached() bool {
	return k == KindSingleton || k == KindCollection
}

// Descriptor is the static metadata of one slot.
type Descriptor struct {
	Name       string
	Kind       Kind
	EntityType reflect.Type
}

// NewDescriptor derives the slot name for t once and returns the descriptor.
func NewDescriptor(t reflect.Type, kind Kind) Descriptor {
	return Descriptor{
		Name:       SlotName(t, kind),
		Kind:       kind,
		EntityType: t,
	}
}

// SlotName is the render-context attribute name for entity type t:
// the snake_case type name, pluralised for collections.
//
//	*FAQPoint, KindCollection -> faq_points
//	*SiteSettings, KindSingleton -> site_settings
func SlotName(t reflect.Type, kind Kind) string {
	name := casing.CamelToSnake(entity.Name(t))
	if kind == KindCollection {
		return casing.Plural(name)
	}
	return name
}

func (d Descriptor) String() string {
	return fmt.Sprintf("%s(%s %s)", d.Name, d.Kind, entity.Name(d.EntityType))
}
