package renderdata

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/recruitsite/recruit/internal/entity"
	"github.com/recruitsite/recruit/internal/mocks"
)

type otherFAQ struct{}

func TestRegister_PicksKindFromSingletonMarker(t *testing.T) {
	reg := NewRegistry()
	require.NoError(t, Register[*SiteSettings](reg))
	require.NoError(t, Register[*FAQPoint](reg))
	require.NoError(t, Require[*Page](reg))

	d, ok := reg.Lookup("site_settings")
	require.True(t, ok)
	require.Equal(t, KindSingleton, d.Kind)

	d, ok = reg.Lookup("faq_points")
	require.True(t, ok)
	require.Equal(t, KindCollection, d.Kind)

	d, ok = reg.Lookup("page")
	require.True(t, ok)
	require.Equal(t, KindRequired, d.Kind)
	require.Equal(t, pageType, d.EntityType)

	_, ok = reg.Lookup("faq_point")
	require.False(t, ok)

	names := func(ds []Descriptor) []string {
		out := make([]string, 0, len(ds))
		for _, d := range ds {
			out = append(out, d.Name)
		}
		return out
	}
	require.Equal(t, []string{"faq_points", "site_settings"}, names(reg.Slots()))
	require.Equal(t, []string{"page"}, names(reg.RequiredSlots()))
	require.Equal(t, []string{"faq_points", "page", "site_settings"}, names(reg.All()))
}

func TestRegister_DuplicateSlot(t *testing.T) {
	tests := []struct {
		name     string
		register func(reg *Registry) error
	}{
		{
			name: "same cached name, different type",
			register: func(reg *Registry) error {
				return reg.RegisterSingletonOrCollection(Descriptor{Name: "faq_points", Kind: KindCollection, EntityType: typeOf(&otherFAQ{})})
			},
		},
		{
			name: "required name collides with cached name",
			register: func(reg *Registry) error {
				return reg.RegisterRequired(Descriptor{Name: "site_settings", Kind: KindRequired, EntityType: pageType})
			},
		},
		{
			name: "cached name collides with required name",
			register: func(reg *Registry) error {
				return reg.RegisterSingletonOrCollection(Descriptor{Name: "page", Kind: KindCollection, EntityType: typeOf(&otherFAQ{})})
			},
		},
		{
			name: "same type registered twice",
			register: func(reg *Registry) error {
				return Register[*FAQPoint](reg)
			},
		},
		{
			name: "same type under another name",
			register: func(reg *Registry) error {
				return reg.RegisterSingletonOrCollection(Descriptor{Name: "questions", Kind: KindCollection, EntityType: faqPointType})
			},
		},
		{
			name: "required twice",
			register: func(reg *Registry) error {
				return Require[*Page](reg)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			require.NoError(t, Register[*SiteSettings](reg))
			require.NoError(t, Register[*FAQPoint](reg))
			require.NoError(t, Require[*Page](reg))

			err := tt.register(reg)
			var dup *DuplicateSlotError
			require.ErrorAs(t, err, &dup)
			require.Len(t, reg.All(), 3, "failed registration must not change the registry")
		})
	}
}

func TestRegister_InvalidKind(t *testing.T) {
	tests := []struct {
		name     string
		register func(reg *Registry) error
	}{
		{
			name: "singleton entity as required",
			register: func(reg *Registry) error {
				return Require[*SiteSettings](reg)
			},
		},
		{
			name: "collection descriptor through RegisterRequired",
			register: func(reg *Registry) error {
				return reg.RegisterRequired(NewDescriptor(pageType, KindCollection))
			},
		},
		{
			name: "required descriptor through RegisterSingletonOrCollection",
			register: func(reg *Registry) error {
				return reg.RegisterSingletonOrCollection(NewDescriptor(pageType, KindRequired))
			},
		},
		{
			name: "singleton kind for non-singleton entity",
			register: func(reg *Registry) error {
				return reg.RegisterSingletonOrCollection(NewDescriptor(faqPointType, KindSingleton))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reg := NewRegistry()
			err := tt.register(reg)

			var invalid *InvalidKindError
			require.ErrorAs(t, err, &invalid)
			require.Empty(t, reg.All())
		})
	}
}

func TestRegister_InvalidDescriptor(t *testing.T) {
	reg := NewRegistry()

	err := reg.RegisterSingletonOrCollection(Descriptor{Name: "faq_points", Kind: KindCollection})
	require.ErrorIs(t, err, ErrInvalidDescriptor)

	err = reg.RegisterRequired(Descriptor{Kind: KindRequired, EntityType: pageType})
	require.ErrorIs(t, err, ErrInvalidDescriptor)
}

func TestRegistry_FrozenAfterInitialize(t *testing.T) {
	f := newSiteFixture(t, false)
	f.initialize(t, Options{})
	require.True(t, f.registry.Initialized())

	err := Register[*RecruitersBranch](f.registry)
	require.ErrorIs(t, err, ErrAlreadyInitialized)

	err = Require[*Page](f.registry)
	require.ErrorIs(t, err, ErrAlreadyInitialized)

	err = f.registry.Initialize(context.Background(), Options{Reader: f.reader})
	require.ErrorIs(t, err, ErrAlreadyInitialized)

	_, ok := f.registry.Lookup("recruiters_branchs")
	require.False(t, ok)
}

func TestRegistry_InitializeNeedsReader(t *testing.T) {
	reg := NewRegistry()
	err := reg.Initialize(context.Background(), Options{})
	require.ErrorIs(t, err, ErrNoReader)
	require.False(t, reg.Initialized())
	require.Nil(t, reg.Store())
	require.Nil(t, reg.Subscriber())
}

func TestRegistry_InitializeAbortsOnReadFailure(t *testing.T) {
	reader := mocks.NewMockReader(t)
	reader.EXPECT().FetchCollection(mock.Anything, faqPointType).Return(nil, errors.New("disk I/O error"))

	reg := NewRegistry()
	require.NoError(t, Register[*FAQPoint](reg))

	err := reg.Initialize(context.Background(), Options{Reader: reader})
	require.ErrorContains(t, err, "disk I/O error")
	require.False(t, reg.Initialized())

	// Registration is still open after a failed start.
	require.NoError(t, Register[*RecruitersBranch](reg))
}

func TestRegistry_InitializeSkipsUnprovisionedSlots(t *testing.T) {
	reader := mocks.NewMockReader(t)
	reader.EXPECT().FetchSingleton(mock.Anything, siteSettingsType).
		Return(nil, fmt.Errorf("query site_settings: %w", entity.ErrNotProvisioned))
	reader.EXPECT().FetchCollection(mock.Anything, faqPointType).
		Return([]any{&FAQPoint{Question: "Q1"}}, nil)

	reg := NewRegistry()
	require.NoError(t, Register[*SiteSettings](reg))
	require.NoError(t, Register[*FAQPoint](reg))

	require.NoError(t, reg.Initialize(context.Background(), Options{Reader: reader}))

	_, err := reg.Store().Get(context.Background(), "site_settings")
	var unavailable *SlotUnavailableError
	require.ErrorAs(t, err, &unavailable)
	require.Equal(t, "site_settings", unavailable.Name)

	faqs, err := reg.Store().Get(context.Background(), "faq_points")
	require.NoError(t, err)
	require.Len(t, faqs, 1)
}

func TestRegister_DerivedNamesNeverCollideSilently(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		names := rapid.SliceOfN(rapid.SampledFrom([]string{"a", "b", "c", "d", "e"}), 1, 12).Draw(t, "names")
		required := rapid.SliceOfN(rapid.Bool(), len(names), len(names)).Draw(t, "required")

		reg := NewRegistry()
		seen := make(map[string]bool)
		for i, name := range names {
			var err error
			if required[i] {
				err = reg.RegisterRequired(Descriptor{Name: name, Kind: KindRequired, EntityType: pageType})
			} else {
				// Distinct entity types so only the name can collide.
				err = reg.RegisterSingletonOrCollection(Descriptor{Name: name, Kind: KindCollection, EntityType: distinctTypes[i]})
			}

			var dup *DuplicateSlotError
			if seen[name] {
				if !errors.As(err, &dup) {
					t.Fatalf("registering %q twice: got %v, want DuplicateSlotError", name, err)
				}
				continue
			}
			if err != nil {
				t.Fatalf("registering %q: %v", name, err)
			}
			seen[name] = true
		}
		if len(reg.All()) != len(seen) {
			t.Fatalf("registry holds %d slots, want %d", len(reg.All()), len(seen))
		}
	})
}

var distinctTypes = []reflect.Type{
	typeOf(new(int8)), typeOf(new(int16)), typeOf(new(int32)), typeOf(new(int64)),
	typeOf(new(uint8)), typeOf(new(uint16)), typeOf(new(uint32)), typeOf(new(uint64)),
	typeOf(new(float32)), typeOf(new(float64)), typeOf(new(string)), typeOf(new(bool)),
}
