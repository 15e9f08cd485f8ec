package renderdata

import (
	"context"
	"errors"
	"slices"
	"sort"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestFactory_BuildBeforeInitialize(t *testing.T) {
	f := newSiteFixture(t, false)

	_, err := NewFactory(f.registry).Build(context.Background(), nil)
	require.ErrorIs(t, err, ErrNotInitialized)
}

func TestFactory_SiteScenario(t *testing.T) {
	f := newSiteFixture(t, false)
	f.initialize(t, Options{})
	factory := NewFactory(f.registry)

	rc, err := factory.Build(context.Background(), map[string]any{})
	require.NoError(t, err)
	require.Equal(t, []string{"faq_points", "site_settings"}, rc.Names())

	settings, ok := Lookup[*SiteSettings](rc, "site_settings")
	require.True(t, ok)
	require.Same(t, f.settings, settings)
	require.ElementsMatch(t, []*FAQPoint{f.q1, f.q2}, List[*FAQPoint](rc, "faq_points"))

	f.save(t, &FAQPoint{Question: "Q3", Answer: "A3"})

	next, err := factory.Build(context.Background(), map[string]any{})
	require.NoError(t, err)

	var questions []string
	for _, faq := range List[*FAQPoint](next, "faq_points") {
		questions = append(questions, faq.Question)
	}
	sort.Strings(questions)
	require.Equal(t, []string{"Q1", "Q2", "Q3"}, questions)

	require.Len(t, List[*FAQPoint](rc, "faq_points"), 2, "earlier contexts keep their snapshot")
}

func TestFactory_WritesToContextDoNotReachLaterRequests(t *testing.T) {
	f := newSiteFixture(t, false)
	f.initialize(t, Options{})
	factory := NewFactory(f.registry)
	ctx := context.Background()

	rc, err := factory.Build(ctx, map[string]any{})
	require.NoError(t, err)
	rc.Value("faq_points").([]any)[0] = &FAQPoint{Question: "overwritten"}
	rc.Attrs()["faq_points"].([]any)[1] = nil

	next, err := factory.Build(ctx, map[string]any{})
	require.NoError(t, err)
	require.ElementsMatch(t, []*FAQPoint{f.q1, f.q2}, List[*FAQPoint](next, "faq_points"))

	stored, err := f.registry.Store().Get(ctx, "faq_points")
	require.NoError(t, err)
	stored.([]any)[0] = nil
	again, err := f.registry.Store().Get(ctx, "faq_points")
	require.NoError(t, err)
	require.ElementsMatch(t, []any{f.q1, f.q2}, again)
}

func TestFactory_RequiredPageScenario(t *testing.T) {
	f := newSiteFixture(t, true)
	f.initialize(t, Options{})
	factory := NewFactory(f.registry)
	ctx := context.Background()

	_, err := factory.Build(ctx, map[string]any{})
	var missing *MissingRequiredSlotsError
	require.ErrorAs(t, err, &missing)
	require.Equal(t, []string{"page"}, missing.Names)

	index := &Page{FileName: "index.html"}
	rc, err := factory.Build(ctx, map[string]any{"page": index})
	require.NoError(t, err)
	got, ok := Lookup[*Page](rc, "page")
	require.True(t, ok)
	require.Same(t, index, got)

	_, err = factory.Build(ctx, map[string]any{"page": &FAQPoint{}})
	var mismatch *TypeMismatchError
	require.ErrorAs(t, err, &mismatch)
	require.Equal(t, "page", mismatch.Slot)
	require.Equal(t, pageType, mismatch.Expected)
	require.Equal(t, faqPointType, mismatch.Actual)

	_, err = factory.Build(ctx, map[string]any{"page": nil})
	require.ErrorAs(t, err, &mismatch, "nil is not a page")
	require.EqualError(t, err, `slot "page": expected *renderdata.Page, got <nil>`)
}

func TestFactory_UnexpectedSlots(t *testing.T) {
	f := newSiteFixture(t, true)
	f.initialize(t, Options{})
	factory := NewFactory(f.registry)

	_, err := factory.Build(context.Background(), map[string]any{"page": &Page{}, "extra": 1})
	var unexpected *UnexpectedSlotsError
	require.ErrorAs(t, err, &unexpected)
	require.Equal(t, []string{"extra"}, unexpected.Names)

	_, err = factory.Build(context.Background(), map[string]any{"page": &Page{}, "site_settings": &SiteSettings{}})
	require.ErrorAs(t, err, &unexpected, "cached slots cannot be overridden by the caller")
	require.Equal(t, []string{"site_settings"}, unexpected.Names)
}

func TestFactory_MissingBeforeUnexpected(t *testing.T) {
	f := newSiteFixture(t, true)
	f.initialize(t, Options{})

	_, err := NewFactory(f.registry).Build(context.Background(), map[string]any{"extra": 1})
	var missing *MissingRequiredSlotsError
	require.ErrorAs(t, err, &missing)
	require.EqualError(t, err, "missing required slots: page")
}

func TestFactory_AttributesEqualRegisteredSlots(t *testing.T) {
	f := newSiteFixture(t, true)
	f.reader.fail(siteSettingsType, errNotProvisioned)
	f.initialize(t, Options{})

	rc, err := NewFactory(f.registry).Build(context.Background(), map[string]any{"page": &Page{}})
	require.NoError(t, err)

	var registered []string
	for _, d := range f.registry.All() {
		registered = append(registered, d.Name)
	}
	if diff := cmp.Diff(registered, rc.Names()); diff != "" {
		t.Fatalf("attribute names (-registered +context):\n%s", diff)
	}

	v, ok := rc.Get("site_settings")
	require.True(t, ok, "unavailable slots still appear")
	require.Nil(t, v)
}

func TestFactory_ValidationProperty(t *testing.T) {
	f := newSiteFixture(t, false)
	for _, name := range []string{"page", "vacancy", "region"} {
		require.NoError(t, f.registry.RegisterRequired(Descriptor{Name: name, Kind: KindRequired, EntityType: pageType}))
	}
	f.initialize(t, Options{})
	factory := NewFactory(f.registry)
	expected := []string{"page", "region", "vacancy"}

	rapid.Check(t, func(t *rapid.T) {
		keys := rapid.SliceOfDistinct(
			rapid.SampledFrom([]string{"page", "vacancy", "region", "extra", "faq_points", "other"}),
			rapid.ID[string],
		).Draw(t, "keys")

		provided := make(map[string]any, len(keys))
		for _, k := range keys {
			provided[k] = &Page{FileName: k}
		}

		var missing, unexpected []string
		for _, name := range expected {
			if _, ok := provided[name]; !ok {
				missing = append(missing, name)
			}
		}
		for _, k := range keys {
			if !slices.Contains(expected, k) {
				unexpected = append(unexpected, k)
			}
		}
		sort.Strings(unexpected)

		rc, err := factory.Build(context.Background(), provided)

		var missingErr *MissingRequiredSlotsError
		var unexpectedErr *UnexpectedSlotsError
		switch {
		case len(missing) > 0:
			if !errors.As(err, &missingErr) || !slices.Equal(missing, missingErr.Names) {
				t.Fatalf("want missing %v, got %v", missing, err)
			}
		case len(unexpected) > 0:
			if !errors.As(err, &unexpectedErr) || !slices.Equal(unexpected, unexpectedErr.Names) {
				t.Fatalf("want unexpected %v, got %v", unexpected, err)
			}
		default:
			if err != nil {
				t.Fatalf("build: %v", err)
			}
			if rc.Len() != 5 {
				t.Fatalf("context has %d slots, want 5", rc.Len())
			}
			for _, name := range expected {
				if rc.Value(name) != provided[name] {
					t.Fatalf("slot %q not passed through", name)
				}
			}
		}
	})
}
