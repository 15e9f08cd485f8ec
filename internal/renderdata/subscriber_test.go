package renderdata

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/recruitsite/recruit/internal/entity"
	"github.com/recruitsite/recruit/internal/mocks"
	"github.com/recruitsite/recruit/internal/pubsub"
)

func TestSubscriber_WiresOneReceiverPerCachedType(t *testing.T) {
	f := newSiteFixture(t, true)
	f.initialize(t, Options{})

	require.Equal(t, 1, f.signal.ReceiverCount(siteSettingsType))
	require.Equal(t, 1, f.signal.ReceiverCount(faqPointType))
	require.Equal(t, 0, f.signal.ReceiverCount(pageType), "required slots are never cached")
}

func TestSubscriber_CollectionWriteRefreshesSlot(t *testing.T) {
	f := newSiteFixture(t, false)
	f.initialize(t, Options{})
	store := f.registry.Store()

	f.save(t, &FAQPoint{Question: "Q3", Answer: "A3"})

	got, err := store.Get(context.Background(), "faq_points")
	require.NoError(t, err)
	require.Len(t, got, 3)
}

func TestSubscriber_SingletonWriteIsVisibleImmediately(t *testing.T) {
	f := newSiteFixture(t, false)
	f.initialize(t, Options{})
	store := f.registry.Store()

	for i := 0; i < 5; i++ {
		updated := &SiteSettings{Title: "v" + string(rune('0'+i))}
		f.save(t, updated)

		got, err := store.Get(context.Background(), "site_settings")
		require.NoError(t, err)
		require.Same(t, updated, got)
	}
}

func TestSubscriber_FailedRefreshKeepsStaleValue(t *testing.T) {
	f := newSiteFixture(t, false)
	events := pubsub.NewBroker[SlotRefresh]()
	defer events.Close()
	sub := events.Subscribe(context.Background())

	f.initialize(t, Options{Events: events})

	f.reader.fail(faqPointType, errors.New("database is locked"))

	// The writer never sees the refresh failure.
	n, err := f.signal.Send(context.Background(), faqPointType, entity.SavedEvent{Type: faqPointType})
	require.NoError(t, err)
	require.Equal(t, 1, n)

	got, err := f.registry.Store().Get(context.Background(), "faq_points")
	require.NoError(t, err)
	require.ElementsMatch(t, []any{f.q1, f.q2}, got)

	select {
	case ev := <-sub:
		require.Equal(t, pubsub.FailedEvent, ev.Type)
		require.Equal(t, "faq_points", ev.Payload.Slot)
		require.Equal(t, "FAQPoint", ev.Payload.EntityType)
		require.Contains(t, ev.Payload.Err, "database is locked")
	case <-time.After(time.Second):
		t.Fatal("no refresh event published")
	}

	err = f.registry.Subscriber().Refresh(context.Background(), "faq_points")
	require.ErrorContains(t, err, "database is locked")

	f.reader.fail(faqPointType, nil)
	require.NoError(t, f.registry.Subscriber().Refresh(context.Background(), "faq_points"))
}

func TestSubscriber_PublishesUpdatedEvent(t *testing.T) {
	f := newSiteFixture(t, false)
	events := pubsub.NewBroker[SlotRefresh]()
	defer events.Close()
	sub := events.Subscribe(context.Background())

	f.initialize(t, Options{Events: events})
	f.save(t, &FAQPoint{Question: "Q3"})

	select {
	case ev := <-sub:
		require.Equal(t, pubsub.UpdatedEvent, ev.Type)
		require.Equal(t, "faq_points", ev.Payload.Slot)
		require.Equal(t, 3, ev.Payload.Size)
		require.Empty(t, ev.Payload.Err)
	case <-time.After(time.Second):
		t.Fatal("no refresh event published")
	}
}

func TestSubscriber_IgnoresUnregisteredTypes(t *testing.T) {
	f := newSiteFixture(t, false)
	f.initialize(t, Options{})
	reads := f.reader.readCount(faqPointType)

	branchType := reflect.TypeOf(&RecruitersBranch{})
	f.registry.Subscriber().HandleWrite(context.Background(), entity.SavedEvent{Type: branchType})

	require.Equal(t, reads, f.reader.readCount(faqPointType))
	require.Zero(t, f.reader.readCount(branchType))
}

func TestSubscriber_RefreshUnknownSlot(t *testing.T) {
	f := newSiteFixture(t, true)
	f.initialize(t, Options{})

	err := f.registry.Subscriber().Refresh(context.Background(), "page")
	var unknown *UnknownSlotError
	require.ErrorAs(t, err, &unknown)

	_, ok := f.registry.Subscriber().State("page")
	require.False(t, ok)
}

func TestSubscriber_StateDuringRefresh(t *testing.T) {
	reader := mocks.NewMockReader(t)
	entered := make(chan struct{})
	release := make(chan struct{})

	reader.EXPECT().FetchCollection(mock.Anything, faqPointType).Return([]any{}, nil).Once()
	reader.EXPECT().FetchCollection(mock.Anything, faqPointType).
		RunAndReturn(func(ctx context.Context, t reflect.Type) ([]any, error) {
			close(entered)
			<-release
			return []any{&FAQPoint{Question: "Q1"}}, nil
		}).Once()

	reg := NewRegistry()
	require.NoError(t, Register[*FAQPoint](reg))
	require.NoError(t, reg.Initialize(context.Background(), Options{Reader: reader}))
	sub := reg.Subscriber()

	state, ok := sub.State("faq_points")
	require.True(t, ok)
	require.Equal(t, StateIdle, state)

	done := make(chan error, 1)
	go func() { done <- sub.Refresh(context.Background(), "faq_points") }()

	<-entered
	state, _ = sub.State("faq_points")
	require.Equal(t, StateRefreshing, state)
	require.Equal(t, "refreshing", state.String())

	close(release)
	require.NoError(t, <-done)

	state, _ = sub.State("faq_points")
	require.Equal(t, StateIdle, state)
}

func TestSubscriber_RefreshAllJoinsFailures(t *testing.T) {
	f := newSiteFixture(t, false)
	f.initialize(t, Options{})

	f.reader.fail(siteSettingsType, errors.New("settings gone"))
	f.reader.fail(faqPointType, errors.New("faq gone"))

	err := f.registry.Subscriber().RefreshAll(context.Background())
	require.ErrorContains(t, err, "settings gone")
	require.ErrorContains(t, err, "faq gone")
}

func TestSubscriber_RecordsSpans(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	f := newSiteFixture(t, false)
	f.initialize(t, Options{Tracer: provider.Tracer("test")})
	f.save(t, &FAQPoint{Question: "Q3"})

	var names []string
	for _, span := range recorder.Ended() {
		names = append(names, span.Name())
	}
	require.Contains(t, names, "renderdata.prime")
	require.Contains(t, names, "renderdata.refresh.faq_points")
}
