package renderdata

import (
	"context"
	"fmt"
	"reflect"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/recruitsite/recruit/internal/entity"
)

type SiteSettings struct {
	Title string
}

func (*SiteSettings) SingletonID() int64 { return 1 }

type FAQPoint struct {
	Question string
	Answer   string
}

type Page struct {
	FileName string
}

type RecruitersBranch struct {
	Address string
}

var (
	siteSettingsType = entity.TypeOf[*SiteSettings]()
	faqPointType     = entity.TypeOf[*FAQPoint]()
	pageType         = entity.TypeOf[*Page]()
)

// memReader is an in-memory entity.Reader.
type memReader struct {
	mu          sync.Mutex
	singletons  map[reflect.Type]any
	collections map[reflect.Type][]any
	errs        map[reflect.Type]error
	reads       map[reflect.Type]int
}

func newMemReader() *memReader {
	return &memReader{
		singletons:  make(map[reflect.Type]any),
		collections: make(map[reflect.Type][]any),
		errs:        make(map[reflect.Type]error),
		reads:       make(map[reflect.Type]int),
	}
}

func (m *memReader) FetchSingleton(ctx context.Context, t reflect.Type) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads[t]++
	if err := m.errs[t]; err != nil {
		return nil, err
	}
	v, ok := m.singletons[t]
	if !ok {
		return nil, fmt.Errorf("%s: %w", t, entity.ErrNotFound)
	}
	return v, nil
}

func (m *memReader) FetchCollection(ctx context.Context, t reflect.Type) ([]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reads[t]++
	if err := m.errs[t]; err != nil {
		return nil, err
	}
	items := m.collections[t]
	out := make([]any, len(items))
	copy(out, items)
	return out, nil
}

func (m *memReader) setSingleton(v any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.singletons[reflect.TypeOf(v)] = v
}

func (m *memReader) add(items ...any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, item := range items {
		t := reflect.TypeOf(item)
		m.collections[t] = append(m.collections[t], item)
	}
}

func (m *memReader) fail(t reflect.Type, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err == nil {
		delete(m.errs, t)
		return
	}
	m.errs[t] = err
}

func (m *memReader) readCount(t reflect.Type) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reads[t]
}

// siteFixture registers site_settings and faq_points with two stored rows.
type siteFixture struct {
	reader   *memReader
	signal   *entity.Signal
	registry *Registry
	settings *SiteSettings
	q1, q2   *FAQPoint
}

func newSiteFixture(t *testing.T, required bool) *siteFixture {
	t.Helper()

	f := &siteFixture{
		reader:   newMemReader(),
		signal:   entity.NewSignal(),
		registry: NewRegistry(),
		settings: &SiteSettings{Title: "Recruitment"},
		q1:       &FAQPoint{Question: "Q1", Answer: "A1"},
		q2:       &FAQPoint{Question: "Q2", Answer: "A2"},
	}
	f.reader.setSingleton(f.settings)
	f.reader.add(f.q1, f.q2)

	require.NoError(t, Register[*SiteSettings](f.registry))
	require.NoError(t, Register[*FAQPoint](f.registry))
	if required {
		require.NoError(t, Require[*Page](f.registry))
	}
	return f
}

func (f *siteFixture) initialize(t *testing.T, opts Options) {
	t.Helper()
	if opts.Reader == nil {
		opts.Reader = f.reader
	}
	if opts.Notifier == nil {
		opts.Notifier = f.signal
	}
	require.NoError(t, f.registry.Initialize(context.Background(), opts))
}

// save stores v and sends the write event the storage layer would send.
func (f *siteFixture) save(t *testing.T, v any) {
	t.Helper()
	if entity.IsSingleton(reflect.TypeOf(v)) {
		f.reader.setSingleton(v)
	} else {
		f.reader.add(v)
	}
	_, err := f.signal.Send(context.Background(), reflect.TypeOf(v), entity.SavedEvent{
		Type:     reflect.TypeOf(v),
		Instance: v,
	})
	require.NoError(t, err)
}

var errNotProvisioned = fmt.Errorf("no such table: %w", entity.ErrNotProvisioned)
