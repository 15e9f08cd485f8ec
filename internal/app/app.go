// Package app wires configuration, storage, render data and the site server
// into a running service.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/recruitsite/recruit/internal/applications"
	"github.com/recruitsite/recruit/internal/config"
	"github.com/recruitsite/recruit/internal/content"
	"github.com/recruitsite/recruit/internal/entity"
	"github.com/recruitsite/recruit/internal/infrastructure/sqlite"
	"github.com/recruitsite/recruit/internal/log"
	"github.com/recruitsite/recruit/internal/pubsub"
	"github.com/recruitsite/recruit/internal/renderdata"
	"github.com/recruitsite/recruit/internal/tracing"
	"github.com/recruitsite/recruit/internal/watcher"
	"github.com/recruitsite/recruit/internal/web"
)

// shutdownTimeout bounds the graceful HTTP shutdown.
const shutdownTimeout = 10 * time.Second

// App is a configured site, ready to Run.
type App struct {
	cfg config.Config

	db        *sqlite.DB
	signal    *entity.Signal
	store     *sqlite.EntityStore
	apps      *sqlite.ApplicationRepository
	registry  *renderdata.Registry
	refreshes *pubsub.Broker[renderdata.SlotRefresh]
	tracing   *tracing.Provider
	notifier  *applications.TelegramNotifier
	server    *web.Server

	mu          sync.Mutex
	lastRefresh map[string]pubsub.Event[renderdata.SlotRefresh]
}

// New boots the service: tracing, database, render-data registry, optional
// notifications and the HTTP server. Registration and priming errors abort
// start-up.
func New(ctx context.Context, cfg config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	a := &App{
		cfg:         cfg,
		signal:      entity.NewSignal(),
		refreshes:   pubsub.NewBroker[renderdata.SlotRefresh](),
		lastRefresh: make(map[string]pubsub.Event[renderdata.SlotRefresh]),
	}
	if err := a.boot(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) boot(ctx context.Context) error {
	provider, err := tracing.NewProvider(a.cfg.TracingProviderConfig())
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	a.tracing = provider

	db, err := sqlite.NewDBWithOptions(a.cfg.Database.Path, sqlite.Options{
		Migrate: a.cfg.Database.AutoMigrate,
		Backup:  a.cfg.Database.AutoMigrate && a.cfg.Database.BackupBeforeMigrate,
	})
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	a.db = db
	a.store = db.EntityStore(a.signal)
	a.apps = db.ApplicationRepository(a.signal)

	a.registry = renderdata.NewRegistry()
	if err := content.Register(a.registry); err != nil {
		return err
	}
	if err := a.registry.Initialize(ctx, renderdata.Options{
		Reader:   a.store,
		Notifier: a.signal,
		Events:   a.refreshes,
		Tracer:   provider.Tracer(),
	}); err != nil {
		return err
	}

	if a.cfg.Telegram.Enabled {
		notifier, err := applications.NewTelegramNotifier(a.cfg.TelegramNotifierConfig(), provider.Tracer())
		if err != nil {
			return fmt.Errorf("telegram: %w", err)
		}
		notifier.Connect(a.signal)
		a.notifier = notifier
	}

	server, err := web.NewServer(web.ServerConfig{
		Addr:         a.cfg.Server.Addr,
		ReadTimeout:  a.cfg.Server.ReadTimeout,
		WriteTimeout: a.cfg.Server.WriteTimeout,
		Handler: web.HandlerConfig{
			Registry:     a.registry,
			Pages:        a.store,
			Applications: a.apps,
			Signal:       a.signal,
			Tracer:       provider.Tracer(),
			PageTTL:      a.cfg.Cache.PageTTL,
			TemplatesDir: a.cfg.Server.TemplatesDir,
		},
	})
	if err != nil {
		return fmt.Errorf("server: %w", err)
	}
	a.server = server

	log.Info(log.CatConfig, "site ready",
		"database", a.cfg.Database.Path,
		"slots", len(a.registry.Slots()),
		"telegram", a.notifier != nil,
		"tracing", provider.Enabled())
	return nil
}

// Run serves the site until ctx is done or the server fails. When the
// watcher is enabled, writes to the database file by other processes refresh
// every cached slot.
func (a *App) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.trackRefreshes(ctx)
	}()

	if a.cfg.Watcher.Enabled {
		w, err := watcher.New(watcher.Config{DBPath: a.db.Path(), DebounceDur: a.cfg.Watcher.Debounce})
		if err != nil {
			return err
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := w.Run(ctx, a.reloadFromDisk); err != nil {
				log.ErrorErr(log.CatWatcher, "database watcher stopped", err)
			}
		}()
	}

	serveErr := make(chan error, 1)
	go func() { serveErr <- a.server.Start() }()

	var err error
	select {
	case <-ctx.Done():
	case err = <-serveErr:
	}
	cancel()

	shutdownCtx, stop := context.WithTimeout(context.Background(), shutdownTimeout)
	defer stop()
	if stopErr := a.server.Stop(shutdownCtx); stopErr != nil && !errors.Is(stopErr, context.Canceled) {
		err = errors.Join(err, stopErr)
	}
	wg.Wait()
	return err
}

// reloadFromDisk handles a write by another process: cached pages are
// dropped and every cached slot is read again.
func (a *App) reloadFromDisk(ctx context.Context) error {
	return errors.Join(
		a.server.Handler().FlushPages(ctx),
		a.registry.Subscriber().RefreshAll(ctx),
	)
}

// trackRefreshes records the latest refresh outcome of every slot.
func (a *App) trackRefreshes(ctx context.Context) {
	for ev := range a.refreshes.Subscribe(ctx) {
		a.mu.Lock()
		a.lastRefresh[ev.Payload.Slot] = ev
		a.mu.Unlock()
	}
}

// LastRefresh returns the most recent refresh event of slot, if any was
// observed while Run was active.
func (a *App) LastRefresh(slot string) (pubsub.Event[renderdata.SlotRefresh], bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	ev, ok := a.lastRefresh[slot]
	return ev, ok
}

// Registry returns the render-data registry.
func (a *App) Registry() *renderdata.Registry {
	return a.registry
}

// Store returns the content store; its writes refresh render data.
func (a *App) Store() *sqlite.EntityStore {
	return a.store
}

// Port returns the port the site listens on.
func (a *App) Port() int {
	return a.server.Port()
}

// Close releases every resource New acquired.
func (a *App) Close() error {
	var errs []error
	if a.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		errs = append(errs, a.server.Stop(ctx))
		cancel()
	}
	if a.notifier != nil {
		errs = append(errs, a.notifier.Close())
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	if a.tracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		errs = append(errs, a.tracing.Shutdown(ctx))
	}
	a.refreshes.Close()
	return errors.Join(errs...)
}
