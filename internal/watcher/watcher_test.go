package watcher_test

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recruitsite/recruit/internal/watcher"
)

func newDBFile(t *testing.T) string {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "recruit.db")
	require.NoError(t, os.WriteFile(dbPath, []byte("db"), 0644), "failed to create db file")
	return dbPath
}

func startWatcher(t *testing.T, dbPath string) (*watcher.Watcher, <-chan struct{}) {
	t.Helper()
	w, err := watcher.New(watcher.Config{
		DBPath:      dbPath,
		DebounceDur: 50 * time.Millisecond,
	})
	require.NoError(t, err, "failed to create watcher")
	t.Cleanup(func() { _ = w.Stop() })

	onChange, err := w.Start()
	require.NoError(t, err, "failed to start watcher")
	return w, onChange
}

func TestWatcher_DebounceMultipleWrites(t *testing.T) {
	dbPath := newDBFile(t)
	_, onChange := startWatcher(t, dbPath)

	for i := 0; i < 10; i++ {
		err := os.WriteFile(dbPath, []byte(fmt.Sprintf("test%d", i)), 0644)
		require.NoError(t, err, "failed to write file")
		time.Sleep(10 * time.Millisecond)
	}

	select {
	case <-onChange:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected notification but got timeout")
	}

	select {
	case <-onChange:
		t.Fatal("unexpected second notification")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestWatcher_IgnoresIrrelevantFiles(t *testing.T) {
	dbPath := newDBFile(t)
	otherPath := filepath.Join(filepath.Dir(dbPath), "other.txt")
	// Pre-create so the write below is a plain Write event.
	require.NoError(t, os.WriteFile(otherPath, []byte("initial"), 0644))

	_, onChange := startWatcher(t, dbPath)

	require.NoError(t, os.WriteFile(otherPath, []byte("other content"), 0644))

	select {
	case <-onChange:
		t.Fatal("should not notify for unrelated files")
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcher_WatchesWALFile(t *testing.T) {
	dbPath := newDBFile(t)
	_, onChange := startWatcher(t, dbPath)

	require.NoError(t, os.WriteFile(dbPath+"-wal", []byte("wal data"), 0644))

	select {
	case <-onChange:
	case <-time.After(500 * time.Millisecond):
		t.Fatal("expected notification for WAL file write")
	}
}

func TestWatcher_Stop(t *testing.T) {
	w, _ := startWatcher(t, newDBFile(t))

	done := make(chan struct{})
	go func() {
		assert.NoError(t, w.Stop(), "Stop returned error")
		assert.NoError(t, w.Stop(), "second Stop returned error")
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(1 * time.Second):
		t.Fatal("Stop() timed out - possible deadlock")
	}
}

func TestWatcher_RunCallsRefresh(t *testing.T) {
	dbPath := newDBFile(t)
	w, err := watcher.New(watcher.Config{DBPath: dbPath, DebounceDur: 20 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int32
	refreshed := make(chan struct{}, 4)
	done := make(chan error, 1)
	go func() {
		done <- w.Run(ctx, func(context.Context) error {
			calls.Add(1)
			refreshed <- struct{}{}
			return fmt.Errorf("refresh failures are logged")
		})
	}()

	// Give the watcher time to register the directory.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(dbPath, []byte("changed"), 0644))

	select {
	case <-refreshed:
	case <-time.After(time.Second):
		t.Fatal("refresh was not called")
	}

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	require.GreaterOrEqual(t, calls.Load(), int32(1))
}

func TestNew_DefaultsDebounce(t *testing.T) {
	w, err := watcher.New(watcher.Config{DBPath: "/tmp/x.db"})
	require.NoError(t, err)
	require.NoError(t, w.Stop())
}

func TestDefaultConfig(t *testing.T) {
	dbPath := "/test/recruit.db"
	cfg := watcher.DefaultConfig(dbPath)

	assert.Equal(t, dbPath, cfg.DBPath)
	assert.Equal(t, 500*time.Millisecond, cfg.DebounceDur)
}
