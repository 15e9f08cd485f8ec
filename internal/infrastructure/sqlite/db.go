// Package sqlite stores site content and applications in a SQLite database
// and implements the entity reader used to prime the render-data cache.
package sqlite

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/ncruces/go-sqlite3/driver"
	_ "github.com/ncruces/go-sqlite3/embed"

	"github.com/recruitsite/recruit/internal/entity"
	"github.com/recruitsite/recruit/internal/log"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DB is an open site database.
type DB struct {
	conn *sql.DB
	path string
}

// Options controls how NewDBWithOptions prepares the database.
type Options struct {
	// Migrate applies pending migrations after opening.
	Migrate bool

	// Backup copies an existing file to path+".bak" before it is opened.
	Backup bool
}

// NewDB opens the database at path, creating its directory (0700) and file as
// needed, and applies pending migrations. An existing file is copied to
// path+".bak" before migrating.
func NewDB(path string) (*DB, error) {
	return NewDBWithOptions(path, Options{Migrate: true, Backup: true})
}

// NewDBWithOptions opens the database at path, creating its directory as
// needed, and migrates it as opts asks.
func NewDBWithOptions(path string, opts Options) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}
	if opts.Backup {
		if _, err := os.Stat(path); err == nil {
			if err := backup(path, path+".bak"); err != nil {
				return nil, fmt.Errorf("backup database: %w", err)
			}
		}
	}

	db, err := OpenDB(path)
	if err != nil {
		return nil, err
	}
	if !opts.Migrate {
		return db, nil
	}
	if err := db.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// OpenDB opens the database at path without migrating it.
func OpenDB(path string) (*DB, error) {
	dsn := "file:" + path +
		"?_pragma=busy_timeout(5000)" +
		"&_pragma=foreign_keys(1)" +
		"&_pragma=journal_mode(wal)"

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := conn.Ping(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	log.Debug(log.CatDB, "database opened", "path", path)
	return &DB{conn: conn, path: path}, nil
}

// Migrate applies every pending migration.
func (db *DB) Migrate() error {
	version, err := db.migrate(func(m *migrate.Migrate) error { return m.Up() })
	if err != nil {
		return err
	}
	log.Info(log.CatDB, "database migrated", "path", db.path, "version", version)
	return nil
}

// Rollback reverts the most recent migration.
func (db *DB) Rollback() error {
	_, err := db.migrate(func(m *migrate.Migrate) error { return m.Steps(-1) })
	return err
}

// Version returns the applied schema version; 0 means no migration ran yet.
func (db *DB) Version() (uint, bool, error) {
	var (
		version uint
		dirty   bool
	)
	_, err := db.migrate(func(m *migrate.Migrate) error {
		var err error
		version, dirty, err = m.Version()
		if errors.Is(err, migrate.ErrNilVersion) {
			return nil
		}
		return err
	})
	return version, dirty, err
}

func (db *DB) migrate(step func(*migrate.Migrate) error) (uint, error) {
	source, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return 0, fmt.Errorf("load migrations: %w", err)
	}
	driver, err := migratesqlite.WithInstance(db.conn, &migratesqlite.Config{})
	if err != nil {
		return 0, fmt.Errorf("migration driver: %w", err)
	}
	// m.Close would close db.conn, so it is never called.
	m, err := migrate.NewWithInstance("iofs", source, "sqlite", driver)
	if err != nil {
		return 0, fmt.Errorf("init migrations: %w", err)
	}
	if err := step(m); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("run migrations: %w", err)
	}
	version, _, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return 0, fmt.Errorf("read migration version: %w", err)
	}
	return version, nil
}

// Close closes the connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Conn returns the underlying connection.
func (db *DB) Conn() *sql.DB {
	return db.conn
}

// Path returns the database file path.
func (db *DB) Path() string {
	return db.path
}

// EntityStore returns the content store. Writes are announced on signal.
func (db *DB) EntityStore(signal *entity.Signal) *EntityStore {
	return newEntityStore(db.conn, signal)
}

// ReadOnlyEntityStore returns a content store that never writes: missing
// singleton rows read as their defaults and Save and Delete fail with
// ErrReadOnly.
func (db *DB) ReadOnlyEntityStore() *EntityStore {
	store := newEntityStore(db.conn, nil)
	store.readOnly = true
	return store
}

// ApplicationRepository returns the applications repository. Saves are
// announced on signal.
func (db *DB) ApplicationRepository(signal *entity.Signal) *ApplicationRepository {
	return newApplicationRepository(db.conn, signal)
}

func backup(src, dst string) error {
	in, err := os.Open(src) // #nosec G304 -- path comes from configuration
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600) // #nosec G304 -- derived from configured path
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// mapError turns a missing-table error into entity.ErrNotProvisioned.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "no such table") {
		return fmt.Errorf("%w: %v", entity.ErrNotProvisioned, err)
	}
	return err
}
