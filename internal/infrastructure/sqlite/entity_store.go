package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"reflect"

	"github.com/recruitsite/recruit/internal/content"
	"github.com/recruitsite/recruit/internal/entity"
	"github.com/recruitsite/recruit/internal/log"
)

var (
	// ErrUnknownEntity is returned for types that have no content table.
	ErrUnknownEntity = errors.New("no table for entity type")

	// ErrReadOnly is returned by writes on a read-only store.
	ErrReadOnly = errors.New("entity store is read-only")
)

// EntityStore reads and writes content entities.
// Every successful write is announced on the signal after it commits.
type EntityStore struct {
	db       *sql.DB
	signal   *entity.Signal
	readOnly bool
}

var _ entity.Reader = (*EntityStore)(nil)

func newEntityStore(db *sql.DB, signal *entity.Signal) *EntityStore {
	if signal == nil {
		signal = entity.NewSignal()
	}
	return &EntityStore{db: db, signal: signal}
}

func tableFor(t reflect.Type) (*table, error) {
	tbl, ok := contentTables[t]
	if !ok {
		return nil, fmt.Errorf("%w: %v", ErrUnknownEntity, t)
	}
	return tbl, nil
}

// FetchSingleton returns the singleton row for t, creating a default row when
// it is missing. A read-only store returns the default value without
// creating the row.
func (s *EntityStore) FetchSingleton(ctx context.Context, t reflect.Type) (any, error) {
	tbl, err := tableFor(t)
	if err != nil {
		return nil, err
	}
	if !tbl.singleton {
		return nil, fmt.Errorf("%s is not a singleton entity", entity.Name(t))
	}

	if !s.readOnly {
		if _, err := s.db.ExecContext(ctx, "INSERT OR IGNORE INTO "+tbl.name+" (id) VALUES (?)", content.SingletonID); err != nil {
			return nil, fmt.Errorf("create %s: %w", tbl.name, mapError(err))
		}
	}
	row := s.db.QueryRowContext(ctx, tbl.selectSQL()+" WHERE id = ?", content.SingletonID)
	v, err := tbl.scan(row)
	if s.readOnly && errors.Is(err, sql.ErrNoRows) {
		return tbl.newValue(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", tbl.name, mapError(err))
	}
	return v, nil
}

// FetchCollection returns every row of t in display order.
func (s *EntityStore) FetchCollection(ctx context.Context, t reflect.Type) ([]any, error) {
	tbl, err := tableFor(t)
	if err != nil {
		return nil, err
	}

	query := tbl.selectSQL()
	if tbl.orderBy != "" {
		query += " ORDER BY " + tbl.orderBy
	}
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", tbl.name, mapError(err))
	}
	defer rows.Close()

	items := make([]any, 0)
	for rows.Next() {
		v, err := tbl.scan(rows)
		if err != nil {
			return nil, fmt.Errorf("scan %s: %w", tbl.name, err)
		}
		items = append(items, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list %s: %w", tbl.name, mapError(err))
	}
	return items, nil
}

// Save inserts v when its ID is zero and updates it otherwise. Singletons are
// always written to their one row. v must be a pointer to a content entity.
func (s *EntityStore) Save(ctx context.Context, v any) error {
	if s.readOnly {
		return ErrReadOnly
	}
	t := reflect.TypeOf(v)
	tbl, err := tableFor(t)
	if err != nil {
		return err
	}
	if validator, ok := v.(interface{ Validate() error }); ok {
		if err := validator.Validate(); err != nil {
			return err
		}
	}

	created := false
	switch {
	case tbl.singleton:
		args := append([]any{content.SingletonID}, tbl.values(v)...)
		if _, err := s.db.ExecContext(ctx, tbl.upsertSQL(), args...); err != nil {
			return fmt.Errorf("save %s: %w", tbl.name, mapError(err))
		}
	case *tbl.idPtr(v) == 0:
		result, err := s.db.ExecContext(ctx, tbl.insertSQL(), tbl.values(v)...)
		if err != nil {
			return fmt.Errorf("insert %s: %w", tbl.name, mapError(err))
		}
		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("insert %s: last insert id: %w", tbl.name, err)
		}
		*tbl.idPtr(v) = id
		created = true
	default:
		id := *tbl.idPtr(v)
		result, err := s.db.ExecContext(ctx, tbl.updateSQL(), append(tbl.values(v), id)...)
		if err != nil {
			return fmt.Errorf("update %s: %w", tbl.name, mapError(err))
		}
		if n, err := result.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("update %s %d: %w", tbl.name, id, entity.ErrNotFound)
		}
	}

	s.announce(ctx, entity.SavedEvent{Type: t, Instance: v, Created: created})
	return nil
}

// Delete removes a collection row by the ID set on v.
func (s *EntityStore) Delete(ctx context.Context, v any) error {
	if s.readOnly {
		return ErrReadOnly
	}
	t := reflect.TypeOf(v)
	tbl, err := tableFor(t)
	if err != nil {
		return err
	}
	if tbl.singleton {
		return fmt.Errorf("cannot delete singleton %s", entity.Name(t))
	}

	id := *tbl.idPtr(v)
	result, err := s.db.ExecContext(ctx, "DELETE FROM "+tbl.name+" WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete %s: %w", tbl.name, mapError(err))
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("delete %s %d: %w", tbl.name, id, entity.ErrNotFound)
	}

	s.announce(ctx, entity.SavedEvent{Type: t, Instance: v, Deleted: true})
	return nil
}

// PageByFileName returns the page whose template is fileName.
func (s *EntityStore) PageByFileName(ctx context.Context, fileName string) (*content.Page, error) {
	tbl, err := tableFor(entity.TypeOf[*content.Page]())
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, tbl.selectSQL()+" WHERE file_name = ?", fileName)
	v, err := tbl.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("page %q: %w", fileName, entity.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read page %q: %w", fileName, mapError(err))
	}
	return v.(*content.Page), nil
}

// FAQByQuestion returns the FAQ point with the given question.
func (s *EntityStore) FAQByQuestion(ctx context.Context, question string) (*content.FAQPoint, error) {
	tbl, err := tableFor(entity.TypeOf[*content.FAQPoint]())
	if err != nil {
		return nil, err
	}
	row := s.db.QueryRowContext(ctx, tbl.selectSQL()+" WHERE question = ?", question)
	v, err := tbl.scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("faq point %q: %w", question, entity.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read faq point %q: %w", question, mapError(err))
	}
	return v.(*content.FAQPoint), nil
}

// Signal returns the signal writes are announced on.
func (s *EntityStore) Signal() *entity.Signal {
	return s.signal
}

func (s *EntityStore) announce(ctx context.Context, ev entity.SavedEvent) {
	n, err := s.signal.Send(ctx, ev.Type, ev)
	if err != nil {
		log.ErrorErr(log.CatDB, "save receiver failed", err, "entity", entity.Name(ev.Type))
		return
	}
	log.Debug(log.CatDB, "entity saved", "entity", entity.Name(ev.Type), "created", ev.Created, "deleted", ev.Deleted, "receivers", n)
}
