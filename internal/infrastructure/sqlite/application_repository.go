package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/recruitsite/recruit/internal/applications"
	"github.com/recruitsite/recruit/internal/entity"
	"github.com/recruitsite/recruit/internal/log"
)

const applicationColumns = `id, guid, requester_name, settlement, phone, created_at`

// ApplicationRepository stores submitted applications.
type ApplicationRepository struct {
	db     *sql.DB
	signal *entity.Signal
}

func newApplicationRepository(db *sql.DB, signal *entity.Signal) *ApplicationRepository {
	if signal == nil {
		signal = entity.NewSignal()
	}
	return &ApplicationRepository{db: db, signal: signal}
}

func scanApplication(scanner interface{ Scan(...any) error }) (*applications.Application, error) {
	var (
		app       applications.Application
		createdAt int64
	)
	if err := scanner.Scan(&app.ID, &app.GUID, &app.RequesterName, &app.Settlement, &app.Phone, &createdAt); err != nil {
		return nil, err
	}
	app.CreatedAt = time.Unix(createdAt, 0).UTC()
	return &app, nil
}

// Create inserts app, sets its ID and announces the creation.
func (r *ApplicationRepository) Create(ctx context.Context, app *applications.Application) error {
	if app.ID != 0 {
		return fmt.Errorf("application %s already stored", app.GUID)
	}
	result, err := r.db.ExecContext(ctx,
		`INSERT INTO applications (guid, requester_name, settlement, phone, created_at) VALUES (?, ?, ?, ?, ?)`,
		app.GUID, app.RequesterName, app.Settlement, app.Phone, app.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert application: %w", mapError(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("insert application: last insert id: %w", err)
	}
	app.ID = id

	t := entity.TypeOf[*applications.Application]()
	if _, err := r.signal.Send(ctx, t, entity.SavedEvent{Type: t, Instance: app, Created: true}); err != nil {
		log.ErrorErr(log.CatDB, "application receiver failed", err, "application", app.GUID)
	}
	return nil
}

// FindByGUID returns the application with guid.
func (r *ApplicationRepository) FindByGUID(ctx context.Context, guid string) (*applications.Application, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+applicationColumns+` FROM applications WHERE guid = ?`, guid)
	app, err := scanApplication(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("application %s: %w", guid, entity.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find application: %w", mapError(err))
	}
	return app, nil
}

// ListRecent returns up to limit applications, newest first.
func (r *ApplicationRepository) ListRecent(ctx context.Context, limit int) ([]*applications.Application, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+applicationColumns+` FROM applications ORDER BY created_at DESC, id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list applications: %w", mapError(err))
	}
	defer rows.Close()

	var out []*applications.Application
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		out = append(out, app)
	}
	return out, rows.Err()
}
