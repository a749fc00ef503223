// internal/common/database/applications.go
package database

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
	"time"

	"devhive-workers/internal/apply"
	"devhive-workers/internal/common/errors"
	"devhive-workers/internal/models"

	"github.com/google/uuid"
	"github.com/lib/pq"
)

const uniqueViolation = "23505"

const applicationColumns = `id, project_id, user_id, status, created_at, updated_at`

// ApplicationRepository stores project applications in the project_applies
// table. The UNIQUE(user_id, project_id) constraint backs the apply lock.
type ApplicationRepository struct {
	db  *sql.DB
	now func() time.Time
}

func NewApplicationRepository(db *sql.DB) *ApplicationRepository {
	return &ApplicationRepository{db: db, now: time.Now}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanApplication(row rowScanner) (models.Application, error) {
	var (
		app    models.Application
		status string
	)
	if err := row.Scan(&app.ID, &app.ProjectID, &app.UserID, &status, &app.CreatedAt, &app.UpdatedAt); err != nil {
		return models.Application{}, err
	}
	app.Status = models.ApplyStatus(status)
	if !app.Status.Valid() {
		return models.Application{}, fmt.Errorf("application %s has unknown status %q", app.ID, status)
	}
	app.CreatedAt = app.CreatedAt.UTC()
	app.UpdatedAt = app.UpdatedAt.UTC()
	return app, nil
}

func (r *ApplicationRepository) FindByUserAndProject(ctx context.Context, userID, projectID int64) (*models.Application, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT `+applicationColumns+`
		FROM project_applies
		WHERE user_id = $1 AND project_id = $2`, userID, projectID)

	app, err := scanApplication(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewStoreUnavailableError("find by user and project", err)
	}
	return &app, nil
}

func (r *ApplicationRepository) FindByProject(ctx context.Context, projectID int64) ([]models.Application, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT `+applicationColumns+`
		FROM project_applies
		WHERE project_id = $1
		ORDER BY created_at, id`, projectID)
	if err != nil {
		return nil, errors.NewStoreUnavailableError("find by project", err)
	}
	defer rows.Close()

	apps := []models.Application{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, errors.NewStoreUnavailableError("scan application", err)
		}
		apps = append(apps, app)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewStoreUnavailableError("find by project", err)
	}
	return apps, nil
}

func (r *ApplicationRepository) FindByID(ctx context.Context, id string) (*models.Application, error) {
	// the column is UUID; anything else cannot exist
	if _, err := uuid.Parse(id); err != nil {
		return nil, errors.NewNotFoundError(id)
	}

	row := r.db.QueryRowContext(ctx, `
		SELECT `+applicationColumns+`
		FROM project_applies
		WHERE id = $1`, id)

	app, err := scanApplication(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFoundError(id)
	}
	if err != nil {
		return nil, errors.NewStoreUnavailableError("find by id", err)
	}
	return &app, nil
}

func (r *ApplicationRepository) Save(ctx context.Context, app models.Application) (models.Application, error) {
	if app.IsNew() {
		return r.insert(ctx, app)
	}
	return r.updateStatus(ctx, app)
}

func (r *ApplicationRepository) insert(ctx context.Context, app models.Application) (models.Application, error) {
	now := r.now().UTC()
	app.ID = uuid.New().String()
	app.CreatedAt = now
	app.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO project_applies (
			id, project_id, user_id, status, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $5)`,
		app.ID,
		app.ProjectID,
		app.UserID,
		string(app.Status),
		now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return models.Application{}, r.duplicateError(ctx, app)
		}
		return models.Application{}, errors.NewStoreUnavailableError("insert", err)
	}
	return app, nil
}

// updateStatus only touches a row that is still PENDING, so of two racing
// transitions exactly one wins.
func (r *ApplicationRepository) updateStatus(ctx context.Context, app models.Application) (models.Application, error) {
	if app.UpdatedAt.IsZero() {
		app.UpdatedAt = r.now().UTC()
	}

	res, err := r.db.ExecContext(ctx, `
		UPDATE project_applies
		SET status = $1, updated_at = $2
		WHERE id = $3 AND status = $4`,
		string(app.Status), app.UpdatedAt, app.ID, string(models.ApplyStatusPending))
	if err != nil {
		return models.Application{}, errors.NewStoreUnavailableError("update status", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return models.Application{}, errors.NewStoreUnavailableError("update status", err)
	}
	if n == 0 {
		current, found, err := r.currentStatus(ctx, app.ID)
		if err != nil {
			return models.Application{}, err
		}
		if !found {
			return models.Application{}, errors.NewNotFoundError(app.ID)
		}
		return models.Application{}, errors.NewNotPendingError(app.ID, string(current))
	}
	return app, nil
}

func (r *ApplicationRepository) Delete(ctx context.Context, app models.Application) error {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM project_applies
		WHERE id = $1 AND status = $2`,
		app.ID, string(models.ApplyStatusPending))
	if err != nil {
		return errors.NewStoreUnavailableError("delete", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return errors.NewStoreUnavailableError("delete", err)
	}
	if n > 0 {
		return nil
	}

	current, found, err := r.currentStatus(ctx, app.ID)
	if err != nil {
		return err
	}
	if !found {
		return nil // already gone
	}
	return errors.NewNotPendingError(app.ID, string(current))
}

func (r *ApplicationRepository) currentStatus(ctx context.Context, id string) (models.ApplyStatus, bool, error) {
	var status string
	err := r.db.QueryRowContext(ctx, `SELECT status FROM project_applies WHERE id = $1`, id).Scan(&status)
	if stderrors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.NewStoreUnavailableError("read status", err)
	}
	if !models.ApplyStatus(status).Valid() {
		return "", false, errors.NewStoreUnavailableError("read status",
			fmt.Errorf("application %s has unknown status %q", id, status))
	}
	return models.ApplyStatus(status), true, nil
}

// duplicateError reports the record that won the unique constraint with the
// same code a locked apply would have returned for it. ALREADY_PENDING is
// used when the winner cannot be read back.
func (r *ApplicationRepository) duplicateError(ctx context.Context, app models.Application) error {
	dup := errors.NewAlreadyPendingError(fmt.Sprintf("user %d, project %d", app.UserID, app.ProjectID))
	if existing, err := r.FindByUserAndProject(ctx, app.UserID, app.ProjectID); err == nil && existing != nil {
		dup = apply.ExistingApplicationError(*existing)
	}
	return dup.WithMetadata("constraint", "project_applies_user_id_project_id_key")
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return stderrors.As(err, &pqErr) && pqErr.Code == uniqueViolation
}
