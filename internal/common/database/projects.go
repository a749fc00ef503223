// internal/common/database/projects.go
package database

import (
	"context"
	"database/sql"
	stderrors "errors"

	"devhive-workers/internal/common/errors"
	"devhive-workers/internal/models"
)

// ProjectRepository reads projects owned by the project service.
type ProjectRepository struct {
	db *sql.DB
}

func NewProjectRepository(db *sql.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

func (r *ProjectRepository) FindProject(ctx context.Context, id int64) (*models.Project, error) {
	var (
		p      models.Project
		status string
	)
	err := r.db.QueryRowContext(ctx, `
		SELECT id, user_id, status
		FROM projects
		WHERE id = $1`, id).Scan(&p.ID, &p.OwnerUserID, &status)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewProjectNotFoundError(id)
	}
	if err != nil {
		return nil, errors.NewStoreUnavailableError("find project", err)
	}

	p.Status = models.ProjectStatus(status)
	return &p, nil
}
