package apply

import (
	"context"

	"devhive-workers/internal/models"
)

// ApplicationStore persists applications. Implementations return
// STORE_UNAVAILABLE for driver failures and never a business error for them.
type ApplicationStore interface {
	// FindByUserAndProject returns nil, nil when the pair has no application.
	FindByUserAndProject(ctx context.Context, userID, projectID int64) (*models.Application, error)
	// FindByProject returns applications in creation order.
	FindByProject(ctx context.Context, projectID int64) ([]models.Application, error)
	// FindByID fails with NOT_FOUND when id does not exist.
	FindByID(ctx context.Context, id string) (*models.Application, error)
	// Save inserts an application without an ID, assigning ID and
	// timestamps, and otherwise updates the status of a still PENDING record.
	// A unique violation on insert is ALREADY_PENDING; an update of a record
	// that is no longer PENDING is NOT_PENDING.
	Save(ctx context.Context, app models.Application) (models.Application, error)
	// Delete removes a PENDING application. A record that is already gone is
	// not an error; one that is no longer PENDING is NOT_PENDING.
	Delete(ctx context.Context, app models.Application) error
}

// ProjectDirectory is the read-only view of the project service.
type ProjectDirectory interface {
	// FindProject fails with PROJECT_NOT_FOUND when id does not exist.
	FindProject(ctx context.Context, id int64) (*models.Project, error)
}
