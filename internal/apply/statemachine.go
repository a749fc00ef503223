package apply

import (
	"fmt"
	"time"

	"devhive-workers/internal/common/errors"
	"devhive-workers/internal/models"
)

// Event is a status transition an existing application can go through.
type Event string

const (
	EventAccept Event = "accept"
	EventReject Event = "reject"
)

// transitions lists the legal status changes. Terminal statuses have no
// entry.
var transitions = map[models.ApplyStatus]map[Event]models.ApplyStatus{
	models.ApplyStatusPending: {
		EventAccept: models.ApplyStatusAccept,
		EventReject: models.ApplyStatusReject,
	},
}

// CanApply checks whether applicant may apply to project given the existing
// application for the pair, if any. Rules are checked in order: self apply,
// project closed, then the status of the existing record.
func CanApply(project models.Project, applicantID int64, existing *models.Application) error {
	if project.IsOwnedBy(applicantID) {
		return errors.NewSelfApplyError(project.ID)
	}
	if !project.Status.AcceptsApplications() {
		return errors.NewProjectClosedError(project.ID, string(project.Status))
	}
	if existing == nil {
		return nil
	}
	return ExistingApplicationError(*existing)
}

// ExistingApplicationError is the apply error for a pair that already has
// the record existing.
func ExistingApplicationError(existing models.Application) *errors.StandardError {
	switch existing.Status {
	case models.ApplyStatusPending:
		return errors.NewAlreadyPendingError(existing.ID)
	case models.ApplyStatusAccept:
		return errors.NewAlreadyAcceptedError(existing.ID)
	default:
		return errors.NewAlreadyRejectedError(existing.ID)
	}
}

// CanCancel allows only the applicant to withdraw a pending application.
func CanCancel(app models.Application, requesterID int64) error {
	if app.UserID != requesterID {
		return errors.NewUnauthorizedError(
			fmt.Sprintf("user %d is not the applicant of %s", requesterID, app.ID))
	}
	if app.Status != models.ApplyStatusPending {
		return errors.NewNotPendingError(app.ID, string(app.Status))
	}
	return nil
}

// CanAccept only checks the status. The caller has already established that
// requesterID owns the project.
func CanAccept(app models.Application, requesterID int64) error {
	if app.Status != models.ApplyStatusPending {
		return errors.NewNotPendingError(app.ID, string(app.Status))
	}
	return nil
}

// CanReject allows only the project owner to reject a pending application.
func CanReject(app models.Application, project models.Project, requesterID int64) error {
	if !project.IsOwnedBy(requesterID) {
		return errors.NewUnauthorizedError(
			fmt.Sprintf("user %d does not own project %d", requesterID, project.ID))
	}
	if app.Status != models.ApplyStatusPending {
		return errors.NewNotPendingError(app.ID, string(app.Status))
	}
	return nil
}

// NewApplication builds the unsaved PENDING record for a fresh apply.
func NewApplication(projectID, userID int64) models.Application {
	return models.Application{
		ProjectID: projectID,
		UserID:    userID,
		Status:    models.ApplyStatusPending,
	}
}

// Transition returns a copy of app moved along event, stamped with now. app
// itself is never modified.
func Transition(app models.Application, event Event, now time.Time) (models.Application, error) {
	next, ok := transitions[app.Status][event]
	if !ok {
		return app, errors.NewNotPendingError(app.ID, string(app.Status))
	}

	out := app
	out.Status = next
	out.UpdatedAt = now.UTC()
	return out, nil
}
