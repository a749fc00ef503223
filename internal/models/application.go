package models

import "time"

// ApplyStatus is the lifecycle state of a project application.
type ApplyStatus string

const (
	ApplyStatusPending ApplyStatus = "PENDING"
	ApplyStatusAccept  ApplyStatus = "ACCEPT"
	ApplyStatusReject  ApplyStatus = "REJECT"
)

// Valid reports whether s is one of the known statuses.
func (s ApplyStatus) Valid() bool {
	switch s {
	case ApplyStatusPending, ApplyStatusAccept, ApplyStatusReject:
		return true
	default:
		return false
	}
}

// Application is one user's request to join one project. ProjectID and
// UserID never change after creation.
type Application struct {
	ID        string      `json:"id"`
	ProjectID int64       `json:"projectId"`
	UserID    int64       `json:"userId"`
	Status    ApplyStatus `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

// IsNew reports whether the application has not been persisted yet.
func (a Application) IsNew() bool {
	return a.ID == ""
}
