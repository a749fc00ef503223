// internal/workers/project/project-apply-status/models.go
package projectapplystatus

type Input struct {
	UserID    int64 `json:"userId"`
	ProjectID int64 `json:"projectId"`
}

type Output struct {
	HasApplied        bool   `json:"hasApplied"`
	ApplicationStatus string `json:"applicationStatus"` // empty when HasApplied is false
}
