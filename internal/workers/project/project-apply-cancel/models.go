// internal/workers/project/project-apply-cancel/models.go
package projectapplycancel

type Input struct {
	UserID    int64 `json:"userId"`
	ProjectID int64 `json:"projectId"`
}

type Output struct {
	Cancelled bool `json:"cancelled"`
}
