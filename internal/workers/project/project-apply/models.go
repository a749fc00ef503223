// internal/workers/project/project-apply/models.go
package projectapply

type Input struct {
	UserID    int64 `json:"userId"`
	ProjectID int64 `json:"projectId"`
}

type Output struct {
	ApplicationID     string `json:"applicationId"`
	ApplicationStatus string `json:"applicationStatus"`
	CreatedAt         string `json:"createdAt"` // ISO 8601
}
