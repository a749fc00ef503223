// internal/workers/project/project-apply-list/models.go
package projectapplylist

type Input struct {
	ProjectID int64 `json:"projectId"`
}

type Output struct {
	Applications []ApplicationSummary `json:"applications"`
	Count        int                  `json:"count"`
}

type ApplicationSummary struct {
	ApplicationID string `json:"applicationId"`
	ProjectID     int64  `json:"projectId"`
	UserID        int64  `json:"userId"`
	Status        string `json:"status"`
	CreatedAt     string `json:"createdAt"`
}
