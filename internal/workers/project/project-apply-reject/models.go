// internal/workers/project/project-apply-reject/models.go
package projectapplyreject

type Input struct {
	UserID        int64  `json:"userId"`
	ApplicationID string `json:"applicationId"`
}

type Output struct {
	ApplicationID     string `json:"applicationId"`
	ApplicationStatus string `json:"applicationStatus"`
}
