// internal/workers/project/project-apply-accept/models.go
package projectapplyaccept

type Input struct {
	UserID        int64  `json:"userId"` // requester, must own the project
	ApplicationID string `json:"applicationId"`
}

type Output struct {
	ApplicationID     string `json:"applicationId"`
	ApplicationStatus string `json:"applicationStatus"`
}
