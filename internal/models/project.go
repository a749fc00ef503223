package models

// ProjectStatus is maintained by the project service; the apply workflow only
// reads it.
type ProjectStatus string

const (
	ProjectStatusRecruiting          ProjectStatus = "RECRUITING"
	ProjectStatusRecruitmentComplete ProjectStatus = "RECRUITMENT_COMPLETE"
	ProjectStatusComplete            ProjectStatus = "COMPLETE"
)

// AcceptsApplications reports whether the project is still recruiting.
func (s ProjectStatus) AcceptsApplications() bool {
	return s != ProjectStatusRecruitmentComplete && s != ProjectStatusComplete
}

// Project is the read-only view of a project the workflow needs.
type Project struct {
	ID          int64         `json:"id"`
	OwnerUserID int64         `json:"ownerUserId"`
	Status      ProjectStatus `json:"status"`
}

// IsOwnedBy reports whether userID wrote the project.
func (p Project) IsOwnedBy(userID int64) bool {
	return p.OwnerUserID == userID
}
