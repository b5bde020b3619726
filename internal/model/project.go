package model

import "time"

// Project is the record of a GitLab project known to the duck. Its existence
// is what marks a project as bootstrapped.
type Project struct {
	RegisteredAt      time.Time  `json:"registered_at"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	LastRepoUpdate    *time.Time `json:"last_repo_update,omitempty"`
	Description       *string    `json:"description,omitempty"`
	Language          *string    `json:"language,omitempty"`
	Name              string     `json:"name"`
	WebURL            string     `json:"web_url"`
	DefaultBranch     string     `json:"default_branch"`
	PathWithNamespace string     `json:"path_with_namespace"`
	Namespace         string     `json:"namespace"`
	ID                int64      `json:"id"`
	ExternalProjectID int64      `json:"external_project_id"`
	RepoContentStored bool       `json:"repo_content_stored"`
}
