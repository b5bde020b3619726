package model

import "time"

// RepositorySnapshot is a point-in-time capture of a project's repository.
// A refresh replaces it as a whole.
type RepositorySnapshot struct {
	CapturedAt      time.Time       `json:"captured_at"`
	LastCommit      *CommitSummary  `json:"last_commit,omitempty"`
	ProjectMetadata ProjectMetadata `json:"project_metadata"`
	FileStructure   FileStructure   `json:"file_structure"`
	Branch          string          `json:"branch"`
	ReadmeContent   string          `json:"readme_content,omitempty"`
	// ImportantFiles and PackageFiles keep insertion order; the context
	// assembler relies on it.
	ImportantFiles []FileContent `json:"important_files"`
	PackageFiles   []FileContent `json:"package_files"`
	TotalFiles     int           `json:"total_files"`
}

type ProjectMetadata struct {
	CreatedAt         *time.Time `json:"created_at,omitempty"`
	LastActivityAt    *time.Time `json:"last_activity_at,omitempty"`
	Name              string     `json:"name"`
	Description       string     `json:"description"`
	DefaultBranch     string     `json:"default_branch"`
	WebURL            string     `json:"web_url"`
	PathWithNamespace string     `json:"path_with_namespace"`
	Visibility        string     `json:"visibility"`
	Language          string     `json:"language,omitempty"`
	Namespace         string     `json:"namespace"`
	Topics            []string   `json:"topics,omitempty"`
	ID                int64      `json:"id"`
}

type FileStructure struct {
	Files       []FileEntry    `json:"files"`
	Directories []string       `json:"directories"`
	FileTypes   map[string]int `json:"file_types"`
	MaxDepth    int            `json:"max_depth"`
}

type FileEntry struct {
	Path string `json:"path"`
	Name string `json:"name"`
	Size int64  `json:"size"`
}

type FileContent struct {
	Path    string `json:"path"`
	Content string `json:"content"`
}

type CommitSummary struct {
	CommittedDate *time.Time `json:"committed_date,omitempty"`
	ID            string     `json:"id"`
	ShortID       string     `json:"short_id"`
	Title         string     `json:"title"`
	Message       string     `json:"message"`
	AuthorName    string     `json:"author_name"`
	AuthorEmail   string     `json:"author_email"`
}

// FileTypeCount is one bucket of the extension histogram.
type FileTypeCount struct {
	Extension string
	Count     int
}
