package snapshot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path"
	"strings"
	"time"

	"basegraph.app/rubberduck/common/logger"
	"basegraph.app/rubberduck/internal/model"
	"basegraph.app/rubberduck/internal/service/issue_tracker"
)

const (
	maxFileRunes     = 10000
	truncationMarker = "\n... (content truncated)"
	maxSourceDepth   = 3
	workflowsDir     = ".github/workflows/"
)

// importantNames are matched against the file name, case-insensitively.
var importantNames = map[string]struct{}{}

func init() {
	for _, name := range []string{
		"requirements.txt", "package.json", "Dockerfile", "docker-compose.yml",
		"Makefile", "CMakeLists.txt", "pom.xml", "build.gradle",
		"main.py", "app.py", "index.js", "main.js", "App.js",
		"main.java", "main.cpp", "main.c", "main.go",
		"CONTRIBUTING.md", "CHANGELOG.md", "LICENSE",
		".gitlab-ci.yml", "Jenkinsfile",
	} {
		importantNames[strings.ToLower(name)] = struct{}{}
	}
}

var sourceExtensions = map[string]struct{}{
	".py": {}, ".js": {}, ".java": {}, ".cpp": {}, ".c": {}, ".go": {}, ".rs": {}, ".php": {},
}

// First match wins.
var readmeCandidates = []string{"README.md", "README.rst", "README.txt", "README", "readme.md"}

var packageFileNames = []string{
	"requirements.txt", "package.json", "Pipfile", "poetry.lock",
	"composer.json", "pom.xml", "build.gradle", "Cargo.toml",
}

// Builder captures repository snapshots through the tracker.
type Builder struct {
	tracker issue_tracker.IssueTracker
	now     func() time.Time
}

func NewBuilder(tracker issue_tracker.IssueTracker) *Builder {
	return &Builder{tracker: tracker, now: time.Now}
}

// Build captures projectID at branch, or at the default branch when branch
// is empty. Only a failed project or tree fetch is an error; individual
// file fetch failures leave the file out.
func (b *Builder) Build(ctx context.Context, projectID int64, branch string) (*model.RepositorySnapshot, error) {
	ctx = logger.WithLogFields(ctx, logger.LogFields{
		ProjectID: &projectID,
		Component: "rubberduck.snapshot.builder",
	})

	meta, err := b.tracker.GetProject(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("fetching project %d: %w", projectID, err)
	}
	if branch == "" {
		branch = meta.DefaultBranch
	}

	lang, err := b.tracker.GetProjectLanguage(ctx, projectID)
	if err != nil {
		slog.WarnContext(ctx, "failed to detect project language", "error", err)
	}
	meta.Language = lang

	slog.InfoContext(ctx, "building repository snapshot", "branch", branch)

	tree, err := b.tracker.GetFileTree(ctx, projectID, branch)
	if err != nil {
		return nil, fmt.Errorf("fetching file tree for %s: %w", branch, err)
	}

	structure := BuildFileStructure(tree)

	snap := &model.RepositorySnapshot{
		ProjectMetadata: *meta,
		FileStructure:   structure,
		Branch:          branch,
		TotalFiles:      len(tree),
		ImportantFiles:  b.fetchImportantFiles(ctx, projectID, branch, tree),
		ReadmeContent:   b.fetchReadme(ctx, projectID, branch),
		PackageFiles:    b.fetchPackageFiles(ctx, projectID, branch),
		LastCommit:      b.fetchLastCommit(ctx, projectID, branch),
		CapturedAt:      b.now().UTC(),
	}

	slog.InfoContext(ctx, "repository snapshot built",
		"branch", branch,
		"total_files", snap.TotalFiles,
		"important_files", len(snap.ImportantFiles),
		"package_files", len(snap.PackageFiles),
		"has_readme", snap.ReadmeContent != "")

	return snap, nil
}

// BuildFileStructure aggregates statistics from tree metadata alone.
func BuildFileStructure(tree []issue_tracker.TreeEntry) model.FileStructure {
	fs := model.FileStructure{
		Files:       []model.FileEntry{},
		Directories: []string{},
		FileTypes:   map[string]int{},
	}

	for _, entry := range tree {
		if depth := strings.Count(entry.Path, "/"); depth > fs.MaxDepth {
			fs.MaxDepth = depth
		}

		if entry.Type == issue_tracker.TreeEntryTree {
			fs.Directories = append(fs.Directories, entry.Path)
			continue
		}

		fs.Files = append(fs.Files, model.FileEntry{
			Path: entry.Path,
			Name: entry.Name,
			Size: entry.Size,
		})
		if ext := strings.ToLower(path.Ext(entry.Name)); ext != "" {
			fs.FileTypes[ext]++
		}
	}

	return fs
}

// IsImportant reports whether a blob's content belongs in the snapshot.
func IsImportant(filePath, name string) bool {
	if _, ok := importantNames[strings.ToLower(name)]; ok {
		return true
	}
	if strings.Contains(strings.ToLower(filePath), workflowsDir) {
		return true
	}
	if len(strings.Split(filePath, "/")) <= maxSourceDepth {
		_, ok := sourceExtensions[strings.ToLower(path.Ext(name))]
		return ok
	}
	return false
}

func (b *Builder) fetchImportantFiles(ctx context.Context, projectID int64, branch string, tree []issue_tracker.TreeEntry) []model.FileContent {
	files := []model.FileContent{}
	for _, entry := range tree {
		if entry.Type != issue_tracker.TreeEntryBlob || !IsImportant(entry.Path, entry.Name) {
			continue
		}

		content, ok := b.fetchFile(ctx, projectID, entry.Path, branch)
		if !ok {
			continue
		}
		files = append(files, model.FileContent{Path: entry.Path, Content: content})
	}
	return files
}

func (b *Builder) fetchReadme(ctx context.Context, projectID int64, branch string) string {
	for _, name := range readmeCandidates {
		if content, ok := b.fetchFile(ctx, projectID, name, branch); ok {
			return content
		}
	}
	return ""
}

func (b *Builder) fetchPackageFiles(ctx context.Context, projectID int64, branch string) []model.FileContent {
	files := []model.FileContent{}
	for _, name := range packageFileNames {
		if content, ok := b.fetchFile(ctx, projectID, name, branch); ok {
			files = append(files, model.FileContent{Path: name, Content: content})
		}
	}
	return files
}

func (b *Builder) fetchLastCommit(ctx context.Context, projectID int64, branch string) *model.CommitSummary {
	commit, err := b.tracker.GetLastCommit(ctx, projectID, branch)
	if err != nil {
		slog.WarnContext(ctx, "failed to fetch last commit", "error", err)
		return nil
	}
	return commit
}

// fetchFile returns truncated content; false for absent, empty or failed
// fetches.
func (b *Builder) fetchFile(ctx context.Context, projectID int64, filePath, branch string) (string, bool) {
	content, err := b.tracker.GetFileContent(ctx, projectID, filePath, branch)
	if errors.Is(err, issue_tracker.ErrNotFound) {
		return "", false
	}
	if err != nil {
		slog.WarnContext(ctx, "failed to fetch file content", "path", filePath, "error", err)
		return "", false
	}
	if content == "" {
		return "", false
	}
	return truncate(content), true
}

func truncate(content string) string {
	r := []rune(content)
	if len(r) <= maxFileRunes {
		return content
	}
	return string(r[:maxFileRunes]) + truncationMarker
}
