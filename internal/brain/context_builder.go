package brain

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"basegraph.app/rubberduck/internal/model"
	"basegraph.app/rubberduck/internal/store"
)

const (
	DefaultMaxContextFiles = 10

	NoProjectMetadata   = "No project metadata found."
	NoRepositoryContent = "No repository content found."

	readmeContextRunes  = 1000
	fileContextRunes    = 800
	contextFileTypeTopN = 5
)

// BuildRepositoryContext renders the bounded knowledge block handed to the
// generator. A missing project or snapshot yields a sentinel string; callers
// treat it as "no context" via HasRepositoryContext.
func BuildRepositoryContext(project *model.Project, snap *model.RepositorySnapshot, maxFiles int) string {
	if project == nil {
		return NoProjectMetadata
	}
	if snap == nil {
		return NoRepositoryContent
	}
	if maxFiles <= 0 {
		maxFiles = DefaultMaxContextFiles
	}

	var b strings.Builder

	b.WriteString("=== PROJECT INFORMATION ===\n")
	fmt.Fprintf(&b, "Project: %s\n", orDefault(project.Name, "Unknown"))
	fmt.Fprintf(&b, "Description: %s\n", orDefault(derefString(project.Description), "No description"))
	fmt.Fprintf(&b, "Language: %s\n", orDefault(firstNonEmpty(snap.ProjectMetadata.Language, derefString(project.Language)), "Unknown"))
	fmt.Fprintf(&b, "Default Branch: %s", orDefault(project.DefaultBranch, "main"))

	if snap.ReadmeContent != "" {
		b.WriteString("\n\n=== README ===\n")
		b.WriteString(clip(snap.ReadmeContent, readmeContextRunes, "..."))
	}

	if len(snap.ImportantFiles) > 0 {
		b.WriteString("\n\n=== IMPORTANT FILES ===")
		for i, f := range snap.ImportantFiles {
			if i >= maxFiles {
				break
			}
			fmt.Fprintf(&b, "\n\n--- %s ---\n", f.Path)
			b.WriteString(clip(f.Content, fileContextRunes, "... (truncated)"))
		}
	}

	fs := snap.FileStructure
	if len(fs.Files) > 0 || len(fs.Directories) > 0 || len(fs.FileTypes) > 0 {
		b.WriteString("\n\n=== PROJECT STRUCTURE ===\n")
		fmt.Fprintf(&b, "Total files: %d\n", len(fs.Files))
		fmt.Fprintf(&b, "Directories: %d", len(fs.Directories))
		if top := TopFileTypes(fs.FileTypes, contextFileTypeTopN); len(top) > 0 {
			parts := make([]string, len(top))
			for i, t := range top {
				parts[i] = t.Extension + ": " + strconv.Itoa(t.Count)
			}
			b.WriteString("\nFile types: " + strings.Join(parts, ", "))
		}
	}

	return b.String()
}

// HasRepositoryContext is false for the sentinel strings.
func HasRepositoryContext(repoContext string) bool {
	return repoContext != "" && repoContext != NoProjectMetadata && repoContext != NoRepositoryContent
}

// TopFileTypes returns the n most frequent extensions, count descending then
// extension ascending.
func TopFileTypes(fileTypes map[string]int, n int) []model.FileTypeCount {
	counts := make([]model.FileTypeCount, 0, len(fileTypes))
	for ext, count := range fileTypes {
		counts = append(counts, model.FileTypeCount{Extension: ext, Count: count})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Extension < counts[j].Extension
	})
	if len(counts) > n {
		counts = counts[:n]
	}
	return counts
}

// ContextRetriever loads the project record and snapshot and renders them.
type ContextRetriever struct {
	projects  store.ProjectStore
	snapshots store.SnapshotStore
	maxFiles  int
}

func NewContextRetriever(projects store.ProjectStore, snapshots store.SnapshotStore, maxFiles int) *ContextRetriever {
	if maxFiles <= 0 {
		maxFiles = DefaultMaxContextFiles
	}
	return &ContextRetriever{projects: projects, snapshots: snapshots, maxFiles: maxFiles}
}

// Retrieve returns the rendered context. Absent records give a sentinel, only
// store failures are errors.
func (r *ContextRetriever) Retrieve(ctx context.Context, projectID int64) (string, error) {
	project, err := r.projects.GetByExternalID(ctx, projectID)
	if errors.Is(err, store.ErrNotFound) {
		return NoProjectMetadata, nil
	}
	if err != nil {
		return "", fmt.Errorf("loading project %d: %w", projectID, err)
	}

	snap, err := r.snapshots.Get(ctx, projectID)
	if errors.Is(err, store.ErrNotFound) {
		return NoRepositoryContent, nil
	}
	if err != nil {
		return "", fmt.Errorf("loading snapshot for project %d: %w", projectID, err)
	}

	return BuildRepositoryContext(project, snap, r.maxFiles), nil
}

// clip keeps at most maxRunes runes and appends marker when it cut anything.
func clip(s string, maxRunes int, marker string) string {
	r := []rune(s)
	if len(r) <= maxRunes {
		return s
	}
	return string(r[:maxRunes]) + marker
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
