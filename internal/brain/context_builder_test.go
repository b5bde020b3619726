package brain_test

import (
	"context"
	"errors"
	"fmt"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"basegraph.app/rubberduck/internal/brain"
	"basegraph.app/rubberduck/internal/model"
)

func strPtr(s string) *string { return &s }

var _ = Describe("BuildRepositoryContext", func() {
	var (
		project *model.Project
		snap    *model.RepositorySnapshot
	)

	BeforeEach(func() {
		project = &model.Project{
			ExternalProjectID: 7,
			Name:              "duck",
			Description:       strPtr("debugging companion"),
			DefaultBranch:     "main",
		}
		snap = &model.RepositorySnapshot{
			ProjectMetadata: model.ProjectMetadata{Language: "Go"},
			ReadmeContent:   "# duck",
			ImportantFiles: []model.FileContent{
				{Path: "main.go", Content: "package main"},
				{Path: "Makefile", Content: "build:"},
			},
			FileStructure: model.FileStructure{
				Files:       []model.FileEntry{{Path: "main.go"}, {Path: "Makefile"}, {Path: "a.go"}},
				Directories: []string{"cmd"},
				FileTypes:   map[string]int{".go": 2, ".md": 1, ".yml": 1},
			},
		}
	})

	It("renders every section in order", func() {
		out := brain.BuildRepositoryContext(project, snap, 10)

		Expect(out).To(Equal(strings.Join([]string{
			"=== PROJECT INFORMATION ===",
			"Project: duck",
			"Description: debugging companion",
			"Language: Go",
			"Default Branch: main",
			"",
			"=== README ===",
			"# duck",
			"",
			"=== IMPORTANT FILES ===",
			"",
			"--- main.go ---",
			"package main",
			"",
			"--- Makefile ---",
			"build:",
			"",
			"=== PROJECT STRUCTURE ===",
			"Total files: 3",
			"Directories: 1",
			"File types: .go: 2, .md: 1, .yml: 1",
		}, "\n")))
	})

	It("returns sentinels for missing records", func() {
		Expect(brain.BuildRepositoryContext(nil, snap, 10)).To(Equal(brain.NoProjectMetadata))
		Expect(brain.BuildRepositoryContext(project, nil, 10)).To(Equal(brain.NoRepositoryContent))
		Expect(brain.HasRepositoryContext(brain.NoProjectMetadata)).To(BeFalse())
		Expect(brain.HasRepositoryContext(brain.NoRepositoryContent)).To(BeFalse())
	})

	It("clips the readme at 1000 characters", func() {
		snap.ReadmeContent = strings.Repeat("r", 1500)

		out := brain.BuildRepositoryContext(project, snap, 10)
		Expect(out).To(ContainSubstring(strings.Repeat("r", 1000) + "...\n"))
		Expect(out).NotTo(ContainSubstring(strings.Repeat("r", 1001)))
	})

	It("clips each file at 800 characters", func() {
		snap.ImportantFiles[0].Content = strings.Repeat("f", 900)

		out := brain.BuildRepositoryContext(project, snap, 10)
		Expect(out).To(ContainSubstring(strings.Repeat("f", 800) + "... (truncated)"))
		Expect(out).NotTo(ContainSubstring(strings.Repeat("f", 801)))
	})

	It("includes at most maxFiles files in stored order", func() {
		snap.ImportantFiles = nil
		for i := 0; i < 15; i++ {
			snap.ImportantFiles = append(snap.ImportantFiles, model.FileContent{
				Path:    fmt.Sprintf("file%02d.go", i),
				Content: "x",
			})
		}

		out := brain.BuildRepositoryContext(project, snap, 10)
		Expect(strings.Count(out, "\n--- ")).To(Equal(10))
		Expect(out).To(ContainSubstring("--- file09.go ---"))
		Expect(out).NotTo(ContainSubstring("--- file10.go ---"))
	})

	It("lists the five most frequent extensions, ties by name", func() {
		snap.FileStructure.FileTypes = map[string]int{
			".go": 5, ".md": 2, ".yml": 2, ".py": 3, ".txt": 1, ".json": 1, ".sh": 1,
		}

		out := brain.BuildRepositoryContext(project, snap, 10)
		Expect(out).To(HaveSuffix("File types: .go: 5, .py: 3, .md: 2, .yml: 2, .json: 1"))
	})

	It("falls back to defaults for missing metadata", func() {
		project = &model.Project{ExternalProjectID: 7}
		snap = &model.RepositorySnapshot{}

		out := brain.BuildRepositoryContext(project, snap, 10)
		Expect(out).To(Equal("=== PROJECT INFORMATION ===\nProject: Unknown\nDescription: No description\nLanguage: Unknown\nDefault Branch: main"))
	})
})

var _ = Describe("ContextRetriever", func() {
	var stores *memoryStores

	BeforeEach(func() {
		stores = newMemoryStores()
	})

	It("returns the metadata sentinel for an unknown project", func() {
		out, err := brain.NewContextRetriever(stores.Projects(), stores.Snapshots(), 0).Retrieve(context.Background(), 7)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(brain.NoProjectMetadata))
	})

	It("returns the content sentinel when no snapshot is stored", func() {
		stores.projects[7] = &model.Project{ExternalProjectID: 7, Name: "duck"}

		out, err := brain.NewContextRetriever(stores.Projects(), stores.Snapshots(), 0).Retrieve(context.Background(), 7)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(Equal(brain.NoRepositoryContent))
	})

	It("renders stored records", func() {
		stores.projects[7] = &model.Project{ExternalProjectID: 7, Name: "duck"}
		stores.snapshots[7] = &model.RepositorySnapshot{ReadmeContent: "hello"}

		out, err := brain.NewContextRetriever(stores.Projects(), stores.Snapshots(), 0).Retrieve(context.Background(), 7)
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(ContainSubstring("Project: duck"))
		Expect(out).To(ContainSubstring("=== README ===\nhello"))
	})

	It("propagates store failures", func() {
		stores.projectGetErr = errors.New("db down")

		_, err := brain.NewContextRetriever(stores.Projects(), stores.Snapshots(), 0).Retrieve(context.Background(), 7)
		Expect(err).To(HaveOccurred())
	})
})
