package course

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"golang.org/x/sync/errgroup"
	"gopkg.in/yaml.v3"
)

//go:embed default/*.yaml
var defaultFS embed.FS

// Course directory layout. Only concepts.yaml is required.
const (
	conceptsFile       = "concepts.yaml"
	syllabusFile       = "syllabus.yaml"
	misconceptionsFile = "misconceptions.yaml"
	passagesFile       = "passages.yaml"
)

type conceptsDoc struct {
	Course   Info      `yaml:"course"`
	Concepts []Concept `yaml:"concepts"`
}

type misconceptionsDoc struct {
	Misconceptions []Misconception `yaml:"misconceptions"`
}

type passagesDoc struct {
	Passages []Passage `yaml:"passages"`
}

// fileDoc is the single-file course format.
type fileDoc struct {
	Course         Info            `yaml:"course"`
	Concepts       []Concept       `yaml:"concepts"`
	Syllabus       Syllabus        `yaml:",inline"`
	Misconceptions []Misconception `yaml:"misconceptions"`
	Passages       []Passage       `yaml:"passages"`
}

// Default returns the built-in course.
func Default() (*Course, error) {
	sub, err := fs.Sub(defaultFS, "default")
	if err != nil {
		return nil, err
	}
	return LoadFS(sub)
}

// Load reads a course from a directory in the split layout or from a
// single YAML file.
func Load(path string) (*Course, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	if info.IsDir() {
		return LoadFS(os.DirFS(path))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load course: %w", err)
	}
	var doc fileDoc
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return New(doc.Course, doc.Concepts, doc.Syllabus, doc.Misconceptions, doc.Passages)
}

// LoadFS reads the split layout from fsys. The files are parsed
// concurrently.
func LoadFS(fsys fs.FS) (*Course, error) {
	var (
		concepts       conceptsDoc
		syl            Syllabus
		misconceptions misconceptionsDoc
		passages       passagesDoc
	)

	var g errgroup.Group
	g.Go(func() error { return decodeFile(fsys, conceptsFile, &concepts, true) })
	g.Go(func() error { return decodeFile(fsys, syllabusFile, &syl, false) })
	g.Go(func() error { return decodeFile(fsys, misconceptionsFile, &misconceptions, false) })
	g.Go(func() error { return decodeFile(fsys, passagesFile, &passages, false) })
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return New(concepts.Course, concepts.Concepts, syl, misconceptions.Misconceptions, passages.Passages)
}

func decodeFile(fsys fs.FS, name string, v any, required bool) error {
	data, err := fs.ReadFile(fsys, name)
	if errors.Is(err, fs.ErrNotExist) && !required {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read %s: %w", name, err)
	}
	if err := yaml.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", name, err)
	}
	return nil
}
