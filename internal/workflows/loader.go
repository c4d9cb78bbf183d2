package workflows

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// WorkflowFile pairs a successfully loaded and validated Definition with
// the path it came from.
type WorkflowFile struct {
	FilePath   string
	Definition *Definition
}

// LoadResult is the outcome of scanning a set of search paths: the
// definitions that parsed and validated, and the files that didn't.
type LoadResult struct {
	Workflows  []*WorkflowFile
	Errors     []LoadError
	TotalFiles int
}

// LoadError records why a single workflow file was skipped.
type LoadError struct {
	FilePath string
	Error    error
}

// Loader scans a set of folder search paths for workflow YAML files,
// recursing into subdirectories (e.g. a `defaults/` folder nested under a
// configured root).
type Loader struct {
	searchPaths []string
}

// NewLoader builds a Loader over the given search paths. Relative paths
// are resolved against the caller's working directory by the caller.
func NewLoader(searchPaths ...string) *Loader {
	return &Loader{searchPaths: searchPaths}
}

// LoadAll walks every configured search path, parsing and validating each
// `.yaml`/`.yml` file found. Files that fail to parse or fail validation
// are skipped and recorded in Errors; LoadAll itself only errors on a
// directory walk failure unrelated to any individual file's content.
func (l *Loader) LoadAll() (*LoadResult, error) {
	result := &LoadResult{
		Workflows: []*WorkflowFile{},
		Errors:    []LoadError{},
	}

	for _, root := range l.searchPaths {
		if _, err := os.Stat(root); os.IsNotExist(err) {
			continue
		}

		err := filepath.WalkDir(root, func(path string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				return nil
			}
			ext := strings.ToLower(filepath.Ext(path))
			if ext != ".yaml" && ext != ".yml" {
				return nil
			}
			result.TotalFiles++

			wf, loadErr := l.LoadFile(path)
			if loadErr != nil {
				result.Errors = append(result.Errors, LoadError{FilePath: path, Error: loadErr})
				return nil
			}
			result.Workflows = append(result.Workflows, wf)
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walking workflow search path %q: %w", root, err)
		}
	}

	return result, nil
}

// LoadFile parses and validates a single workflow YAML file.
func (l *Loader) LoadFile(path string) (*WorkflowFile, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	var def Definition
	if err := yaml.Unmarshal(content, &def); err != nil {
		return nil, fmt.Errorf("parsing YAML: %w", err)
	}
	def.SourcePath = path

	validation := Validate(&def)
	if !validation.ok() {
		var msgs []string
		for _, issue := range validation.Errors {
			msgs = append(msgs, fmt.Sprintf("%s: %s", issue.Path, issue.Message))
		}
		return nil, fmt.Errorf("%w: %s", ErrValidation, strings.Join(msgs, "; "))
	}

	return &WorkflowFile{FilePath: path, Definition: &def}, nil
}
