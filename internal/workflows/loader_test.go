package workflows

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoader_LoadAll_EmptyDirectory(t *testing.T) {
	tmpDir := t.TempDir()
	workflowsDir := filepath.Join(tmpDir, "workflows")

	loader := NewLoader(workflowsDir)
	result, err := loader.LoadAll()

	require.NoError(t, err)
	assert.Empty(t, result.Workflows)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 0, result.TotalFiles)
}

func TestLoader_LoadAll_WithStepWorkflow(t *testing.T) {
	tmpDir := t.TempDir()
	workflowsDir := filepath.Join(tmpDir, "workflows")
	require.NoError(t, os.MkdirAll(workflowsDir, 0755))

	content := `
name: Review PR
description: Runs lint then parallel test suites
steps:
  - command: lint
  - parallel:
      - command: unit-tests
      - command: integration-tests
`
	require.NoError(t, os.WriteFile(filepath.Join(workflowsDir, "review-pr.yaml"), []byte(content), 0644))

	loader := NewLoader(workflowsDir)
	result, err := loader.LoadAll()

	require.NoError(t, err)
	assert.Empty(t, result.Errors)
	assert.Equal(t, 1, result.TotalFiles)
	require.Len(t, result.Workflows, 1)

	wf := result.Workflows[0]
	assert.Equal(t, "Review PR", wf.Definition.Name)
	require.Len(t, wf.Definition.Steps, 2)
	assert.Equal(t, "lint", wf.Definition.Steps[0].Command)
	assert.True(t, wf.Definition.Steps[1].IsParallel())
	assert.Equal(t, ProviderClaude, wf.Definition.ResolvedProvider())
}

func TestLoader_LoadAll_WithLoopWorkflow(t *testing.T) {
	tmpDir := t.TempDir()
	workflowsDir := filepath.Join(tmpDir, "workflows")
	require.NoError(t, os.MkdirAll(workflowsDir, 0755))

	content := `
name: Ralph Loop
description: Iterates until the signal token appears
provider: codex
loop:
  until: "DONE"
  max_iterations: 10
prompt: Keep working until the task is complete.
`
	require.NoError(t, os.WriteFile(filepath.Join(workflowsDir, "ralph.yml"), []byte(content), 0644))

	loader := NewLoader(workflowsDir)
	result, err := loader.LoadAll()

	require.NoError(t, err)
	require.Len(t, result.Workflows, 1)
	wf := result.Workflows[0]
	assert.True(t, wf.Definition.IsLoop())
	assert.Equal(t, "DONE", wf.Definition.Loop.Until)
	assert.Equal(t, ProviderCodex, wf.Definition.ResolvedProvider())
}

func TestLoader_LoadAll_RecursesIntoSubdirectories(t *testing.T) {
	tmpDir := t.TempDir()
	workflowsDir := filepath.Join(tmpDir, "workflows")
	defaultsDir := filepath.Join(workflowsDir, "defaults")
	require.NoError(t, os.MkdirAll(defaultsDir, 0755))

	content := `
name: Nested
description: Lives under defaults/
steps:
  - command: lint
`
	require.NoError(t, os.WriteFile(filepath.Join(defaultsDir, "nested.yaml"), []byte(content), 0644))

	loader := NewLoader(workflowsDir)
	result, err := loader.LoadAll()

	require.NoError(t, err)
	require.Len(t, result.Workflows, 1)
	assert.Equal(t, "Nested", result.Workflows[0].Definition.Name)
}

func TestLoader_LoadAll_SkipsInvalidFilesAndContinues(t *testing.T) {
	tmpDir := t.TempDir()
	workflowsDir := filepath.Join(tmpDir, "workflows")
	require.NoError(t, os.MkdirAll(workflowsDir, 0755))

	badContent := `name: [this is not valid yaml`
	goodContent := `
name: Good
description: Parses fine
steps:
  - command: lint
`
	require.NoError(t, os.WriteFile(filepath.Join(workflowsDir, "bad.yaml"), []byte(badContent), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(workflowsDir, "good.yaml"), []byte(goodContent), 0644))

	loader := NewLoader(workflowsDir)
	result, err := loader.LoadAll()

	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalFiles)
	require.Len(t, result.Errors, 1)
	require.Len(t, result.Workflows, 1)
	assert.Equal(t, "Good", result.Workflows[0].Definition.Name)
}

func TestLoader_LoadAll_RejectsFailedValidation(t *testing.T) {
	tmpDir := t.TempDir()
	workflowsDir := filepath.Join(tmpDir, "workflows")
	require.NoError(t, os.MkdirAll(workflowsDir, 0755))

	content := `
name: Unsafe
description: Has an escaping command name
steps:
  - command: "../escape"
`
	require.NoError(t, os.WriteFile(filepath.Join(workflowsDir, "unsafe.yaml"), []byte(content), 0644))

	loader := NewLoader(workflowsDir)
	result, err := loader.LoadAll()

	require.NoError(t, err)
	require.Len(t, result.Errors, 1)
	assert.ErrorIs(t, result.Errors[0].Error, ErrValidation)
}

func TestLoader_LoadAll_IgnoresNonYAMLFiles(t *testing.T) {
	tmpDir := t.TempDir()
	workflowsDir := filepath.Join(tmpDir, "workflows")
	require.NoError(t, os.MkdirAll(workflowsDir, 0755))

	require.NoError(t, os.WriteFile(filepath.Join(workflowsDir, "README.md"), []byte("not a workflow"), 0644))

	loader := NewLoader(workflowsDir)
	result, err := loader.LoadAll()

	require.NoError(t, err)
	assert.Equal(t, 0, result.TotalFiles)
}
