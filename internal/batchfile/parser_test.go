package batchfile

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CodexForgeBR/batch-loop/internal/state"
)

func writeBatchFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))
	return path
}

func TestParseYAML(t *testing.T) {
	path := writeBatchFile(t, "features.yaml", `
features:
  - description: Build the user model
    issue: 12
  - description: Add sessions
    depends_on:
      - user model
`)

	features, err := Parse(path)
	require.NoError(t, err)
	require.Len(t, features, 2)

	assert.Equal(t, "Build the user model", features[0].Description)
	assert.Equal(t, 12, features[0].IssueNumber)
	assert.Equal(t, state.FeaturePending, features[0].Status)

	assert.Equal(t, []string{"user model"}, features[1].DependsOn)
}

func TestParseYAMLEmptyDescription(t *testing.T) {
	path := writeBatchFile(t, "bad.yml", `
features:
  - description: "   "
`)
	_, err := Parse(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "empty description")
}

func TestParseYAMLNoFeatures(t *testing.T) {
	path := writeBatchFile(t, "empty.yaml", "features: []\n")
	_, err := Parse(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no features")
}

func TestParseYAMLInvalid(t *testing.T) {
	path := writeBatchFile(t, "broken.yaml", "features: [unclosed\n")
	_, err := Parse(path)
	assert.Error(t, err)
}

func TestParseMarkdownChecklist(t *testing.T) {
	path := writeBatchFile(t, "todo.md", `
# Feature queue

- [ ] Add login page
- [x] Already shipped feature
- [ ] Add logout button
`)

	features, err := Parse(path)
	require.NoError(t, err)
	require.Len(t, features, 3)

	assert.Equal(t, "Add login page", features[0].Description)
	assert.Equal(t, state.FeaturePending, features[0].Status)

	// Checked items load as skipped so the summary still accounts for them.
	assert.Equal(t, "Already shipped feature", features[1].Description)
	assert.Equal(t, state.FeatureSkipped, features[1].Status)

	assert.Equal(t, state.FeaturePending, features[2].Status)
}

func TestParsePlainLines(t *testing.T) {
	path := writeBatchFile(t, "features.txt", `
First feature
- Second feature

Third feature
`)

	features, err := Parse(path)
	require.NoError(t, err)
	require.Len(t, features, 3)
	assert.Equal(t, "First feature", features[0].Description)
	assert.Equal(t, "Second feature", features[1].Description)
	assert.Equal(t, "Third feature", features[2].Description)
}

func TestParseEmptyFile(t *testing.T) {
	path := writeBatchFile(t, "empty.txt", "\n\n# only comments\n")
	_, err := Parse(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no features")
}

func TestParseMissingFile(t *testing.T) {
	_, err := Parse(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestHashFile(t *testing.T) {
	path := writeBatchFile(t, "hashed.txt", "feature one\n")

	h1, err := HashFile(path)
	require.NoError(t, err)
	assert.Len(t, h1, 64, "sha256 hex digest")

	h2, err := HashFile(path)
	require.NoError(t, err)
	assert.Equal(t, h1, h2, "hash must be deterministic")

	require.NoError(t, os.WriteFile(path, []byte("feature one\nfeature two\n"), 0600))
	h3, err := HashFile(path)
	require.NoError(t, err)
	assert.NotEqual(t, h1, h3)
}

func TestHashFileMissing(t *testing.T) {
	_, err := HashFile(filepath.Join(t.TempDir(), "nope"))
	assert.Error(t, err)
}
