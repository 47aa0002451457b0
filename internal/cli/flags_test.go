package cli

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/CodexForgeBR/batch-loop/internal/config"
)

func newTestCommand() (*cobra.Command, *config.Config) {
	cfg := config.NewDefaultConfig()
	cmd := &cobra.Command{Use: "batch-loop"}
	BindFlags(cmd, cfg)
	return cmd, cfg
}

func tempBatchFile(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "features.txt")
	require.NoError(t, os.WriteFile(path, []byte("one feature\n"), 0600))
	return path
}

func TestValidateFlagsRequiresOneMode(t *testing.T) {
	cmd, cfg := newTestCommand()
	err := ValidateFlags(cmd, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "required")
}

func TestValidateFlagsModesAreExclusive(t *testing.T) {
	cmd, cfg := newTestCommand()
	cfg.BatchFile = tempBatchFile(t)
	cfg.ResumeID = "some-batch"

	err := ValidateFlags(cmd, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "mutually exclusive")
}

func TestValidateFlagsBatchMode(t *testing.T) {
	cmd, cfg := newTestCommand()
	cfg.BatchFile = tempBatchFile(t)
	assert.NoError(t, ValidateFlags(cmd, cfg))
}

func TestValidateFlagsBatchFileMustExist(t *testing.T) {
	cmd, cfg := newTestCommand()
	cfg.BatchFile = filepath.Join(t.TempDir(), "missing.txt")
	assert.Error(t, ValidateFlags(cmd, cfg))
}

func TestValidateFlagsConfigFileMustExist(t *testing.T) {
	cmd, cfg := newTestCommand()
	cfg.BatchFile = tempBatchFile(t)
	cfg.ConfigFile = filepath.Join(t.TempDir(), "missing.conf")
	assert.Error(t, ValidateFlags(cmd, cfg))
}

func TestValidateFlagsResumeForceRequiresResume(t *testing.T) {
	cmd, cfg := newTestCommand()
	cfg.BatchFile = tempBatchFile(t)
	cfg.ResumeForce = true

	err := ValidateFlags(cmd, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "--resume-force requires --resume")
}

func TestValidateFlagsResumeForceWithResume(t *testing.T) {
	cmd, cfg := newTestCommand()
	cfg.ResumeID = "batch-x"
	cfg.ResumeForce = true
	assert.NoError(t, ValidateFlags(cmd, cfg))
}

func TestValidateFlagsStatusAndCleanModes(t *testing.T) {
	cmd, cfg := newTestCommand()
	cfg.StatusID = "batch-x"
	assert.NoError(t, ValidateFlags(cmd, cfg))

	cmd2, cfg2 := newTestCommand()
	cfg2.CleanID = "batch-x"
	assert.NoError(t, ValidateFlags(cmd2, cfg2))
}

func TestValidateFlagsLimitBounds(t *testing.T) {
	cmd, cfg := newTestCommand()
	cfg.ResumeID = "batch-x"
	cfg.MaxRetriesPerFeature = 0
	assert.Error(t, ValidateFlags(cmd, cfg))

	cmd2, cfg2 := newTestCommand()
	cfg2.ResumeID = "batch-x"
	cfg2.BreakerThreshold = 0
	assert.Error(t, ValidateFlags(cmd2, cfg2))
}

func TestBindFlagsParsesValues(t *testing.T) {
	cmd, cfg := newTestCommand()
	cmd.RunE = func(*cobra.Command, []string) error { return nil }
	cmd.SetArgs([]string{
		"--issues", "12,13",
		"--agent-model", "opus",
		"--breaker-threshold", "5",
		"--no-sort",
		"-v",
	})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, "12,13", cfg.Issues)
	assert.Equal(t, "opus", cfg.AgentModel)
	assert.Equal(t, 5, cfg.BreakerThreshold)
	assert.True(t, cfg.NoSort)
	assert.True(t, cfg.Verbose)
	assert.True(t, cmd.Flags().Changed("breaker-threshold"))
	assert.False(t, cmd.Flags().Changed("max-iterations"))
}
