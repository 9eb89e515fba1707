package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVersionCommand(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "sonido-tempo dev\n", out.String())
}

func TestLoadConfigFlagsOverrideFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte("[analysis]\nmin_bpm = 70\nmax_bpm = 180\nsensitivity = 3\n"), 0o644))

	opts := &options{configPath: path}
	cmd := newAnalyzeCmd(opts)
	require.NoError(t, cmd.ParseFlags([]string{"--max", "150"}))

	cfg, err := loadConfig(cmd, opts)
	require.NoError(t, err)

	assert.Equal(t, 70, cfg.Analysis.MinBPM)
	assert.Equal(t, 150, cfg.Analysis.MaxBPM)
	assert.Equal(t, 3, cfg.Analysis.Sensitivity)
}

func TestLoadConfigRejectsInvalidFlags(t *testing.T) {
	opts := &options{configPath: filepath.Join(t.TempDir(), "missing.toml")}
	cmd := newAnalyzeCmd(opts)
	require.NoError(t, cmd.ParseFlags([]string{"--min", "200", "--max", "100"}))

	_, err := loadConfig(cmd, opts)
	assert.Error(t, err)
}

func TestAnalyzeRequiresFile(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"analyze"})

	assert.Error(t, cmd.Execute())
}

func TestColorEnabled(t *testing.T) {
	assert.False(t, colorEnabled(&options{}, &bytes.Buffer{}), "buffers are not terminals")
	assert.False(t, colorEnabled(&options{noColor: true}, os.Stdout))

	t.Setenv("NO_COLOR", "1")
	assert.False(t, colorEnabled(&options{}, os.Stdout))
}

func TestRootAcceptsNoColor(t *testing.T) {
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetArgs([]string{"--no-color", "version"})

	require.NoError(t, cmd.Execute())
	assert.Equal(t, "sonido-tempo dev\n", out.String())
}
