package cmd

import (
	"bytes"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/ctcbeam/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs a fresh command tree in an empty working directory and
// returns stdout and stderr.
func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	t.Chdir(t.TempDir())
	return executeHere(t, args...)
}

// executeHere runs a fresh command tree in the current directory.
func executeHere(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	defaultLogger := slog.Default()
	t.Cleanup(func() { slog.SetDefault(defaultLogger) })

	var stdout, stderr bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&stdout)
	root.SetErr(&stderr)
	root.SetArgs(args)
	err := root.Execute()
	return stdout.String(), stderr.String(), err
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestRootCommand(t *testing.T) {
	root := NewRootCommand()
	assert.Equal(t, "ctcbeam", root.Use)
	assert.NotEmpty(t, root.Short)
	assert.NotEmpty(t, root.Long)

	names := make([]string, 0)
	for _, c := range root.Commands() {
		names = append(names, c.Name())
	}
	for _, want := range []string{"decode", "batch", "serve", "bench", "config", "version"} {
		assert.Contains(t, names, want)
	}
}

func TestRootCommandHelp(t *testing.T) {
	stdout, _, err := execute(t, "--help")
	require.NoError(t, err)
	assert.Contains(t, stdout, "prefix beam search")
	assert.Contains(t, stdout, "Available Commands:")
}

func TestRootCommand_ConfigFile(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "custom.yaml", "alphabet:\n  inline: \"-xy\"\ndecoder:\n  beam_size: 7\n")

	stdout, _, err := execute(t, "--config", cfgPath, "config", "show")
	require.NoError(t, err)
	assert.Regexp(t, `inline: "?-xy"?`, stdout)
	assert.Contains(t, stdout, "beam_size: 7")
}

func TestRootCommand_MissingConfigFile(t *testing.T) {
	_, _, err := execute(t, "--config", "/nonexistent/ctcbeam.yaml", "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file does not exist")
}

func TestRootCommand_InvalidConfig(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeFile(t, dir, "bad.yaml", "decoder:\n  beam_size: 0\n")
	_, _, err := execute(t, "--config", cfgPath, "version")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "configuration validation failed")
}

func TestSetupLogging(t *testing.T) {
	defaultLogger := slog.Default()
	t.Cleanup(func() { slog.SetDefault(defaultLogger) })

	var buf bytes.Buffer
	cfg := config.DefaultConfig()
	cfg.LogLevel = "warn"
	setupLogging(&buf, &cfg)
	slog.Info("hidden")
	slog.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	buf.Reset()
	cfg.Verbose = true
	setupLogging(&buf, &cfg)
	slog.Debug("debugging")
	assert.Contains(t, buf.String(), "debugging")
}

func TestVersionCommand(t *testing.T) {
	stdout, _, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, stdout, "ctcbeam version dev")
	assert.Contains(t, stdout, "Go: ")
}
