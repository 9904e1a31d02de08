package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/joeycumines/radscript/internal/command"
	"github.com/joeycumines/radscript/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRun(t *testing.T) {
	t.Setenv(config.ConfigEnv, filepath.Join(t.TempDir(), "config"))

	for _, args := range [][]string{nil, {"help"}, {"-h"}, {"--help"}} {
		var stdout, stderr bytes.Buffer
		require.NoError(t, run(args, &stdout, &stderr), "%v", args)
		assert.Contains(t, stdout.String(), "Usage: radscript <command>")
	}

	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"version"}, &stdout, &stderr))
	assert.Equal(t, "radscript version "+version+"\n", stdout.String())

	err := run([]string{"nonexistent"}, &stdout, &stderr)
	assert.ErrorIs(t, err, command.ErrUnknownCommand)
}

func TestRun_Config(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config")
	t.Setenv(config.ConfigEnv, configPath)

	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"config", "script-timeout", "5s"}, &stdout, &stderr))

	stdout.Reset()
	require.NoError(t, run([]string{"config", "script-timeout"}, &stdout, &stderr))
	assert.Equal(t, "script-timeout: 5s\n", stdout.String())

	mapPath := filepath.Join(dir, "map.yaml")
	require.NoError(t, os.WriteFile(mapPath, []byte("nodes:\n  - type: entity\n    keys: {classname: worldspawn}\n"), 0o644))
	require.NoError(t, run([]string{"config", "map", mapPath}, &stdout, &stderr))

	stdout.Reset()
	require.NoError(t, run([]string{"run", "-e", `print(Radiant.findEntityByClassname("worldspawn") !== null)`}, &stdout, &stderr))
	assert.Equal(t, "true\n", stdout.String())
}

func TestRun_BadConfig(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "real")
	require.NoError(t, os.WriteFile(target, []byte("undo-levels 3\n"), 0o644))
	link := filepath.Join(dir, "config")
	if err := os.Symlink(target, link); err != nil {
		t.Skipf("symlinks unavailable: %v", err)
	}
	t.Setenv(config.ConfigEnv, link)

	var stdout, stderr bytes.Buffer
	require.NoError(t, run([]string{"version"}, &stdout, &stderr))
	assert.Contains(t, stderr.String(), "symlink not allowed")
}
