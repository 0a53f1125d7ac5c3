package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, contents string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, FileName), []byte(contents), 0o644))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
[engine]
command = ["aves", "-engine"]

[machine]
max-stack = 4096
max-steps = 1000000
trace = true
`)

	c, err := Load(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"aves", "-engine"}, c.Engine.Command)
	assert.Equal(t, 4096, c.Machine.MaxStack)
	assert.Equal(t, int64(1000000), c.Machine.MaxSteps)
	assert.True(t, c.Machine.Trace)

	abs, err := filepath.Abs(dir)
	require.NoError(t, err)
	assert.Equal(t, abs, c.Dir)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(t.TempDir())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoadRejectsMalformedTOML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `[engine`)

	_, err := Load(dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse error")
}

func TestFindAndLoadWalksUp(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
[machine]
max-steps = 42
`)

	nested := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(nested, 0o755))

	c, err := FindAndLoad(nested)
	require.NoError(t, err)
	assert.Equal(t, int64(42), c.Machine.MaxSteps)

	abs, err := filepath.Abs(root)
	require.NoError(t, err)
	assert.Equal(t, abs, c.Dir)
}

func TestFindAndLoadPrefersNearest(t *testing.T) {
	root := t.TempDir()
	writeConfig(t, root, `
[machine]
max-steps = 1
`)

	nested := filepath.Join(root, "sub")
	require.NoError(t, os.MkdirAll(nested, 0o755))
	writeConfig(t, nested, `
[machine]
max-steps = 2
`)

	c, err := FindAndLoad(nested)
	require.NoError(t, err)
	assert.Equal(t, int64(2), c.Machine.MaxSteps)
}

func TestFindAndLoadDefaultsWhenAbsent(t *testing.T) {
	dir := t.TempDir()
	c, err := FindAndLoad(dir)
	require.NoError(t, err)
	assert.Empty(t, c.Engine.Command)
	assert.Zero(t, c.Machine.MaxStack)
	assert.Zero(t, c.Machine.MaxSteps)
}

func TestDefaultRunsInProcess(t *testing.T) {
	c := Default()
	assert.Empty(t, c.Engine.Command)
	assert.Empty(t, c.Dir)
}
