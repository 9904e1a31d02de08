package host

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	h, err := Load(Options{
		RegistryPath: writeFile(t, dir, "user.toml", "[user.paths]\nappPath = \"/opt/editor\"\n"),
		DefsPath: writeFile(t, dir, "defs.yaml", `
entityClasses:
  - name: worldspawn
    attributes:
      editor_usage: The world.
`),
		MapPath: writeFile(t, dir, "map.yaml", `
nodes:
  - type: entity
    keys: {classname: worldspawn}
  - type: entity
    keys: {classname: info_player_start}
`),
		UndoLevels: 3,
	})
	require.NoError(t, err)

	assert.Equal(t, "/opt/editor", h.Registry.GetOr("user/paths/appPath", ""))

	world := h.App.FindEntityByClassname("worldspawn")
	require.NotNil(t, world)
	class := h.App.EntityClassOf(world)
	require.NotNil(t, class)
	assert.Equal(t, "worldspawn", class.Name)

	assert.Nil(t, h.App.EntityClassOf(h.App.FindEntityByClassname("info_player_start")))
	assert.Nil(t, h.App.FindEntityByClassname("light"))
	assert.Len(t, h.App.FindEntities("worldspawn"), 1)

	for i := 0; i < 5; i++ {
		require.NoError(t, world.SetKeyValue("k", string(rune('a'+i))))
	}
	assert.Equal(t, 3, h.Scene.UndoSystem().Size())
}

func TestLoad_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	_, err := Load(Options{DefsPath: filepath.Join(dir, "missing.yaml")})
	assert.ErrorContains(t, err, "load definitions")

	_, err = Load(Options{MapPath: writeFile(t, dir, "bad.yaml", "nodes:\n  - type: nope\n")})
	assert.ErrorContains(t, err, "load map")

	_, err = Load(Options{RegistryPath: writeFile(t, dir, "bad.toml", "= broken")})
	assert.ErrorContains(t, err, "load registry")

	h, err := Load(Options{RegistryPath: filepath.Join(dir, "absent.toml")})
	require.NoError(t, err)
	assert.Equal(t, 0, h.Registry.Len())
}
