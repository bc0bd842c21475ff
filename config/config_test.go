package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/xivgo/sqpack/config"
)

const sampleYAML = `
default_repository: ffxiv
install_root: /opt/ffxiv
repositories:
  - name: ffxiv
    id: 0
  - name: ex1
    id: 1
    path: /custom/ex1
`

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "sqpack.yaml")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	return path
}

func TestLoad_Basic(t *testing.T) {
	path := writeConfig(t, sampleYAML)

	db, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "ffxiv", db.DefaultRepository)
	require.Equal(t, "/opt/ffxiv", db.InstallRoot)
	require.Len(t, db.Repositories, 2)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestLoad_NoRepositories(t *testing.T) {
	path := writeConfig(t, "install_root: /opt/ffxiv\n")
	_, err := config.Load(path)
	require.Error(t, err)
}

func TestLoad_EnvOverride(t *testing.T) {
	path := writeConfig(t, sampleYAML)
	t.Setenv("SQPACK_INSTALL_ROOT", "/overridden")

	db, err := config.Load(path)
	require.NoError(t, err)
	require.Equal(t, "/overridden", db.InstallRoot)
}

func TestResolve_FillsPathFromInstallRoot(t *testing.T) {
	db := &config.Database{
		InstallRoot: "/opt/ffxiv",
		Repositories: []config.Repository{
			{Name: "ffxiv", ID: 0},
			{Name: "ex1", ID: 1, Path: "/custom/ex1"},
		},
	}

	repos := db.Resolve()
	require.Len(t, repos, 2)
	require.Equal(t, "/opt/ffxiv/game/sqpack/ffxiv", repos[0].Path)
	require.Equal(t, "/custom/ex1", repos[1].Path)
}
