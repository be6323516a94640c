package datadir

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_EnvVarWins(t *testing.T) {
	envDir := filepath.Join(t.TempDir(), "env-dir")
	t.Setenv(EnvVar, envDir)

	got, err := Resolve("/should/be/ignored")
	require.NoError(t, err)
	assert.Equal(t, envDir, got)

	info, err := os.Stat(envDir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
	assert.Equal(t, os.FileMode(0700), info.Mode().Perm())
}

func TestResolve_ConfigValueFallback(t *testing.T) {
	cfgDir := filepath.Join(t.TempDir(), "cfg-dir")
	t.Setenv(EnvVar, "")

	got, err := Resolve(cfgDir)
	require.NoError(t, err)
	assert.Equal(t, cfgDir, got)
}

func TestNew_DefaultHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv(EnvVar, "")

	d, err := New("")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, DefaultDirName), d.Root())
	assert.NoDirExists(t, d.Root(), "New must not create anything")
}

func TestDataDir_FilePaths(t *testing.T) {
	t.Setenv(EnvVar, "/data")
	d, err := New("")
	require.NoError(t, err)

	assert.Equal(t, "/data/session.json", d.SessionFile())
	assert.Equal(t, "/data/history.db", d.HistoryDB())
	assert.Equal(t, "/data/docconv.log", d.LogFile())
	assert.Equal(t, "/data/ssh/ssh_host_key", d.HostKeyPath())
	assert.Equal(t, "/data/ssh/authorized_keys", d.AuthorizedKeysPath())
	assert.Equal(t, "/data/other.txt", d.FilePath("other.txt"))
}

func TestDataDir_EnsureDirs(t *testing.T) {
	root := filepath.Join(t.TempDir(), "root")
	t.Setenv(EnvVar, root)
	d, err := New("")
	require.NoError(t, err)

	require.NoError(t, d.EnsureDirs())
	require.NoError(t, d.EnsureDirs(), "idempotent")

	for _, dir := range []string{root, d.SSHDir()} {
		info, err := os.Stat(dir)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0700), info.Mode().Perm(), dir)
	}
}

func TestLoadEnv_FirstWriteWins(t *testing.T) {
	dataRoot := t.TempDir()
	extra := t.TempDir()
	chdir(t, t.TempDir())
	t.Setenv(EnvFileEnvVar, "")

	require.NoError(t, os.WriteFile(filepath.Join(dataRoot, ".env"), []byte("TEST_DD_A=data\nTEST_DD_SHELL=data\n"), 0600))
	require.NoError(t, os.WriteFile(filepath.Join(extra, ".env"), []byte("TEST_DD_A=extra\nTEST_DD_B='quoted value'\n"), 0600))

	t.Setenv("TEST_DD_SHELL", "shell")
	for _, k := range []string{"TEST_DD_A", "TEST_DD_B"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	require.NoError(t, LoadEnv(dataRoot, extra))
	assert.Equal(t, "data", os.Getenv("TEST_DD_A"))
	assert.Equal(t, "quoted value", os.Getenv("TEST_DD_B"))
	assert.Equal(t, "shell", os.Getenv("TEST_DD_SHELL"))

	assert.Equal(t, []string{filepath.Join(dataRoot, ".env"), filepath.Join(extra, ".env")}, FindEnvFiles(dataRoot, extra))
}

func TestLoadEnv_OverrideFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "custom.env")
	require.NoError(t, os.WriteFile(file, []byte("TEST_DD_OVERRIDE=yes\n"), 0600))
	t.Setenv(EnvFileEnvVar, file)
	t.Setenv("TEST_DD_OVERRIDE", "")
	os.Unsetenv("TEST_DD_OVERRIDE")

	require.NoError(t, LoadEnv(t.TempDir()))
	assert.Equal(t, "yes", os.Getenv("TEST_DD_OVERRIDE"))
	assert.Equal(t, []string{file}, FindEnvFiles("ignored"))
}

func TestLoadEnv_MissingFilesIgnored(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv(EnvFileEnvVar, "")
	assert.NoError(t, LoadEnv(t.TempDir()))
}

// chdir mirrors testing.T.Chdir (Go 1.24+) for older toolchains: it changes
// the working directory and restores the previous one when the test ends.
func chdir(t *testing.T, dir string) {
	t.Helper()
	prev, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(prev) })
}
