package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/joshproj/josh/pkg/config"
)

func TestDefaultHasBuiltInDefaults(t *testing.T) {
	cfg := config.Default()
	require.Equal(t, "sha1", cfg.Core.HashFormat)
	require.Equal(t, "josh", cfg.Core.NamespacePrefix)
	require.Equal(t, "review", cfg.Meta.DefaultTopic)
}

func TestLoadMissingFilesYieldsDefaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("JOSH_CONFIG_SYSTEM", filepath.Join(dir, "nonexistent.toml"))
	t.Setenv("HOME", dir)

	cfg, err := config.Load("")
	require.NoError(t, err)
	require.Equal(t, "sha1", cfg.Core.HashFormat)
}

func TestLoadOverwritesLayerByLayer(t *testing.T) {
	dir := t.TempDir()
	systemPath := filepath.Join(dir, "system.toml")
	require.NoError(t, os.WriteFile(systemPath, []byte("[core]\nhashFormat = \"sha256\"\n"), 0o644))
	t.Setenv("JOSH_CONFIG_SYSTEM", systemPath)
	t.Setenv("HOME", dir)

	repoRoot := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(repoRoot, "josh.toml"), []byte("[meta]\ndefaultTopic = \"qa\"\n"), 0o644))

	cfg, err := config.Load(repoRoot)
	require.NoError(t, err)
	require.Equal(t, "sha256", cfg.Core.HashFormat, "system file overrides the built-in default")
	require.Equal(t, "qa", cfg.Meta.DefaultTopic, "repo-local file overrides everything above it")
	require.Equal(t, repoRoot, cfg.Core.RepoRoot)
}
