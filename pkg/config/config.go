// Package config is the TOML-based configuration loader (component I): it
// holds the projection engine's per-invocation defaults and merges a
// system file, a user file, and a repository-local file in that order,
// the teacher's own layered Overwrite-style merge
// (modules/zeta/config.Load/LoadGlobal/LoadSystem).
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/joshproj/josh/internal/tracelog"
	"github.com/joshproj/josh/modules/strengthen"
)

// Core holds the engine-wide defaults a repository or invocation may
// override.
type Core struct {
	RepoRoot       string `toml:"repoRoot,omitempty"`
	HashFormat     string `toml:"hashFormat,omitempty"`
	NamespacePrefix string `toml:"namespacePrefix,omitempty"`
}

// overwrite keeps a unless b is non-zero, the teacher's merge-by-
// non-zero-value pattern (modules/zeta/config.overwrite).
func overwrite(a, b string) string {
	if len(b) != 0 {
		return b
	}
	return a
}

func (c *Core) Overwrite(o *Core) {
	c.RepoRoot = overwrite(c.RepoRoot, o.RepoRoot)
	c.HashFormat = overwrite(c.HashFormat, o.HashFormat)
	c.NamespacePrefix = overwrite(c.NamespacePrefix, o.NamespacePrefix)
}

// Meta holds defaults for the marker overlay (component F).
type Meta struct {
	DefaultTopic string `toml:"defaultTopic,omitempty"`
	RefName      string `toml:"refName,omitempty"`
}

func (m *Meta) Overwrite(o *Meta) {
	m.DefaultTopic = overwrite(m.DefaultTopic, o.DefaultTopic)
	m.RefName = overwrite(m.RefName, o.RefName)
}

// Config is the full set of loaded defaults.
type Config struct {
	Core Core `toml:"core,omitempty"`
	Meta Meta `toml:"meta,omitempty"`
}

// Overwrite merges co's non-zero fields onto c, co taking precedence.
func (c *Config) Overwrite(co *Config) {
	c.Core.Overwrite(&co.Core)
	c.Meta.Overwrite(&co.Meta)
}

// Default returns the engine's built-in defaults, applied before any file
// is loaded.
func Default() *Config {
	return &Config{
		Core: Core{HashFormat: "sha1", NamespacePrefix: "josh"},
		Meta: Meta{DefaultTopic: "review", RefName: "refs/josh/meta"},
	}
}

const envConfigSystem = "JOSH_CONFIG_SYSTEM"

func systemPath() string {
	if p, ok := os.LookupEnv(envConfigSystem); ok {
		return p
	}
	exe, err := os.Executable()
	if err != nil {
		return ""
	}
	prefix := filepath.Dir(exe)
	if filepath.Base(prefix) == "bin" {
		prefix = filepath.Dir(prefix)
	}
	return filepath.Join(prefix, "etc", "josh.toml")
}

// loadFile decodes path into a zero Config, returning it empty (not an
// error) when the file does not exist, so that only the fields the file
// sets overwrite earlier layers.
func loadFile(path string) (*Config, error) {
	cfg := &Config{}
	if len(path) == 0 {
		return cfg, nil
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, tracelog.Errorf("decode config %s: %w", path, err)
	}
	return cfg, nil
}

// LoadSystem loads the system-wide config file (JOSH_CONFIG_SYSTEM, or
// <exe-prefix>/etc/josh.toml).
func LoadSystem() (*Config, error) {
	return loadFile(systemPath())
}

// LoadGlobal loads ~/.joshrc.toml, expanded via the teacher's own
// ExpandPath (modules/strengthen), the same helper Load applies to
// repoRoot. The path is fixed; no environment variable overrides it.
func LoadGlobal() (*Config, error) {
	return loadFile(strengthen.ExpandPath("~/.joshrc.toml"))
}

// Load layers Default() under LoadSystem under LoadGlobal under a
// repository-local josh.toml (repoRoot/josh.toml, if repoRoot is
// non-empty), each overwriting the previous (spec §4.9). repoRoot is
// expanded first so callers may pass a "~"-relative or relative path
// straight from a CLI flag.
func Load(repoRoot string) (*Config, error) {
	system, err := LoadSystem()
	if err != nil {
		return nil, err
	}
	cfg := Default()
	cfg.Overwrite(system)
	global, err := LoadGlobal()
	if err != nil {
		return nil, err
	}
	cfg.Overwrite(global)

	if len(repoRoot) == 0 {
		return cfg, nil
	}
	repoRoot = strengthen.ExpandPath(repoRoot)
	local, err := loadFile(filepath.Join(repoRoot, "josh.toml"))
	if err != nil {
		return nil, err
	}
	cfg.Overwrite(local)
	cfg.Core.RepoRoot = repoRoot
	return cfg, nil
}
