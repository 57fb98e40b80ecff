// Package manifest handles gangway.toml host configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/solweaver/gangway/channel"
	"github.com/solweaver/gangway/schema"
)

// Manifest represents a gangway.toml host configuration: which plugin
// executables to launch and how.
type Manifest struct {
	Host    Host              `toml:"host"`
	Plugins map[string]Plugin `toml:"plugins"`

	// Dir is the directory containing the gangway.toml file (set at load time).
	Dir string `toml:"-"`
}

// Host contains launcher-wide settings.
type Host struct {
	RegionSize       int    `toml:"region-size"`
	HandshakeTimeout string `toml:"handshake-timeout"`
	Verbosity        int    `toml:"verbosity"`
}

// Plugin describes one plugin executable.
type Plugin struct {
	Path string   `toml:"path"`
	Args []string `toml:"args"`

	// Fingerprint optionally pins the schema set the plugin must
	// announce, as a hex digest.
	Fingerprint string `toml:"fingerprint"`
}

// Load parses a gangway.toml file from the given directory.
func Load(dir string) (*Manifest, error) {
	path := filepath.Join(dir, "gangway.toml")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	var m Manifest
	if err := toml.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}

	m.Dir, err = filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}

	// Defaults
	if m.Host.RegionSize == 0 {
		m.Host.RegionSize = channel.DefaultRegionSize
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}
	return &m, nil
}

// FindAndLoad walks up from startDir to find a gangway.toml file,
// then loads and returns the manifest. Returns nil if no manifest is found.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return nil, err
	}

	for {
		path := filepath.Join(dir, "gangway.toml")
		if _, err := os.Stat(path); err == nil {
			return Load(dir)
		}

		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			return nil, nil
		}
		dir = parent
	}
}

// Validate checks every plugin entry for a usable path and a well-formed
// fingerprint.
func (m *Manifest) Validate() error {
	if m.Host.RegionSize < 0 {
		return fmt.Errorf("manifest: negative region size %d", m.Host.RegionSize)
	}
	if m.Host.HandshakeTimeout != "" {
		if _, err := time.ParseDuration(m.Host.HandshakeTimeout); err != nil {
			return fmt.Errorf("manifest: bad handshake-timeout: %w", err)
		}
	}
	for name, p := range m.Plugins {
		if p.Path == "" {
			return fmt.Errorf("manifest: plugin %q has no path", name)
		}
		if p.Fingerprint != "" {
			if _, err := schema.ParseFingerprint(p.Fingerprint); err != nil {
				return fmt.Errorf("manifest: plugin %q: %w", name, err)
			}
		}
	}
	return nil
}

// HandshakeTimeout returns the configured per-step timeout, or zero when
// unset.
func (m *Manifest) HandshakeTimeout() (time.Duration, error) {
	if m.Host.HandshakeTimeout == "" {
		return 0, nil
	}
	return time.ParseDuration(m.Host.HandshakeTimeout)
}

// PluginPath returns the absolute executable path of a named plugin.
func (m *Manifest) PluginPath(name string) (string, error) {
	p, ok := m.Plugins[name]
	if !ok {
		return "", fmt.Errorf("manifest: unknown plugin %q", name)
	}
	if filepath.IsAbs(p.Path) {
		return p.Path, nil
	}
	return filepath.Join(m.Dir, p.Path), nil
}

// PinnedFingerprint returns the pinned schema fingerprint of a named
// plugin, and whether one is configured.
func (m *Manifest) PinnedFingerprint(name string) (schema.Fingerprint, bool, error) {
	p, ok := m.Plugins[name]
	if !ok || p.Fingerprint == "" {
		return schema.Fingerprint{}, false, nil
	}
	fp, err := schema.ParseFingerprint(p.Fingerprint)
	if err != nil {
		return schema.Fingerprint{}, false, err
	}
	return fp, true, nil
}
