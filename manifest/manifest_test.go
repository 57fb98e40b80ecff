package manifest

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/solweaver/gangway/channel"
)

func writeManifest(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "gangway.toml"), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestLoadManifest(t *testing.T) {
	dir := writeManifest(t, `
[host]
region-size = 4096
handshake-timeout = "10s"
verbosity = 1

[plugins.spell]
path = "plugins/spell"
args = ["--lang", "en"]

[plugins.format]
path = "/opt/format"
fingerprint = "`+strings.Repeat("ab", 32)+`"
`)

	m, err := Load(dir)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if m.Host.RegionSize != 4096 {
		t.Errorf("region size = %d, want 4096", m.Host.RegionSize)
	}
	if m.Host.Verbosity != 1 {
		t.Errorf("verbosity = %d, want 1", m.Host.Verbosity)
	}
	d, err := m.HandshakeTimeout()
	if err != nil || d != 10*time.Second {
		t.Errorf("handshake timeout = %v (%v), want 10s", d, err)
	}
	if len(m.Plugins) != 2 {
		t.Fatalf("plugin count = %d, want 2", len(m.Plugins))
	}
	if got := m.Plugins["spell"].Args; len(got) != 2 || got[0] != "--lang" {
		t.Errorf("spell args = %v", got)
	}

	path, err := m.PluginPath("spell")
	if err != nil {
		t.Fatal(err)
	}
	if path != filepath.Join(m.Dir, "plugins/spell") {
		t.Errorf("relative plugin path not anchored at manifest dir: %s", path)
	}
	path, err = m.PluginPath("format")
	if err != nil || path != "/opt/format" {
		t.Errorf("absolute plugin path changed: %s (%v)", path, err)
	}

	fp, ok, err := m.PinnedFingerprint("format")
	if err != nil || !ok {
		t.Fatalf("pinned fingerprint: ok=%v err=%v", ok, err)
	}
	if fp.String() != strings.Repeat("ab", 32) {
		t.Errorf("fingerprint round trip changed: %s", fp)
	}
	if _, ok, _ := m.PinnedFingerprint("spell"); ok {
		t.Error("spell has no pin but one was reported")
	}
}

func TestLoadManifest_Defaults(t *testing.T) {
	dir := writeManifest(t, `
[plugins.spell]
path = "spell"
`)
	m, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if m.Host.RegionSize != channel.DefaultRegionSize {
		t.Errorf("default region size = %d, want %d", m.Host.RegionSize, channel.DefaultRegionSize)
	}
	if d, err := m.HandshakeTimeout(); err != nil || d != 0 {
		t.Errorf("unset timeout should be zero, got %v (%v)", d, err)
	}
}

func TestLoadManifest_RejectsMissingPath(t *testing.T) {
	dir := writeManifest(t, `
[plugins.spell]
args = ["--lang", "en"]
`)
	if _, err := Load(dir); err == nil {
		t.Fatal("plugin without a path must fail validation")
	}
}

func TestLoadManifest_RejectsBadFingerprint(t *testing.T) {
	dir := writeManifest(t, `
[plugins.spell]
path = "spell"
fingerprint = "zz"
`)
	if _, err := Load(dir); err == nil {
		t.Fatal("malformed fingerprint must fail validation")
	}
}

func TestFindAndLoad_WalksUp(t *testing.T) {
	dir := writeManifest(t, `
[plugins.spell]
path = "spell"
`)
	nested := filepath.Join(dir, "a", "b")
	if err := os.MkdirAll(nested, 0755); err != nil {
		t.Fatal(err)
	}
	m, err := FindAndLoad(nested)
	if err != nil {
		t.Fatal(err)
	}
	if m == nil || m.Dir != dir {
		t.Fatalf("manifest not found from nested dir: %+v", m)
	}
}
