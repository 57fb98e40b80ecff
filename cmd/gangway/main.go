// Gangway host runner - launches the plugins of a gangway.toml and walks
// each through its handshake.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/tliron/commonlog"

	"github.com/solweaver/gangway/host"
	"github.com/solweaver/gangway/manifest"
	"github.com/solweaver/gangway/schema"
)

func main() {
	dir := flag.String("dir", ".", "Directory to search for gangway.toml (walks up)")
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: gangway [options]\n\n")
		fmt.Fprintf(os.Stderr, "Launches every plugin declared in gangway.toml and reports handshake results.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
	}
	flag.Parse()

	m, err := manifest.FindAndLoad(*dir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading manifest: %v\n", err)
		os.Exit(1)
	}
	if m == nil {
		fmt.Fprintf(os.Stderr, "No gangway.toml found from %s\n", *dir)
		os.Exit(1)
	}

	commonlog.Configure(m.Host.Verbosity, nil)

	opts := []host.Option{host.WithRegionSize(m.Host.RegionSize)}
	if d, err := m.HandshakeTimeout(); err == nil && d > 0 {
		opts = append(opts, host.WithHandshakeTimeout(d))
	}
	launcher := host.NewLauncher(opts...)

	// The host's compiled schema set. A real embedding application
	// registers its object schemes here before launching anything.
	hostSet, err := schema.NewSet()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error building schema set: %v\n", err)
		os.Exit(1)
	}

	failed := 0
	for name, p := range m.Plugins {
		path, err := m.PluginPath(name)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
			failed++
			continue
		}
		session, err := launcher.Launch(path, p.Args...)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
			failed++
			continue
		}
		if err := session.Handshake(hostSet); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
			failed++
			continue
		}
		if pinned, ok, err := m.PinnedFingerprint(name); err != nil {
			fmt.Fprintf(os.Stderr, "%s: %v\n", name, err)
			failed++
			session.Close()
			continue
		} else if ok && session.SchemaFingerprint() != pinned {
			fmt.Fprintf(os.Stderr, "%s: schema fingerprint %s does not match pinned %s\n",
				name, session.SchemaFingerprint(), pinned)
			failed++
			session.Close()
			continue
		}
		fmt.Printf("%s: active, %d types indexed\n", name, session.Index().Len())
		session.Close()
	}
	if failed > 0 {
		os.Exit(1)
	}
}
