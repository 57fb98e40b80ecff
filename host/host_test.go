package host

import (
	"errors"
	"testing"
	"time"

	"github.com/solweaver/gangway/channel"
	"github.com/solweaver/gangway/protocol"
	"github.com/solweaver/gangway/schema"
)

func objectScheme(name string, decls ...*schema.TypeDecl) *schema.Scheme {
	return &schema.Scheme{Name: name, Kind: schema.SchemeObject, Types: decls}
}

func decl(name string, shapes ...*schema.FieldType) *schema.TypeDecl {
	d := &schema.TypeDecl{Name: name}
	for _, s := range shapes {
		d.Versions = append(d.Versions, schema.Version{Shape: s})
	}
	return d
}

func hostSet(t *testing.T) *schema.Set {
	t.Helper()
	set, err := schema.NewSet(
		objectScheme("doc",
			decl("line", schema.Str(), schema.Struct(schema.Field{Name: "text", Type: schema.Str()})),
			decl("cursor", schema.Tuple(schema.Uint(64), schema.Uint(64))),
		),
		objectScheme("geometry",
			decl("point", schema.Tuple(schema.Float(64), schema.Float(64))),
		),
	)
	if err != nil {
		t.Fatal(err)
	}
	return set
}

func TestBuildTypeIndex_Bijection(t *testing.T) {
	set := hostSet(t)
	// The plugin compiled against an older snapshot: same order, first
	// declaration one version behind, trailing scheme present.
	pluginSchemes := []*schema.Scheme{
		objectScheme("doc",
			decl("line", schema.Str()),
			decl("cursor", schema.Tuple(schema.Uint(64), schema.Uint(64))),
		),
		objectScheme("geometry",
			decl("point", schema.Tuple(schema.Float(64), schema.Float(64))),
		),
	}

	idx, err := BuildTypeIndex(set, pluginSchemes)
	if err != nil {
		t.Fatal(err)
	}
	if idx.Len() != 3 {
		t.Fatalf("want 3 paired types, got %d", idx.Len())
	}
	for plugin := TypeID(0); plugin < TypeID(idx.Len()); plugin++ {
		host, ok := idx.HostID(plugin)
		if !ok {
			t.Fatalf("plugin ID %d has no host ID", plugin)
		}
		back, ok := idx.PluginID(host)
		if !ok || back != plugin {
			t.Fatalf("host ID %d maps back to %d, want %d", host, back, plugin)
		}
	}
	if _, ok := idx.PluginID(TypeID(99)); ok {
		t.Fatal("unknown host ID must not resolve")
	}
}

func TestBuildTypeIndex_NameMismatchFails(t *testing.T) {
	set := hostSet(t)
	pluginSchemes := []*schema.Scheme{
		objectScheme("doc",
			decl("cursor", schema.Tuple(schema.Uint(64), schema.Uint(64))),
			decl("line", schema.Str()),
		),
	}
	if _, err := BuildTypeIndex(set, pluginSchemes); !errors.Is(err, ErrIndexMismatch) {
		t.Fatalf("want ErrIndexMismatch, got %v", err)
	}
}

func TestBuildTypeIndex_DivergentVersionFails(t *testing.T) {
	set := hostSet(t)
	pluginSchemes := []*schema.Scheme{
		objectScheme("doc",
			decl("line", schema.Uint(8)),
			decl("cursor", schema.Tuple(schema.Uint(64), schema.Uint(64))),
		),
	}
	if _, err := BuildTypeIndex(set, pluginSchemes); !errors.Is(err, ErrIndexMismatch) {
		t.Fatalf("want ErrIndexMismatch, got %v", err)
	}
}

// fakePlugin is an in-process stand-in for a spawned plugin: an output
// endpoint on the reversed plugin-to-host lane.
func fakePlugin(t *testing.T) (*channel.Input, *channel.Output) {
	t.Helper()
	lane, err := channel.CreateLane(false, channel.DefaultRegionSize)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { lane.Close() })
	in, err := channel.NewInput(lane)
	if err != nil {
		t.Fatal(err)
	}
	out, err := channel.NewOutput(lane.Reversed())
	if err != nil {
		t.Fatal(err)
	}
	return in, out
}

func send(t *testing.T, out *channel.Output, m protocol.Message) {
	t.Helper()
	data, err := protocol.EncodeMessage(m)
	if err != nil {
		t.Error(err)
		return
	}
	if ok, err := out.Write(data, channel.Block); err != nil || !ok {
		t.Errorf("send %T: ok=%v err=%v", m, ok, err)
	}
}

func TestHandshake_Completes(t *testing.T) {
	set := hostSet(t)
	in, pluginOut := fakePlugin(t)

	go func() {
		send(t, pluginOut, protocol.SetVersion{Major: protocol.ProtocolMajor, Minor: protocol.ProtocolMinor})
		send(t, pluginOut, protocol.SetIndex{Schemes: set.Schemes()})
		send(t, pluginOut, protocol.Finalize{})
	}()

	idx, fingerprint, err := runHandshake(in, set, time.Second, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if idx.Len() != 3 {
		t.Fatalf("want 3 paired types, got %d", idx.Len())
	}
	want, err := schema.FingerprintSet(set)
	if err != nil {
		t.Fatal(err)
	}
	if fingerprint != want {
		t.Errorf("fingerprint %s does not match announced set %s", fingerprint, want)
	}
}

func TestHandshake_IndexBeforeVersionFails(t *testing.T) {
	set := hostSet(t)
	in, pluginOut := fakePlugin(t)

	go send(t, pluginOut, protocol.SetIndex{Schemes: set.Schemes()})

	if _, _, err := runHandshake(in, set, time.Second, nil, nil); !errors.Is(err, ErrPlugin) {
		t.Fatalf("want ErrPlugin, got %v", err)
	}
}

func TestHandshake_DoubleVersionFails(t *testing.T) {
	set := hostSet(t)
	in, pluginOut := fakePlugin(t)

	go func() {
		send(t, pluginOut, protocol.SetVersion{Major: protocol.ProtocolMajor, Minor: protocol.ProtocolMinor})
		send(t, pluginOut, protocol.SetVersion{Major: protocol.ProtocolMajor, Minor: protocol.ProtocolMinor})
	}()

	if _, _, err := runHandshake(in, set, time.Second, nil, nil); !errors.Is(err, ErrPlugin) {
		t.Fatalf("want ErrPlugin, got %v", err)
	}
}

func TestHandshake_SilenceTimesOut(t *testing.T) {
	set := hostSet(t)
	in, _ := fakePlugin(t)

	if _, _, err := runHandshake(in, set, 20*time.Millisecond, nil, nil); !errors.Is(err, ErrUnresponsive) {
		t.Fatalf("want ErrUnresponsive, got %v", err)
	}
}

func TestHandshake_WrongMajorVersionFails(t *testing.T) {
	set := hostSet(t)
	in, pluginOut := fakePlugin(t)

	go send(t, pluginOut, protocol.SetVersion{Major: protocol.ProtocolMajor + 1})

	if _, _, err := runHandshake(in, set, time.Second, nil, nil); !errors.Is(err, ErrPlugin) {
		t.Fatalf("want ErrPlugin, got %v", err)
	}
}
