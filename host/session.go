package host

import (
	"errors"
	"fmt"
	"os/exec"
	"sync/atomic"
	"time"

	"github.com/solweaver/gangway/channel"
	"github.com/solweaver/gangway/protocol"
	"github.com/solweaver/gangway/schema"
)

// State tracks a plugin session through its handshake.
type State int32

const (
	Spawning State = iota
	AwaitingVersion
	AwaitingIndex
	AwaitingFinalize
	Active
	Failed
)

func (s State) String() string {
	switch s {
	case Spawning:
		return "spawning"
	case AwaitingVersion:
		return "awaiting-version"
	case AwaitingIndex:
		return "awaiting-index"
	case AwaitingFinalize:
		return "awaiting-finalize"
	case Active:
		return "active"
	case Failed:
		return "failed"
	}
	return "invalid"
}

// HandshakeTimeout bounds each handshake step.
const HandshakeTimeout = 5 * time.Second

var (
	// ErrPlugin reports a protocol violation or premature exit by the
	// plugin. Fatal to that plugin instance only.
	ErrPlugin = errors.New("host: plugin error")

	// ErrUnresponsive reports a handshake step that timed out.
	ErrUnresponsive = errors.New("host: plugin unresponsive")

	// ErrNotActive reports traffic attempted outside the Active state.
	ErrNotActive = errors.New("host: session not active")
)

// Session is one spawned plugin instance: its process, the two lanes, and
// the type index built during the handshake. All channel traffic for a
// session happens on the single goroutine that owns it.
type Session struct {
	cmd     *exec.Cmd
	in      *channel.Input
	out     *channel.Output
	inLane  *channel.Lane
	outLane *channel.Lane

	state       atomic.Int32
	exited      atomic.Bool
	index       *TypeIndex
	fingerprint schema.Fingerprint
	step        time.Duration
}

// State returns the session's current state.
func (s *Session) State() State {
	return State(s.state.Load())
}

// Index returns the type index, nil until the session is Active.
func (s *Session) Index() *TypeIndex {
	return s.index
}

// SchemaFingerprint returns the content hash of the schema set the plugin
// announced. Zero until the session is Active.
func (s *Session) SchemaFingerprint() schema.Fingerprint {
	return s.fingerprint
}

// watch reaps the child and flags its exit so handshake timeouts can tell
// a dead plugin from a slow one.
func (s *Session) watch() {
	if s.cmd == nil {
		return
	}
	s.cmd.Wait()
	s.exited.Store(true)
}

// Handshake drives the session from Spawning to Active: the plugin must
// send exactly SetVersion, SetIndex, Finalize, in that order, each within
// HandshakeTimeout. Any other message, a timeout, or a dead child fails
// the session and releases everything it held.
func (s *Session) Handshake(hostSet *schema.Set) error {
	index, fingerprint, err := runHandshake(s.in, hostSet, s.step, &s.exited, func(st State) {
		s.state.Store(int32(st))
	})
	if err != nil {
		s.fail()
		return err
	}
	s.index = index
	s.fingerprint = fingerprint
	s.state.Store(int32(Active))
	log.Infof("plugin session active, %d types indexed", index.Len())
	return nil
}

// runHandshake walks the three steps over a bare input endpoint. Factored
// off the Session so the state machine can be driven by an in-process
// peer.
func runHandshake(in *channel.Input, hostSet *schema.Set, step time.Duration, exited *atomic.Bool, onState func(State)) (*TypeIndex, schema.Fingerprint, error) {
	recv := func(state State) (protocol.Message, error) {
		if onState != nil {
			onState(state)
		}
		data, err := in.Read(step)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrPlugin, state, err)
		}
		if data == nil {
			if exited != nil && exited.Load() {
				return nil, fmt.Errorf("%w: exited during %s", ErrPlugin, state)
			}
			return nil, fmt.Errorf("%w: %s", ErrUnresponsive, state)
		}
		m, err := protocol.DecodeMessage(data)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrPlugin, state, err)
		}
		return m, nil
	}

	m, err := recv(AwaitingVersion)
	if err != nil {
		return nil, schema.Fingerprint{}, err
	}
	version, ok := m.(protocol.SetVersion)
	if !ok {
		return nil, schema.Fingerprint{}, fmt.Errorf("%w: %s: got %T", ErrPlugin, AwaitingVersion, m)
	}
	if version.Major != protocol.ProtocolMajor {
		return nil, schema.Fingerprint{}, fmt.Errorf("%w: protocol %d.%d, host speaks %d.%d",
			ErrPlugin, version.Major, version.Minor, protocol.ProtocolMajor, protocol.ProtocolMinor)
	}

	m, err = recv(AwaitingIndex)
	if err != nil {
		return nil, schema.Fingerprint{}, err
	}
	setIndex, ok := m.(protocol.SetIndex)
	if !ok {
		return nil, schema.Fingerprint{}, fmt.Errorf("%w: %s: got %T", ErrPlugin, AwaitingIndex, m)
	}
	index, err := BuildTypeIndex(hostSet, setIndex.Schemes)
	if err != nil {
		return nil, schema.Fingerprint{}, fmt.Errorf("%w: %v", ErrPlugin, err)
	}
	pluginSet, err := schema.NewSet(setIndex.Schemes...)
	if err != nil {
		return nil, schema.Fingerprint{}, fmt.Errorf("%w: %v", ErrPlugin, err)
	}
	fingerprint, err := schema.FingerprintSet(pluginSet)
	if err != nil {
		return nil, schema.Fingerprint{}, fmt.Errorf("%w: %v", ErrPlugin, err)
	}

	m, err = recv(AwaitingFinalize)
	if err != nil {
		return nil, schema.Fingerprint{}, err
	}
	if _, ok := m.(protocol.Finalize); !ok {
		return nil, schema.Fingerprint{}, fmt.Errorf("%w: %s: got %T", ErrPlugin, AwaitingFinalize, m)
	}
	return index, fingerprint, nil
}

// Send delivers one encoded message to an active plugin. False with no
// error means the plugin did not yield the write turn in time.
func (s *Session) Send(msg []byte, timeout time.Duration) (bool, error) {
	if s.State() != Active {
		return false, ErrNotActive
	}
	return s.out.Write(msg, timeout)
}

// Recv reads one encoded message from an active plugin. Nil with no error
// means nothing arrived in time.
func (s *Session) Recv(timeout time.Duration) ([]byte, error) {
	if s.State() != Active {
		return nil, ErrNotActive
	}
	return s.in.Read(timeout)
}

func (s *Session) fail() {
	s.state.Store(int32(Failed))
	s.index = nil
	s.teardown()
}

// teardown kills the child and releases the lanes. Safe to call twice.
func (s *Session) teardown() {
	if s.cmd != nil && s.cmd.Process != nil && !s.exited.Load() {
		s.cmd.Process.Kill()
	}
	if s.inLane != nil {
		s.inLane.Close()
		s.inLane = nil
	}
	if s.outLane != nil {
		s.outLane.Close()
		s.outLane = nil
	}
}

// Close tears the session down regardless of state.
func (s *Session) Close() error {
	s.state.Store(int32(Failed))
	s.teardown()
	return nil
}
