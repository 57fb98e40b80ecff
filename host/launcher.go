// Package host spawns plugin processes, walks them through the session
// handshake, and owns the per-session type index.
package host

import (
	"fmt"
	"os/exec"
	"time"

	"github.com/tliron/commonlog"

	"github.com/solweaver/gangway/channel"

	_ "github.com/tliron/commonlog/simple"
)

var log = commonlog.GetLogger("gangway.host")

// Launcher spawns plugin processes with their channel descriptors
// inherited and their handle values on the command line.
type Launcher struct {
	regionSize int
	step       time.Duration
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithRegionSize overrides the lane region size. Both sides must agree on
// it; the spawn contract carries handles, not sizes.
func WithRegionSize(size int) Option {
	return func(l *Launcher) { l.regionSize = size }
}

// WithHandshakeTimeout overrides the per-step handshake timeout.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(l *Launcher) { l.step = d }
}

// NewLauncher builds a launcher with the default region size and
// handshake timeout.
func NewLauncher(opts ...Option) *Launcher {
	l := &Launcher{
		regionSize: channel.DefaultRegionSize,
		step:       HandshakeTimeout,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Launch starts a plugin process wired to a fresh pair of lanes and
// returns its session in the Spawning state. The plugin-to-host lane
// starts armed for the plugin, the host-to-plugin lane armed for the
// host, so each side may write its first message without waiting.
//
// The child inherits six descriptors, numbered from the plugin's point of
// view (input lane then output lane, wait/signal/region each), and their
// values are appended to argv as hex words.
func (l *Launcher) Launch(exe string, args ...string) (*Session, error) {
	// Host input carries plugin-to-host traffic; the plugin holds its
	// first turn.
	inLane, err := channel.CreateLane(false, l.regionSize)
	if err != nil {
		return nil, fmt.Errorf("host: create input lane: %w", err)
	}
	outLane, err := channel.CreateLane(true, l.regionSize)
	if err != nil {
		inLane.Close()
		return nil, fmt.Errorf("host: create output lane: %w", err)
	}

	in, err := channel.NewInput(inLane)
	if err != nil {
		inLane.Close()
		outLane.Close()
		return nil, err
	}
	out, err := channel.NewOutput(outLane)
	if err != nil {
		inLane.Close()
		outLane.Close()
		return nil, err
	}

	cmd := exec.Command(exe, args...)
	// The plugin's input lane is our output lane reversed, and vice
	// versa. ExtraFiles land at child descriptors 3 and up in order.
	cmd.ExtraFiles = append(outLane.Reversed().Files(), inLane.Reversed().Files()...)
	firstFD := uintptr(3)
	handles := channel.Handles{
		InWait: firstFD, InSignal: firstFD + 1, InRegion: firstFD + 2,
		OutWait: firstFD + 3, OutSignal: firstFD + 4, OutRegion: firstFD + 5,
	}
	cmd.Args = append(cmd.Args, handles.Args()...)

	if err := cmd.Start(); err != nil {
		inLane.Close()
		outLane.Close()
		return nil, fmt.Errorf("host: spawn %s: %w", exe, err)
	}
	log.Infof("spawned plugin %s (pid %d)", exe, cmd.Process.Pid)

	s := &Session{
		cmd:     cmd,
		in:      in,
		out:     out,
		inLane:  inLane,
		outLane: outLane,
		step:    l.step,
	}
	s.state.Store(int32(Spawning))
	go s.watch()
	return s, nil
}
