package channel

import (
	"errors"
	"fmt"
	"time"

	"github.com/solweaver/gangway/shm"
)

// ErrChannelInvalid reports a failed wait or signal. The channel is dead;
// no call on it can be retried.
var ErrChannelInvalid = errors.New("channel: invalid")

// Sync is the turn-taking half of a lane. Wait blocks until the peer hands
// this side the turn; Signal hands it back.
type Sync struct {
	wait   *shm.Event
	signal *shm.Event
}

// NewSync pairs the two events of a lane.
func NewSync(wait, signal *shm.Event) *Sync {
	return &Sync{wait: wait, signal: signal}
}

// Wait blocks until the turn arrives. A negative timeout blocks forever;
// otherwise false reports that the timeout elapsed with the turn still at
// the peer. Any OS failure is ErrChannelInvalid.
func (s *Sync) Wait(timeout time.Duration) (bool, error) {
	ok, err := s.wait.Wait(timeout)
	if err != nil {
		return false, fmt.Errorf("%w: wait: %v", ErrChannelInvalid, err)
	}
	return ok, nil
}

// Signal hands the turn to the peer.
func (s *Sync) Signal() error {
	if err := s.signal.Signal(); err != nil {
		return fmt.Errorf("%w: signal: %v", ErrChannelInvalid, err)
	}
	return nil
}
