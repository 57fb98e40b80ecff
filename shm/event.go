package shm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"time"

	"golang.org/x/sys/unix"
)

// ErrEventClosed reports a wait or signal on an event whose descriptor has
// failed. It is always terminal for the owning channel.
var ErrEventClosed = errors.New("shm: event closed")

// Event is a binary synchronization signal shared between two processes,
// backed by an eventfd. Wait consumes the token; Signal produces one.
// An event holds at most one meaningful token under the channel layer's
// strict ping-pong discipline.
type Event struct {
	file *os.File
}

// NewEvent creates an event. An armed event starts with a token available,
// so the first Wait returns immediately; this is how the creator decides
// which side of a lane may write first.
func NewEvent(armed bool) (*Event, error) {
	initval := uint(0)
	if armed {
		initval = 1
	}
	fd, err := unix.Eventfd(initval, unix.EFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("shm: eventfd: %w", err)
	}
	return &Event{file: os.NewFile(uintptr(fd), "gangway-event")}, nil
}

// ImportEvent attaches to an event inherited from another process.
func ImportEvent(fd uintptr) *Event {
	return &Event{file: os.NewFile(fd, "gangway-event")}
}

// Wait blocks until the event is signaled, consuming the token. A negative
// timeout blocks indefinitely. Returns false if the timeout elapsed first.
// Any other failure is terminal.
func (e *Event) Wait(timeout time.Duration) (bool, error) {
	if e.file == nil {
		return false, ErrEventClosed
	}
	fd := int32(e.file.Fd())
	var deadline time.Time
	if timeout >= 0 {
		deadline = time.Now().Add(timeout)
	}
	for {
		// Recomputed each pass so interrupted polls resume with what is
		// left of the timeout, not the whole of it.
		ms := -1
		if timeout >= 0 {
			left := time.Until(deadline)
			if left < 0 {
				left = 0
			}
			ms = int(left.Milliseconds())
		}
		fds := []unix.PollFd{{Fd: fd, Events: unix.POLLIN}}
		n, err := unix.Poll(fds, ms)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return false, fmt.Errorf("shm: poll: %w", err)
		}
		if n == 0 {
			return false, nil
		}
		if fds[0].Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
			return false, ErrEventClosed
		}
		break
	}
	var buf [8]byte
	if _, err := unix.Read(int(fd), buf[:]); err != nil {
		return false, fmt.Errorf("shm: eventfd read: %w", err)
	}
	return true, nil
}

// Signal hands the token to whichever side waits on this event.
func (e *Event) Signal() error {
	if e.file == nil {
		return ErrEventClosed
	}
	var buf [8]byte
	binary.LittleEndian.PutUint64(buf[:], 1)
	if _, err := unix.Write(int(e.file.Fd()), buf[:]); err != nil {
		return fmt.Errorf("shm: eventfd write: %w", err)
	}
	return nil
}

// File returns the backing descriptor, for handle inheritance at spawn time.
func (e *Event) File() *os.File {
	return e.file
}

// Close releases the descriptor. Waits in progress fail terminally.
func (e *Event) Close() error {
	if e.file == nil {
		return nil
	}
	err := e.file.Close()
	e.file = nil
	return err
}
