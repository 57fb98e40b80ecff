// Package shm provides the two OS primitives the channel layer is built on:
// fixed-size shared memory regions and binary event signals. Both are
// created by one process and imported by another through inherited file
// descriptors. Linux only.
package shm

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// Region is a fixed-size shared memory mapping backed by a memfd. The
// mapped length is set at creation and never changes.
type Region struct {
	file *os.File
	data []byte
}

// NewRegion allocates a new anonymous shared memory region of the given
// size in bytes.
func NewRegion(size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("shm: invalid region size %d", size)
	}
	fd, err := unix.MemfdCreate("gangway-region", unix.MFD_CLOEXEC)
	if err != nil {
		return nil, fmt.Errorf("shm: memfd_create: %w", err)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("shm: ftruncate: %w", err)
	}
	return mapRegion(os.NewFile(uintptr(fd), "gangway-region"), size)
}

// ImportRegion attaches to a region created by another process, given the
// inherited file descriptor and the agreed size.
func ImportRegion(fd uintptr, size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("shm: invalid region size %d", size)
	}
	return mapRegion(os.NewFile(fd, "gangway-region"), size)
}

func mapRegion(f *os.File, size int) (*Region, error) {
	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("shm: mmap: %w", err)
	}
	return &Region{file: f, data: data}, nil
}

// Bytes returns the mapped memory. The slice aliases memory shared with the
// peer process; callers must copy out anything they need to keep.
func (r *Region) Bytes() []byte {
	return r.data
}

// Size returns the fixed length of the mapping.
func (r *Region) Size() int {
	return len(r.data)
}

// File returns the backing file, for handle inheritance at spawn time.
func (r *Region) File() *os.File {
	return r.file
}

// Close unmaps the region and closes the backing descriptor.
func (r *Region) Close() error {
	var first error
	if r.data != nil {
		if err := unix.Munmap(r.data); err != nil {
			first = fmt.Errorf("shm: munmap: %w", err)
		}
		r.data = nil
	}
	if r.file != nil {
		if err := r.file.Close(); err != nil && first == nil {
			first = err
		}
		r.file = nil
	}
	return first
}
