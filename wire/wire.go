// Package wire implements the byte-level layout shared by every message on
// a channel lane.
//
// Encoding conventions:
//   - Integers and floats: little-endian, fixed width
//   - Words (lengths, counts, chunk headers): uint64 little-endian
//   - Strings and byte slices: word length prefix + raw bytes
//   - Booleans and presence flags: single strict byte (0 or 1)
package wire

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// WordSize is the width in bytes of a wire word.
const WordSize = 8

// ErrOutOfBytes reports a read past the end of the supplied buffer. It is
// terminal for the message being decoded.
var ErrOutOfBytes = errors.New("wire: out of bytes")

// Writer accumulates an encoded message. The zero value is ready to use.
type Writer struct {
	buf []byte
}

// NewWriter returns a writer with the given initial capacity.
func NewWriter(capacity int) *Writer {
	return &Writer{buf: make([]byte, 0, capacity)}
}

// Bytes returns the accumulated encoding.
func (w *Writer) Bytes() []byte {
	return w.buf
}

// Len returns the number of bytes written so far.
func (w *Writer) Len() int {
	return len(w.buf)
}

// Reset clears the writer for reuse, keeping the backing array.
func (w *Writer) Reset() {
	w.buf = w.buf[:0]
}

func (w *Writer) WriteU8(b byte) {
	w.buf = append(w.buf, b)
}

func (w *Writer) WriteBool(v bool) {
	if v {
		w.buf = append(w.buf, 1)
	} else {
		w.buf = append(w.buf, 0)
	}
}

func (w *Writer) WriteU16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) WriteU32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *Writer) WriteU64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

// WriteWord writes a length or count as a wire word.
func (w *Writer) WriteWord(v uint64) {
	w.WriteU64(v)
}

func (w *Writer) WriteF32(v float32) {
	w.WriteU32(math.Float32bits(v))
}

func (w *Writer) WriteF64(v float64) {
	w.WriteU64(math.Float64bits(v))
}

// WriteString writes a word length prefix followed by the UTF-8 bytes.
func (w *Writer) WriteString(s string) {
	w.WriteWord(uint64(len(s)))
	w.buf = append(w.buf, s...)
}

// WriteBytes writes a word length prefix followed by the raw bytes.
func (w *Writer) WriteBytes(b []byte) {
	w.WriteWord(uint64(len(b)))
	w.buf = append(w.buf, b...)
}

// WriteRaw appends bytes with no length prefix.
func (w *Writer) WriteRaw(b []byte) {
	w.buf = append(w.buf, b...)
}

// Reader is a cursor over an encoded message. Reads past the end return
// ErrOutOfBytes and leave the cursor unchanged.
type Reader struct {
	buf    []byte
	cursor int
}

// NewReader returns a reader over the given bytes.
func NewReader(buf []byte) *Reader {
	return &Reader{buf: buf}
}

// Remaining returns the number of unread bytes.
func (r *Reader) Remaining() int {
	return len(r.buf) - r.cursor
}

func (r *Reader) take(n int) ([]byte, error) {
	if r.cursor+n > len(r.buf) {
		return nil, ErrOutOfBytes
	}
	b := r.buf[r.cursor : r.cursor+n]
	r.cursor += n
	return b, nil
}

func (r *Reader) ReadByte() (byte, error) {
	b, err := r.take(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

// ReadBool reads a strict boolean byte. Any value other than 0 or 1 is a
// decode error.
func (r *Reader) ReadBool() (bool, error) {
	b, err := r.ReadByte()
	if err != nil {
		return false, err
	}
	switch b {
	case 0:
		return false, nil
	case 1:
		return true, nil
	default:
		return false, fmt.Errorf("wire: invalid bool byte 0x%02x", b)
	}
}

func (r *Reader) ReadU16() (uint16, error) {
	b, err := r.take(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *Reader) ReadU32() (uint32, error) {
	b, err := r.take(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (r *Reader) ReadU64() (uint64, error) {
	b, err := r.take(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

// ReadWord reads a length or count written by WriteWord.
func (r *Reader) ReadWord() (uint64, error) {
	return r.ReadU64()
}

func (r *Reader) ReadF32() (float32, error) {
	v, err := r.ReadU32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

func (r *Reader) ReadF64() (float64, error) {
	v, err := r.ReadU64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// ReadString reads a word length prefix and the following UTF-8 bytes.
func (r *Reader) ReadString() (string, error) {
	b, err := r.ReadBytes()
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// ReadBytes reads a word length prefix and the following bytes. The
// returned slice aliases the reader's buffer.
func (r *Reader) ReadBytes() ([]byte, error) {
	n, err := r.ReadWord()
	if err != nil {
		return nil, err
	}
	if n > uint64(r.Remaining()) {
		return nil, ErrOutOfBytes
	}
	return r.take(int(n))
}

// ReadRaw reads exactly n bytes with no length prefix. The returned slice
// aliases the reader's buffer.
func (r *Reader) ReadRaw(n int) ([]byte, error) {
	return r.take(n)
}
