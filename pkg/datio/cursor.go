// Package datio holds the byte-level primitives shared by the DAT container
// and the controller codecs: a bounded read cursor with lookahead, a growable
// writer, and the legacy value encodings (terminated and fixed strings,
// mixed-width booleans, packed dates, fixed-layout value structs).
//
// All multi-byte values are little-endian.
package datio

import (
	"encoding/binary"
	"io"
	"math"
)

// Cursor reads from an in-memory region. Positions are relative to the
// region; offsets reported in errors are absolute within the loaded stream.
type Cursor struct {
	data []byte
	pos  int
	base int64
}

func NewCursor(data []byte) *Cursor {
	return &Cursor{data: data}
}

// Pos returns the current position within the region.
func (c *Cursor) Pos() int { return c.pos }

// Len returns the region length.
func (c *Cursor) Len() int { return len(c.data) }

func (c *Cursor) Remaining() int { return len(c.data) - c.pos }

// Offset returns the absolute stream offset of the current position.
func (c *Cursor) Offset() int64 { return c.base + int64(c.pos) }

// Base returns the absolute stream offset of the region start.
func (c *Cursor) Base() int64 { return c.base }

func (c *Cursor) Seek(pos int) error {
	if pos < 0 || pos > len(c.data) {
		return Errorf(ErrStructural, c.Offset(), "seek to %d outside region of %d bytes", pos, len(c.data))
	}
	c.pos = pos
	return nil
}

func (c *Cursor) Skip(n int) error {
	return c.Seek(c.pos + n)
}

// Unread moves the cursor back n bytes.
func (c *Cursor) Unread(n int) error {
	if n < 0 || n > c.pos {
		return Errorf(ErrStructural, c.Offset(), "cannot unread %d bytes", n)
	}
	c.pos -= n
	return nil
}

// ReadN returns the next n bytes without copying them.
func (c *Cursor) ReadN(n int) ([]byte, error) {
	if n < 0 {
		return nil, Errorf(ErrStructural, c.Offset(), "invalid read length %d", n)
	}
	if n > c.Remaining() {
		return nil, &Error{
			Class:  ErrStructural,
			Offset: c.Offset(),
			Reason: "read past end of region",
			Err:    io.ErrUnexpectedEOF,
		}
	}
	b := c.data[c.pos : c.pos+n]
	c.pos += n
	return b, nil
}

// Sub returns a cursor over the next n bytes and advances past them.
func (c *Cursor) Sub(n int) (*Cursor, error) {
	start := c.Offset()
	b, err := c.ReadN(n)
	if err != nil {
		return nil, err
	}
	return &Cursor{data: b, base: start}, nil
}

// Rest returns the unread remainder of the region and consumes it.
func (c *Cursor) Rest() []byte {
	b := c.data[c.pos:]
	c.pos = len(c.data)
	return b
}

func (c *Cursor) ReadU8() (uint8, error) {
	b, err := c.ReadN(1)
	if err != nil {
		return 0, err
	}
	return b[0], nil
}

func (c *Cursor) ReadI8() (int8, error) {
	v, err := c.ReadU8()
	return int8(v), err
}

func (c *Cursor) ReadU16() (uint16, error) {
	b, err := c.ReadN(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (c *Cursor) ReadI16() (int16, error) {
	v, err := c.ReadU16()
	return int16(v), err
}

func (c *Cursor) ReadU32() (uint32, error) {
	b, err := c.ReadN(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

func (c *Cursor) ReadI32() (int32, error) {
	v, err := c.ReadU32()
	return int32(v), err
}

func (c *Cursor) ReadU64() (uint64, error) {
	b, err := c.ReadN(8)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(b), nil
}

func (c *Cursor) ReadI64() (int64, error) {
	v, err := c.ReadU64()
	return int64(v), err
}

func (c *Cursor) ReadF32() (float32, error) {
	u, err := c.ReadU32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(u), nil
}

func (c *Cursor) ReadF64() (float64, error) {
	u, err := c.ReadU64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(u), nil
}

// ReadUint reads an unsigned integer of the given byte width (1, 2, 4 or 8).
func (c *Cursor) ReadUint(width int) (uint64, error) {
	switch width {
	case 1:
		v, err := c.ReadU8()
		return uint64(v), err
	case 2:
		v, err := c.ReadU16()
		return uint64(v), err
	case 4:
		v, err := c.ReadU32()
		return uint64(v), err
	case 8:
		return c.ReadU64()
	default:
		return 0, Errorf(ErrValueFormat, c.Offset(), "unsupported integer width %d", width)
	}
}

// PeekU32 returns the next 32-bit word without consuming it. ok is false when
// fewer than four bytes remain.
func (c *Cursor) PeekU32() (v uint32, ok bool) {
	if c.Remaining() < 4 {
		return 0, false
	}
	return binary.LittleEndian.Uint32(c.data[c.pos:]), true
}

// NextIs consumes the next 32-bit word if it equals want. Otherwise the
// cursor is left where it was.
func (c *Cursor) NextIs(want uint32) bool {
	v, ok := c.PeekU32()
	if !ok || v != want {
		return false
	}
	c.pos += 4
	return true
}
