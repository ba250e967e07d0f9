package datio

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the decimal layout used for packed dates.
const DateLayout = "20060102"

// MaxDateRepairs is how many times a malformed packed date has its day
// decremented before decoding gives up.
const MaxDateRepairs = 3

// ReadNullTerminatedString reads bytes up to and including a single 0x00.
func (c *Cursor) ReadNullTerminatedString() (string, error) {
	idx := bytes.IndexByte(c.data[c.pos:], 0)
	if idx < 0 {
		return "", Errorf(ErrValueFormat, c.Offset(), "string is not null-terminated within %d bytes", c.Remaining())
	}
	s := string(c.data[c.pos : c.pos+idx])
	c.pos += idx + 1
	return s, nil
}

// ReadFixedString reads exactly n bytes and returns the content before the
// first null. ok is false when there is no content before the terminator,
// which callers treat as a null string rather than an empty one.
func (c *Cursor) ReadFixedString(n int) (s string, ok bool, err error) {
	b, err := c.ReadN(n)
	if err != nil {
		return "", false, err
	}
	if idx := bytes.IndexByte(b, 0); idx >= 0 {
		b = b[:idx]
	}
	if len(b) == 0 {
		return "", false, nil
	}
	return string(b), true, nil
}

// ReadBoolean decodes a boolean whose wire width is inferred from the bytes
// left before end: one byte, or a legacy four-byte integer. A negative end
// means the end of the region.
func (c *Cursor) ReadBoolean(end int) (bool, error) {
	if end < 0 {
		end = len(c.data)
	}
	switch width := end - c.pos; width {
	case 1:
		v, err := c.ReadU8()
		return v > 0, err
	case 4:
		v, err := c.ReadI32()
		return v > 0, err
	default:
		return false, Errorf(ErrValueFormat, c.Offset(), "boolean occupies %d bytes, want 1 or 4", width)
	}
}

// ReadDateTime decodes a date packed as the decimal integer yyyyMMdd.
func (c *Cursor) ReadDateTime() (time.Time, error) {
	off := c.Offset()
	raw, err := c.ReadI32()
	if err != nil {
		return time.Time{}, err
	}
	t, err := ParseDate(raw)
	if err != nil {
		return time.Time{}, &Error{Class: ErrValueFormat, Offset: off, Err: err}
	}
	return t, nil
}

// ParseDate decodes a packed yyyyMMdd date. Dates past the end of their month
// (Feb 30, Apr 31) are repaired by stepping the day back, at most
// MaxDateRepairs times.
func ParseDate(raw int32) (time.Time, error) {
	v := raw
	for attempt := 0; attempt <= MaxDateRepairs; attempt++ {
		t, err := time.Parse(DateLayout, fmt.Sprintf("%08d", v))
		if err == nil {
			return t, nil
		}
		if v%100 <= 1 {
			break
		}
		v--
	}
	return time.Time{}, fmt.Errorf("invalid packed date %d", raw)
}

// PackDate is the inverse of ParseDate.
func PackDate(t time.Time) (int32, error) {
	y, m, d := t.Date()
	if y < 0 || y > 9999 {
		return 0, Errorf(ErrValueFormat, -1, "year %d cannot be packed", y)
	}
	return int32(y*10000 + int(m)*100 + d), nil
}

// ReadValue reads a fixed-layout value by its declared field order.
func ReadValue[T any](c *Cursor, out *T) error {
	sz := binary.Size(out)
	if sz <= 0 {
		return Errorf(ErrValueFormat, c.Offset(), "%T has no fixed layout", *out)
	}
	b, err := c.ReadN(sz)
	if err != nil {
		return err
	}
	return binary.Read(bytes.NewReader(b), binary.LittleEndian, out)
}

func (w *Writer) WriteNullTerminatedString(s string) error {
	if strings.IndexByte(s, 0) >= 0 {
		return Errorf(ErrValueFormat, -1, "string %q contains a null byte", s)
	}
	_, _ = w.buf.WriteString(s)
	_ = w.buf.WriteByte(0)
	return nil
}

// WriteFixedString writes s padded with nulls to exactly n bytes.
func (w *Writer) WriteFixedString(s string, n int) error {
	if len(s) > n {
		return Errorf(ErrCapacity, -1, "string of %d bytes exceeds fixed length %d", len(s), n)
	}
	if strings.IndexByte(s, 0) >= 0 {
		return Errorf(ErrValueFormat, -1, "string %q contains a null byte", s)
	}
	_, _ = w.buf.WriteString(s)
	for i := len(s); i < n; i++ {
		_ = w.buf.WriteByte(0)
	}
	return nil
}

// WriteBoolean always uses the one-byte form.
func (w *Writer) WriteBoolean(v bool) {
	if v {
		w.WriteU8(1)
		return
	}
	w.WriteU8(0)
}

func (w *Writer) WriteDateTime(t time.Time) error {
	v, err := PackDate(t)
	if err != nil {
		return err
	}
	w.WriteI32(v)
	return nil
}

// WriteValue writes a fixed-layout value by its declared field order.
func WriteValue[T any](w *Writer, v *T) error {
	if binary.Size(v) <= 0 {
		return Errorf(ErrValueFormat, -1, "%T has no fixed layout", *v)
	}
	return binary.Write(&w.buf, binary.LittleEndian, v)
}
