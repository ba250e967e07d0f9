package datio

import (
	"bytes"
	"errors"
	"io"
	"testing"
	"time"
)

func TestReadBooleanWidth(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name    string
		data    []byte
		want    bool
		wantErr bool
	}{
		{name: "one byte true", data: []byte{0x01}, want: true},
		{name: "one byte false", data: []byte{0x00}, want: false},
		{name: "four bytes true", data: []byte{0x01, 0x00, 0x00, 0x00}, want: true},
		{name: "four bytes negative", data: []byte{0xff, 0xff, 0xff, 0xff}, want: false},
		{name: "two bytes", data: []byte{0x01, 0x00}, wantErr: true},
		{name: "three bytes", data: []byte{0x01, 0x00, 0x00}, wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			c := NewCursor(tc.data)
			got, err := c.ReadBoolean(-1)
			if tc.wantErr {
				if !errors.Is(err, ErrValueFormat) {
					t.Fatalf("expected value format error, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("read boolean: %v", err)
			}
			if got != tc.want {
				t.Fatalf("boolean mismatch: got %v want %v", got, tc.want)
			}
			if c.Remaining() != 0 {
				t.Fatalf("expected region consumed, %d bytes left", c.Remaining())
			}
		})
	}
}

func TestReadBooleanExplicitEnd(t *testing.T) {
	t.Parallel()

	c := NewCursor([]byte{0x01, 0xAA, 0xBB})
	got, err := c.ReadBoolean(1)
	if err != nil {
		t.Fatalf("read boolean: %v", err)
	}
	if !got || c.Pos() != 1 {
		t.Fatalf("unexpected result: got %v pos %d", got, c.Pos())
	}
}

func TestParseDateRepair(t *testing.T) {
	t.Parallel()

	got, err := ParseDate(20230231)
	if err != nil {
		t.Fatalf("parse date: %v", err)
	}
	want := time.Date(2023, time.February, 28, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Fatalf("date mismatch: got %v want %v", got, want)
	}

	leap, err := ParseDate(20240231)
	if err != nil {
		t.Fatalf("parse leap date: %v", err)
	}
	if leap.Day() != 29 {
		t.Fatalf("leap day mismatch: got %d want 29", leap.Day())
	}

	if _, err := ParseDate(20230232); err == nil {
		t.Fatalf("expected failure for date needing four repairs")
	}
	if _, err := ParseDate(20231301); err == nil {
		t.Fatalf("expected failure for month 13")
	}
}

func TestReadDateTimeReportsOffset(t *testing.T) {
	t.Parallel()

	w := NewWriter()
	w.WriteU32(0xDEADBEEF)
	w.WriteI32(20230299)
	c := NewCursor(w.Bytes())
	if err := c.Skip(4); err != nil {
		t.Fatalf("skip: %v", err)
	}
	_, err := c.ReadDateTime()
	if !errors.Is(err, ErrValueFormat) {
		t.Fatalf("expected value format error, got %v", err)
	}
	if off := OffsetOf(err); off != 4 {
		t.Fatalf("offset mismatch: got %d want 4", off)
	}
}

func TestDateRoundTrip(t *testing.T) {
	t.Parallel()

	d := time.Date(1999, time.December, 31, 0, 0, 0, 0, time.UTC)
	w := NewWriter()
	if err := w.WriteDateTime(d); err != nil {
		t.Fatalf("write date: %v", err)
	}
	got, err := NewCursor(w.Bytes()).ReadDateTime()
	if err != nil {
		t.Fatalf("read date: %v", err)
	}
	if !got.Equal(d) {
		t.Fatalf("date mismatch: got %v want %v", got, d)
	}
}

func TestFixedString(t *testing.T) {
	t.Parallel()

	c := NewCursor([]byte{'a', 'b', 0, 'x', 0, 0, 0, 0})
	s, ok, err := c.ReadFixedString(4)
	if err != nil {
		t.Fatalf("read fixed: %v", err)
	}
	if !ok || s != "ab" {
		t.Fatalf("fixed string mismatch: got %q ok=%v", s, ok)
	}
	s, ok, err = c.ReadFixedString(4)
	if err != nil {
		t.Fatalf("read fixed: %v", err)
	}
	if ok || s != "" {
		t.Fatalf("expected null string, got %q ok=%v", s, ok)
	}

	w := NewWriter()
	if err := w.WriteFixedString("abcd", 4); err != nil {
		t.Fatalf("write full-width string: %v", err)
	}
	if err := w.WriteFixedString("abcde", 4); !errors.Is(err, ErrCapacity) {
		t.Fatalf("expected capacity error, got %v", err)
	}
	if !bytes.Equal(w.Bytes(), []byte("abcd")) {
		t.Fatalf("unexpected bytes %x", w.Bytes())
	}
}

func TestNullTerminatedString(t *testing.T) {
	t.Parallel()

	w := NewWriter()
	if err := w.WriteNullTerminatedString("door"); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := w.WriteNullTerminatedString("a\x00b"); err == nil {
		t.Fatalf("expected error for embedded null")
	}
	c := NewCursor(w.Bytes())
	s, err := c.ReadNullTerminatedString()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if s != "door" || c.Remaining() != 0 {
		t.Fatalf("unexpected result %q remaining=%d", s, c.Remaining())
	}

	_, err = NewCursor([]byte("open")).ReadNullTerminatedString()
	if !errors.Is(err, ErrValueFormat) {
		t.Fatalf("expected value format error, got %v", err)
	}
}

func TestPeekAndUnread(t *testing.T) {
	t.Parallel()

	w := NewWriter()
	w.WriteU32(7)
	w.WriteU16(1)
	c := NewCursor(w.Bytes())

	if c.NextIs(8) {
		t.Fatalf("NextIs matched the wrong word")
	}
	if c.Pos() != 0 {
		t.Fatalf("failed NextIs moved the cursor to %d", c.Pos())
	}
	v, ok := c.PeekU32()
	if !ok || v != 7 {
		t.Fatalf("peek mismatch: got %d ok=%v", v, ok)
	}
	if !c.NextIs(7) {
		t.Fatalf("NextIs did not match")
	}
	if _, ok := c.PeekU32(); ok {
		t.Fatalf("peek should fail with 2 bytes left")
	}
	if err := c.Unread(4); err != nil {
		t.Fatalf("unread: %v", err)
	}
	if c.Pos() != 0 {
		t.Fatalf("unread position mismatch: got %d", c.Pos())
	}
	if err := c.Unread(1); err == nil {
		t.Fatalf("expected error unreading before region start")
	}
}

func TestReadPastEnd(t *testing.T) {
	t.Parallel()

	c := NewCursor([]byte{1, 2})
	_, err := c.ReadU32()
	if !errors.Is(err, ErrStructural) || !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Fatalf("expected structural unexpected EOF, got %v", err)
	}
}

func TestSubCursorKeepsAbsoluteOffsets(t *testing.T) {
	t.Parallel()

	c := NewCursor([]byte{0, 0, 0, 1, 2, 3})
	if err := c.Skip(3); err != nil {
		t.Fatalf("skip: %v", err)
	}
	sub, err := c.Sub(2)
	if err != nil {
		t.Fatalf("sub: %v", err)
	}
	if sub.Offset() != 3 || sub.Len() != 2 {
		t.Fatalf("sub bounds mismatch: offset %d len %d", sub.Offset(), sub.Len())
	}
	if c.Pos() != 5 {
		t.Fatalf("parent position mismatch: got %d want 5", c.Pos())
	}
	_, err = sub.ReadU32()
	if off := OffsetOf(err); off != 3 {
		t.Fatalf("error offset mismatch: got %d want 3", off)
	}
}

type vec3 struct {
	X, Y, Z float32
}

type rect struct {
	Left, Top     int16
	Width, Height uint16
}

func TestValueStructRoundTrip(t *testing.T) {
	t.Parallel()

	w := NewWriter()
	v := vec3{X: 1, Y: -2.5, Z: 3}
	r := rect{Left: -4, Top: 8, Width: 640, Height: 480}
	if err := WriteValue(w, &v); err != nil {
		t.Fatalf("write vec3: %v", err)
	}
	if err := WriteValue(w, &r); err != nil {
		t.Fatalf("write rect: %v", err)
	}
	if w.Len() != 12+8 {
		t.Fatalf("encoded size mismatch: got %d want 20", w.Len())
	}

	c := NewCursor(w.Bytes())
	var gotV vec3
	var gotR rect
	if err := ReadValue(c, &gotV); err != nil {
		t.Fatalf("read vec3: %v", err)
	}
	if err := ReadValue(c, &gotR); err != nil {
		t.Fatalf("read rect: %v", err)
	}
	if gotV != v || gotR != r {
		t.Fatalf("value mismatch: got %+v %+v", gotV, gotR)
	}
}

func TestWriteUintCapacity(t *testing.T) {
	t.Parallel()

	w := NewWriter()
	if err := w.WriteUint(2, 65536); !errors.Is(err, ErrCapacity) {
		t.Fatalf("expected capacity error, got %v", err)
	}
	if w.Len() != 0 {
		t.Fatalf("capacity failure wrote %d bytes", w.Len())
	}
	at := w.ReserveU32()
	w.WriteU8(9)
	w.PatchU32(at, 1)
	c := NewCursor(w.Bytes())
	if v, _ := c.ReadUint(4); v != 1 {
		t.Fatalf("patched value mismatch: got %d", v)
	}
}

func TestWithFieldNestsNames(t *testing.T) {
	t.Parallel()

	base := Errorf(ErrSchemaMismatch, 10, "bad")
	err := WithField(WithField(base, "Inner"), "Outer")
	var de *Error
	if !errors.As(err, &de) {
		t.Fatalf("expected *Error, got %T", err)
	}
	if de.Field != "Outer.Inner" {
		t.Fatalf("field path mismatch: got %q", de.Field)
	}
	if !errors.Is(err, ErrSchemaMismatch) {
		t.Fatalf("class lost through WithField")
	}
	if base.Field != "" {
		t.Fatalf("WithField mutated the original error")
	}
}
