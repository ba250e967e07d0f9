package datio

import (
	"bytes"
	"encoding/binary"
	"math"
)

// Writer accumulates an encoded region in memory. Lengths that are only
// known after the payload is written are patched in place.
type Writer struct {
	buf bytes.Buffer
}

func NewWriter() *Writer {
	return &Writer{}
}

func (w *Writer) Len() int { return w.buf.Len() }

// Bytes returns the encoded bytes. The slice aliases the writer's buffer.
func (w *Writer) Bytes() []byte { return w.buf.Bytes() }

func (w *Writer) Reset() { w.buf.Reset() }

// Truncate discards everything written after n bytes.
func (w *Writer) Truncate(n int) { w.buf.Truncate(n) }

func (w *Writer) Write(p []byte) (int, error) {
	return w.buf.Write(p)
}

func (w *Writer) WriteBytes(p []byte) {
	_, _ = w.buf.Write(p)
}

func (w *Writer) WriteU8(v uint8) {
	_ = w.buf.WriteByte(v)
}

func (w *Writer) WriteI8(v int8) { w.WriteU8(uint8(v)) }

func (w *Writer) WriteU16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	_, _ = w.buf.Write(b[:])
}

func (w *Writer) WriteI16(v int16) { w.WriteU16(uint16(v)) }

func (w *Writer) WriteU32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	_, _ = w.buf.Write(b[:])
}

func (w *Writer) WriteI32(v int32) { w.WriteU32(uint32(v)) }

func (w *Writer) WriteU64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	_, _ = w.buf.Write(b[:])
}

func (w *Writer) WriteI64(v int64) { w.WriteU64(uint64(v)) }

func (w *Writer) WriteF32(v float32) { w.WriteU32(math.Float32bits(v)) }

func (w *Writer) WriteF64(v float64) { w.WriteU64(math.Float64bits(v)) }

// WriteUint writes v using the given byte width (1, 2, 4 or 8). Values that do
// not fit are a capacity error and nothing is written.
func (w *Writer) WriteUint(width int, v uint64) error {
	switch width {
	case 1:
		if v > math.MaxUint8 {
			return Errorf(ErrCapacity, -1, "%d does not fit in 1 byte", v)
		}
		w.WriteU8(uint8(v))
	case 2:
		if v > math.MaxUint16 {
			return Errorf(ErrCapacity, -1, "%d does not fit in 2 bytes", v)
		}
		w.WriteU16(uint16(v))
	case 4:
		if v > math.MaxUint32 {
			return Errorf(ErrCapacity, -1, "%d does not fit in 4 bytes", v)
		}
		w.WriteU32(uint32(v))
	case 8:
		w.WriteU64(v)
	default:
		return Errorf(ErrValueFormat, -1, "unsupported integer width %d", width)
	}
	return nil
}

// ReserveU32 writes a zero placeholder and returns its position for PatchU32.
func (w *Writer) ReserveU32() int {
	at := w.buf.Len()
	w.WriteU32(0)
	return at
}

func (w *Writer) PatchU32(at int, v uint32) {
	binary.LittleEndian.PutUint32(w.buf.Bytes()[at:at+4], v)
}
