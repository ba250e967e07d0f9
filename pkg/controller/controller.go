// Package controller encodes and decodes controller bodies: the typed,
// schema-described records embedded in DAT controller chunks.
//
// A ControllerSchema selects one of four layouts:
//
//   - named: a type token, then every field as name, u32 size and value;
//     optional fields may be missing from the stream
//   - raw: fields laid out positionally with no names
//   - state machine: raw fields followed by a sentinel-tagged graph of
//     entries, conditions and actions
//   - key frames: raw fields followed by a u16-counted list of packed frames
//
// Field values are handled by a serial.Registry.
package controller

import (
	"errors"
	"fmt"
	"strings"

	"github.com/samcharles93/datkit/pkg/datio"
	"github.com/samcharles93/datkit/pkg/schema"
	"github.com/samcharles93/datkit/pkg/serial"
)

var (
	ErrNilRecord     = errors.New("nil controller record")
	ErrTooManyFrames = errors.New("too many frames")
)

// Record is one decoded controller instance.
type Record struct {
	TypeName string
	Scheme   schema.Scheme
	Fields   serial.Fields

	// Token is the type token of a named body as spelled in the stream, when
	// that differs from the schema's type name.
	Token string

	// Graph is set for state-machine controllers.
	Graph *StateMachine
	// Frames is set for key-frame controllers.
	Frames []KeyFrame
}

// NewRecord returns an empty record for s.
func NewRecord(s *schema.ControllerSchema) *Record {
	return &Record{TypeName: s.TypeName, Scheme: s.Scheme}
}

// Codec runs controller schemes over a serializer registry. A Codec holds no
// per-call state and may be shared.
type Codec struct {
	registry *serial.Registry
}

// New returns a codec using r, or the default registry when r is nil.
func New(r *serial.Registry) *Codec {
	if r == nil {
		r = serial.Default()
	}
	return &Codec{registry: r}
}

// Registry returns the serializer registry in use.
func (c *Codec) Registry() *serial.Registry { return c.registry }

// Decode reads a controller body laid out per s. The cursor must cover
// exactly the body: trailing bytes are an error.
func (c *Codec) Decode(cur *datio.Cursor, s *schema.ControllerSchema) (*Record, error) {
	rec := NewRecord(s)
	var err error
	switch s.Scheme {
	case schema.SchemeNamed:
		err = c.decodeNamed(cur, s, rec)
	case schema.SchemeRaw:
		err = c.decodeRaw(cur, s, rec)
	case schema.SchemeStateMachine:
		if err = c.decodeRaw(cur, s, rec); err == nil {
			rec.Graph, err = decodeStateMachine(cur)
		}
	case schema.SchemeKeyFrames:
		if err = c.decodeRaw(cur, s, rec); err == nil {
			rec.Frames, err = decodeKeyFrames(cur)
		}
	default:
		err = datio.Errorf(datio.ErrSchemaMismatch, cur.Offset(), "unknown scheme %d", s.Scheme)
	}
	if err != nil {
		return nil, err
	}
	if n := cur.Remaining(); n > 0 {
		return nil, &datio.Error{
			Class:  datio.ErrStructural,
			Field:  s.TypeName,
			Offset: cur.Offset(),
			Reason: fmt.Sprintf("not all data read: %d trailing bytes", n),
		}
	}
	return rec, nil
}

// Encode writes rec laid out per s. On error nothing is left in w.
func (c *Codec) Encode(w *datio.Writer, s *schema.ControllerSchema, rec *Record) (err error) {
	if rec == nil {
		return &datio.Error{Class: datio.ErrValueFormat, Field: s.TypeName, Offset: -1, Err: ErrNilRecord}
	}
	if rec.TypeName != "" && !strings.EqualFold(rec.TypeName, s.TypeName) {
		return &datio.Error{
			Class:  datio.ErrSchemaMismatch,
			Field:  s.TypeName,
			Offset: -1,
			Reason: fmt.Sprintf("record is of type %q", rec.TypeName),
		}
	}

	start := w.Len()
	defer func() {
		if err != nil {
			w.Truncate(start)
		}
	}()

	switch s.Scheme {
	case schema.SchemeNamed:
		return c.encodeNamed(w, s, rec)
	case schema.SchemeRaw:
		return c.encodeRaw(w, s, rec)
	case schema.SchemeStateMachine:
		if err := c.encodeRaw(w, s, rec); err != nil {
			return err
		}
		return encodeStateMachine(w, rec.Graph)
	case schema.SchemeKeyFrames:
		if err := checkFrames(rec.Frames); err != nil {
			return err
		}
		if err := c.encodeRaw(w, s, rec); err != nil {
			return err
		}
		return encodeKeyFrames(w, rec.Frames)
	default:
		return datio.Errorf(datio.ErrSchemaMismatch, -1, "unknown scheme %d", s.Scheme)
	}
}
