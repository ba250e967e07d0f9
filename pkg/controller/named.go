package controller

import (
	"fmt"
	"strings"

	"github.com/samcharles93/datkit/pkg/datio"
	"github.com/samcharles93/datkit/pkg/schema"
	"github.com/samcharles93/datkit/pkg/serial"
)

// token is a field name read from the stream but not yet matched to a schema
// field.
type token struct {
	name   string
	offset int64
	ok     bool
}

func (c *Codec) decodeNamed(cur *datio.Cursor, s *schema.ControllerSchema, rec *Record) error {
	off := cur.Offset()
	self, err := cur.ReadNullTerminatedString()
	if err != nil {
		return datio.WithField(err, s.TypeName)
	}
	if !strings.EqualFold(self, s.TypeName) {
		return &datio.Error{
			Class:  datio.ErrSchemaMismatch,
			Field:  s.TypeName,
			Offset: off,
			Reason: fmt.Sprintf("type token %q", self),
		}
	}
	if self != s.TypeName {
		rec.Token = self
	}

	var pending token
	for i := range s.Fields {
		f := &s.Fields[i]
		if !pending.ok {
			if cur.Remaining() == 0 {
				if f.Optional {
					rec.Fields = append(rec.Fields, serial.Field{Name: f.Name})
					continue
				}
				return &datio.Error{Class: datio.ErrSchemaMismatch, Field: f.Name, Offset: cur.Offset(), Reason: "field missing at end of data"}
			}
			pending.offset = cur.Offset()
			if pending.name, err = cur.ReadNullTerminatedString(); err != nil {
				return datio.WithField(err, f.Name)
			}
			pending.ok = true
		}

		if !f.Is(pending.name) {
			if f.Optional {
				// the token belongs to a later field
				rec.Fields = append(rec.Fields, serial.Field{Name: f.Name})
				continue
			}
			return &datio.Error{
				Class:  datio.ErrSchemaMismatch,
				Field:  f.Name,
				Offset: pending.offset,
				Reason: fmt.Sprintf("found field token %q", pending.name),
			}
		}
		var spelled string
		if pending.name != f.Name {
			spelled = pending.name
		}
		pending = token{}

		v, err := c.decodeSized(cur, f)
		if err != nil {
			return err
		}
		rec.Fields = append(rec.Fields, serial.Field{Name: f.Name, Value: v, Present: true, Token: spelled})
	}

	if pending.ok {
		return &datio.Error{
			Class:  datio.ErrSchemaMismatch,
			Field:  pending.name,
			Offset: pending.offset,
			Reason: "token matches no remaining field",
		}
	}
	return nil
}

// decodeSized reads a u32 size and then the value, which must end exactly
// size bytes later.
func (c *Codec) decodeSized(cur *datio.Cursor, f *schema.FieldSchema) (any, error) {
	size, err := cur.ReadU32()
	if err != nil {
		return nil, datio.WithField(err, f.Name)
	}
	if uint64(size) > uint64(cur.Remaining()) {
		return nil, &datio.Error{
			Class:  datio.ErrStructural,
			Field:  f.Name,
			Offset: cur.Offset(),
			Reason: fmt.Sprintf("field size %d exceeds %d remaining bytes", size, cur.Remaining()),
		}
	}
	start := cur.Pos()
	end := start + int(size)
	v, err := c.registry.Decode(cur, f, end)
	if err != nil {
		return nil, err
	}
	switch pos := cur.Pos(); {
	case pos > end:
		return nil, &datio.Error{
			Class:  datio.ErrStructural,
			Field:  f.Name,
			Offset: cur.Offset(),
			Reason: fmt.Sprintf("too much data: read %d bytes of %d", pos-start, size),
		}
	case pos < end:
		return nil, &datio.Error{
			Class:  datio.ErrStructural,
			Field:  f.Name,
			Offset: cur.Offset(),
			Reason: fmt.Sprintf("not all data read: read %d bytes of %d", pos-start, size),
		}
	}
	return v, nil
}

func (c *Codec) encodeNamed(w *datio.Writer, s *schema.ControllerSchema, rec *Record) error {
	if err := w.WriteNullTerminatedString(spelling(rec.Token, s.TypeName)); err != nil {
		return datio.WithField(err, s.TypeName)
	}
	for i := range s.Fields {
		f := &s.Fields[i]
		fv, ok := rec.Fields.Lookup(f.Name)
		if !ok || !fv.Present {
			if f.Optional {
				continue
			}
			return &datio.Error{Class: datio.ErrSchemaMismatch, Field: f.Name, Offset: -1, Reason: "required field has no value"}
		}
		if err := w.WriteNullTerminatedString(spelling(fv.Token, f.Name)); err != nil {
			return datio.WithField(err, f.Name)
		}
		at := w.ReserveU32()
		if err := c.registry.Encode(w, f, fv.Value); err != nil {
			return err
		}
		w.PatchU32(at, uint32(w.Len()-at-4))
	}
	return nil
}

// spelling returns token when it names the same thing as name.
func spelling(token, name string) string {
	if token != "" && strings.EqualFold(token, name) {
		return token
	}
	return name
}
