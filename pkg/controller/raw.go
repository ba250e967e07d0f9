package controller

import (
	"github.com/samcharles93/datkit/pkg/datio"
	"github.com/samcharles93/datkit/pkg/schema"
	"github.com/samcharles93/datkit/pkg/serial"
)

// decodeRaw reads fields positionally. Booleans are a single byte. Optional
// fields may only be missing at the end of the body.
func (c *Codec) decodeRaw(cur *datio.Cursor, s *schema.ControllerSchema, rec *Record) error {
	for i := range s.Fields {
		f := &s.Fields[i]
		if f.Optional && cur.Remaining() == 0 {
			rec.Fields = append(rec.Fields, serial.Field{Name: f.Name})
			continue
		}
		v, err := c.registry.Decode(cur, f, serial.FixedEnd(f, cur.Pos()))
		if err != nil {
			return err
		}
		rec.Fields = append(rec.Fields, serial.Field{Name: f.Name, Value: v, Present: true})
	}
	return nil
}

func (c *Codec) encodeRaw(w *datio.Writer, s *schema.ControllerSchema, rec *Record) error {
	missing := ""
	for i := range s.Fields {
		f := &s.Fields[i]
		fv, ok := rec.Fields.Lookup(f.Name)
		if !ok || !fv.Present {
			if !f.Optional {
				return &datio.Error{Class: datio.ErrSchemaMismatch, Field: f.Name, Offset: -1, Reason: "required field has no value"}
			}
			if missing == "" {
				missing = f.Name
			}
			continue
		}
		if missing != "" {
			// positional layout cannot express a gap
			return &datio.Error{Class: datio.ErrSchemaMismatch, Field: missing, Offset: -1, Reason: "optional field absent before " + f.Name}
		}
		if err := c.registry.Encode(w, f, fv.Value); err != nil {
			return err
		}
	}
	return nil
}
