package serial

import (
	"fmt"
	"time"

	"github.com/samcharles93/datkit/pkg/datio"
	"github.com/samcharles93/datkit/pkg/schema"
)

// Nullable handles optional values. There is no presence flag on the wire:
// booleans go through Boolean to keep the mixed-width rule, everything else
// is read with the underlying value-type layout.
type Nullable struct{}

func (Nullable) Name() string { return "nullable" }

func (Nullable) Supports(f *schema.FieldSchema) bool {
	return f.Type == schema.TypeNullable && f.Elem != nil
}

func (Nullable) Decode(r *Registry, c *datio.Cursor, f *schema.FieldSchema, end int) (any, error) {
	elem := f.Elem
	switch {
	case elem.Type == schema.TypeBool:
		return Boolean{}.Decode(r, c, elem, end)
	case elem.Type.IsNumeric() || elem.Type == schema.TypeStruct:
		return ValueType{}.Decode(r, c, elem, end)
	default:
		return nil, &datio.Error{Class: datio.ErrValueFormat, Offset: c.Offset(), Reason: elem.Type.String(), Err: ErrUnsupportedNullable}
	}
}

func (Nullable) Encode(r *Registry, w *datio.Writer, f *schema.FieldSchema, v any) error {
	elem := f.Elem
	switch {
	case elem.Type == schema.TypeBool:
		if v == nil {
			v = false
		}
		return Boolean{}.Encode(r, w, elem, v)
	case elem.Type.IsNumeric() || elem.Type == schema.TypeStruct:
		if v == nil {
			return writeZero(w, elem)
		}
		return ValueType{}.Encode(r, w, elem, v)
	default:
		return &datio.Error{Class: datio.ErrValueFormat, Offset: -1, Reason: elem.Type.String(), Err: ErrUnsupportedNullable}
	}
}

// Boolean reads one-byte or legacy four-byte booleans and always writes one
// byte.
type Boolean struct{}

func (Boolean) Name() string { return "boolean" }

func (Boolean) Supports(f *schema.FieldSchema) bool {
	return f.Type == schema.TypeBool
}

func (Boolean) Decode(_ *Registry, c *datio.Cursor, _ *schema.FieldSchema, end int) (any, error) {
	return c.ReadBoolean(end)
}

func (Boolean) Encode(_ *Registry, w *datio.Writer, f *schema.FieldSchema, v any) error {
	b, ok := v.(bool)
	if !ok {
		return typeMismatch(f, v)
	}
	w.WriteBoolean(b)
	return nil
}

// PrimitiveArray handles count-prefixed arrays of numeric scalars. Byte
// arrays are copied in one step. Other element types can be written but not
// read back: fixed-size lists must be declared as lists.
type PrimitiveArray struct{}

func (PrimitiveArray) Name() string { return "primitive-array" }

func (PrimitiveArray) Supports(f *schema.FieldSchema) bool {
	return f.Type == schema.TypeArray && f.Elem != nil && f.Elem.Type.IsNumeric()
}

func (PrimitiveArray) Decode(_ *Registry, c *datio.Cursor, f *schema.FieldSchema, _ int) (any, error) {
	if f.Elem.Type != schema.TypeUint8 {
		return nil, &datio.Error{Class: datio.ErrValueFormat, Offset: c.Offset(), Reason: "array of " + f.Elem.Type.String(), Err: ErrUnsupportedArrayRead}
	}
	n, err := c.ReadUint(f.CountType.Bytes())
	if err != nil {
		return nil, err
	}
	if n > uint64(c.Remaining()) {
		return nil, datio.Errorf(datio.ErrStructural, c.Offset(), "byte array of %d exceeds %d remaining bytes", n, c.Remaining())
	}
	b, err := c.ReadN(int(n))
	if err != nil {
		return nil, err
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out, nil
}

func (PrimitiveArray) Encode(_ *Registry, w *datio.Writer, f *schema.FieldSchema, v any) error {
	n, ok := arrayLen(f.Elem.Type, v)
	if !ok {
		return typeMismatch(f, v)
	}
	if err := checkCount(n, f.CountType); err != nil {
		return err
	}
	if err := w.WriteUint(f.CountType.Bytes(), uint64(n)); err != nil {
		return err
	}
	switch a := v.(type) {
	case []byte:
		w.WriteBytes(a)
	case []int8:
		for _, x := range a {
			w.WriteI8(x)
		}
	case []int16:
		for _, x := range a {
			w.WriteI16(x)
		}
	case []uint16:
		for _, x := range a {
			w.WriteU16(x)
		}
	case []int32:
		for _, x := range a {
			w.WriteI32(x)
		}
	case []uint32:
		for _, x := range a {
			w.WriteU32(x)
		}
	case []int64:
		for _, x := range a {
			w.WriteI64(x)
		}
	case []uint64:
		for _, x := range a {
			w.WriteU64(x)
		}
	case []float32:
		for _, x := range a {
			w.WriteF32(x)
		}
	case []float64:
		for _, x := range a {
			w.WriteF64(x)
		}
	}
	return nil
}

func arrayLen(elem schema.FieldType, v any) (int, bool) {
	switch a := v.(type) {
	case []byte:
		return len(a), elem == schema.TypeUint8
	case []int8:
		return len(a), elem == schema.TypeInt8
	case []int16:
		return len(a), elem == schema.TypeInt16
	case []uint16:
		return len(a), elem == schema.TypeUint16
	case []int32:
		return len(a), elem == schema.TypeInt32
	case []uint32:
		return len(a), elem == schema.TypeUint32
	case []int64:
		return len(a), elem == schema.TypeInt64
	case []uint64:
		return len(a), elem == schema.TypeUint64
	case []float32:
		return len(a), elem == schema.TypeFloat32
	case []float64:
		return len(a), elem == schema.TypeFloat64
	default:
		return 0, false
	}
}

// ValueType handles numeric scalars and fixed-layout structs, walking struct
// members in declared order. Nested structs are supported; members that are
// not fixed-layout values (strings, lists, arrays, nullables, dates) are
// rejected rather than skipped.
type ValueType struct{}

func (ValueType) Name() string { return "value-type" }

func (ValueType) Supports(f *schema.FieldSchema) bool {
	return f.Type.IsNumeric() || f.Type == schema.TypeStruct
}

func (vt ValueType) Decode(r *Registry, c *datio.Cursor, f *schema.FieldSchema, _ int) (any, error) {
	if f.Type != schema.TypeStruct {
		return readScalar(c, f.Type)
	}
	out := make(Fields, 0, len(f.Members))
	for i := range f.Members {
		m := &f.Members[i]
		var (
			v   any
			err error
		)
		switch {
		case m.Type == schema.TypeBool:
			v, err = c.ReadBoolean(c.Pos() + 1)
		case vt.Supports(m):
			v, err = vt.Decode(r, c, m, -1)
		default:
			err = &datio.Error{Class: datio.ErrValueFormat, Offset: c.Offset(), Reason: m.Type.String(), Err: ErrUnsupportedMember}
		}
		if err != nil {
			return nil, datio.WithField(err, m.Name)
		}
		out = append(out, Field{Name: m.Name, Value: v, Present: true})
	}
	return out, nil
}

func (vt ValueType) Encode(r *Registry, w *datio.Writer, f *schema.FieldSchema, v any) error {
	if f.Type != schema.TypeStruct {
		return writeScalar(w, f, v)
	}
	fields, ok := v.(Fields)
	if !ok {
		return typeMismatch(f, v)
	}
	for i := range f.Members {
		m := &f.Members[i]
		mv, present := fields.Lookup(m.Name)
		if !present || !mv.Present {
			return &datio.Error{Class: datio.ErrSchemaMismatch, Field: m.Name, Offset: -1, Reason: "struct member missing"}
		}
		var err error
		switch {
		case m.Type == schema.TypeBool:
			err = Boolean{}.Encode(r, w, m, mv.Value)
		case vt.Supports(m):
			err = vt.Encode(r, w, m, mv.Value)
		default:
			err = &datio.Error{Class: datio.ErrValueFormat, Offset: -1, Reason: m.Type.String(), Err: ErrUnsupportedMember}
		}
		if err != nil {
			return datio.WithField(err, m.Name)
		}
	}
	return nil
}

// String handles null-terminated strings and, when FixedLength is set,
// fixed-width strings. A fixed string with no content decodes to nil.
type String struct{}

func (String) Name() string { return "string" }

func (String) Supports(f *schema.FieldSchema) bool {
	return f.Type == schema.TypeString
}

func (String) Decode(_ *Registry, c *datio.Cursor, f *schema.FieldSchema, _ int) (any, error) {
	if f.FixedLength > 0 {
		s, ok, err := c.ReadFixedString(f.FixedLength)
		if err != nil || !ok {
			return nil, err
		}
		return s, nil
	}
	return c.ReadNullTerminatedString()
}

func (String) Encode(_ *Registry, w *datio.Writer, f *schema.FieldSchema, v any) error {
	if f.FixedLength > 0 {
		if v == nil {
			return w.WriteFixedString("", f.FixedLength)
		}
		s, ok := v.(string)
		if !ok {
			return typeMismatch(f, v)
		}
		return w.WriteFixedString(s, f.FixedLength)
	}
	s, ok := v.(string)
	if !ok {
		return typeMismatch(f, v)
	}
	return w.WriteNullTerminatedString(s)
}

// DateTime handles packed yyyyMMdd dates.
type DateTime struct{}

func (DateTime) Name() string { return "datetime" }

func (DateTime) Supports(f *schema.FieldSchema) bool {
	return f.Type == schema.TypeDateTime
}

func (DateTime) Decode(_ *Registry, c *datio.Cursor, _ *schema.FieldSchema, _ int) (any, error) {
	return c.ReadDateTime()
}

func (DateTime) Encode(_ *Registry, w *datio.Writer, f *schema.FieldSchema, v any) error {
	t, ok := v.(time.Time)
	if !ok {
		return typeMismatch(f, v)
	}
	return w.WriteDateTime(t)
}

// List handles ordered, count-prefixed lists of any resolvable element type.
type List struct{}

func (List) Name() string { return "list" }

func (List) Supports(f *schema.FieldSchema) bool {
	return f.Type == schema.TypeList && f.Elem != nil
}

func (List) Decode(r *Registry, c *datio.Cursor, f *schema.FieldSchema, _ int) (any, error) {
	n, err := c.ReadUint(f.CountType.Bytes())
	if err != nil {
		return nil, err
	}
	if n > uint64(c.Remaining()) {
		// every element occupies at least one byte
		return nil, datio.Errorf(datio.ErrStructural, c.Offset(), "list count %d exceeds %d remaining bytes", n, c.Remaining())
	}
	s, err := r.Resolve(f.Elem)
	if err != nil {
		return nil, err
	}
	out := make([]any, 0, int(n))
	for i := 0; i < int(n); i++ {
		v, err := s.Decode(r, c, f.Elem, FixedEnd(f.Elem, c.Pos()))
		if err != nil {
			return nil, datio.WithField(err, fmt.Sprintf("[%d]", i))
		}
		out = append(out, v)
	}
	return out, nil
}

func (List) Encode(r *Registry, w *datio.Writer, f *schema.FieldSchema, v any) error {
	items, ok := v.([]any)
	if !ok {
		return typeMismatch(f, v)
	}
	if err := checkCount(len(items), f.CountType); err != nil {
		return err
	}
	s, err := r.Resolve(f.Elem)
	if err != nil {
		return err
	}
	if err := w.WriteUint(f.CountType.Bytes(), uint64(len(items))); err != nil {
		return err
	}
	for i, item := range items {
		if err := s.Encode(r, w, f.Elem, item); err != nil {
			return datio.WithField(err, fmt.Sprintf("[%d]", i))
		}
	}
	return nil
}
