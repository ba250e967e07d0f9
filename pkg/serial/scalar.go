package serial

import (
	"github.com/samcharles93/datkit/pkg/datio"
	"github.com/samcharles93/datkit/pkg/schema"
)

func readScalar(c *datio.Cursor, t schema.FieldType) (any, error) {
	switch t {
	case schema.TypeInt8:
		return c.ReadI8()
	case schema.TypeUint8:
		return c.ReadU8()
	case schema.TypeInt16:
		return c.ReadI16()
	case schema.TypeUint16:
		return c.ReadU16()
	case schema.TypeInt32:
		return c.ReadI32()
	case schema.TypeUint32:
		return c.ReadU32()
	case schema.TypeInt64:
		return c.ReadI64()
	case schema.TypeUint64:
		return c.ReadU64()
	case schema.TypeFloat32:
		return c.ReadF32()
	case schema.TypeFloat64:
		return c.ReadF64()
	default:
		return nil, datio.Errorf(datio.ErrValueFormat, c.Offset(), "%s is not a numeric scalar", t)
	}
}

func writeScalar(w *datio.Writer, f *schema.FieldSchema, v any) error {
	ok := true
	switch f.Type {
	case schema.TypeInt8:
		var x int8
		if x, ok = v.(int8); ok {
			w.WriteI8(x)
		}
	case schema.TypeUint8:
		var x uint8
		if x, ok = v.(uint8); ok {
			w.WriteU8(x)
		}
	case schema.TypeInt16:
		var x int16
		if x, ok = v.(int16); ok {
			w.WriteI16(x)
		}
	case schema.TypeUint16:
		var x uint16
		if x, ok = v.(uint16); ok {
			w.WriteU16(x)
		}
	case schema.TypeInt32:
		var x int32
		if x, ok = v.(int32); ok {
			w.WriteI32(x)
		}
	case schema.TypeUint32:
		var x uint32
		if x, ok = v.(uint32); ok {
			w.WriteU32(x)
		}
	case schema.TypeInt64:
		var x int64
		if x, ok = v.(int64); ok {
			w.WriteI64(x)
		}
	case schema.TypeUint64:
		var x uint64
		if x, ok = v.(uint64); ok {
			w.WriteU64(x)
		}
	case schema.TypeFloat32:
		var x float32
		if x, ok = v.(float32); ok {
			w.WriteF32(x)
		}
	case schema.TypeFloat64:
		var x float64
		if x, ok = v.(float64); ok {
			w.WriteF64(x)
		}
	default:
		ok = false
	}
	if !ok {
		return typeMismatch(f, v)
	}
	return nil
}

// writeZero writes the zero value of a fixed-layout field.
func writeZero(w *datio.Writer, f *schema.FieldSchema) error {
	if f.Type == schema.TypeStruct {
		for i := range f.Members {
			if err := writeZero(w, &f.Members[i]); err != nil {
				return err
			}
		}
		return nil
	}
	size := f.Type.Size()
	if size == 0 || f.Type == schema.TypeDateTime {
		return &datio.Error{Class: datio.ErrValueFormat, Field: f.Name, Offset: -1, Err: ErrUnsupportedMember}
	}
	w.WriteBytes(make([]byte, size))
	return nil
}
