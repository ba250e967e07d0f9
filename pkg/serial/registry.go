// Package serial resolves and runs the per-field value serializers used by
// the controller codecs. Resolution walks the registry in order and the first
// serializer that supports a field wins, so registration order is part of the
// wire contract.
package serial

import (
	"errors"
	"fmt"

	"github.com/samcharles93/datkit/pkg/datio"
	"github.com/samcharles93/datkit/pkg/schema"
)

var (
	ErrNoSerializer         = errors.New("no serializer supports field")
	ErrUnsupportedArrayRead = errors.New("reading primitive arrays other than bytes is not supported; declare a list")
	ErrUnsupportedMember    = errors.New("struct member is not a fixed-layout value")
	ErrUnsupportedNullable  = errors.New("nullable element is not a value type")
)

// Serializer encodes and decodes the values of the fields it supports.
// end is the position at which the value must finish when the caller knows
// it, or -1.
type Serializer interface {
	Name() string
	Supports(f *schema.FieldSchema) bool
	Decode(r *Registry, c *datio.Cursor, f *schema.FieldSchema, end int) (any, error)
	Encode(r *Registry, w *datio.Writer, f *schema.FieldSchema, v any) error
}

type Registry struct {
	serializers []Serializer
}

// NewRegistry builds a registry that resolves in the given order.
func NewRegistry(serializers ...Serializer) *Registry {
	return &Registry{serializers: serializers}
}

// Default returns the standard ordering: nullable, boolean, primitive array,
// value type, string, date, list.
func Default() *Registry {
	return NewRegistry(
		Nullable{},
		Boolean{},
		PrimitiveArray{},
		ValueType{},
		String{},
		DateTime{},
		List{},
	)
}

// Serializers returns the resolution order.
func (r *Registry) Serializers() []Serializer {
	out := make([]Serializer, len(r.serializers))
	copy(out, r.serializers)
	return out
}

// Resolve returns the first serializer supporting f.
func (r *Registry) Resolve(f *schema.FieldSchema) (Serializer, error) {
	for _, s := range r.serializers {
		if s.Supports(f) {
			return s, nil
		}
	}
	return nil, &datio.Error{
		Class:  datio.ErrValueFormat,
		Field:  f.Name,
		Offset: -1,
		Reason: fmt.Sprintf("type %s", f.Type),
		Err:    ErrNoSerializer,
	}
}

// Decode reads the value of f. Errors are attributed to the field.
func (r *Registry) Decode(c *datio.Cursor, f *schema.FieldSchema, end int) (any, error) {
	s, err := r.Resolve(f)
	if err != nil {
		return nil, err
	}
	v, err := s.Decode(r, c, f, end)
	if err != nil {
		return nil, datio.WithField(err, f.Name)
	}
	return v, nil
}

// Encode writes v as the value of f. Errors are attributed to the field.
func (r *Registry) Encode(w *datio.Writer, f *schema.FieldSchema, v any) error {
	s, err := r.Resolve(f)
	if err != nil {
		return err
	}
	if err := s.Encode(r, w, f, v); err != nil {
		return datio.WithField(err, f.Name)
	}
	return nil
}

// FixedEnd returns where a value of f starting at pos must end when its width
// is fixed by its type, or -1.
func FixedEnd(f *schema.FieldSchema, pos int) int {
	if f.Type == schema.TypeNullable && f.Elem != nil {
		return FixedEnd(f.Elem, pos)
	}
	if size := f.Type.Size(); size > 0 {
		return pos + size
	}
	return -1
}

func typeMismatch(f *schema.FieldSchema, v any) error {
	return &datio.Error{
		Class:  datio.ErrValueFormat,
		Offset: -1,
		Reason: fmt.Sprintf("expected %s value, got %T", f.Type, v),
	}
}

func checkCount(n int, width schema.IntWidth) error {
	limit := uint64(1)<<(8*uint(width.Bytes())) - 1
	if width.Bytes() == 8 {
		limit = ^uint64(0)
	}
	if uint64(n) > limit {
		return datio.Errorf(datio.ErrCapacity, -1, "too many elements: %d exceeds the %d-byte count limit of %d", n, width.Bytes(), limit)
	}
	return nil
}
