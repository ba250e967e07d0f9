package schema

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrSchemaNotFound = errors.New("schema: controller type not found")
	ErrInvalidSchema  = errors.New("schema: invalid schema")
)

// Provider supplies controller schemas by type name. Implementations must be
// safe for concurrent reads and return a stable field order for a type.
type Provider interface {
	Schema(typeName string) (*ControllerSchema, error)
}

// FieldSchema describes one controller field.
type FieldSchema struct {
	Name        string        `yaml:"name" json:"name"`
	Type        FieldType     `yaml:"type" json:"type"`
	Optional    bool          `yaml:"optional,omitempty" json:"optional,omitempty"`
	FixedLength int           `yaml:"fixed_length,omitempty" json:"fixed_length,omitempty"`
	CountType   IntWidth      `yaml:"count,omitempty" json:"count,omitempty"`
	Elem        *FieldSchema  `yaml:"elem,omitempty" json:"elem,omitempty"`
	Members     []FieldSchema `yaml:"members,omitempty" json:"members,omitempty"`
}

// Is reports whether name refers to this field. Names compare
// case-insensitively.
func (f *FieldSchema) Is(name string) bool {
	return strings.EqualFold(f.Name, name)
}

// Validate checks that composite types carry the descriptors they need.
func (f *FieldSchema) Validate() error {
	if f.Name == "" {
		return fmt.Errorf("%w: field with empty name", ErrInvalidSchema)
	}
	switch f.Type {
	case TypeInvalid:
		return fmt.Errorf("%w: field %q has no type", ErrInvalidSchema, f.Name)
	case TypeArray, TypeList, TypeNullable:
		if f.Elem == nil {
			return fmt.Errorf("%w: field %q of type %s needs an element type", ErrInvalidSchema, f.Name, f.Type)
		}
		if f.Elem.Name == "" {
			f.Elem.Name = f.Name
		}
		if f.Type == TypeArray && !f.Elem.Type.IsNumeric() {
			return fmt.Errorf("%w: array field %q needs a numeric element type, got %s", ErrInvalidSchema, f.Name, f.Elem.Type)
		}
		return f.Elem.Validate()
	case TypeStruct:
		if len(f.Members) == 0 {
			return fmt.Errorf("%w: struct field %q has no members", ErrInvalidSchema, f.Name)
		}
		for i := range f.Members {
			if err := f.Members[i].Validate(); err != nil {
				return fmt.Errorf("field %q: %w", f.Name, err)
			}
		}
	case TypeString:
		if f.FixedLength < 0 {
			return fmt.Errorf("%w: field %q has negative fixed length", ErrInvalidSchema, f.Name)
		}
	}
	switch f.CountType {
	case WidthDefault, Width8, Width16, Width32, Width64:
	default:
		return fmt.Errorf("%w: field %q has count width %d", ErrInvalidSchema, f.Name, f.CountType)
	}
	return nil
}

// ControllerSchema is the ordered field layout of one controller type.
type ControllerSchema struct {
	TypeName string        `yaml:"type" json:"type"`
	Scheme   Scheme        `yaml:"scheme" json:"scheme"`
	Fields   []FieldSchema `yaml:"fields" json:"fields"`
}

func (s *ControllerSchema) Validate() error {
	if s == nil {
		return fmt.Errorf("%w: nil schema", ErrInvalidSchema)
	}
	if s.TypeName == "" {
		return fmt.Errorf("%w: schema without type name", ErrInvalidSchema)
	}
	seen := make(map[string]struct{}, len(s.Fields))
	for i := range s.Fields {
		f := &s.Fields[i]
		if err := f.Validate(); err != nil {
			return fmt.Errorf("%s: %w", s.TypeName, err)
		}
		key := strings.ToLower(f.Name)
		if _, dup := seen[key]; dup {
			return fmt.Errorf("%w: %s: duplicate field %q", ErrInvalidSchema, s.TypeName, f.Name)
		}
		seen[key] = struct{}{}
	}
	return nil
}

// Field returns the field with the given name, or nil.
func (s *ControllerSchema) Field(name string) *FieldSchema {
	for i := range s.Fields {
		if s.Fields[i].Is(name) {
			return &s.Fields[i]
		}
	}
	return nil
}
