// Package schema describes controller layouts as data. A ControllerSchema is
// an ordered list of FieldSchema values plus the encoding scheme; codecs
// interpret it without any runtime type introspection.
package schema

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

type FieldType uint8

const (
	TypeInvalid FieldType = iota
	TypeBool
	TypeInt8
	TypeUint8
	TypeInt16
	TypeUint16
	TypeInt32
	TypeUint32
	TypeInt64
	TypeUint64
	TypeFloat32
	TypeFloat64
	TypeString   // null-terminated, or fixed when FixedLength > 0
	TypeDateTime // packed yyyyMMdd int32
	TypeStruct   // fixed-layout value type, Members in declared order
	TypeArray    // homogeneous primitive array, Elem is the element type
	TypeList     // ordered list of Elem
	TypeNullable // optional value of Elem
)

var fieldTypeNames = map[FieldType]string{
	TypeBool:     "bool",
	TypeInt8:     "i8",
	TypeUint8:    "u8",
	TypeInt16:    "i16",
	TypeUint16:   "u16",
	TypeInt32:    "i32",
	TypeUint32:   "u32",
	TypeInt64:    "i64",
	TypeUint64:   "u64",
	TypeFloat32:  "f32",
	TypeFloat64:  "f64",
	TypeString:   "string",
	TypeDateTime: "datetime",
	TypeStruct:   "struct",
	TypeArray:    "array",
	TypeList:     "list",
	TypeNullable: "nullable",
}

// aliases accepted when parsing catalogue files.
var fieldTypeAliases = map[string]FieldType{
	"boolean": TypeBool,
	"byte":    TypeUint8,
	"sbyte":   TypeInt8,
	"short":   TypeInt16,
	"ushort":  TypeUint16,
	"int":     TypeInt32,
	"uint":    TypeUint32,
	"long":    TypeInt64,
	"ulong":   TypeUint64,
	"float":   TypeFloat32,
	"double":  TypeFloat64,
	"date":    TypeDateTime,
}

func (t FieldType) String() string {
	if s, ok := fieldTypeNames[t]; ok {
		return s
	}
	return fmt.Sprintf("type(%d)", uint8(t))
}

// ParseFieldType parses a type name such as "u16", "f32" or "list".
func ParseFieldType(s string) (FieldType, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	for t, name := range fieldTypeNames {
		if name == s {
			return t, nil
		}
	}
	if t, ok := fieldTypeAliases[s]; ok {
		return t, nil
	}
	return TypeInvalid, fmt.Errorf("schema: unknown field type %q", s)
}

// Size returns the wire width of a scalar type, or 0 for variable or
// composite types.
func (t FieldType) Size() int {
	switch t {
	case TypeBool, TypeInt8, TypeUint8:
		return 1
	case TypeInt16, TypeUint16:
		return 2
	case TypeInt32, TypeUint32, TypeFloat32, TypeDateTime:
		return 4
	case TypeInt64, TypeUint64, TypeFloat64:
		return 8
	default:
		return 0
	}
}

// IsNumeric reports whether t is an integer or floating point scalar.
func (t FieldType) IsNumeric() bool {
	return t >= TypeInt8 && t <= TypeFloat64
}

func (t FieldType) MarshalText() ([]byte, error) {
	if _, ok := fieldTypeNames[t]; !ok {
		return nil, fmt.Errorf("schema: invalid field type %d", uint8(t))
	}
	return []byte(t.String()), nil
}

func (t *FieldType) UnmarshalText(b []byte) error {
	v, err := ParseFieldType(string(b))
	if err != nil {
		return err
	}
	*t = v
	return nil
}

func (t *FieldType) UnmarshalYAML(value *yaml.Node) error {
	return t.UnmarshalText([]byte(value.Value))
}

func (t *FieldType) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("schema: field type: %w", err)
	}
	return t.UnmarshalText([]byte(s))
}

// IntWidth is the byte width of a count prefix. The zero value means the
// default of four bytes.
type IntWidth uint8

const (
	WidthDefault IntWidth = 0
	Width8       IntWidth = 1
	Width16      IntWidth = 2
	Width32      IntWidth = 4
	Width64      IntWidth = 8
)

// Bytes returns the effective width in bytes.
func (w IntWidth) Bytes() int {
	if w == WidthDefault {
		return 4
	}
	return int(w)
}

func ParseIntWidth(s string) (IntWidth, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "default":
		return WidthDefault, nil
	case "u8", "byte", "1":
		return Width8, nil
	case "u16", "ushort", "2":
		return Width16, nil
	case "u32", "uint", "4":
		return Width32, nil
	case "u64", "ulong", "8":
		return Width64, nil
	default:
		return WidthDefault, fmt.Errorf("schema: unknown count type %q", s)
	}
}

func (w IntWidth) String() string {
	return "u" + strconv.Itoa(w.Bytes()*8)
}

func (w IntWidth) MarshalText() ([]byte, error) {
	return []byte(w.String()), nil
}

func (w *IntWidth) UnmarshalText(b []byte) error {
	v, err := ParseIntWidth(string(b))
	if err != nil {
		return err
	}
	*w = v
	return nil
}

func (w *IntWidth) UnmarshalYAML(value *yaml.Node) error {
	return w.UnmarshalText([]byte(value.Value))
}

func (w *IntWidth) UnmarshalJSON(b []byte) error {
	var n int
	if err := json.Unmarshal(b, &n); err == nil {
		return w.UnmarshalText([]byte(strconv.Itoa(n)))
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("schema: count type: %w", err)
	}
	return w.UnmarshalText([]byte(s))
}

// Scheme selects how a controller body is laid out on the wire.
type Scheme uint8

const (
	// SchemeNamed prefixes every field with its name and size.
	SchemeNamed Scheme = iota
	// SchemeRaw lays fields out positionally.
	SchemeRaw
	// SchemeStateMachine is the sentinel-tagged entry/condition/action graph.
	SchemeStateMachine
	// SchemeKeyFrames is a raw layout followed by packed animation key frames.
	SchemeKeyFrames
)

var schemeNames = [...]string{
	SchemeNamed:        "named",
	SchemeRaw:          "raw",
	SchemeStateMachine: "state_machine",
	SchemeKeyFrames:    "key_frames",
}

func (s Scheme) String() string {
	if int(s) < len(schemeNames) {
		return schemeNames[s]
	}
	return fmt.Sprintf("scheme(%d)", uint8(s))
}

func ParseScheme(v string) (Scheme, error) {
	v = strings.ToLower(strings.TrimSpace(v))
	switch v {
	case "", "named":
		return SchemeNamed, nil
	case "statemachine":
		return SchemeStateMachine, nil
	case "keyframes", "compressed_frames":
		return SchemeKeyFrames, nil
	}
	for i, name := range schemeNames {
		if name == v {
			return Scheme(i), nil
		}
	}
	return SchemeNamed, fmt.Errorf("schema: unknown scheme %q", v)
}

func (s Scheme) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Scheme) UnmarshalText(b []byte) error {
	v, err := ParseScheme(string(b))
	if err != nil {
		return err
	}
	*s = v
	return nil
}

func (s *Scheme) UnmarshalYAML(value *yaml.Node) error {
	return s.UnmarshalText([]byte(value.Value))
}

func (s *Scheme) UnmarshalJSON(b []byte) error {
	var v string
	if err := json.Unmarshal(b, &v); err != nil {
		return fmt.Errorf("schema: scheme: %w", err)
	}
	return s.UnmarshalText([]byte(v))
}
