package schema

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

const doorYAML = `
controllers:
  - type: DoorController
    scheme: named
    fields:
      - name: Speed
        type: f32
      - name: Locked
        type: bool
        optional: true
      - name: Title
        type: string
        fixed_length: 16
      - name: Waypoints
        type: list
        count: u16
        elem:
          type: struct
          members:
            - {name: X, type: f32}
            - {name: Y, type: f32}
  - type: Brain
    scheme: state_machine
`

const doorJSON = `{
  "controllers": [
    {
      "type": "DoorController",
      "scheme": "raw",
      "fields": [
        {"name": "Speed", "type": "float"},
        {"name": "Ids", "type": "array", "count": 2, "elem": {"type": "u32"}}
      ]
    }
  ]
}`

func TestParseCatalogYAML(t *testing.T) {
	t.Parallel()

	c, err := ParseCatalog([]byte(doorYAML), FormatYAML)
	if err != nil {
		t.Fatalf("parse catalogue: %v", err)
	}
	if c.Len() != 2 {
		t.Fatalf("catalogue size mismatch: got %d want 2", c.Len())
	}
	s, err := c.Schema("doorcontroller")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if s.Scheme != SchemeNamed || len(s.Fields) != 4 {
		t.Fatalf("unexpected schema %+v", s)
	}
	if !s.Fields[1].Optional || s.Fields[1].Type != TypeBool {
		t.Fatalf("optional bool not parsed: %+v", s.Fields[1])
	}
	if s.Fields[2].FixedLength != 16 {
		t.Fatalf("fixed length mismatch: got %d", s.Fields[2].FixedLength)
	}
	wp := s.Field("WAYPOINTS")
	if wp == nil || wp.CountType != Width16 || wp.Elem == nil || wp.Elem.Type != TypeStruct {
		t.Fatalf("list field not parsed: %+v", wp)
	}
	if wp.Elem.Name != "Waypoints" {
		t.Fatalf("element name not defaulted: got %q", wp.Elem.Name)
	}
	brain, err := c.Schema("Brain")
	if err != nil {
		t.Fatalf("lookup brain: %v", err)
	}
	if brain.Scheme != SchemeStateMachine {
		t.Fatalf("scheme mismatch: got %v", brain.Scheme)
	}
}

func TestParseCatalogJSON(t *testing.T) {
	t.Parallel()

	c, err := ParseCatalog([]byte(doorJSON), FormatJSON)
	if err != nil {
		t.Fatalf("parse catalogue: %v", err)
	}
	s, err := c.Schema("DoorController")
	if err != nil {
		t.Fatalf("lookup: %v", err)
	}
	if s.Scheme != SchemeRaw {
		t.Fatalf("scheme mismatch: got %v", s.Scheme)
	}
	if s.Fields[0].Type != TypeFloat32 {
		t.Fatalf("alias not resolved: got %v", s.Fields[0].Type)
	}
	if s.Fields[1].CountType != Width16 || s.Fields[1].Elem.Type != TypeUint32 {
		t.Fatalf("array field mismatch: %+v", s.Fields[1])
	}
}

func TestValidateRejectsBadSchemas(t *testing.T) {
	t.Parallel()

	cases := map[string]*ControllerSchema{
		"no type name": {Fields: []FieldSchema{{Name: "A", Type: TypeInt32}}},
		"list without elem": {TypeName: "X", Fields: []FieldSchema{
			{Name: "A", Type: TypeList},
		}},
		"string array": {TypeName: "X", Fields: []FieldSchema{
			{Name: "A", Type: TypeArray, Elem: &FieldSchema{Type: TypeString}},
		}},
		"duplicate field": {TypeName: "X", Fields: []FieldSchema{
			{Name: "A", Type: TypeInt32},
			{Name: "a", Type: TypeInt32},
		}},
		"empty struct": {TypeName: "X", Fields: []FieldSchema{
			{Name: "A", Type: TypeStruct},
		}},
		"bad count width": {TypeName: "X", Fields: []FieldSchema{
			{Name: "A", Type: TypeList, CountType: 3, Elem: &FieldSchema{Type: TypeUint8}},
		}},
	}
	for name, s := range cases {
		if err := s.Validate(); !errors.Is(err, ErrInvalidSchema) {
			t.Fatalf("%s: expected invalid schema, got %v", name, err)
		}
	}
}

func TestCatalogMissingAndDuplicate(t *testing.T) {
	t.Parallel()

	c := MustCatalog(&ControllerSchema{TypeName: "Lamp", Fields: []FieldSchema{{Name: "On", Type: TypeBool}}})
	if _, err := c.Schema("Door"); !errors.Is(err, ErrSchemaNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
	err := c.Register(&ControllerSchema{TypeName: "LAMP"})
	if !errors.Is(err, ErrInvalidSchema) {
		t.Fatalf("expected duplicate error, got %v", err)
	}
	if got := c.Types(); len(got) != 1 || got[0] != "Lamp" {
		t.Fatalf("types mismatch: got %v", got)
	}
}

func TestPathProviderCompilesAndCaches(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	doc := "type: Lamp\nscheme: raw\nfields:\n  - {name: On, type: bool}\n  - {name: Color, type: u32}\n"
	if err := os.WriteFile(filepath.Join(dir, "Lamp.yaml"), []byte(doc), 0o644); err != nil {
		t.Fatalf("write schema: %v", err)
	}

	p := NewPathProvider(dir)
	first, err := p.Schema("Lamp")
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	if first.Scheme != SchemeRaw || len(first.Fields) != 2 {
		t.Fatalf("unexpected schema %+v", first)
	}

	if err := os.Remove(filepath.Join(dir, "Lamp.yaml")); err != nil {
		t.Fatalf("remove: %v", err)
	}
	second, err := p.Schema("lamp")
	if err != nil {
		t.Fatalf("cached schema: %v", err)
	}
	if second != first {
		t.Fatalf("expected cached schema instance")
	}

	if _, err := p.Schema("../etc/passwd"); !errors.Is(err, ErrSchemaNotFound) {
		t.Fatalf("expected not found for path traversal, got %v", err)
	}
	if _, err := p.Schema("Door"); !errors.Is(err, ErrSchemaNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestOpenPicksProviderByPath(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	file := filepath.Join(dir, "catalogue.json")
	if err := os.WriteFile(file, []byte(doorJSON), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	p, err := Open(file)
	if err != nil {
		t.Fatalf("open file: %v", err)
	}
	if _, ok := p.(*Catalog); !ok {
		t.Fatalf("expected *Catalog, got %T", p)
	}
	p, err = Open(dir)
	if err != nil {
		t.Fatalf("open dir: %v", err)
	}
	if _, ok := p.(*PathProvider); !ok {
		t.Fatalf("expected *PathProvider, got %T", p)
	}
}
