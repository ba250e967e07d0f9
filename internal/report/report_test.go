package report

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/goccy/go-json"

	"github.com/samcharles93/datkit/pkg/controller"
	"github.com/samcharles93/datkit/pkg/dat"
	"github.com/samcharles93/datkit/pkg/datio"
	"github.com/samcharles93/datkit/pkg/schema"
	"github.com/samcharles93/datkit/pkg/serial"
)

func loadSample(t *testing.T) *dat.File {
	t.Helper()

	catalog := schema.MustCatalog(&schema.ControllerSchema{
		TypeName: "DoorController",
		Scheme:   schema.SchemeNamed,
		Fields: []schema.FieldSchema{
			{Name: "Speed", Type: schema.TypeFloat32},
			{Name: "Locked", Type: schema.TypeBool, Optional: true},
		},
	})
	kinds := dat.DefaultKinds()
	labelKind, _ := kinds.Lookup(dat.MagicLabel)
	ctrlKind, _ := kinds.Lookup(dat.MagicController)

	label := dat.NewChunk(labelKind, &dat.Label{Text: "hall"})
	label.ID = 1
	door := &controller.Record{TypeName: "DoorController"}
	door.Fields.Set("Speed", float32(2))
	doorChunk := dat.NewChunk(ctrlKind, &dat.Controller{Record: door})
	doorChunk.ID = 2
	doorChunk.ParentID = 1

	opts := &dat.Options{Schemas: catalog}
	data, err := dat.Encode(&dat.File{Chunks: []*dat.Chunk{label, doorChunk}}, opts)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	// splice an unknown chunk in front of EOF
	w := datio.NewWriter()
	w.WriteBytes(data[:len(data)-8])
	w.WriteU32(0x21505A5A)
	w.WriteU32(3)
	w.WriteBytes([]byte{7, 8, 9})
	w.WriteBytes(data[len(data)-8:])

	f, err := dat.LoadBytes(w.Bytes(), opts)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	return f
}

func TestSummarize(t *testing.T) {
	t.Parallel()

	f := loadSample(t)
	s := Summarize(f, true)

	if s.Chunks != 4 {
		t.Fatalf("chunk count mismatch: got %d want 4", s.Chunks)
	}
	if s.Unknown != 1 || s.Fallbacks != 0 {
		t.Fatalf("unexpected counters: unknown=%d fallbacks=%d", s.Unknown, s.Fallbacks)
	}
	if s.Kinds["label"] != 1 || s.Kinds["controller"] != 1 || s.Kinds["eof"] != 1 {
		t.Fatalf("kind counts mismatch: %v", s.Kinds)
	}
	if got := strings.Join(s.KindNames(), ","); got != "controller,eof,label,unknown" {
		t.Fatalf("kind names mismatch: got %s", got)
	}
	if len(s.Items) != 4 {
		t.Fatalf("item count mismatch: got %d want 4", len(s.Items))
	}

	door := s.Items[1]
	if door.ID == nil || *door.ID != 2 || door.ParentID == nil || *door.ParentID != 1 {
		t.Fatalf("door ids mismatch: %+v", door)
	}
	detail, ok := door.Detail.(*ControllerDetail)
	if !ok {
		t.Fatalf("door detail type: got %T", door.Detail)
	}
	if detail.Type != "DoorController" || detail.Scheme != "named" {
		t.Fatalf("door detail mismatch: %+v", detail)
	}
	if len(detail.Fields) != 2 || detail.Fields[0].Name != "Speed" || detail.Fields[1].Present {
		t.Fatalf("door fields mismatch: %+v", detail.Fields)
	}

	unknown := s.Items[2]
	if !unknown.Raw || unknown.Kind != "unknown" || unknown.Length != 3 || unknown.ID != nil {
		t.Fatalf("unknown chunk summary mismatch: %+v", unknown)
	}
	if unknown.Magic != "ZZP!" {
		t.Fatalf("magic mismatch: got %s", unknown.Magic)
	}

	// the summary without items keeps the counters
	if short := Summarize(f, false); short.Items != nil || short.Chunks != 4 {
		t.Fatalf("short summary mismatch: %+v", short)
	}
}

func TestJSONOutput(t *testing.T) {
	t.Parallel()

	data, err := JSON(Summarize(loadSample(t), true))
	if err != nil {
		t.Fatalf("json: %v", err)
	}
	var decoded struct {
		Chunks int `json:"chunks"`
		Items  []struct {
			Kind   string         `json:"kind"`
			Detail map[string]any `json:"detail"`
		} `json:"items"`
	}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if decoded.Chunks != 4 || len(decoded.Items) != 4 {
		t.Fatalf("decoded summary mismatch: %+v", decoded)
	}
	if got := decoded.Items[0].Detail["text"]; got != "hall" {
		t.Fatalf("label text mismatch: got %v", got)
	}
	if got := decoded.Items[1].Detail["type"]; got != "DoorController" {
		t.Fatalf("controller type mismatch: got %v", got)
	}
}

func TestFieldsConvertsNestedValues(t *testing.T) {
	t.Parallel()

	var inner serial.Fields
	inner.Set("X", int32(1))
	var fs serial.Fields
	fs.Set("Origin", inner)
	fs.Set("Tags", []any{"a", inner})
	fs.Set("Built", time.Date(2024, 3, 9, 0, 0, 0, 0, time.UTC))

	out := Fields(fs)
	if _, ok := out[0].Value.([]FieldValue); !ok {
		t.Fatalf("struct value should convert to field list, got %T", out[0].Value)
	}
	tags := out[1].Value.([]any)
	if _, ok := tags[1].([]FieldValue); !ok {
		t.Fatalf("list element should convert to field list, got %T", tags[1])
	}
	if out[2].Value != "2024-03-09" {
		t.Fatalf("date mismatch: got %v", out[2].Value)
	}
}

func TestErrorDetail(t *testing.T) {
	t.Parallel()

	err := datio.WithField(datio.Errorf(datio.ErrSchemaMismatch, 42, "bad token"), "Speed")
	d := Error(err)
	if d.Class != datio.ErrSchemaMismatch.Error() || d.Field != "Speed" || d.Offset != 42 {
		t.Fatalf("error detail mismatch: %+v", d)
	}

	plain := Error(errors.New("boom"))
	if plain.Class != "error" || plain.Offset != -1 {
		t.Fatalf("plain error detail mismatch: %+v", plain)
	}
}
