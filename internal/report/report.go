// Package report turns loaded DAT files into JSON-ready summaries for the
// CLI and the HTTP API.
package report

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/goccy/go-json"

	"github.com/samcharles93/datkit/pkg/controller"
	"github.com/samcharles93/datkit/pkg/dat"
	"github.com/samcharles93/datkit/pkg/datio"
	"github.com/samcharles93/datkit/pkg/serial"
)

type FileSummary struct {
	Chunks    int            `json:"chunks"`
	Bytes     int            `json:"bytes"`
	Kinds     map[string]int `json:"kinds"`
	Fallbacks int            `json:"fallbacks"`
	Unknown   int            `json:"unknown"`
	// EOFTrailing counts payload bytes on the EOF chunk that a save drops.
	EOFTrailing int            `json:"eof_trailing,omitempty"`
	Items       []ChunkSummary `json:"items,omitempty"`
}

type ChunkSummary struct {
	Index    int     `json:"index"`
	Magic    string  `json:"magic"`
	Kind     string  `json:"kind"`
	Offset   int64   `json:"offset"`
	Length   int     `json:"length"`
	ID       *uint64 `json:"id,omitempty"`
	ParentID *uint64 `json:"parent_id,omitempty"`
	Raw      bool    `json:"raw"`
	Error    string  `json:"error,omitempty"`
	Detail   any     `json:"detail,omitempty"`
}

// Summarize builds a file summary. With items set every chunk is listed with
// its detail.
func Summarize(f *dat.File, items bool) *FileSummary {
	s := &FileSummary{Chunks: len(f.Chunks), Kinds: make(map[string]int)}
	for i, c := range f.Chunks {
		cs := Chunk(i, c)
		s.Kinds[cs.Kind]++
		s.Bytes += 8 + cs.Length
		if c.DecodeErr != nil {
			s.Fallbacks++
		}
		if cs.Kind == "unknown" {
			s.Unknown++
		}
		if eof, ok := c.Payload.(*dat.EOF); ok {
			s.EOFTrailing = len(eof.Trailing)
		}
		if items {
			s.Items = append(s.Items, cs)
		}
	}
	return s
}

// Chunk summarizes one chunk.
func Chunk(index int, c *dat.Chunk) ChunkSummary {
	cs := ChunkSummary{
		Index:  index,
		Magic:  dat.MagicString(c.Magic),
		Kind:   "unknown",
		Offset: c.Offset,
		Length: c.Length,
		Raw:    c.IsRaw(),
		Detail: Detail(c.Payload),
	}
	if k := c.Kind(); k != nil {
		cs.Kind = k.Name
	}
	if c.HasID() {
		id := c.ID
		cs.ID = &id
	}
	if c.HasParentID() {
		id := c.ParentID
		cs.ParentID = &id
	}
	if c.DecodeErr != nil {
		cs.Error = c.DecodeErr.Error()
	}
	return cs
}

// Detail returns the JSON-ready view of a payload.
func Detail(p dat.Payload) any {
	switch p := p.(type) {
	case *dat.Label:
		return map[string]any{"text": p.Text}
	case *dat.BoneInfluence:
		bones := make(map[uint16]struct{})
		for _, in := range p.Influences {
			bones[in.Bone] = struct{}{}
		}
		return map[string]any{"influences": len(p.Influences), "bones": len(bones)}
	case *dat.Image:
		return map[string]any{"name": p.Name, "width": p.Width, "height": p.Height, "bytes": len(p.Data)}
	case *dat.Controller:
		return Controller(p.Record)
	case *dat.EOF:
		if len(p.Trailing) == 0 {
			return nil
		}
		return map[string]any{"trailing": len(p.Trailing)}
	case *dat.Raw:
		return map[string]any{"bytes": len(p.Data)}
	case nil:
		return nil
	default:
		return map[string]any{"type": fmt.Sprintf("%T", p)}
	}
}

type ControllerDetail struct {
	Type   string                   `json:"type"`
	Scheme string                   `json:"scheme"`
	Fields []FieldValue             `json:"fields,omitempty"`
	Graph  *controller.StateMachine `json:"graph,omitempty"`
	Frames []controller.KeyFrame    `json:"frames,omitempty"`
}

type FieldValue struct {
	Name    string `json:"name"`
	Present bool   `json:"present"`
	Value   any    `json:"value,omitempty"`
}

func Controller(rec *controller.Record) *ControllerDetail {
	if rec == nil {
		return nil
	}
	return &ControllerDetail{
		Type:   rec.TypeName,
		Scheme: rec.Scheme.String(),
		Fields: Fields(rec.Fields),
		Graph:  rec.Graph,
		Frames: rec.Frames,
	}
}

// Fields converts decoded fields, keeping declaration order.
func Fields(fs serial.Fields) []FieldValue {
	out := make([]FieldValue, 0, len(fs))
	for _, f := range fs {
		out = append(out, FieldValue{Name: f.Name, Present: f.Present, Value: value(f.Value)})
	}
	return out
}

func value(v any) any {
	switch v := v.(type) {
	case serial.Fields:
		return Fields(v)
	case []any:
		out := make([]any, len(v))
		for i := range v {
			out[i] = value(v[i])
		}
		return out
	case time.Time:
		return v.Format(time.DateOnly)
	default:
		return v
	}
}

// KindNames lists kind names in a stable order.
func (s *FileSummary) KindNames() []string {
	out := make([]string, 0, len(s.Kinds))
	for k := range s.Kinds {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// JSON encodes v indented.
func JSON(v any) ([]byte, error) {
	return json.MarshalIndent(v, "", "  ")
}

// ErrorDetail describes a load failure: its class, field and offset.
type ErrorDetail struct {
	Class  string `json:"class"`
	Field  string `json:"field,omitempty"`
	Offset int64  `json:"offset"`
	Error  string `json:"error"`
}

func Error(err error) ErrorDetail {
	d := ErrorDetail{Class: "error", Offset: datio.OffsetOf(err), Error: err.Error()}
	for _, class := range []error{datio.ErrStructural, datio.ErrSchemaMismatch, datio.ErrValueFormat, datio.ErrCapacity} {
		if errors.Is(err, class) {
			d.Class = class.Error()
			break
		}
	}
	var de *datio.Error
	if errors.As(err, &de) {
		d.Field = de.Field
	}
	return d
}
