package dat

import (
	"bytes"
	"fmt"

	"github.com/samcharles93/datkit/pkg/controller"
	"github.com/samcharles93/datkit/pkg/datio"
)

// Raw is an opaque payload. For unknown kinds and failed decodes it holds the
// whole region after the header, id fields included.
type Raw struct {
	Data []byte
}

func (p *Raw) Encode(_ *Env, w *datio.Writer) error {
	w.WriteBytes(p.Data)
	return nil
}

// EOF terminates a file. Trailing holds bytes some producers leave in its
// payload; they are dropped on save.
type EOF struct {
	Trailing []byte
}

func decodeEOF(_ *Env, c *datio.Cursor) (Payload, error) {
	p := &EOF{}
	if c.Remaining() > 0 {
		p.Trailing = bytes.Clone(c.Rest())
	}
	return p, nil
}

func (*EOF) Encode(*Env, *datio.Writer) error { return nil }

// Label is a text chunk.
type Label struct {
	Text string
}

func decodeLabel(_ *Env, c *datio.Cursor) (Payload, error) {
	s, err := c.ReadNullTerminatedString()
	if err != nil {
		return nil, datio.WithField(err, "Text")
	}
	return &Label{Text: s}, nil
}

func (p *Label) Encode(_ *Env, w *datio.Writer) error {
	return datio.WithField(w.WriteNullTerminatedString(p.Text), "Text")
}

// Influence weights one vertex to one bone.
type Influence struct {
	Vertex uint32
	Bone   uint16
	Weight float32
}

const influenceSize = 4 + 2 + 4

// BoneInfluence is a skinning table. Its ids are 32-bit.
type BoneInfluence struct {
	Influences []Influence
}

func decodeBoneInfluence(_ *Env, c *datio.Cursor) (Payload, error) {
	n, err := c.ReadU32()
	if err != nil {
		return nil, datio.WithField(err, "Influences")
	}
	if uint64(n)*influenceSize > uint64(c.Remaining()) {
		return nil, &datio.Error{
			Class:  datio.ErrStructural,
			Field:  "Influences",
			Offset: c.Offset(),
			Reason: fmt.Sprintf("%d influences exceed %d remaining bytes", n, c.Remaining()),
		}
	}
	p := &BoneInfluence{Influences: make([]Influence, n)}
	for i := range p.Influences {
		if err := datio.ReadValue(c, &p.Influences[i]); err != nil {
			return nil, datio.WithField(err, fmt.Sprintf("Influences[%d]", i))
		}
	}
	return p, nil
}

func (p *BoneInfluence) Encode(_ *Env, w *datio.Writer) error {
	if uint64(len(p.Influences)) > uint64(^uint32(0)) {
		return datio.Errorf(datio.ErrCapacity, -1, "too many influences: %d", len(p.Influences))
	}
	w.WriteU32(uint32(len(p.Influences)))
	for i := range p.Influences {
		if err := datio.WriteValue(w, &p.Influences[i]); err != nil {
			return datio.WithField(err, fmt.Sprintf("Influences[%d]", i))
		}
	}
	return nil
}

// ImageNameSize is the width of the fixed image name field.
const ImageNameSize = 32

// Image is an embedded texture. Data is kept as stored; format detection is
// left to callers.
type Image struct {
	Name   string
	Width  uint32
	Height uint32
	Data   []byte
}

func decodeImage(_ *Env, c *datio.Cursor) (Payload, error) {
	name, _, err := c.ReadFixedString(ImageNameSize)
	if err != nil {
		return nil, datio.WithField(err, "Name")
	}
	p := &Image{Name: name}
	if p.Width, err = c.ReadU32(); err != nil {
		return nil, datio.WithField(err, "Width")
	}
	if p.Height, err = c.ReadU32(); err != nil {
		return nil, datio.WithField(err, "Height")
	}
	p.Data = bytes.Clone(c.Rest())
	return p, nil
}

func (p *Image) Encode(_ *Env, w *datio.Writer) error {
	if err := w.WriteFixedString(p.Name, ImageNameSize); err != nil {
		return datio.WithField(err, "Name")
	}
	w.WriteU32(p.Width)
	w.WriteU32(p.Height)
	w.WriteBytes(p.Data)
	return nil
}

// Controller carries a controller record. On the wire the body is preceded
// by its type name, which selects the schema.
type Controller struct {
	Record *controller.Record
}

func decodeController(env *Env, c *datio.Cursor) (Payload, error) {
	typeName, err := c.ReadNullTerminatedString()
	if err != nil {
		return nil, datio.WithField(err, "Type")
	}
	if env.Schemas == nil {
		return nil, &datio.Error{Class: datio.ErrSchemaMismatch, Field: typeName, Offset: c.Offset(), Err: ErrNoSchemas}
	}
	s, err := env.Schemas.Schema(typeName)
	if err != nil {
		return nil, &datio.Error{Class: datio.ErrSchemaMismatch, Field: typeName, Offset: c.Offset(), Err: err}
	}
	rec, err := env.Codec.Decode(c, s)
	if err != nil {
		return nil, err
	}
	rec.TypeName = typeName
	return &Controller{Record: rec}, nil
}

func (p *Controller) Encode(env *Env, w *datio.Writer) error {
	if p.Record == nil {
		return &datio.Error{Class: datio.ErrValueFormat, Offset: -1, Err: controller.ErrNilRecord}
	}
	if env.Schemas == nil {
		return &datio.Error{Class: datio.ErrSchemaMismatch, Field: p.Record.TypeName, Offset: -1, Err: ErrNoSchemas}
	}
	s, err := env.Schemas.Schema(p.Record.TypeName)
	if err != nil {
		return &datio.Error{Class: datio.ErrSchemaMismatch, Field: p.Record.TypeName, Offset: -1, Err: err}
	}
	if err := w.WriteNullTerminatedString(p.Record.TypeName); err != nil {
		return datio.WithField(err, "Type")
	}
	return env.Codec.Encode(w, s, p.Record)
}
