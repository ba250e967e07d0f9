// Package dat reads and writes DAT asset containers.
//
// A DAT file is a flat sequence of chunks terminated by an EOF chunk. Each
// chunk starts with an 8-byte header:
//
//	magic  u32  chunk kind, a little-endian fourcc
//	length u32  bytes that follow the header: ids plus payload
//
// Chunk kinds decide whether an id and a parent id follow the header and how
// wide they are. Unknown kinds, and known kinds whose payload fails to decode,
// are kept as raw bytes so a load never loses data.
package dat

import (
	"fmt"
	"strings"

	"github.com/samcharles93/datkit/internal/logger"
	"github.com/samcharles93/datkit/pkg/controller"
	"github.com/samcharles93/datkit/pkg/schema"
)

// Built-in chunk magics.
const (
	MagicEOF           uint32 = 0x00464F45 // "EOF\0"
	MagicLabel         uint32 = 0x4C42414C // "LABL"
	MagicBoneInfluence uint32 = 0x464E4942 // "BINF"
	MagicImage         uint32 = 0x474D4954 // "TIMG"
	MagicController    uint32 = 0x4C525443 // "CTRL"
)

const headerSize = 8

// File is a loaded DAT container. Chunk order is file order; later chunks may
// refer to earlier ones by id.
type File struct {
	Chunks []*Chunk
}

// Chunk is one container record. ID and ParentID are only meaningful when
// the chunk's kind supports them.
type Chunk struct {
	Magic    uint32
	ID       uint64
	ParentID uint64
	Payload  Payload

	// Offset is where the chunk header started in the loaded stream, or -1.
	Offset int64
	// Length is the declared length when loaded.
	Length int
	// DecodeErr is set when a known kind failed to decode and the chunk was
	// kept as raw bytes.
	DecodeErr error

	kind *Kind
}

// NewChunk returns a chunk of kind k carrying p.
func NewChunk(k *Kind, p Payload) *Chunk {
	return &Chunk{Magic: k.Magic, Payload: p, Offset: -1, kind: k}
}

// Kind returns the chunk kind, looking the magic up in the built-in kinds
// when the chunk was not built from one.
func (c *Chunk) Kind() *Kind {
	if c.kind != nil {
		return c.kind
	}
	k, _ := builtin.Lookup(c.Magic)
	return k
}

// IsRaw reports whether the payload is kept as opaque bytes.
func (c *Chunk) IsRaw() bool {
	_, ok := c.Payload.(*Raw)
	return ok
}

func (c *Chunk) HasID() bool {
	k := c.Kind()
	return k != nil && k.SupportsID && !c.IsRaw()
}

func (c *Chunk) HasParentID() bool {
	k := c.Kind()
	return k != nil && k.SupportsParentID && !c.IsRaw()
}

// SetID sets the chunk id, rejecting kinds without ids and values wider than
// the kind's id field.
func (c *Chunk) SetID(id uint64) error {
	if err := c.checkID("id", id, func(k *Kind) bool { return k.SupportsID }); err != nil {
		return err
	}
	c.ID = id
	return nil
}

// SetParentID is SetID for the parent id.
func (c *Chunk) SetParentID(id uint64) error {
	if err := c.checkID("parent id", id, func(k *Kind) bool { return k.SupportsParentID }); err != nil {
		return err
	}
	c.ParentID = id
	return nil
}

func (c *Chunk) checkID(what string, id uint64, supported func(*Kind) bool) error {
	k := c.Kind()
	if k == nil || !supported(k) {
		return fmt.Errorf("%w: %s chunks carry no %s", ErrNoID, MagicString(c.Magic), what)
	}
	if !fitsWidth(id, k.idWidth()) {
		return &idRangeError{what: what, id: id, kind: k}
	}
	return nil
}

func fitsWidth(v uint64, width int) bool {
	if width >= 8 {
		return true
	}
	return v < uint64(1)<<(8*uint(width))
}

// EOF returns the terminating chunk, or nil.
func (f *File) EOF() *Chunk {
	if n := len(f.Chunks); n > 0 && f.Chunks[n-1].Magic == MagicEOF {
		return f.Chunks[n-1]
	}
	return nil
}

// Append adds chunks before the EOF chunk, if there is one.
func (f *File) Append(chunks ...*Chunk) {
	if eof := f.EOF(); eof != nil {
		f.Chunks = append(f.Chunks[:len(f.Chunks)-1], chunks...)
		f.Chunks = append(f.Chunks, eof)
		return
	}
	f.Chunks = append(f.Chunks, chunks...)
}

// Options configures Load and Save. The zero value uses the built-in kinds,
// the default controller codec, no schemas and no logging.
type Options struct {
	// Schemas resolves controller type names. Without it controller chunks
	// load as raw bytes.
	Schemas schema.Provider
	Kinds   *Kinds
	Codec   *controller.Codec
	Log     logger.Logger
	// Strict turns tolerated anomalies (EOF payload bytes, data after EOF)
	// into errors.
	Strict bool
}

// Env is what payload codecs get to work with.
type Env struct {
	Schemas schema.Provider
	Codec   *controller.Codec
	Log     logger.Logger
}

func (o *Options) env() *Env {
	var opts Options
	if o != nil {
		opts = *o
	}
	if opts.Codec == nil {
		opts.Codec = controller.New(nil)
	}
	return &Env{Schemas: opts.Schemas, Codec: opts.Codec, Log: logger.OrNop(opts.Log)}
}

func (o *Options) kinds() *Kinds {
	if o == nil || o.Kinds == nil {
		return builtin
	}
	return o.Kinds
}

func (o *Options) strict() bool { return o != nil && o.Strict }

// MagicString renders a magic as its fourcc when printable, hex otherwise.
func MagicString(m uint32) string {
	b := []byte{byte(m), byte(m >> 8), byte(m >> 16), byte(m >> 24)}
	s := strings.TrimRight(string(b), "\x00")
	if s == "" {
		return fmt.Sprintf("0x%08x", m)
	}
	for _, r := range s {
		if r < 0x20 || r > 0x7e {
			return fmt.Sprintf("0x%08x", m)
		}
	}
	return s
}
