package dat

import (
	"fmt"
	"sort"
	"sync"

	"github.com/samcharles93/datkit/pkg/datio"
)

// Payload is the typed body of a chunk.
type Payload interface {
	Encode(env *Env, w *datio.Writer) error
}

// Kind describes one chunk kind: its magic, which id fields follow the
// header, and how to decode its payload.
type Kind struct {
	Magic            uint32
	Name             string
	SupportsID       bool
	SupportsParentID bool
	// IDWidth is the byte width of the id fields, 4 or 8. Zero means 8.
	IDWidth int
	// Decode reads the payload. The cursor covers exactly the payload.
	Decode func(env *Env, c *datio.Cursor) (Payload, error)
}

func (k *Kind) idWidth() int {
	if k.IDWidth == 0 {
		return 8
	}
	return k.IDWidth
}

func (k *Kind) validate() error {
	if k.Name == "" {
		return fmt.Errorf("dat: kind %s has no name", MagicString(k.Magic))
	}
	if k.Decode == nil {
		return fmt.Errorf("dat: kind %s has no decoder", k.Name)
	}
	switch k.IDWidth {
	case 0, 4, 8:
	default:
		return fmt.Errorf("dat: kind %s: id width %d is not 4 or 8", k.Name, k.IDWidth)
	}
	return nil
}

// Kinds maps magics to chunk kinds. Safe for concurrent use.
type Kinds struct {
	mu    sync.RWMutex
	kinds map[uint32]*Kind
}

func NewKinds() *Kinds {
	return &Kinds{kinds: make(map[uint32]*Kind)}
}

// DefaultKinds returns a new registry holding the built-in kinds, for callers
// that want to add their own.
func DefaultKinds() *Kinds {
	ks := NewKinds()
	for _, k := range builtinKinds() {
		if err := ks.Register(k); err != nil {
			panic(err)
		}
	}
	return ks
}

var builtin = DefaultKinds()

// Register adds k. Magics are unique.
func (ks *Kinds) Register(k Kind) error {
	if err := k.validate(); err != nil {
		return err
	}
	ks.mu.Lock()
	defer ks.mu.Unlock()
	if _, ok := ks.kinds[k.Magic]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateKind, MagicString(k.Magic))
	}
	ks.kinds[k.Magic] = &k
	return nil
}

func (ks *Kinds) Lookup(magic uint32) (*Kind, bool) {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	k, ok := ks.kinds[magic]
	return k, ok
}

// All returns the registered kinds ordered by name.
func (ks *Kinds) All() []*Kind {
	ks.mu.RLock()
	out := make([]*Kind, 0, len(ks.kinds))
	for _, k := range ks.kinds {
		out = append(out, k)
	}
	ks.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func builtinKinds() []Kind {
	return []Kind{
		{Magic: MagicEOF, Name: "eof", Decode: decodeEOF},
		{Magic: MagicLabel, Name: "label", SupportsID: true, SupportsParentID: true, IDWidth: 8, Decode: decodeLabel},
		{Magic: MagicBoneInfluence, Name: "bone-influence", SupportsID: true, SupportsParentID: true, IDWidth: 4, Decode: decodeBoneInfluence},
		{Magic: MagicImage, Name: "image", SupportsID: true, IDWidth: 8, Decode: decodeImage},
		{Magic: MagicController, Name: "controller", SupportsID: true, SupportsParentID: true, IDWidth: 8, Decode: decodeController},
	}
}
