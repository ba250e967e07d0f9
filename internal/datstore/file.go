package datstore

import (
	"errors"
	"fmt"
	"sync"

	"github.com/samcharles93/datkit/pkg/dat"
)

var (
	ErrChunkNotFound = errors.New("datstore: chunk not found")
	ErrNoParent      = errors.New("datstore: chunk has no parent id")
)

// File wraps a loaded DAT file with an id index. The index is built on first
// use, after the whole file is loaded, so references in either direction
// resolve.
type File struct {
	path string
	file *dat.File

	once  sync.Once
	byID  map[uint64]int
	dupes []uint64
}

func Open(path string, opts *dat.Options) (*File, error) {
	df, err := dat.Open(path, opts)
	if err != nil {
		return nil, err
	}
	f := New(df)
	f.path = path
	return f, nil
}

func New(df *dat.File) *File {
	return &File{file: df}
}

// Path returns the file the store was opened from, if any.
func (f *File) Path() string { return f.path }

func (f *File) Dat() *dat.File { return f.file }

func (f *File) Len() int {
	if f == nil || f.file == nil {
		return 0
	}
	return len(f.file.Chunks)
}

func (f *File) Chunk(i int) (*dat.Chunk, error) {
	if i < 0 || i >= f.Len() {
		return nil, fmt.Errorf("%w: index %d of %d", ErrChunkNotFound, i, f.Len())
	}
	return f.file.Chunks[i], nil
}

func (f *File) index() {
	f.once.Do(func() {
		f.byID = make(map[uint64]int)
		for i, c := range f.file.Chunks {
			if !c.HasID() {
				continue
			}
			if _, ok := f.byID[c.ID]; ok {
				f.dupes = append(f.dupes, c.ID)
				continue
			}
			f.byID[c.ID] = i
		}
	})
}

// Lookup returns the first chunk carrying id.
func (f *File) Lookup(id uint64) (*dat.Chunk, error) {
	if f.Len() == 0 {
		return nil, ErrChunkNotFound
	}
	f.index()
	i, ok := f.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: id %d", ErrChunkNotFound, id)
	}
	return f.file.Chunks[i], nil
}

// IndexOf returns the position of the first chunk carrying id, or -1.
func (f *File) IndexOf(id uint64) int {
	if f.Len() == 0 {
		return -1
	}
	f.index()
	if i, ok := f.byID[id]; ok {
		return i
	}
	return -1
}

// Parent resolves c's parent id.
func (f *File) Parent(c *dat.Chunk) (*dat.Chunk, error) {
	if !c.HasParentID() {
		return nil, ErrNoParent
	}
	return f.Lookup(c.ParentID)
}

// Children returns the chunks whose parent id is id, in file order.
func (f *File) Children(id uint64) []*dat.Chunk {
	idx := f.ChildIndexes(id)
	out := make([]*dat.Chunk, len(idx))
	for i, j := range idx {
		out[i] = f.file.Chunks[j]
	}
	return out
}

// ChildIndexes is Children by position.
func (f *File) ChildIndexes(id uint64) []int {
	var out []int
	for i := 0; i < f.Len(); i++ {
		c := f.file.Chunks[i]
		if c.HasParentID() && c.ParentID == id {
			out = append(out, i)
		}
	}
	return out
}

// Duplicates returns ids carried by more than one chunk. Lookup resolves them
// to the first.
func (f *File) Duplicates() []uint64 {
	if f.Len() == 0 {
		return nil
	}
	f.index()
	return append([]uint64(nil), f.dupes...)
}

// Fallbacks returns the positions of chunks that failed to decode and were
// kept as raw bytes.
func (f *File) Fallbacks() []int {
	var out []int
	for i := 0; i < f.Len(); i++ {
		if f.file.Chunks[i].DecodeErr != nil {
			out = append(out, i)
		}
	}
	return out
}

func (f *File) Close() error {
	if f == nil {
		return nil
	}
	f.file = nil
	f.byID = nil
	f.dupes = nil
	return nil
}
