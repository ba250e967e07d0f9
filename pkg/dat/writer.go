package dat

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/samcharles93/datkit/pkg/datio"
)

// Encode serializes f. Lengths are derived from the encoded payloads. A
// missing EOF chunk is appended; an EOF chunk anywhere but last is an error,
// as is any payload that fails to encode.
func Encode(f *File, opts *Options) ([]byte, error) {
	env := opts.env()
	kinds := opts.kinds()
	w := datio.NewWriter()

	for i, chunk := range f.Chunks {
		if chunk == nil {
			return nil, fmt.Errorf("dat: chunk %d is nil", i)
		}
		if chunk.Magic == MagicEOF && i != len(f.Chunks)-1 {
			return nil, fmt.Errorf("%w: chunk %d of %d", ErrMisplacedEOF, i, len(f.Chunks))
		}
		k := chunk.kind
		if k == nil {
			k, _ = kinds.Lookup(chunk.Magic)
		}
		w.WriteU32(chunk.Magic)
		at := w.ReserveU32()
		if err := encodeBody(env, w, chunk, k); err != nil {
			return nil, fmt.Errorf("dat: chunk %d (%s): %w", i, MagicString(chunk.Magic), err)
		}
		n := w.Len() - at - 4
		if uint64(n) > uint64(^uint32(0)) {
			return nil, &datio.Error{Class: datio.ErrCapacity, Field: MagicString(chunk.Magic), Offset: -1, Reason: fmt.Sprintf("chunk %d payload of %d bytes", i, n)}
		}
		w.PatchU32(at, uint32(n))
	}
	if f.EOF() == nil {
		w.WriteU32(MagicEOF)
		w.WriteU32(0)
	}
	return w.Bytes(), nil
}

// EncodeChunk returns the bytes following c's header: its ids and payload,
// as Encode would write them.
func EncodeChunk(c *Chunk, opts *Options) ([]byte, error) {
	k := c.kind
	if k == nil {
		k, _ = opts.kinds().Lookup(c.Magic)
	}
	w := datio.NewWriter()
	if err := encodeBody(opts.env(), w, c, k); err != nil {
		return nil, fmt.Errorf("dat: %s: %w", MagicString(c.Magic), err)
	}
	return w.Bytes(), nil
}

// encodeBody writes the id fields the chunk kind carries, then the payload.
// Raw payloads already hold the whole region.
func encodeBody(env *Env, w *datio.Writer, chunk *Chunk, k *Kind) error {
	if chunk.Payload == nil {
		return fmt.Errorf("%w: nil payload", datio.ErrValueFormat)
	}
	if chunk.IsRaw() {
		return chunk.Payload.Encode(env, w)
	}
	if k == nil {
		return fmt.Errorf("%w: %s", ErrUnknownKind, MagicString(chunk.Magic))
	}
	if k.SupportsID {
		if err := w.WriteUint(k.idWidth(), chunk.ID); err != nil {
			return idWriteError("id", chunk.ID, k, err)
		}
	}
	if k.SupportsParentID {
		if err := w.WriteUint(k.idWidth(), chunk.ParentID); err != nil {
			return idWriteError("parent id", chunk.ParentID, k, err)
		}
	}
	return chunk.Payload.Encode(env, w)
}

// Save writes f to w. The file is encoded in full before anything is
// written, so an encoding error leaves w untouched.
func Save(f *File, w io.Writer, opts *Options) error {
	b, err := Encode(f, opts)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

// SaveFile writes f to path through a temporary file in the same directory,
// renamed into place once fully written.
func SaveFile(path string, f *File, opts *Options) error {
	b, err := Encode(f, opts)
	if err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func() { _ = os.Remove(tmpName) }

	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		cleanup()
		return err
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		cleanup()
		return err
	}
	return nil
}
