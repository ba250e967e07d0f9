package dat

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"golang.org/x/sys/unix"

	"github.com/samcharles93/datkit/pkg/datio"
)

// Open maps a DAT file read-only and decodes it. If mmap is unavailable it
// falls back to ReadAt-based loading. Decoded chunks never alias the mapping,
// which is released before Open returns.
func Open(path string, opts *Options) (*File, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()

	stat, err := f.Stat()
	if err != nil {
		return nil, err
	}
	size64 := stat.Size()
	if size64 > int64(int(^uint(0)>>1)) {
		return nil, fmt.Errorf("%w: %s is too large to map", datio.ErrStructural, path)
	}
	size := int(size64)
	if size == 0 {
		return LoadBytes(nil, opts)
	}

	data, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ, unix.MAP_SHARED)
	if err == nil {
		df, parseErr := LoadBytes(data, opts)
		if unmapErr := unix.Munmap(data); parseErr == nil && unmapErr != nil {
			return nil, unmapErr
		}
		return df, parseErr
	}
	return OpenReaderAt(f, size64, opts)
}

// OpenReaderAt loads a DAT file from a random-access reader without mmap.
func OpenReaderAt(r io.ReaderAt, size int64, opts *Options) (*File, error) {
	if size < 0 || size > int64(int(^uint(0)>>1)) {
		return nil, fmt.Errorf("%w: invalid size %d", datio.ErrStructural, size)
	}
	data, err := readAllAt(r, int(size))
	if err != nil {
		return nil, err
	}
	return LoadBytes(data, opts)
}

func readAllAt(r io.ReaderAt, size int) ([]byte, error) {
	if size == 0 {
		return []byte{}, nil
	}
	out := make([]byte, size)
	var off int64
	for off < int64(size) {
		n, err := r.ReadAt(out[off:], off)
		off += int64(n)
		if err == nil {
			continue
		}
		if err == io.EOF && off == int64(size) {
			break
		}
		return nil, err
	}
	return out, nil
}

// Load reads a whole DAT stream from r.
func Load(r io.Reader, opts *Options) (*File, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	return LoadBytes(data, opts)
}

// LoadBytes decodes a DAT file held in memory. The result does not alias
// data.
//
// Chunk payload failures are not fatal: the chunk is kept as raw bytes and
// its DecodeErr is set. The same happens when a decoded chunk cannot be
// encoded again. Structural problems are fatal: a truncated header, a
// length running past the end of the stream, a payload that decodes without
// filling its declared length, or a missing EOF chunk.
func LoadBytes(data []byte, opts *Options) (*File, error) {
	env := opts.env()
	kinds := opts.kinds()
	c := datio.NewCursor(data)
	f := &File{}

	for {
		if c.Remaining() == 0 {
			return nil, &datio.Error{Class: datio.ErrStructural, Offset: c.Offset(), Err: ErrMissingEOF}
		}
		off := c.Offset()
		if c.Remaining() < headerSize {
			return nil, &datio.Error{
				Class:  datio.ErrStructural,
				Offset: off,
				Reason: fmt.Sprintf("truncated chunk header: %d bytes", c.Remaining()),
				Err:    io.ErrUnexpectedEOF,
			}
		}
		magic, _ := c.ReadU32()
		length, _ := c.ReadU32()
		if uint64(length) > uint64(c.Remaining()) {
			return nil, &datio.Error{
				Class:  datio.ErrStructural,
				Field:  MagicString(magic),
				Offset: off,
				Reason: fmt.Sprintf("chunk declares %d bytes, %d remain", length, c.Remaining()),
			}
		}
		region, _ := c.Sub(int(length))

		chunk, err := decodeChunk(env, kinds, magic, region, off)
		if err != nil {
			return nil, err
		}
		f.Chunks = append(f.Chunks, chunk)

		if magic != MagicEOF {
			continue
		}
		if eof, ok := chunk.Payload.(*EOF); ok && len(eof.Trailing) > 0 {
			if opts.strict() {
				return nil, datio.Errorf(datio.ErrStructural, off+headerSize, "EOF chunk carries %d payload bytes", len(eof.Trailing))
			}
			env.Log.Warn("EOF chunk carries payload bytes; they will be dropped on save", "offset", off, "bytes", len(eof.Trailing))
		}
		break
	}

	if n := c.Remaining(); n > 0 {
		if opts.strict() {
			return nil, datio.Errorf(datio.ErrStructural, c.Offset(), "%d bytes after EOF chunk", n)
		}
		env.Log.Warn("ignoring data after EOF chunk", "offset", c.Offset(), "bytes", n)
	}
	return f, nil
}

func decodeChunk(env *Env, kinds *Kinds, magic uint32, region *datio.Cursor, off int64) (*Chunk, error) {
	chunk := &Chunk{Magic: magic, Offset: off, Length: region.Len()}
	k, ok := kinds.Lookup(magic)
	if !ok {
		env.Log.Debug("unknown chunk kind", "magic", MagicString(magic), "offset", off, "bytes", region.Len())
		chunk.Payload = &Raw{Data: bytes.Clone(region.Rest())}
		return chunk, nil
	}
	chunk.kind = k

	payload, err := decodeKnown(env, k, chunk, region)
	if err == nil {
		if n := region.Remaining(); n > 0 && magic != MagicEOF {
			return nil, &datio.Error{
				Class:  datio.ErrStructural,
				Field:  k.Name,
				Offset: region.Offset(),
				Reason: fmt.Sprintf("payload decoded with %d of %d bytes unread", n, region.Len()),
			}
		}
		chunk.Payload = payload
		if magic != MagicEOF {
			err = checkEncodes(env, chunk, region.Len())
		}
	}
	if err != nil {
		env.Log.Warn("chunk payload did not decode; keeping raw bytes",
			"kind", k.Name, "offset", off, "error", err)
		chunk.ID, chunk.ParentID = 0, 0
		chunk.DecodeErr = err
		if err := region.Seek(0); err != nil {
			return nil, err
		}
		chunk.Payload = &Raw{Data: bytes.Clone(region.Rest())}
	}
	return chunk, nil
}

func decodeKnown(env *Env, k *Kind, chunk *Chunk, region *datio.Cursor) (Payload, error) {
	if k.SupportsID {
		id, err := region.ReadUint(k.idWidth())
		if err != nil {
			return nil, datio.WithField(err, "ID")
		}
		chunk.ID = id
	}
	if k.SupportsParentID {
		id, err := region.ReadUint(k.idWidth())
		if err != nil {
			return nil, datio.WithField(err, "ParentID")
		}
		chunk.ParentID = id
	}
	return k.Decode(env, region)
}

// checkEncodes re-encodes a decoded chunk so that a chunk which could not be
// saved is kept raw instead. Legacy encodings that are written in their
// current form, such as 4-byte named booleans, change the length; that is
// logged but accepted.
func checkEncodes(env *Env, chunk *Chunk, declared int) error {
	w := datio.NewWriter()
	if err := encodeBody(env, w, chunk, chunk.kind); err != nil {
		return err
	}
	if w.Len() != declared {
		env.Log.Debug("chunk re-encodes to a different length",
			"kind", chunk.kind.Name, "offset", chunk.Offset, "declared", declared, "encoded", w.Len())
	}
	return nil
}
