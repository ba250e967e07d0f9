package datstore

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/samcharles93/datkit/pkg/dat"
)

func writeTestDAT(t *testing.T, path string) {
	t.Helper()

	kinds := dat.DefaultKinds()
	labelKind, _ := kinds.Lookup(dat.MagicLabel)
	boneKind, _ := kinds.Lookup(dat.MagicBoneInfluence)

	root := dat.NewChunk(labelKind, &dat.Label{Text: "root"})
	root.ID = 1
	child := dat.NewChunk(labelKind, &dat.Label{Text: "child"})
	child.ID = 2
	child.ParentID = 1
	dupe := dat.NewChunk(labelKind, &dat.Label{Text: "dupe"})
	dupe.ID = 2
	skin := dat.NewChunk(boneKind, &dat.BoneInfluence{Influences: []dat.Influence{{Vertex: 1, Bone: 0, Weight: 1}}})
	skin.ID = 3
	skin.ParentID = 1

	f := &dat.File{Chunks: []*dat.Chunk{child, root, dupe, skin}}
	if err := dat.SaveFile(path, f, nil); err != nil {
		t.Fatalf("write dat: %v", err)
	}
}

func TestOpenAndResolve(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "test.dat")
	writeTestDAT(t, path)

	f, err := Open(path, nil)
	if err != nil {
		t.Fatalf("open datstore: %v", err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			t.Fatalf("close datstore: %v", cerr)
		}
	}()

	if f.Len() != 5 {
		t.Fatalf("chunk count mismatch: got %d want 5", f.Len())
	}
	if f.Path() != path {
		t.Fatalf("path mismatch: got %s want %s", f.Path(), path)
	}

	// the child precedes its parent in the file
	child, err := f.Chunk(0)
	if err != nil {
		t.Fatalf("chunk 0: %v", err)
	}
	parent, err := f.Parent(child)
	if err != nil {
		t.Fatalf("parent: %v", err)
	}
	if got := parent.Payload.(*dat.Label).Text; got != "root" {
		t.Fatalf("parent mismatch: got %q want %q", got, "root")
	}

	two, err := f.Lookup(2)
	if err != nil {
		t.Fatalf("lookup 2: %v", err)
	}
	if two != child {
		t.Fatalf("duplicate id should resolve to the first chunk")
	}
	if dupes := f.Duplicates(); len(dupes) != 1 || dupes[0] != 2 {
		t.Fatalf("duplicates mismatch: got %v", dupes)
	}
	if got := f.IndexOf(3); got != 3 {
		t.Fatalf("index of 3: got %d want 3", got)
	}
	if kids := f.Children(1); len(kids) != 2 {
		t.Fatalf("children mismatch: got %d want 2", len(kids))
	}
	if idx := f.ChildIndexes(1); len(idx) != 2 || idx[0] != 0 || idx[1] != 3 {
		t.Fatalf("child indexes mismatch: got %v want [0 3]", idx)
	}
	if len(f.Fallbacks()) != 0 {
		t.Fatalf("unexpected fallbacks: %v", f.Fallbacks())
	}
}

func TestLookupMissing(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "test.dat")
	writeTestDAT(t, path)

	f, err := Open(path, nil)
	if err != nil {
		t.Fatalf("open datstore: %v", err)
	}
	if _, err := f.Lookup(99); !errors.Is(err, ErrChunkNotFound) {
		t.Fatalf("expected ErrChunkNotFound, got %v", err)
	}
	if f.IndexOf(99) != -1 {
		t.Fatalf("missing id should have index -1")
	}
	if _, err := f.Chunk(5); !errors.Is(err, ErrChunkNotFound) {
		t.Fatalf("expected out of range chunk error, got %v", err)
	}

	eof, err := f.Chunk(4)
	if err != nil {
		t.Fatalf("chunk 4: %v", err)
	}
	if _, err := f.Parent(eof); !errors.Is(err, ErrNoParent) {
		t.Fatalf("expected ErrNoParent, got %v", err)
	}

	_ = f.Close()
	if _, err := f.Lookup(1); !errors.Is(err, ErrChunkNotFound) {
		t.Fatalf("closed store lookup: got %v", err)
	}
}
