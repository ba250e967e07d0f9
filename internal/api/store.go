package api

import (
	"sort"
	"sync"
	"time"

	"github.com/samcharles93/datkit/internal/datstore"
)

type fileRecord struct {
	ID        string
	Name      string
	Size      int
	CreatedAt time.Time
	File      *datstore.File
}

// FileStore keeps uploaded files in memory.
type FileStore struct {
	mu    sync.Mutex
	files map[string]*fileRecord
}

func NewFileStore() *FileStore {
	return &FileStore{
		files: make(map[string]*fileRecord),
	}
}

func (s *FileStore) Put(name string, size int, f *datstore.File, now time.Time) *fileRecord {
	rec := &fileRecord{
		ID:        newFileID(),
		Name:      name,
		Size:      size,
		CreatedAt: now,
		File:      f,
	}
	s.mu.Lock()
	s.files[rec.ID] = rec
	s.mu.Unlock()
	return rec
}

func (s *FileStore) Get(id string) (*fileRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.files[id]
	return rec, ok
}

// List returns records oldest first.
func (s *FileStore) List() []*fileRecord {
	s.mu.Lock()
	out := make([]*fileRecord, 0, len(s.files))
	for _, rec := range s.files {
		out = append(out, rec)
	}
	s.mu.Unlock()
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func (s *FileStore) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.files[id]; !ok {
		return false
	}
	delete(s.files, id)
	return true
}
