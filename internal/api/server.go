// Package api serves loaded DAT files over HTTP: upload a file, browse its
// chunks, and download it re-encoded.
package api

import (
	"fmt"
	"io"
	"net/http"
	"path"
	"time"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/datkit/internal/datstore"
	"github.com/samcharles93/datkit/internal/logger"
	"github.com/samcharles93/datkit/internal/report"
	"github.com/samcharles93/datkit/pkg/dat"
)

// DefaultMaxUpload caps upload bodies.
const DefaultMaxUpload = 256 << 20

type Server struct {
	store     *FileStore
	opts      dat.Options
	log       logger.Logger
	maxUpload int64
	clock     func() time.Time
}

type Config struct {
	// Options are used for every load and save. Strict may be overridden per
	// upload with ?strict=true.
	Options   dat.Options
	MaxUpload int64
}

func NewServer(store *FileStore, cfg Config) *Server {
	if store == nil {
		store = NewFileStore()
	}
	if cfg.MaxUpload <= 0 {
		cfg.MaxUpload = DefaultMaxUpload
	}
	return &Server{
		store:     store,
		opts:      cfg.Options,
		log:       logger.OrNop(cfg.Options.Log),
		maxUpload: cfg.MaxUpload,
		clock:     time.Now,
	}
}

func (s *Server) Register(e *echo.Echo) {
	e.POST("/v1/files", s.handleUpload)
	e.GET("/v1/files", s.handleListFiles)
	e.GET("/v1/files/:id", s.handleGetFile)
	e.DELETE("/v1/files/:id", s.handleDeleteFile)
	e.GET("/v1/files/:id/dat", s.handleDownload)
	e.GET("/v1/files/:id/chunks/:index", s.handleChunk)
	e.GET("/v1/files/:id/chunks/:index/raw", s.handleChunkRaw)
	e.GET("/v1/files/:id/ids/:chunkID", s.handleChunkByID)
}

func (s *Server) handleUpload(c *echo.Context) error {
	data, err := io.ReadAll(io.LimitReader(c.Request().Body, s.maxUpload+1))
	if err != nil {
		return writeBadRequest(c, fmt.Sprintf("read body: %v", err))
	}
	if int64(len(data)) > s.maxUpload {
		return requestError(c, fmt.Errorf("%w: limit is %d bytes", ErrTooLarge, s.maxUpload))
	}
	if len(data) == 0 {
		return requestError(c, newInvalidRequest("body", "empty upload"))
	}

	opts := s.opts
	if boolParam(c, "strict") {
		opts.Strict = true
	}
	name := path.Base(c.QueryParam("name"))
	if name == "." || name == "/" {
		name = ""
	}
	log := s.log.With("name", name, "bytes", len(data))

	df, err := dat.LoadBytes(data, &opts)
	if err != nil {
		log.Warn("upload rejected", "error", err)
		return writeDecodeError(c, err)
	}
	rec := s.store.Put(name, len(data), datstore.New(df), s.clock())
	log.Info("file loaded", "id", rec.ID, "chunks", len(df.Chunks))
	return writeJSON(c, http.StatusCreated, fileObject(rec, true))
}

func (s *Server) handleListFiles(c *echo.Context) error {
	recs := s.store.List()
	out := FileList{Object: "list", Data: make([]FileObject, 0, len(recs))}
	for _, rec := range recs {
		out.Data = append(out.Data, fileObject(rec, false))
	}
	return writeJSON(c, http.StatusOK, out)
}

func (s *Server) handleGetFile(c *echo.Context) error {
	rec, ok := s.store.Get(c.Param("id"))
	if !ok {
		return writeNotFound(c, "file not found")
	}
	return writeJSON(c, http.StatusOK, fileObject(rec, true))
}

func (s *Server) handleDeleteFile(c *echo.Context) error {
	id := c.Param("id")
	if !s.store.Delete(id) {
		return writeNotFound(c, "file not found")
	}
	return writeJSON(c, http.StatusOK, DeleteFileResp{
		ID:      id,
		Object:  "file",
		Deleted: true,
	})
}

func (s *Server) handleDownload(c *echo.Context) error {
	rec, ok := s.store.Get(c.Param("id"))
	if !ok {
		return writeNotFound(c, "file not found")
	}
	data, err := dat.Encode(rec.File.Dat(), &s.opts)
	if err != nil {
		s.log.Warn("encode failed", "id", rec.ID, "error", err)
		return writeDecodeError(c, err)
	}
	name := rec.Name
	if name == "" {
		name = rec.ID + ".dat"
	}
	c.Response().Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	return c.Blob(http.StatusOK, "application/octet-stream", data)
}

func (s *Server) handleChunk(c *echo.Context) error {
	rec, ok := s.store.Get(c.Param("id"))
	if !ok {
		return writeNotFound(c, "file not found")
	}
	i, err := indexParam(c)
	if err != nil {
		return requestError(c, err)
	}
	if i >= rec.File.Len() {
		return writeNotFound(c, fmt.Sprintf("chunk %d not found", i))
	}
	return writeJSON(c, http.StatusOK, chunkObject(rec.File, i))
}

// handleChunkRaw returns the chunk's encoded ids and payload.
func (s *Server) handleChunkRaw(c *echo.Context) error {
	rec, ok := s.store.Get(c.Param("id"))
	if !ok {
		return writeNotFound(c, "file not found")
	}
	i, err := indexParam(c)
	if err != nil {
		return requestError(c, err)
	}
	chunk, err := rec.File.Chunk(i)
	if err != nil {
		return writeNotFound(c, fmt.Sprintf("chunk %d not found", i))
	}
	data, err := dat.EncodeChunk(chunk, &s.opts)
	if err != nil {
		return writeDecodeError(c, err)
	}
	c.Response().Header().Set("X-Chunk-Magic", dat.MagicString(chunk.Magic))
	return c.Blob(http.StatusOK, "application/octet-stream", data)
}

func (s *Server) handleChunkByID(c *echo.Context) error {
	rec, ok := s.store.Get(c.Param("id"))
	if !ok {
		return writeNotFound(c, "file not found")
	}
	id, err := chunkIDParam(c)
	if err != nil {
		return requestError(c, err)
	}
	i := rec.File.IndexOf(id)
	if i < 0 {
		return writeNotFound(c, fmt.Sprintf("no chunk with id %d", id))
	}
	return writeJSON(c, http.StatusOK, chunkObject(rec.File, i))
}

func fileObject(rec *fileRecord, items bool) FileObject {
	return FileObject{
		ID:         rec.ID,
		Object:     "file",
		Name:       rec.Name,
		Bytes:      rec.Size,
		CreatedAt:  rec.CreatedAt.Unix(),
		Summary:    report.Summarize(rec.File.Dat(), items),
		Duplicates: rec.File.Duplicates(),
	}
}

func chunkObject(f *datstore.File, i int) ChunkObject {
	c, _ := f.Chunk(i)
	out := ChunkObject{ChunkSummary: report.Chunk(i, c)}
	if c.HasParentID() {
		if p := f.IndexOf(c.ParentID); p >= 0 {
			out.Parent = &p
		}
	}
	if c.HasID() {
		out.Children = f.ChildIndexes(c.ID)
	}
	return out
}
