package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v5"

	"github.com/samcharles93/datkit/pkg/controller"
	"github.com/samcharles93/datkit/pkg/dat"
	"github.com/samcharles93/datkit/pkg/schema"
)

func testOptions() dat.Options {
	return dat.Options{Schemas: schema.MustCatalog(&schema.ControllerSchema{
		TypeName: "Spawner",
		Scheme:   schema.SchemeRaw,
		Fields: []schema.FieldSchema{
			{Name: "Count", Type: schema.TypeUint16},
		},
	})}
}

func testDAT(t *testing.T) []byte {
	t.Helper()

	kinds := dat.DefaultKinds()
	labelKind, _ := kinds.Lookup(dat.MagicLabel)
	ctrlKind, _ := kinds.Lookup(dat.MagicController)

	root := dat.NewChunk(labelKind, &dat.Label{Text: "root"})
	root.ID = 5
	spawner := &controller.Record{TypeName: "Spawner"}
	spawner.Fields.Set("Count", uint16(3))
	child := dat.NewChunk(ctrlKind, &dat.Controller{Record: spawner})
	child.ID = 6
	child.ParentID = 5

	opts := testOptions()
	data, err := dat.Encode(&dat.File{Chunks: []*dat.Chunk{root, child}}, &opts)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return data
}

func newTestEcho() *echo.Echo {
	server := NewServer(NewFileStore(), Config{Options: testOptions()})
	e := echo.New()
	server.Register(e)
	return e
}

func do(t *testing.T, e *echo.Echo, method, target string, body []byte) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	req.Header.Set(echo.HeaderContentType, "application/octet-stream")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func upload(t *testing.T, e *echo.Echo, data []byte) FileObject {
	t.Helper()
	rec := do(t, e, http.MethodPost, "/v1/files?name=level.dat", data)
	if rec.Code != http.StatusCreated {
		t.Fatalf("upload status: got %d body=%s", rec.Code, rec.Body.String())
	}
	var created FileObject
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode upload response: %v", err)
	}
	return created
}

func TestUploadGetDeleteLifecycle(t *testing.T) {
	t.Parallel()

	e := newTestEcho()
	data := testDAT(t)
	created := upload(t, e, data)
	if !strings.HasPrefix(created.ID, "file_") {
		t.Fatalf("unexpected file id %q", created.ID)
	}
	if created.Name != "level.dat" || created.Bytes != len(data) {
		t.Fatalf("file object mismatch: %+v", created)
	}
	if created.Summary == nil || created.Summary.Chunks != 3 || len(created.Summary.Items) != 3 {
		t.Fatalf("summary mismatch: %+v", created.Summary)
	}

	getRec := do(t, e, http.MethodGet, "/v1/files/"+created.ID, nil)
	if getRec.Code != http.StatusOK {
		t.Fatalf("get status: got %d", getRec.Code)
	}

	listRec := do(t, e, http.MethodGet, "/v1/files", nil)
	var list FileList
	if err := json.Unmarshal(listRec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode list: %v", err)
	}
	if len(list.Data) != 1 || list.Data[0].Summary.Items != nil {
		t.Fatalf("list mismatch: %+v", list)
	}

	delRec := do(t, e, http.MethodDelete, "/v1/files/"+created.ID, nil)
	if delRec.Code != http.StatusOK {
		t.Fatalf("delete status: got %d", delRec.Code)
	}
	if rec := do(t, e, http.MethodGet, "/v1/files/"+created.ID, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("get after delete: got %d", rec.Code)
	}
	if rec := do(t, e, http.MethodDelete, "/v1/files/"+created.ID, nil); rec.Code != http.StatusNotFound {
		t.Fatalf("second delete: got %d", rec.Code)
	}
}

func TestChunkRoutes(t *testing.T) {
	t.Parallel()

	e := newTestEcho()
	created := upload(t, e, testDAT(t))

	rec := do(t, e, http.MethodGet, "/v1/files/"+created.ID+"/chunks/1", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("chunk status: got %d body=%s", rec.Code, rec.Body.String())
	}
	var chunk ChunkObject
	if err := json.Unmarshal(rec.Body.Bytes(), &chunk); err != nil {
		t.Fatalf("decode chunk: %v", err)
	}
	if chunk.Kind != "controller" || chunk.Parent == nil || *chunk.Parent != 0 {
		t.Fatalf("chunk mismatch: %+v", chunk)
	}

	rec = do(t, e, http.MethodGet, "/v1/files/"+created.ID+"/ids/0x5", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("chunk by id status: got %d body=%s", rec.Code, rec.Body.String())
	}
	var root ChunkObject
	if err := json.Unmarshal(rec.Body.Bytes(), &root); err != nil {
		t.Fatalf("decode root: %v", err)
	}
	if root.Index != 0 || len(root.Children) != 1 || root.Children[0] != 1 {
		t.Fatalf("root mismatch: %+v", root)
	}

	rec = do(t, e, http.MethodGet, "/v1/files/"+created.ID+"/chunks/0/raw", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("raw chunk status: got %d body=%s", rec.Code, rec.Body.String())
	}
	// label: id, parent id, then the text
	want := append([]byte{5, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}, "root\x00"...)
	if !bytes.Equal(rec.Body.Bytes(), want) {
		t.Fatalf("raw chunk mismatch:\n got %x\nwant %x", rec.Body.Bytes(), want)
	}
	if got := rec.Header().Get("X-Chunk-Magic"); got != "LABL" {
		t.Fatalf("magic header mismatch: got %q", got)
	}

	cases := []struct {
		target string
		status int
	}{
		{"/v1/files/" + created.ID + "/chunks/9", http.StatusNotFound},
		{"/v1/files/" + created.ID + "/chunks/x", http.StatusBadRequest},
		{"/v1/files/" + created.ID + "/ids/77", http.StatusNotFound},
		{"/v1/files/" + created.ID + "/ids/zz", http.StatusBadRequest},
		{"/v1/files/missing/chunks/0", http.StatusNotFound},
		{"/v1/files/" + created.ID + "/chunks/3/raw", http.StatusNotFound},
	}
	for _, tc := range cases {
		if rec := do(t, e, http.MethodGet, tc.target, nil); rec.Code != tc.status {
			t.Fatalf("%s: got %d want %d", tc.target, rec.Code, tc.status)
		}
	}
}

func TestDownloadIsByteIdentical(t *testing.T) {
	t.Parallel()

	e := newTestEcho()
	data := testDAT(t)
	created := upload(t, e, data)

	rec := do(t, e, http.MethodGet, "/v1/files/"+created.ID+"/dat", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("download status: got %d", rec.Code)
	}
	if !bytes.Equal(rec.Body.Bytes(), data) {
		t.Fatalf("download mismatch: got %d bytes want %d", rec.Body.Len(), len(data))
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.Contains(got, "level.dat") {
		t.Fatalf("content disposition mismatch: %q", got)
	}
}

func TestUploadRejectsBadFiles(t *testing.T) {
	t.Parallel()

	e := newTestEcho()

	if rec := do(t, e, http.MethodPost, "/v1/files", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("empty upload: got %d", rec.Code)
	}

	// a truncated header
	rec := do(t, e, http.MethodPost, "/v1/files", []byte{1, 2, 3})
	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("truncated upload: got %d body=%s", rec.Code, rec.Body.String())
	}
	var body struct {
		Error ResponseError `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error: %v", err)
	}
	if body.Error.Type != "decode_error" || body.Error.Detail == nil || body.Error.Detail.Class != "structural error" {
		t.Fatalf("error body mismatch: %+v", body.Error)
	}

	// data after EOF is tolerated unless the upload is strict
	data := append(testDAT(t), 0xAA)
	upload(t, e, data)
	if rec := do(t, e, http.MethodPost, "/v1/files?strict=true", data); rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("strict upload: got %d", rec.Code)
	}
}

func TestUploadLimit(t *testing.T) {
	t.Parallel()

	server := NewServer(nil, Config{Options: testOptions(), MaxUpload: 4})
	e := echo.New()
	server.Register(e)

	if rec := do(t, e, http.MethodPost, "/v1/files", testDAT(t)); rec.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("oversized upload: got %d", rec.Code)
	}
}
