package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/samcharles93/datkit/pkg/dat"
	"github.com/samcharles93/datkit/pkg/datio"
)

func TestResolveSchemaPath(t *testing.T) {
	t.Run("flag wins", func(t *testing.T) {
		t.Setenv(envDatkitSchemaDir, "/from/env")
		if got := resolveSchemaPath(" ./schemas "); got != "./schemas" {
			t.Fatalf("unexpected schema path: got %q want %q", got, "./schemas")
		}
	})

	t.Run("env fallback", func(t *testing.T) {
		t.Setenv(envDatkitSchemaDir, "/from/env")
		if got := resolveSchemaPath(""); got != "/from/env" {
			t.Fatalf("unexpected schema path: got %q want %q", got, "/from/env")
		}
	})

	t.Run("unset", func(t *testing.T) {
		t.Setenv(envDatkitSchemaDir, "")
		if got := resolveSchemaPath(""); got != "" {
			t.Fatalf("expected empty schema path, got %q", got)
		}
	})
}

func TestLoadConfigFrom(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := "schema_dir: /srv/schemas\nstrict: true\nlog_level: debug\nserver_address: 0.0.0.0:9000\nmax_upload: 1024\n"
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg := loadConfigFrom(path)
	if cfg.SchemaDir != "/srv/schemas" || cfg.LogLevel != "debug" || cfg.ServerAddress != "0.0.0.0:9000" {
		t.Fatalf("config mismatch: %+v", cfg)
	}
	if cfg.Strict == nil || !*cfg.Strict {
		t.Fatalf("strict should be set, got %v", cfg.Strict)
	}
	if cfg.MaxUpload == nil || *cfg.MaxUpload != 1024 {
		t.Fatalf("max upload mismatch: got %v", cfg.MaxUpload)
	}

	if got := loadConfigFrom(filepath.Join(t.TempDir(), "missing.yaml")); got.SchemaDir != "" || got.Strict != nil {
		t.Fatalf("missing config should be zero, got %+v", got)
	}

	bad := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(bad, []byte("strict: [not a bool"), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	if got := loadConfigFrom(bad); got.Strict != nil {
		t.Fatalf("malformed config should be zero, got %+v", got)
	}
}

func TestLoadAllSchemas(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	files := map[string]string{
		"door.yaml":  "type: Door\nscheme: named\nfields:\n  - name: Speed\n    type: f32\n",
		"brain.json": `{"type": "Brain", "scheme": "state_machine", "fields": []}`,
		"notes.txt":  "ignored",
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	got, err := loadAllSchemas(dir)
	if err != nil {
		t.Fatalf("load schemas: %v", err)
	}
	if len(got) != 2 || got[0].TypeName != "Brain" || got[1].TypeName != "Door" {
		t.Fatalf("schema listing mismatch: %+v", got)
	}

	catalog := filepath.Join(t.TempDir(), "all.yaml")
	doc := "controllers:\n  - type: Spawner\n    scheme: raw\n    fields:\n      - name: Count\n        type: u16\n"
	if err := os.WriteFile(catalog, []byte(doc), 0o644); err != nil {
		t.Fatalf("write catalogue: %v", err)
	}
	got, err = loadAllSchemas(catalog)
	if err != nil {
		t.Fatalf("load catalogue: %v", err)
	}
	if len(got) != 1 || got[0].TypeName != "Spawner" {
		t.Fatalf("catalogue listing mismatch: %+v", got)
	}
}

func TestRoundtrip(t *testing.T) {
	t.Parallel()

	// an unknown chunk and EOF survive byte for byte
	w := datio.NewWriter()
	w.WriteU32(0x41414141)
	w.WriteU32(2)
	w.WriteBytes([]byte{1, 2})
	w.WriteU32(dat.MagicEOF)
	w.WriteU32(0)
	src := w.Bytes()

	res, err := roundtrip(src, &dat.Options{})
	if err != nil {
		t.Fatalf("roundtrip: %v", err)
	}
	if res.diff != -1 || res.fallbacks != 0 || len(res.file.Chunks) != 2 {
		t.Fatalf("roundtrip result mismatch: diff=%d fallbacks=%d chunks=%d", res.diff, res.fallbacks, len(res.file.Chunks))
	}

	// trailing data after EOF is dropped on save
	res, err = roundtrip(append(src, 0xFF), &dat.Options{})
	if err != nil {
		t.Fatalf("roundtrip with trailing data: %v", err)
	}
	if res.diff != len(src) {
		t.Fatalf("diff offset mismatch: got %d want %d", res.diff, len(src))
	}

	if _, err := roundtrip(src[:5], &dat.Options{}); err == nil {
		t.Fatal("expected a load error for a truncated file")
	}
}

func TestFirstDiff(t *testing.T) {
	t.Parallel()

	tests := []struct {
		a, b []byte
		want int
	}{
		{[]byte{1, 2, 3}, []byte{1, 2, 3}, -1},
		{[]byte{1, 2, 3}, []byte{1, 9, 3}, 1},
		{[]byte{1, 2}, []byte{1, 2, 3}, 2},
		{nil, nil, -1},
	}
	for _, tc := range tests {
		if got := firstDiff(tc.a, tc.b); got != tc.want {
			t.Errorf("firstDiff(%v, %v): got %d want %d", tc.a, tc.b, got, tc.want)
		}
	}
}
