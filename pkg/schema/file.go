package schema

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

// catalogFile is the on-disk layout of a schema catalogue.
type catalogFile struct {
	Controllers []*ControllerSchema `yaml:"controllers" json:"controllers"`
}

// Format is a schema file encoding.
type Format int

const (
	FormatYAML Format = iota
	FormatJSON
)

// FormatForPath picks the encoding from the file extension.
func FormatForPath(path string) (Format, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, nil
	case ".json":
		return FormatJSON, nil
	default:
		return FormatYAML, fmt.Errorf("schema: unsupported schema file %q", path)
	}
}

func unmarshal(data []byte, format Format, out any) error {
	switch format {
	case FormatJSON:
		return json.Unmarshal(data, out)
	default:
		return yaml.Unmarshal(data, out)
	}
}

// ParseCatalog decodes a catalogue document holding many controllers.
func ParseCatalog(data []byte, format Format) (*Catalog, error) {
	var doc catalogFile
	if err := unmarshal(data, format, &doc); err != nil {
		return nil, fmt.Errorf("schema: parse catalogue: %w", err)
	}
	return NewCatalog(doc.Controllers...)
}

// LoadFile reads a catalogue from a .yaml, .yml or .json file.
func LoadFile(path string) (*Catalog, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := ParseCatalog(data, format)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Compile loads a single controller schema document from path.
func Compile(path string) (*ControllerSchema, error) {
	format, err := FormatForPath(path)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s ControllerSchema
	if err := unmarshal(data, format, &s); err != nil {
		return nil, fmt.Errorf("schema: %s: %w", path, err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &s, nil
}

// PathProvider resolves each controller type to <dir>/<type>.{yaml,yml,json}
// on first use and caches the compiled result.
type PathProvider struct {
	dir   string
	mu    sync.Mutex
	cache map[string]*ControllerSchema
}

func NewPathProvider(dir string) *PathProvider {
	return &PathProvider{
		dir:   dir,
		cache: make(map[string]*ControllerSchema),
	}
}

func (p *PathProvider) Schema(typeName string) (*ControllerSchema, error) {
	key := strings.ToLower(typeName)

	p.mu.Lock()
	s, ok := p.cache[key]
	p.mu.Unlock()
	if ok {
		return s, nil
	}

	path, err := p.resolve(typeName)
	if err != nil {
		return nil, err
	}
	compiled, err := Compile(path)
	if err != nil {
		return nil, err
	}
	if !strings.EqualFold(compiled.TypeName, typeName) {
		return nil, fmt.Errorf("%w: %s declares type %q, want %q", ErrInvalidSchema, path, compiled.TypeName, typeName)
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if existing, ok := p.cache[key]; ok {
		return existing, nil
	}
	p.cache[key] = compiled
	return compiled, nil
}

func (p *PathProvider) resolve(typeName string) (string, error) {
	if typeName == "" || strings.ContainsAny(typeName, `/\`) || strings.Contains(typeName, "..") {
		return "", fmt.Errorf("%w: %q", ErrSchemaNotFound, typeName)
	}
	for _, name := range []string{typeName, strings.ToLower(typeName)} {
		for _, ext := range []string{".yaml", ".yml", ".json"} {
			path := filepath.Join(p.dir, name+ext)
			st, err := os.Stat(path)
			if err == nil && st.Mode().IsRegular() {
				return path, nil
			}
			if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return "", err
			}
		}
	}
	return "", fmt.Errorf("%w: %q in %s", ErrSchemaNotFound, typeName, p.dir)
}

// Open returns a Provider for path: a catalogue when path is a file, a
// PathProvider when it is a directory.
func Open(path string) (Provider, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if st.IsDir() {
		return NewPathProvider(path), nil
	}
	return LoadFile(path)
}
