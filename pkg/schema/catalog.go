package schema

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Catalog is an in-memory Provider. Lookups are case-insensitive.
type Catalog struct {
	mu      sync.RWMutex
	schemas map[string]*ControllerSchema
}

// NewCatalog validates and registers the given schemas.
func NewCatalog(schemas ...*ControllerSchema) (*Catalog, error) {
	c := &Catalog{schemas: make(map[string]*ControllerSchema, len(schemas))}
	for _, s := range schemas {
		if err := c.Register(s); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// MustCatalog is NewCatalog for statically known schemas.
func MustCatalog(schemas ...*ControllerSchema) *Catalog {
	c, err := NewCatalog(schemas...)
	if err != nil {
		panic(err)
	}
	return c
}

// Register adds s. A type may only be registered once.
func (c *Catalog) Register(s *ControllerSchema) error {
	if err := s.Validate(); err != nil {
		return err
	}
	key := strings.ToLower(s.TypeName)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.schemas == nil {
		c.schemas = make(map[string]*ControllerSchema)
	}
	if _, ok := c.schemas[key]; ok {
		return fmt.Errorf("%w: duplicate controller type %q", ErrInvalidSchema, s.TypeName)
	}
	c.schemas[key] = s
	return nil
}

func (c *Catalog) Schema(typeName string) (*ControllerSchema, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.schemas[strings.ToLower(typeName)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrSchemaNotFound, typeName)
	}
	return s, nil
}

// Types returns the registered type names in sorted order.
func (c *Catalog) Types() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, 0, len(c.schemas))
	for _, s := range c.schemas {
		out = append(out, s.TypeName)
	}
	sort.Strings(out)
	return out
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.schemas)
}
