package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/datkit/pkg/schema"
)

func schemasCmd() *cli.Command {
	return &cli.Command{
		Name:  "schemas",
		Usage: "Validate and list controller schemas",
		Flags: commonFileFlags(),
		Action: func(ctx context.Context, c *cli.Command) error {
			applyFileConfig(c, LoadConfig())
			path := resolveSchemaPath(schemaPath)
			if path == "" {
				return cli.Exit("error: no schemas configured (use --schemas or "+envDatkitSchemaDir+")", 1)
			}
			schemas, err := loadAllSchemas(path)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			section("Schemas: " + path)
			for _, s := range schemas {
				row(s.TypeName, fmt.Sprintf("%s, %d fields", s.Scheme, len(s.Fields)))
			}
			return nil
		},
	}
}

// loadAllSchemas compiles every schema under path: the whole catalogue for a
// file, every schema document for a directory.
func loadAllSchemas(path string) ([]*schema.ControllerSchema, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		cat, err := schema.LoadFile(path)
		if err != nil {
			return nil, err
		}
		out := make([]*schema.ControllerSchema, 0, cat.Len())
		for _, name := range cat.Types() {
			s, err := cat.Schema(name)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
		return out, nil
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return nil, err
	}
	var out []*schema.ControllerSchema
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if _, err := schema.FormatForPath(e.Name()); err != nil {
			continue
		}
		s, err := schema.Compile(filepath.Join(path, e.Name()))
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	sort.Slice(out, func(i, j int) bool {
		return strings.ToLower(out[i].TypeName) < strings.ToLower(out[j].TypeName)
	})
	return out, nil
}
