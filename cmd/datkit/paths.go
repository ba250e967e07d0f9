package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/datkit/internal/logger"
	"github.com/samcharles93/datkit/pkg/dat"
	"github.com/samcharles93/datkit/pkg/schema"
)

const envDatkitSchemaDir = "DATKIT_SCHEMA_DIR"

// resolveSchemaPath picks the flag, then the environment. An empty result
// means controllers load as raw bytes.
func resolveSchemaPath(flag string) string {
	if p := strings.TrimSpace(flag); p != "" {
		return p
	}
	return strings.TrimSpace(os.Getenv(envDatkitSchemaDir))
}

// loadOptions builds codec options from the shared file flags.
func loadOptions(ctx context.Context) (*dat.Options, error) {
	log := logger.FromContext(ctx)
	opts := &dat.Options{Log: log, Strict: strict}

	path := resolveSchemaPath(schemaPath)
	if path == "" {
		log.Debug("no controller schemas configured")
		return opts, nil
	}
	provider, err := schema.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open schemas %q: %w", path, err)
	}
	if c, ok := provider.(*schema.Catalog); ok {
		log.Debug("loaded schema catalogue", "path", path, "types", c.Len())
	}
	opts.Schemas = provider
	return opts, nil
}

// fileArg returns the single positional file argument.
func fileArg(c *cli.Command) (string, error) {
	if c.NArg() != 1 {
		return "", fmt.Errorf("expected one DAT file argument, got %d", c.NArg())
	}
	return c.Args().First(), nil
}

func setupLogging(ctx context.Context, c *cli.Command) (context.Context, error) {
	applyLoggingConfig(c, LoadConfig())
	level := logger.ParseLevel(logLevel)
	if debug {
		level = logger.ParseLevel("debug")
	}

	var log logger.Logger
	switch strings.ToLower(logFormat) {
	case "json":
		log = logger.JSON(os.Stderr, level)
	case "text":
		log = logger.Text(os.Stderr, level)
	case "plain":
		log = logger.Plain(os.Stderr, level)
	default:
		log = logger.Pretty(os.Stderr, level)
	}
	return logger.WithContext(ctx, log), nil
}
