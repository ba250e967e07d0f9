package main

import (
	"bytes"
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/datkit/internal/logger"
	"github.com/samcharles93/datkit/pkg/dat"
)

func roundtripCmd() *cli.Command {
	var outPath string

	return &cli.Command{
		Name:      "roundtrip",
		Usage:     "Load and re-encode a DAT file, reporting the first differing byte",
		ArgsUsage: "<file.dat>",
		Flags: append(commonFileFlags(),
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "also write the re-encoded file here",
				Destination: &outPath,
			},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			applyFileConfig(c, LoadConfig())
			log := logger.FromContext(ctx)
			path, err := fileArg(c)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			src, err := os.ReadFile(path)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: read %q: %v", path, err), 1)
			}
			opts, err := loadOptions(ctx)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}

			res, err := roundtrip(src, opts)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			if outPath != "" {
				if err := dat.SaveFile(outPath, res.file, opts); err != nil {
					return cli.Exit(fmt.Sprintf("error: save %q: %v", outPath, err), 1)
				}
				log.Info("wrote re-encoded file", "path", outPath, "bytes", len(res.out))
			}

			fmt.Printf("chunks:    %d (%d raw fallbacks)\n", len(res.file.Chunks), res.fallbacks)
			fmt.Printf("input:     %s\n", formatBytes(uint64(len(src))))
			fmt.Printf("output:    %s\n", formatBytes(uint64(len(res.out))))
			if res.diff < 0 {
				fmt.Println("result:    identical")
				return nil
			}
			return cli.Exit(fmt.Sprintf("result:    differs at offset 0x%x", res.diff), 2)
		},
	}
}

type roundtripResult struct {
	file      *dat.File
	out       []byte
	fallbacks int
	// diff is the first differing offset, or -1.
	diff int
}

func roundtrip(src []byte, opts *dat.Options) (*roundtripResult, error) {
	f, err := dat.LoadBytes(src, opts)
	if err != nil {
		return nil, fmt.Errorf("load: %w", err)
	}
	out, err := dat.Encode(f, opts)
	if err != nil {
		return nil, fmt.Errorf("encode: %w", err)
	}
	res := &roundtripResult{file: f, out: out, diff: firstDiff(src, out)}
	for _, c := range f.Chunks {
		if c.DecodeErr != nil {
			res.fallbacks++
		}
	}
	return res, nil
}

func firstDiff(a, b []byte) int {
	if bytes.Equal(a, b) {
		return -1
	}
	n := min(len(a), len(b))
	for i := 0; i < n; i++ {
		if a[i] != b[i] {
			return i
		}
	}
	return n
}
