package main

import (
	"context"
	"fmt"
	"os"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/datkit/internal/report"
	"github.com/samcharles93/datkit/pkg/dat"
)

func dumpCmd() *cli.Command {
	var (
		outPath string
		index   int
	)

	return &cli.Command{
		Name:      "dump",
		Usage:     "Write a DAT file as JSON",
		ArgsUsage: "<file.dat>",
		Flags: append(commonFileFlags(),
			&cli.StringFlag{
				Name:        "out",
				Aliases:     []string{"o"},
				Usage:       "output path (default stdout)",
				Destination: &outPath,
			},
			&cli.IntFlag{
				Name:        "chunk",
				Usage:       "dump a single chunk by index (-1 = all)",
				Value:       -1,
				Destination: &index,
			},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			applyFileConfig(c, LoadConfig())
			path, err := fileArg(c)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			opts, err := loadOptions(ctx)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			f, err := dat.Open(path, opts)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: load dat: %v", err), 1)
			}

			var v any = report.Summarize(f, true)
			if index >= 0 {
				if index >= len(f.Chunks) {
					return cli.Exit(fmt.Sprintf("error: chunk %d out of range (%d chunks)", index, len(f.Chunks)), 1)
				}
				v = report.Chunk(index, f.Chunks[index])
			}
			data, err := report.JSON(v)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: encode json: %v", err), 1)
			}
			data = append(data, '\n')

			if outPath == "" {
				_, err = os.Stdout.Write(data)
				return err
			}
			if err := os.WriteFile(outPath, data, 0o644); err != nil {
				return cli.Exit(fmt.Sprintf("error: write %q: %v", outPath, err), 1)
			}
			return nil
		},
	}
}
