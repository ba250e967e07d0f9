package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/samcharles93/datkit/internal/datstore"
	"github.com/samcharles93/datkit/internal/report"
	"github.com/samcharles93/datkit/pkg/dat"
)

func inspectCmd() *cli.Command {
	var (
		showChunks bool
		showFields bool
		kindFilter string
		limit      int
	)

	return &cli.Command{
		Name:      "inspect",
		Usage:     "Summarize the chunks of a DAT file",
		ArgsUsage: "<file.dat>",
		Flags: append(commonFileFlags(),
			&cli.BoolFlag{Name: "chunks", Usage: "list every chunk", Destination: &showChunks},
			&cli.BoolFlag{Name: "fields", Usage: "print controller fields (implies --chunks)", Destination: &showFields},
			&cli.StringFlag{Name: "kind", Usage: "only list chunks of this kind", Destination: &kindFilter},
			&cli.IntFlag{Name: "limit", Usage: "limit chunk listing (0 = no limit)", Value: 100, Destination: &limit},
		),
		Action: func(ctx context.Context, c *cli.Command) error {
			applyFileConfig(c, LoadConfig())
			path, err := fileArg(c)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			stat, err := os.Stat(path)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: stat %q: %v", path, err), 1)
			}
			opts, err := loadOptions(ctx)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: %v", err), 1)
			}
			f, err := datstore.Open(path, opts)
			if err != nil {
				return cli.Exit(fmt.Sprintf("error: load dat: %v", err), 1)
			}
			defer func() { _ = f.Close() }()

			fmt.Printf("DAT Inspect: %s\n", path)
			fmt.Printf("File: %s (%s)\n", filepath.Base(path), formatBytes(uint64(stat.Size())))

			summary := report.Summarize(f.Dat(), false)
			printSummary(summary, f)

			if showFields {
				showChunks = true
			}
			if showChunks || kindFilter != "" {
				printChunks(f, kindFilter, limit, showFields)
			}
			return nil
		},
	}
}

func printSummary(s *report.FileSummary, f *datstore.File) {
	section("Summary")
	rowInt("Chunks", s.Chunks)
	row("Encoded size", formatBytes(uint64(s.Bytes)))
	rowInt("Unknown chunks", s.Unknown)
	rowInt("Raw fallbacks", s.Fallbacks)
	rowInt("EOF payload bytes", s.EOFTrailing)
	if dupes := f.Duplicates(); len(dupes) > 0 {
		row("Duplicate ids", formatIDs(dupes))
	}

	section("Kinds")
	for _, name := range s.KindNames() {
		row(name, fmt.Sprintf("%d", s.Kinds[name]))
	}

	if fallbacks := f.Fallbacks(); len(fallbacks) > 0 {
		section("Fallbacks")
		for _, i := range fallbacks {
			c, _ := f.Chunk(i)
			row(fmt.Sprintf("#%d %s", i, dat.MagicString(c.Magic)), c.DecodeErr.Error())
		}
	}
}

func printChunks(f *datstore.File, kindFilter string, limit int, fields bool) {
	section("Chunks")
	fmt.Printf("%-6s %-6s %-16s %10s %8s %-20s %-20s\n", "#", "MAGIC", "KIND", "OFFSET", "LENGTH", "ID", "PARENT")
	shown := 0
	for i := 0; i < f.Len(); i++ {
		c, _ := f.Chunk(i)
		cs := report.Chunk(i, c)
		if kindFilter != "" && !strings.EqualFold(cs.Kind, kindFilter) {
			continue
		}
		if limit > 0 && shown >= limit {
			fmt.Printf("... (%d more)\n", f.Len()-i)
			break
		}
		shown++
		kind := cs.Kind
		if cs.Raw && cs.Kind != "unknown" {
			kind += " (raw)"
		}
		fmt.Printf("%-6d %-6s %-16s %10s %8d %-20s %-20s\n",
			cs.Index, cs.Magic, kind, formatOffset(cs.Offset), cs.Length, optID(cs.ID), optID(cs.ParentID))
		if line := describe(cs.Detail); line != "" {
			fmt.Printf("       %s\n", line)
		}
		if fields {
			if d, ok := cs.Detail.(*report.ControllerDetail); ok {
				printFields(d.Fields, "       ")
			}
		}
	}
}

func describe(detail any) string {
	switch d := detail.(type) {
	case *report.ControllerDetail:
		s := fmt.Sprintf("%s [%s]", d.Type, d.Scheme)
		if d.Graph != nil {
			s += fmt.Sprintf(" graph %q: %d entries", d.Graph.Name, len(d.Graph.Entries))
		}
		if len(d.Frames) > 0 {
			s += fmt.Sprintf(" %d frames", len(d.Frames))
		}
		return s
	case map[string]any:
		keys := make([]string, 0, len(d))
		for _, k := range []string{"text", "name", "width", "height", "influences", "bones", "bytes", "trailing"} {
			if v, ok := d[k]; ok {
				keys = append(keys, fmt.Sprintf("%s=%v", k, v))
			}
		}
		return strings.Join(keys, " ")
	default:
		return ""
	}
}

func printFields(fields []report.FieldValue, indent string) {
	for _, f := range fields {
		switch v := f.Value.(type) {
		case []report.FieldValue:
			fmt.Printf("%s%s:\n", indent, f.Name)
			printFields(v, indent+"  ")
		default:
			if !f.Present {
				fmt.Printf("%s%-22s (absent)\n", indent, f.Name+":")
				continue
			}
			fmt.Printf("%s%-22s %v\n", indent, f.Name+":", v)
		}
	}
}

func section(title string) {
	line := strings.Repeat("-", len(title)+8)
	fmt.Printf("\n%s\n--- %s ---\n%s\n", line, title, line)
}

func row(label, value string) {
	if value == "" {
		return
	}
	fmt.Printf("%-24s %s\n", label+":", value)
}

func rowInt(label string, v int) {
	if v == 0 {
		return
	}
	row(label, fmt.Sprintf("%d", v))
}

func optID(id *uint64) string {
	if id == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *id)
}

func formatIDs(ids []uint64) string {
	parts := make([]string, len(ids))
	for i, id := range ids {
		parts[i] = fmt.Sprintf("%d", id)
	}
	return strings.Join(parts, ", ")
}

func formatOffset(off int64) string {
	if off < 0 {
		return "-"
	}
	return fmt.Sprintf("0x%x", off)
}

func formatBytes(b uint64) string {
	const (
		kb = 1024
		mb = 1024 * kb
		gb = 1024 * mb
	)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.2f GiB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.2f MiB", float64(b)/float64(mb))
	case b >= kb:
		return fmt.Sprintf("%.2f KiB", float64(b)/float64(kb))
	default:
		return fmt.Sprintf("%d B", b)
	}
}
