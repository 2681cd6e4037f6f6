package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/jonathan/site-ingest/internal/chunking"
	"github.com/jonathan/site-ingest/internal/observability"
	"github.com/spf13/cobra"
)

type chunkOptions struct {
	title  string
	asJSON bool
}

func newChunkCmd(g *globalOptions) *cobra.Command {
	opts := &chunkOptions{}
	cmd := &cobra.Command{
		Use:   "chunk <file|->",
		Short: "Chunk a plain-text file with the configured size and overlap",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChunk(cmd, g, opts, args[0])
		},
	}
	f := cmd.Flags()
	f.StringVar(&opts.title, "title", "", "Page title used for chunk titles")
	f.BoolVar(&opts.asJSON, "json", false, "Print the chunks as JSON")
	f.Int("chunk-size", 0, "Maximum estimated tokens per chunk")
	f.Int("chunk-overlap", 0, "Estimated tokens repeated from the previous chunk")
	return cmd
}

func runChunk(cmd *cobra.Command, g *globalOptions, opts *chunkOptions, path string) error {
	cfg, err := loadConfig(cmd, g)
	if err != nil {
		return err
	}

	var data []byte
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	chunker := chunking.NewChunker(chunking.Config{ChunkSize: cfg.ChunkSize, Overlap: cfg.ChunkOverlap})
	chunks := chunker.Chunk(string(data), opts.title, nil, nil)

	out := cmd.OutOrStdout()
	if opts.asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(chunks)
	}

	printer := observability.NewPrinter(out)
	printer.PrintChunkStats("", chunking.ComputeStats(chunks))
	if g.verbose {
		for _, c := range chunks {
			_, _ = fmt.Fprintf(out, "#%d  %d tokens  %s\n", c.ChunkNumber, c.TokenCount, c.Summary)
		}
	}
	return nil
}
