// Package ingest reads prepared discussion text blocks from disk and tracks
// which ones have been analyzed. Upstream scraping produces one .txt file
// per discussion dump; this package is the seam between that pipeline and
// the LLM analyzer.
package ingest

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// processedDir is the subdirectory analyzed files are moved into.
const processedDir = "processed"

// Block is one unit of input text for the analyzer.
type Block struct {
	// Name identifies the source, derived from the file name.
	Name string
	// Path is the file the block was read from.
	Path string
	// Text is the discussion content.
	Text string
}

// Reader lists and consumes text blocks from an input directory.
type Reader struct {
	dir string
}

// NewReader creates a reader over dir. The directory must exist.
func NewReader(dir string) (*Reader, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("input directory unavailable: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("input path %s is not a directory", dir)
	}
	return &Reader{dir: dir}, nil
}

// Blocks reads every pending .txt file in the input directory, sorted by
// name for stable processing order. Files that cannot be read are skipped;
// the error covers only listing the directory itself.
func (r *Reader) Blocks() ([]Block, []error) {
	entries, err := os.ReadDir(r.dir)
	if err != nil {
		return nil, []error{fmt.Errorf("failed to list input directory: %w", err)}
	}

	var blocks []Block
	var errs []error
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".txt") {
			continue
		}

		path := filepath.Join(r.dir, entry.Name())
		buf, err := os.ReadFile(path)
		if err != nil {
			errs = append(errs, fmt.Errorf("failed to read %s: %w", path, err))
			continue
		}

		text := strings.TrimSpace(string(buf))
		if text == "" {
			continue
		}

		blocks = append(blocks, Block{
			Name: strings.TrimSuffix(entry.Name(), ".txt"),
			Path: path,
			Text: text,
		})
	}

	sort.Slice(blocks, func(i, j int) bool { return blocks[i].Name < blocks[j].Name })
	return blocks, errs
}

// MarkProcessed moves a consumed block's file into the processed
// subdirectory so a rerun does not analyze it again.
func (r *Reader) MarkProcessed(block Block) error {
	dest := filepath.Join(r.dir, processedDir)
	if err := os.MkdirAll(dest, 0o750); err != nil {
		return fmt.Errorf("failed to create processed directory: %w", err)
	}

	target := filepath.Join(dest, filepath.Base(block.Path))
	if err := os.Rename(block.Path, target); err != nil {
		return fmt.Errorf("failed to move %s to processed: %w", block.Path, err)
	}
	return nil
}
