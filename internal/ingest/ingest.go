// Package ingest writes concatenated raw copies of each dataset folder
// for auditing and debugging. No cleaning happens here; rows pass through
// untouched so the copies reflect exactly what the publisher shipped.
package ingest

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/civicstack/uidai-lake/internal/aggregate"
)

// Config configures an Ingestor.
type Config struct {
	Logger *slog.Logger

	// Optional with defaults.
	ChunkSize int
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = aggregate.DefaultChunkSize
	}
	if c.ChunkSize < 0 {
		return errors.New("chunk size must be > 0")
	}
	return nil
}

// Ingestor streams dataset folders into single concatenated CSV files.
type Ingestor struct {
	log *slog.Logger
	cfg Config
}

// New builds an Ingestor from cfg.
func New(cfg Config) (*Ingestor, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Ingestor{log: cfg.Logger, cfg: cfg}, nil
}

// CopyFolder concatenates every CSV shard in dir into outPath, writing
// the header once. All shards must share the same header; a folder with
// zero shards is fatal. Returns the number of data rows copied.
func (i *Ingestor) CopyFolder(ctx context.Context, dir, outPath string) (int64, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read dataset folder: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	if len(files) == 0 {
		return 0, fmt.Errorf("%w in %s", aggregate.ErrNoShards, dir)
	}

	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return 0, fmt.Errorf("failed to create output directory: %w", err)
	}
	out, err := os.Create(outPath)
	if err != nil {
		return 0, fmt.Errorf("failed to create output file: %w", err)
	}
	defer out.Close()
	w := csv.NewWriter(out)

	var header []string
	var rows int64
	for _, file := range files {
		i.log.Info("ingesting shard", "file", filepath.Base(file))
		n, shardHeader, err := i.copyShard(ctx, file, header, w)
		if err != nil {
			return 0, fmt.Errorf("shard %s: %w", file, err)
		}
		if header == nil {
			header = shardHeader
		}
		rows += n
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return 0, fmt.Errorf("failed to flush output: %w", err)
	}
	if err := out.Close(); err != nil {
		return 0, fmt.Errorf("failed to close output: %w", err)
	}
	return rows, nil
}

func (i *Ingestor) copyShard(ctx context.Context, path string, header []string, w *csv.Writer) (int64, []string, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to open shard: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	shardHeader, err := r.Read()
	if err != nil {
		return 0, nil, fmt.Errorf("failed to read header: %w", err)
	}
	if header == nil {
		if err := w.Write(shardHeader); err != nil {
			return 0, nil, fmt.Errorf("failed to write header: %w", err)
		}
	} else if !slices.Equal(header, shardHeader) {
		return 0, nil, fmt.Errorf("shard header %v does not match dataset header %v", shardHeader, header)
	}

	var rows int64
	for {
		if rows%int64(i.cfg.ChunkSize) == 0 {
			select {
			case <-ctx.Done():
				return 0, nil, ctx.Err()
			default:
			}
		}
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return 0, nil, fmt.Errorf("malformed shard: %w", err)
		}
		if err := w.Write(record); err != nil {
			return 0, nil, fmt.Errorf("failed to write row: %w", err)
		}
		rows++
	}
	return rows, shardHeader, nil
}
