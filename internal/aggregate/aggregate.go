// Package aggregate implements the streaming two-phase aggregation over
// sharded CSV exports: each shard is read in bounded chunks, every chunk
// is cleaned and locally group-summed (the map phase), and the partial
// aggregates are folded into a running total (the reduce phase, see
// Combiner). The combined result is numerically identical to aggregating
// the whole dataset in one pass, independent of chunk size and shard
// order, while memory stays bounded by chunk size plus group-key
// cardinality.
package aggregate

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
	"strings"

	"github.com/civicstack/uidai-lake/internal/metrics"
	"github.com/civicstack/uidai-lake/internal/normalize"
	"github.com/civicstack/uidai-lake/internal/states"
)

// DefaultChunkSize is the number of rows streamed per chunk when the
// caller does not override it.
const DefaultChunkSize = 200_000

// ErrNoShards reports a dataset folder with zero CSV shard files. This is
// fatal: downstream metrics would conflate "no data" with zero activity.
var ErrNoShards = errors.New("no CSV shards found")

// Columns with dedicated cleaning rules. Any other group column passes
// through with surrounding whitespace trimmed.
const (
	ColumnDate     = "date"
	ColumnState    = "state"
	ColumnDistrict = "district"
)

// Config configures an Aggregator.
type Config struct {
	Logger   *slog.Logger
	Resolver *states.Resolver

	// Dataset labels log lines and metrics, e.g. "enrolment".
	Dataset string

	// GroupColumns are the ordered key fields; SumColumns the numeric
	// fields to aggregate. Both must be present in every shard header.
	GroupColumns []string
	SumColumns   []string

	// Optional with defaults.
	ChunkSize int
	Coercion  CoercionMode
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	if c.Resolver == nil {
		c.Resolver = states.NewResolver(states.Master())
	}
	if c.Dataset == "" {
		return errors.New("dataset name is required")
	}
	if len(c.GroupColumns) == 0 {
		return errors.New("group columns are required")
	}
	if len(c.SumColumns) == 0 {
		return errors.New("sum columns are required")
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = DefaultChunkSize
	}
	if c.ChunkSize < 0 {
		return errors.New("chunk size must be > 0")
	}
	return nil
}

// Stats counts data-quality drops and coercions for audit. Drops are
// policy, not errors, but they must stay visible.
type Stats struct {
	Shards                 int
	Chunks                 int
	RowsRead               int64
	DroppedBadDate         int64
	DroppedUnresolvedState int64
	ValuesCoerced          int64
}

// RowsKept reports the number of cleaned rows that entered aggregation.
func (s *Stats) RowsKept() int64 {
	return s.RowsRead - s.DroppedBadDate - s.DroppedUnresolvedState
}

// Aggregator streams shard folders into combined aggregate tables.
type Aggregator struct {
	log *slog.Logger
	cfg Config
}

// New builds an Aggregator from cfg.
func New(cfg Config) (*Aggregator, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Aggregator{log: cfg.Logger, cfg: cfg}, nil
}

// AggregateFolder aggregates every CSV shard in dir, in directory-listing
// order. A folder without shards is a structural failure.
func (a *Aggregator) AggregateFolder(ctx context.Context, dir string) (*Table, *Stats, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to read dataset folder: %w", err)
	}
	var files []string
	for _, e := range entries {
		if e.IsDir() || !strings.EqualFold(filepath.Ext(e.Name()), ".csv") {
			continue
		}
		files = append(files, filepath.Join(dir, e.Name()))
	}
	if len(files) == 0 {
		return nil, nil, fmt.Errorf("%w in %s", ErrNoShards, dir)
	}
	return a.AggregateFiles(ctx, files)
}

// AggregateFiles aggregates the given shard files in order. Grouping is
// commutative and associative, so reordering files changes accumulation
// order but never the final sums.
func (a *Aggregator) AggregateFiles(ctx context.Context, files []string) (*Table, *Stats, error) {
	if len(files) == 0 {
		return nil, nil, ErrNoShards
	}
	comb := NewCombiner(a.cfg.GroupColumns, a.cfg.SumColumns)
	stats := &Stats{}
	for _, file := range files {
		a.log.Info("processing shard", "dataset", a.cfg.Dataset, "file", filepath.Base(file))
		if err := a.aggregateFile(ctx, file, comb, stats); err != nil {
			return nil, nil, fmt.Errorf("shard %s: %w", file, err)
		}
		stats.Shards++
		metrics.ShardsProcessed.WithLabelValues(a.cfg.Dataset).Inc()
	}
	metrics.GroupKeys.WithLabelValues(a.cfg.Dataset).Set(float64(comb.Len()))
	a.log.Info("aggregation complete",
		"dataset", a.cfg.Dataset,
		"shards", stats.Shards,
		"chunks", stats.Chunks,
		"rows_read", stats.RowsRead,
		"rows_kept", stats.RowsKept(),
		"dropped_bad_date", stats.DroppedBadDate,
		"dropped_unresolved_state", stats.DroppedUnresolvedState,
		"values_coerced", stats.ValuesCoerced,
		"group_keys", comb.Len(),
	)
	return comb.Result(), stats, nil
}

// aggregateFile streams one shard in bounded chunks, folding each chunk's
// partial aggregate into comb. The file is closed before the caller moves
// to the next shard.
func (a *Aggregator) aggregateFile(ctx context.Context, path string, comb *Combiner, stats *Stats) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open shard: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(bufio.NewReader(f))
	header, err := r.Read()
	if err != nil {
		return fmt.Errorf("failed to read header: %w", err)
	}
	idx, err := a.columnIndex(header)
	if err != nil {
		return err
	}

	chunk := make([][]string, 0, a.cfg.ChunkSize)
	flush := func() error {
		if len(chunk) == 0 {
			return nil
		}
		partial, err := a.aggregateChunk(chunk, idx, stats)
		if err != nil {
			return err
		}
		if err := comb.Add(partial); err != nil {
			return err
		}
		stats.Chunks++
		metrics.ChunksProcessed.WithLabelValues(a.cfg.Dataset).Inc()
		chunk = chunk[:0]
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		record, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("malformed shard: %w", err)
		}
		chunk = append(chunk, record)
		if len(chunk) >= a.cfg.ChunkSize {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}

type columnIndex struct {
	groups []int
	sums   []int
}

// columnIndex locates every configured column in the shard header. A
// missing column is a structural failure for the whole run.
func (a *Aggregator) columnIndex(header []string) (columnIndex, error) {
	pos := make(map[string]int, len(header))
	for i, name := range header {
		pos[strings.TrimSpace(name)] = i
	}
	var idx columnIndex
	var missing []string
	for _, c := range a.cfg.GroupColumns {
		i, ok := pos[c]
		if !ok {
			missing = append(missing, c)
			continue
		}
		idx.groups = append(idx.groups, i)
	}
	for _, c := range a.cfg.SumColumns {
		i, ok := pos[c]
		if !ok {
			missing = append(missing, c)
			continue
		}
		idx.sums = append(idx.sums, i)
	}
	if len(missing) > 0 {
		return columnIndex{}, fmt.Errorf("required columns missing from shard header: %s", strings.Join(missing, ", "))
	}
	return idx, nil
}

// aggregateChunk is the map phase: clean every record, drop the ones the
// data-quality policy excludes, and locally group-sum the rest.
func (a *Aggregator) aggregateChunk(records [][]string, idx columnIndex, stats *Stats) (*Table, error) {
	local := NewCombiner(a.cfg.GroupColumns, a.cfg.SumColumns)
	groups := make([]string, len(a.cfg.GroupColumns))
	sums := make([]float64, len(a.cfg.SumColumns))

rows:
	for _, record := range records {
		stats.RowsRead++
		metrics.RowsRead.WithLabelValues(a.cfg.Dataset).Inc()

		for i, col := range a.cfg.GroupColumns {
			raw := record[idx.groups[i]]
			switch col {
			case ColumnDate:
				t, err := ParseDayFirst(raw)
				if err != nil {
					stats.DroppedBadDate++
					metrics.RowsDropped.WithLabelValues(a.cfg.Dataset, metrics.ReasonBadDate).Inc()
					continue rows
				}
				groups[i] = t.Format(DateFormat)
			case ColumnState:
				canonical, ok := a.cfg.Resolver.Resolve(normalize.Clean(raw))
				if !ok {
					stats.DroppedUnresolvedState++
					metrics.RowsDropped.WithLabelValues(a.cfg.Dataset, metrics.ReasonUnresolvedState).Inc()
					continue rows
				}
				groups[i] = canonical
			case ColumnDistrict:
				groups[i] = normalize.Title(normalize.Clean(raw))
			default:
				groups[i] = strings.TrimSpace(raw)
			}
		}

		for i := range a.cfg.SumColumns {
			v, coerced, err := Coerce(record[idx.sums[i]], a.cfg.Coercion)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", a.cfg.SumColumns[i], err)
			}
			if coerced {
				stats.ValuesCoerced++
				metrics.ValuesCoerced.WithLabelValues(a.cfg.Dataset).Inc()
			}
			sums[i] = v
		}

		local.addRow(groups, sums)
	}
	return local.Result(), nil
}
