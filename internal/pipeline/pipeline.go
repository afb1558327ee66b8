// Package pipeline orchestrates the full build: aggregate the three
// dataset folders, merge them into the master table, and persist it for
// downstream consumers. The run is strictly sequential and deterministic
// for a given shard set, chunk size, and column configuration; any
// structural failure aborts before output is written.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/jonboulle/clockwork"

	"github.com/civicstack/uidai-lake/internal/aggregate"
	"github.com/civicstack/uidai-lake/internal/dataset"
	"github.com/civicstack/uidai-lake/internal/duckstore"
	"github.com/civicstack/uidai-lake/internal/master"
	"github.com/civicstack/uidai-lake/internal/states"
)

// Config configures a pipeline run.
type Config struct {
	Logger   *slog.Logger
	Clock    clockwork.Clock
	Resolver *states.Resolver

	EnrolmentDir   string
	DemographicDir string
	BiometricDir   string
	OutPath        string

	// DuckDBPath, when set, additionally loads the master table into an
	// embedded DuckDB database.
	DuckDBPath string

	// Optional with defaults.
	ChunkSize int
	Coercion  aggregate.CoercionMode
}

func (c *Config) Validate() error {
	if c.Logger == nil {
		c.Logger = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	if c.Clock == nil {
		c.Clock = clockwork.NewRealClock()
	}
	if c.Resolver == nil {
		c.Resolver = states.NewResolver(states.Master())
	}
	if c.EnrolmentDir == "" {
		return errors.New("enrolment folder is required")
	}
	if c.DemographicDir == "" {
		return errors.New("demographic folder is required")
	}
	if c.BiometricDir == "" {
		return errors.New("biometric folder is required")
	}
	if c.OutPath == "" {
		return errors.New("output path is required")
	}
	if c.ChunkSize == 0 {
		c.ChunkSize = aggregate.DefaultChunkSize
	}
	if c.ChunkSize < 0 {
		return errors.New("chunk size must be > 0")
	}
	return nil
}

// Pipeline runs the build.
type Pipeline struct {
	log *slog.Logger
	cfg Config
}

// New builds a Pipeline from cfg.
func New(cfg Config) (*Pipeline, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{log: cfg.Logger, cfg: cfg}, nil
}

// Run executes the full build and returns the master table. The CSV (and
// optional DuckDB load) only materialize after every dataset aggregated
// and merged cleanly.
func (p *Pipeline) Run(ctx context.Context) (*master.Table, error) {
	start := p.cfg.Clock.Now()

	enrol, err := p.aggregateDataset(ctx, dataset.Enrolment(), p.cfg.EnrolmentDir)
	if err != nil {
		return nil, err
	}
	demo, err := p.aggregateDataset(ctx, dataset.Demographic(), p.cfg.DemographicDir)
	if err != nil {
		return nil, err
	}
	bio, err := p.aggregateDataset(ctx, dataset.Biometric(), p.cfg.BiometricDir)
	if err != nil {
		return nil, err
	}

	p.log.Info("merging datasets into master table")
	table, err := master.NewMerger(p.log).Merge(enrol, demo, bio)
	if err != nil {
		return nil, fmt.Errorf("merge failed: %w", err)
	}

	if err := table.WriteCSV(p.cfg.OutPath); err != nil {
		return nil, fmt.Errorf("failed to persist master table: %w", err)
	}
	p.log.Info("master table written", "path", p.cfg.OutPath)

	if p.cfg.DuckDBPath != "" {
		if err := p.loadDuckDB(ctx, table); err != nil {
			return nil, err
		}
	}

	minDate, maxDate := table.DateRange()
	p.log.Info("build complete",
		"rows", len(table.Rows),
		"columns", len(master.Header),
		"states", table.States(),
		"date_min", minDate,
		"date_max", maxDate,
		"duration", p.cfg.Clock.Since(start).String(),
	)
	return table, nil
}

func (p *Pipeline) aggregateDataset(ctx context.Context, spec dataset.Spec, dir string) (*aggregate.Table, error) {
	p.log.Info("aggregating dataset", "dataset", spec.Name, "folder", dir)
	agg, err := aggregate.New(aggregate.Config{
		Logger:       p.log,
		Resolver:     p.cfg.Resolver,
		Dataset:      spec.Name,
		GroupColumns: dataset.GroupColumns(),
		SumColumns:   spec.SumColumns,
		ChunkSize:    p.cfg.ChunkSize,
		Coercion:     p.cfg.Coercion,
	})
	if err != nil {
		return nil, fmt.Errorf("%s aggregator: %w", spec.Name, err)
	}
	table, _, err := agg.AggregateFolder(ctx, dir)
	if err != nil {
		return nil, fmt.Errorf("%s aggregation failed: %w", spec.Name, err)
	}
	table.RenameSums(spec.Renames)
	return table, nil
}

func (p *Pipeline) loadDuckDB(ctx context.Context, table *master.Table) error {
	store, err := duckstore.Open(p.cfg.DuckDBPath, p.log)
	if err != nil {
		return fmt.Errorf("failed to open DuckDB database: %w", err)
	}
	defer store.Close()
	if err := store.LoadMaster(ctx, table); err != nil {
		return fmt.Errorf("failed to load DuckDB database: %w", err)
	}
	p.log.Info("master table loaded into DuckDB", "path", p.cfg.DuckDBPath, "table", duckstore.TableName)
	return nil
}
