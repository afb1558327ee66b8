// Package duckstore loads the master table into an embedded DuckDB
// database so analytics consumers can query it with SQL instead of
// re-parsing the CSV. The table is fully replaced on every load; there is
// no incremental mutation.
package duckstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	_ "github.com/duckdb/duckdb-go/v2"

	"github.com/civicstack/uidai-lake/internal/master"
)

// TableName is the master table's name inside the DuckDB database.
const TableName = "master_uidai"

// Columns defines the master table schema as name:type pairs, in CSV
// column order.
var Columns = []string{
	"date:DATE",
	"state:VARCHAR",
	"district:VARCHAR",
	"age_0_5:DOUBLE",
	"age_5_17:DOUBLE",
	"age_18_greater:DOUBLE",
	"total_enrolments:DOUBLE",
	"demo_5_17:DOUBLE",
	"demo_18_plus:DOUBLE",
	"bio_5_17:DOUBLE",
	"bio_18_plus:DOUBLE",
	"update_burden:DOUBLE",
	"child_ratio:DOUBLE",
	"policy_alert:BOOLEAN",
}

// Store wraps a DuckDB database file.
type Store struct {
	log *slog.Logger
	db  *sql.DB
}

// Open opens (or creates) the DuckDB database at path.
func Open(path string, log *slog.Logger) (*Store, error) {
	if log == nil {
		log = slog.New(slog.NewTextHandler(os.Stderr, nil))
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return &Store{log: log, db: db}, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadMaster replaces the master table's contents with t. The table is
// staged through a temp CSV and swapped inside one transaction, retried
// with exponential backoff on transient transaction conflicts.
func (s *Store) LoadMaster(ctx context.Context, t *master.Table) error {
	start := time.Now()

	if err := s.createTable(ctx); err != nil {
		return err
	}

	tmpDir, err := os.MkdirTemp("", "uidai_lake_stage_*")
	if err != nil {
		return fmt.Errorf("failed to create staging directory: %w", err)
	}
	defer os.RemoveAll(tmpDir)
	stagePath := filepath.Join(tmpDir, "master.csv")
	if err := t.WriteCSV(stagePath); err != nil {
		return fmt.Errorf("failed to stage table: %w", err)
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 8), ctx)
	if err := backoff.Retry(func() error {
		return s.replaceFromCSV(ctx, stagePath)
	}, policy); err != nil {
		return fmt.Errorf("failed to load master table: %w", err)
	}

	s.log.Debug("master table loaded",
		"table", TableName,
		"rows", len(t.Rows),
		"duration", time.Since(start).String())
	return nil
}

func (s *Store) createTable(ctx context.Context) error {
	defs := make([]string, 0, len(Columns))
	for _, col := range Columns {
		name, typ, ok := strings.Cut(col, ":")
		if !ok {
			return fmt.Errorf("invalid column definition %q", col)
		}
		defs = append(defs, fmt.Sprintf("%s %s", name, typ))
	}
	createSQL := fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n\t%s\n)", TableName, strings.Join(defs, ",\n\t"))
	if _, err := s.db.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("failed to create master table: %w", err)
	}
	return nil
}

func (s *Store) replaceFromCSV(ctx context.Context, csvPath string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			s.log.Error("failed to rollback transaction", "table", TableName, "error", err)
		}
	}()

	if _, err := tx.ExecContext(ctx, fmt.Sprintf("DELETE FROM %s", TableName)); err != nil {
		return fmt.Errorf("failed to clear master table: %w", err)
	}
	copySQL := fmt.Sprintf("COPY %s FROM '%s' (FORMAT CSV, HEADER true)", TableName, csvPath)
	if _, err := tx.ExecContext(ctx, copySQL); err != nil {
		return backoff.Permanent(fmt.Errorf("failed to COPY FROM CSV: %w", err))
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// CountRows reports the number of rows currently in the master table.
func (s *Store) CountRows(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, fmt.Sprintf("SELECT count(*) FROM %s", TableName)).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count rows: %w", err)
	}
	return n, nil
}
