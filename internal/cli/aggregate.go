package cli

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/civicstack/uidai-lake/internal/aggregate"
)

type AggregateCmd struct{}

func NewAggregateCmd() *AggregateCmd {
	return &AggregateCmd{}
}

func (c *AggregateCmd) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "aggregate",
		Short: "Run the chunked aggregation for a single dataset folder",
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, err := cmd.Root().PersistentFlags().GetBool("verbose")
			if err != nil {
				return fmt.Errorf("failed to get verbose flag: %w", err)
			}
			dir, err := cmd.Flags().GetString("dir")
			if err != nil {
				return fmt.Errorf("failed to get dir flag: %w", err)
			}
			groupColumns, err := cmd.Flags().GetStringSlice("group")
			if err != nil {
				return fmt.Errorf("failed to get group flag: %w", err)
			}
			sumColumns, err := cmd.Flags().GetStringSlice("sum")
			if err != nil {
				return fmt.Errorf("failed to get sum flag: %w", err)
			}
			outPath, err := cmd.Flags().GetString("out")
			if err != nil {
				return fmt.Errorf("failed to get out flag: %w", err)
			}
			chunkSize, err := cmd.Flags().GetInt("chunk-size")
			if err != nil {
				return fmt.Errorf("failed to get chunk-size flag: %w", err)
			}

			log := newLogger(verbose)

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			agg, err := aggregate.New(aggregate.Config{
				Logger:       log,
				Dataset:      filepath.Base(dir),
				GroupColumns: groupColumns,
				SumColumns:   sumColumns,
				ChunkSize:    chunkSize,
			})
			if err != nil {
				log.Error("Invalid configuration", "error", err)
				os.Exit(1)
			}

			table, _, err := agg.AggregateFolder(ctx, dir)
			if err != nil {
				log.Error("Aggregation failed", "error", err)
				os.Exit(1)
			}

			if err := writeAggregateCSV(table, outPath); err != nil {
				log.Error("Failed to write aggregate table", "error", err)
				os.Exit(1)
			}
			log.Info("aggregate table written", "path", outPath, "rows", len(table.Rows))
			return nil
		},
	}
	cmd.Flags().String("dir", "", "Folder containing CSV shards (required)")
	cmd.Flags().StringSlice("group", []string{"date", "state", "district"}, "Ordered group-by key columns")
	cmd.Flags().StringSlice("sum", nil, "Numeric columns to sum (required)")
	cmd.Flags().String("out", "aggregate.csv", "Output path for the aggregate CSV")
	cmd.Flags().Int("chunk-size", aggregate.DefaultChunkSize, "Rows per streamed chunk")
	_ = cmd.MarkFlagRequired("dir")
	_ = cmd.MarkFlagRequired("sum")
	return cmd
}

func writeAggregateCSV(t *aggregate.Table, path string) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(append(append([]string{}, t.GroupColumns...), t.SumColumns...)); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	record := make([]string, 0, len(t.GroupColumns)+len(t.SumColumns))
	for _, row := range t.Rows {
		record = record[:0]
		record = append(record, row.Groups...)
		for _, v := range row.Sums {
			record = append(record, strconv.FormatFloat(v, 'f', -1, 64))
		}
		if err := w.Write(record); err != nil {
			return fmt.Errorf("failed to write row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("failed to flush output: %w", err)
	}
	return f.Close()
}
