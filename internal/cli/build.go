package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sort"
	"strconv"
	"syscall"

	"github.com/olekukonko/tablewriter"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/civicstack/uidai-lake/internal/aggregate"
	"github.com/civicstack/uidai-lake/internal/master"
	"github.com/civicstack/uidai-lake/internal/metrics"
	"github.com/civicstack/uidai-lake/internal/pipeline"
)

type BuildCmd struct{}

func NewBuildCmd() *BuildCmd {
	return &BuildCmd{}
}

func (c *BuildCmd) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Aggregate all three datasets and build the master table",
		RunE: func(cmd *cobra.Command, args []string) error {
			verbose, err := cmd.Root().PersistentFlags().GetBool("verbose")
			if err != nil {
				return fmt.Errorf("failed to get verbose flag: %w", err)
			}
			enrolDir, err := cmd.Flags().GetString("enrolment")
			if err != nil {
				return fmt.Errorf("failed to get enrolment flag: %w", err)
			}
			demoDir, err := cmd.Flags().GetString("demographic")
			if err != nil {
				return fmt.Errorf("failed to get demographic flag: %w", err)
			}
			bioDir, err := cmd.Flags().GetString("biometric")
			if err != nil {
				return fmt.Errorf("failed to get biometric flag: %w", err)
			}
			outPath, err := cmd.Flags().GetString("out")
			if err != nil {
				return fmt.Errorf("failed to get out flag: %w", err)
			}
			duckDBPath, err := cmd.Flags().GetString("duckdb")
			if err != nil {
				return fmt.Errorf("failed to get duckdb flag: %w", err)
			}
			chunkSize, err := cmd.Flags().GetInt("chunk-size")
			if err != nil {
				return fmt.Errorf("failed to get chunk-size flag: %w", err)
			}
			strict, err := cmd.Flags().GetBool("strict-numerics")
			if err != nil {
				return fmt.Errorf("failed to get strict-numerics flag: %w", err)
			}
			metricsAddr, err := cmd.Flags().GetString("metrics-addr")
			if err != nil {
				return fmt.Errorf("failed to get metrics-addr flag: %w", err)
			}

			log := newLogger(verbose)

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			if metricsAddr != "" {
				metrics.BuildInfo.WithLabelValues(version, commit, date).Set(1)
				mux := http.NewServeMux()
				mux.Handle("/metrics", promhttp.Handler())
				go func() {
					log.Info("serving metrics", "addr", metricsAddr)
					if err := http.ListenAndServe(metricsAddr, mux); err != nil {
						log.Error("metrics server failed", "error", err)
					}
				}()
			}

			coercion := aggregate.CoerceLenient
			if strict {
				coercion = aggregate.CoerceStrict
			}

			p, err := pipeline.New(pipeline.Config{
				Logger:         log,
				EnrolmentDir:   enrolDir,
				DemographicDir: demoDir,
				BiometricDir:   bioDir,
				OutPath:        outPath,
				DuckDBPath:     duckDBPath,
				ChunkSize:      chunkSize,
				Coercion:       coercion,
			})
			if err != nil {
				log.Error("Invalid configuration", "error", err)
				os.Exit(1)
			}

			table, err := p.Run(ctx)
			if err != nil {
				log.Error("Build failed", "error", err)
				os.Exit(1)
			}

			printStateTotals(table)
			return nil
		},
	}
	cmd.Flags().String("enrolment", getEnvOrDefault("UIDAI_ENROLMENT_DIR", "Datasets/aadhar_enrolment"), "Folder containing enrolment CSV shards")
	cmd.Flags().String("demographic", getEnvOrDefault("UIDAI_DEMOGRAPHIC_DIR", "Datasets/aadhar_demographic"), "Folder containing demographic-update CSV shards")
	cmd.Flags().String("biometric", getEnvOrDefault("UIDAI_BIOMETRIC_DIR", "Datasets/aadhar_biometric"), "Folder containing biometric-update CSV shards")
	cmd.Flags().String("out", getEnvOrDefault("UIDAI_MASTER_TABLE", "processed_data/master_uidai_table.csv"), "Output path for the master table CSV")
	cmd.Flags().String("duckdb", os.Getenv("UIDAI_DUCKDB_PATH"), "Optional DuckDB database file to load the master table into")
	cmd.Flags().Int("chunk-size", aggregate.DefaultChunkSize, "Rows per streamed chunk")
	cmd.Flags().Bool("strict-numerics", false, "Fail on corrupt numeric cells instead of coercing them to zero")
	cmd.Flags().String("metrics-addr", os.Getenv("UIDAI_METRICS_ADDR"), "Optional address to serve Prometheus metrics on during the run")
	return cmd
}

// printStateTotals renders per-state enrolment and update totals, the
// run's operator-facing sanity check.
func printStateTotals(t *master.Table) {
	type totals struct {
		enrolments float64
		updates    float64
		alerts     int
	}
	byState := map[string]*totals{}
	for _, r := range t.Rows {
		st, ok := byState[r.State]
		if !ok {
			st = &totals{}
			byState[r.State] = st
		}
		st.enrolments += r.TotalEnrolments
		st.updates += r.UpdateBurden
		if r.PolicyAlert {
			st.alerts++
		}
	}
	names := make([]string, 0, len(byState))
	for name := range byState {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		return byState[names[i]].enrolments > byState[names[j]].enrolments
	})

	table := tablewriter.NewWriter(os.Stdout)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_CENTER)
	table.SetAutoFormatHeaders(false)
	table.SetBorder(true)
	table.SetHeader([]string{"State", "Total\nEnrolments", "Update\nBurden", "Alert\nRows"})
	for _, name := range names {
		st := byState[name]
		table.Append([]string{
			name,
			strconv.FormatFloat(st.enrolments, 'f', -1, 64),
			strconv.FormatFloat(st.updates, 'f', -1, 64),
			strconv.Itoa(st.alerts),
		})
	}
	table.Render()
}
