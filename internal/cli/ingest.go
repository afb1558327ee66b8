package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/civicstack/uidai-lake/internal/ingest"
)

type IngestCmd struct{}

func NewIngestCmd() *IngestCmd {
	return &IngestCmd{}
}

func (c *IngestCmd) Command() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Write concatenated raw copies of each dataset for auditing",
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
			outDir, err := cmd.Flags().GetString("out-dir")
			if err != nil {
				return fmt.Errorf("failed to get out-dir flag: %w", err)
			}

			log := newLogger(verbose)

			ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			ing, err := ingest.New(ingest.Config{Logger: log})
			if err != nil {
				log.Error("Invalid configuration", "error", err)
				os.Exit(1)
			}

			copies := []struct {
				dataset string
				dir     string
				out     string
			}{
				{"enrolment", enrolDir, filepath.Join(outDir, "raw_enrolment.csv")},
				{"demographic", demoDir, filepath.Join(outDir, "raw_demographic.csv")},
				{"biometric", bioDir, filepath.Join(outDir, "raw_biometric.csv")},
			}
			for _, c := range copies {
				rows, err := ing.CopyFolder(ctx, c.dir, c.out)
				if err != nil {
					log.Error("Ingestion failed", "dataset", c.dataset, "error", err)
					os.Exit(1)
				}
				log.Info("raw copy written", "dataset", c.dataset, "path", c.out, "rows", rows)
			}
			return nil
		},
	}
	cmd.Flags().String("enrolment", getEnvOrDefault("UIDAI_ENROLMENT_DIR", "Datasets/aadhar_enrolment"), "Folder containing enrolment CSV shards")
	cmd.Flags().String("demographic", getEnvOrDefault("UIDAI_DEMOGRAPHIC_DIR", "Datasets/aadhar_demographic"), "Folder containing demographic-update CSV shards")
	cmd.Flags().String("biometric", getEnvOrDefault("UIDAI_BIOMETRIC_DIR", "Datasets/aadhar_biometric"), "Folder containing biometric-update CSV shards")
	cmd.Flags().String("out-dir", getEnvOrDefault("UIDAI_PROCESSED_DIR", "processed_data"), "Output folder for raw copies")
	return cmd
}
