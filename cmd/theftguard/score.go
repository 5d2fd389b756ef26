package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hed1ad/theftguard/internal/config"
	"github.com/hed1ad/theftguard/pkg/detectors/artifact"
	"github.com/hed1ad/theftguard/pkg/features"
	tgio "github.com/hed1ad/theftguard/pkg/io"
	"github.com/hed1ad/theftguard/pkg/io/csv"
)

func newScoreCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "score <usage.csv>",
		Short: "Score every row of a usage file and write CSV results to stdout",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(v)
			if err != nil {
				return fmt.Errorf("failed to load configuration: %w", err)
			}

			scorer, err := loadScorer(cfg)
			if err != nil {
				return err
			}

			reader, err := csv.NewReader(args[0])
			if err != nil {
				return err
			}
			defer reader.Close()

			rows, err := reader.Read()
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				return fmt.Errorf("%s: %w", args[0], tgio.ErrEmptyUpload)
			}

			results, err := scorer.ScoreAll(rows)
			if err != nil {
				return err
			}

			w := csv.NewWriter(cmd.OutOrStdout())
			if err := w.WriteAll(results); err != nil {
				return err
			}
			if err := w.Close(); err != nil {
				return err
			}

			fmt.Fprintln(cmd.ErrOrStderr(), results[0].Verdict)
			return nil
		},
	}
}

func newFeaturesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "features <usage.csv>",
		Short: "Print the derived feature vector of every row as JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reader, err := csv.NewReader(args[0])
			if err != nil {
				return err
			}
			defer reader.Close()

			ctx, cancel := context.WithCancel(cmd.Context())
			defer cancel()

			rows, err := reader.Stream(ctx)
			if err != nil {
				return err
			}

			ext := features.NewExtractor()
			enc := json.NewEncoder(cmd.OutOrStdout())
			for row := range rows {
				v, coerced := ext.Extract(row)
				if err := enc.Encode(struct {
					ConsNo   string          `json:"cons_no"`
					AreaID   string          `json:"area_id"`
					Features features.Vector `json:"features"`
					Coerced  int             `json:"coerced_readings"`
				}{row.ConsNo, row.AreaID, v, coerced}); err != nil {
					return err
				}
			}
			return reader.Err()
		},
	}
}

func newInspectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "inspect <artifact>",
		Short: "Print an artifact's kind, schema and training run",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			meta, err := artifact.Inspect(args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, describe(meta))
			if err := features.SchemaV1.Validate(meta.SchemaVersion, meta.FeatureNames); err != nil {
				fmt.Fprintf(out, "incompatible: %v\n", err)
				return nil
			}
			fmt.Fprintln(out, "compatible with feature schema", features.SchemaV1.Version)
			return nil
		},
	}
}
