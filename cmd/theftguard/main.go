// Command theftguard serves the electricity theft risk dashboard and scores
// usage files against pre-fitted model artifacts.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hed1ad/theftguard/internal/config"
	"github.com/hed1ad/theftguard/pkg/detectors"
	"github.com/hed1ad/theftguard/pkg/detectors/artifact"
	"github.com/hed1ad/theftguard/pkg/features"
	"github.com/hed1ad/theftguard/pkg/scoring"
)

var version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	v := viper.New()

	root := &cobra.Command{
		Use:   "theftguard",
		Short: "Electricity theft risk dashboard and usage scorer",
		Long: `theftguard ranks consumers for field inspection from a pre-scored risk
table and scores uploaded usage histories with a pre-fitted normalizer and
classifier.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := root.PersistentFlags()
	flags.String("log-level", config.DefaultLogLevel, "Log level (debug, info, warn, error)")
	flags.String("log-format", config.DefaultLogFormat, "Log format (json, console)")
	flags.String("scaler", config.DefaultScalerPath, "Path to the normalizer artifact")
	flags.String("model", config.DefaultModelPath, "Path to the classifier artifact")

	bind(v, flags.Lookup("log-level"), "log_level")
	bind(v, flags.Lookup("log-format"), "log_format")
	bind(v, flags.Lookup("scaler"), "scaler_path")
	bind(v, flags.Lookup("model"), "model_path")

	root.AddCommand(
		newServeCmd(v),
		newScoreCmd(v),
		newFeaturesCmd(),
		newInspectCmd(),
		newVersionCmd(),
	)
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "theftguard %s (feature schema %s)\n", version, features.SchemaV1.Version)
		},
	}
}

// loadScorer loads both artifacts against the current feature schema.
func loadScorer(cfg *config.Config) (*scoring.Scorer, error) {
	norm, normMeta, err := artifact.LoadNormalizer(cfg.ScalerPath, features.SchemaV1)
	if err != nil {
		return nil, fmt.Errorf("load normalizer: %w", err)
	}
	clf, clfMeta, err := artifact.LoadClassifier(cfg.ModelPath, features.SchemaV1)
	if err != nil {
		return nil, fmt.Errorf("load classifier: %w", err)
	}
	return scoring.New(features.NewExtractor(), norm, normMeta, clf, clfMeta)
}

func describe(meta detectors.Meta) string {
	run := meta.RunID
	if run == "" {
		run = "unknown"
	}
	return fmt.Sprintf("%s (schema %s, run %s)", meta.Kind, meta.SchemaVersion, run)
}
