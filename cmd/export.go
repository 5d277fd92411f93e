package cmd

import (
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/openclaw/clawtrace/rollout"
	"github.com/openclaw/clawtrace/rollout/dataset"
	"github.com/openclaw/clawtrace/rollout/trace"
)

var (
	exportTracesDir string // Directory holding rollout trace files
	exportOutPath   string // Output JSONL dataset path
)

// exportCmd mines persisted traces into one SFT example per rollout.
var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export an SFT dataset from collected rollout traces",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()

		store := trace.NewStore(exportTracesDir)
		summary, err := dataset.Export(store, exportOutPath)
		if err != nil {
			logrus.Fatalf("Export: %v", err)
		}
		logrus.Infof("Processed %d trace(s): %d example(s) written to %s, %d skipped",
			summary.Processed, summary.Written, exportOutPath, summary.Skipped)
	},
}

// init sets up the export flags and attaches the subcommand
func init() {
	exportCmd.Flags().StringVar(&exportTracesDir, "traces-dir", rollout.DefaultTracesDir, "Directory holding trace files")
	exportCmd.Flags().StringVar(&exportOutPath, "out", "sft_dataset.jsonl", "Output JSONL path")

	rootCmd.AddCommand(exportCmd)
}
