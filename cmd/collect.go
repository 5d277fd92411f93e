package cmd

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/openclaw/clawtrace/rollout"
	"github.com/openclaw/clawtrace/rollout/trace"
)

var (
	// CLI flags for batch collection; zero values mean "not set" so the
	// env / batch-spec layers below them shine through.
	collectGatewayURL     string // Gateway base URL
	collectSecret         string // Shared internal secret
	collectSession        string // Gateway session key
	collectMode           string // Rollout mode tag (train, val)
	collectTracesDir      string // Directory trace files land in
	collectMaxConcurrent  int    // Concurrency cap for in-flight rollouts
	collectTimeoutSeconds int    // Per-rollout gateway timeout
	collectConfigPath     string // Optional YAML batch spec
)

// collectCmd fans a prompt list out to the gateway and writes one trace
// file per rollout.
var collectCmd = &cobra.Command{
	Use:   "collect [prompts-file]",
	Short: "Run a batch of prompts against the agent gateway and record traces",
	Args:  cobra.MaximumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()

		cfg := &rollout.Config{}
		var prompts []string

		// Layering, lowest precedence first: batch spec file, then
		// environment (.env included), then explicit flags.
		if collectConfigPath != "" {
			spec, err := rollout.LoadBatchSpec(collectConfigPath)
			if err != nil {
				logrus.Fatalf("Batch spec: %v", err)
			}
			spec.Apply(cfg)
			prompts = spec.Prompts
		}
		cfg.MergeEnv()
		applyCollectFlags(cfg)
		cfg.Normalize()

		if len(args) == 1 {
			filePrompts, err := rollout.ReadPrompts(args[0])
			if err != nil {
				logrus.Fatalf("Prompts file: %v", err)
			}
			prompts = filePrompts
		}
		if len(prompts) == 0 {
			logrus.Fatalf("No prompts: pass a prompts file or a --config with a prompts list")
		}
		if err := cfg.Validate(); err != nil {
			logrus.Fatalf("Configuration: %v", err)
		}

		store := trace.NewStore(cfg.TracesDir)
		client := rollout.NewGatewayClient(cfg.Timeout)
		dispatcher := rollout.NewDispatcher(cfg, client, store)

		logrus.Infof("Collecting %d rollout(s) against %s (max %d concurrent)",
			len(prompts), cfg.GatewayBaseURL, cfg.MaxConcurrent)
		_, summary := dispatcher.Run(context.Background(), prompts)
		logrus.Infof("Wrote %d trace(s) to %s (%d submitted, %d failed, %d skipped)",
			summary.Written, cfg.TracesDir, summary.Submitted, summary.Failed, summary.Skipped)
	},
}

// applyCollectFlags overlays explicitly set flag values onto cfg. Flags win
// over everything else.
func applyCollectFlags(cfg *rollout.Config) {
	if collectGatewayURL != "" {
		cfg.GatewayBaseURL = collectGatewayURL
	}
	if collectSecret != "" {
		cfg.InternalSecret = collectSecret
	}
	if collectSession != "" {
		cfg.SessionKey = collectSession
	}
	if collectMode != "" {
		cfg.Mode = collectMode
	}
	if collectTracesDir != "" {
		cfg.TracesDir = collectTracesDir
	}
	if collectMaxConcurrent != 0 {
		cfg.MaxConcurrent = collectMaxConcurrent
	}
	if collectTimeoutSeconds != 0 {
		cfg.Timeout = time.Duration(collectTimeoutSeconds) * time.Second
	}
}

// init sets up the collect flags and attaches the subcommand
func init() {
	collectCmd.Flags().StringVar(&collectGatewayURL, "gateway-url", "", "Gateway base URL (env GATEWAY_BASE_URL)")
	collectCmd.Flags().StringVar(&collectSecret, "secret", "", "Internal shared secret (env INTERNAL_SECRET)")
	collectCmd.Flags().StringVar(&collectSession, "session", "", "Gateway session key (env SESSION_KEY)")
	collectCmd.Flags().StringVar(&collectMode, "mode", "", "Rollout mode tag: train or val (default val)")
	collectCmd.Flags().StringVar(&collectTracesDir, "traces-dir", "", "Directory for trace files (default traces)")
	collectCmd.Flags().IntVar(&collectMaxConcurrent, "max-concurrent", 0, "Maximum concurrent rollouts (default 4)")
	collectCmd.Flags().IntVar(&collectTimeoutSeconds, "timeout", 0, "Per-rollout timeout in seconds (default 300)")
	collectCmd.Flags().StringVar(&collectConfigPath, "config", "", "YAML batch spec with prompts and/or settings")

	rootCmd.AddCommand(collectCmd)
}
