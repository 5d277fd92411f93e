package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/openclaw/clawtrace/rollout"
	"github.com/openclaw/clawtrace/rollout/bridge"
	"github.com/openclaw/clawtrace/rollout/trace"
)

var (
	bridgeHost      string // Bind address
	bridgePort      int    // Bind port
	bridgeTracesDir string // Directory trace files land in
)

// bridgeCmd serves the chat bridge: a web UI posts turns to /chat, the
// bridge forwards them to the gateway and records every one as a trace.
// Gateway settings are optional here because each chat request may carry
// its own.
var bridgeCmd = &cobra.Command{
	Use:   "bridge",
	Short: "Serve the HTTP chat bridge in front of the agent gateway",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()

		cfg := &rollout.Config{TracesDir: bridgeTracesDir}
		cfg.MergeEnv()
		cfg.Normalize()

		store := trace.NewStore(cfg.TracesDir)
		client := rollout.NewGatewayClient(cfg.Timeout)
		server := bridge.NewServer(cfg, client, store)

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		addr := fmt.Sprintf("%s:%d", bridgeHost, bridgePort)
		if err := server.Run(ctx, addr); err != nil {
			logrus.Fatalf("Bridge: %v", err)
		}
	},
}

// init sets up the bridge flags and attaches the subcommand
func init() {
	bridgeCmd.Flags().StringVar(&bridgeHost, "host", "127.0.0.1", "Address to bind")
	bridgeCmd.Flags().IntVar(&bridgePort, "port", 8787, "Port to bind")
	bridgeCmd.Flags().StringVar(&bridgeTracesDir, "traces-dir", "", "Directory for trace files (default traces)")

	rootCmd.AddCommand(bridgeCmd)
}
