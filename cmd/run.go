package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/openclaw/clawtrace/rollout"
	"github.com/openclaw/clawtrace/rollout/trace"
)

var (
	runSessionFile    string // Optional session file passed to the CLI
	runTracesDir      string // Directory the trace file lands in
	runTimeoutSeconds int    // CLI invocation timeout
	runNoTrace        bool   // Skip the trace write, just print the answer
)

// runCmd sends one message through the local openclaw CLI and records the
// turn as a trace. The CLI has no rollout ids, so the trace is filed under
// a synthetic local id.
var runCmd = &cobra.Command{
	Use:   "run [message]",
	Short: "Run one rollout through the local openclaw binary",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		setupLogging()

		agent := rollout.NewLocalAgent(
			os.Getenv("OPENCLAW_BIN"),
			os.Getenv("OPENCLAW_CWD"),
			runSessionFile,
			time.Duration(runTimeoutSeconds)*time.Second,
		)
		input := trace.TaskInput{
			Input:          args[0],
			Message:        args[0],
			IdempotencyKey: uuid.NewString(),
			Mode:           rollout.DefaultMode,
		}

		resp := agent.Send(context.Background(), input)
		fmt.Println(resp.Text)

		if runNoTrace {
			return
		}
		store := trace.NewStore(runTracesDir)
		rec := trace.NewRecord("local-"+uuid.NewString(), uuid.NewString(),
			trace.StatusSucceeded, input, rollout.BuildSpans(resp))
		path, err := store.Write(rec)
		if err != nil {
			logrus.Fatalf("Trace write: %v", err)
		}
		logrus.Infof("Wrote trace %s", path)
	},
}

// init sets up the run flags and attaches the subcommand
func init() {
	runCmd.Flags().StringVar(&runSessionFile, "session-file", "", "Session file passed through to the openclaw CLI")
	runCmd.Flags().StringVar(&runTracesDir, "traces-dir", rollout.DefaultTracesDir, "Directory for the trace file")
	runCmd.Flags().IntVar(&runTimeoutSeconds, "timeout", 120, "CLI invocation timeout in seconds")
	runCmd.Flags().BoolVar(&runNoTrace, "no-trace", false, "Print the response without writing a trace")

	rootCmd.AddCommand(runCmd)
}
