package commands

import (
	"context"
	"encoding/json"
	"io"

	"github.com/Gobusters/ectologger"
	"github.com/spf13/cobra"

	"github.com/Ramsey-B/sage/config"
	"github.com/Ramsey-B/sage/pkg/logging"
)

var (
	cfg    *config.Config
	logger ectologger.Logger
	flush  func() error
)

var rootCmd = &cobra.Command{
	Use:           "sage",
	Short:         "Player identity resolution",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load()
		if err != nil {
			return err
		}
		cfg = loaded

		logger, flush, err = logging.New(logging.Config{
			AppName: cfg.AppName,
			Level:   cfg.LogLevel,
			Pretty:  cfg.PrettyLogs,
		})
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if flush != nil {
			_ = flush()
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd, migrateCmd, linkCmd, backfillCmd, reviewCmd)
}

// Execute runs the root command
func Execute() error {
	return rootCmd.ExecuteContext(context.Background())
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
