package main

import (
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-data-dashboard/internal/adapter/graphql"
	"github.com/couchcryptid/storm-data-dashboard/internal/config"
	"github.com/spf13/cobra"
)

// options are the persistent flags shared by every subcommand.
type options struct {
	apiURL   string
	timeout  time.Duration
	logLevel string

	cfg    *config.Config
	logger *slog.Logger
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:   "stormq",
		Short: "Query and summarize storm reports from the command line",
		Long: `stormq talks to the storm report GraphQL service the dashboard reads from.

Defaults come from the same environment (and .env file) as the dashboard:
API_URL, API_TIMEOUT and REPORT_PAGE_SIZE. Flags override them.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("api-url") {
				cfg.APIURL = opts.apiURL
			}
			if cmd.Flags().Changed("timeout") {
				cfg.APITimeout = opts.timeout
			}
			opts.cfg = cfg
			// Logs go to stderr so results on stdout stay pipeable.
			opts.logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{
				Level: parseLevel(opts.logLevel),
			}))
			return nil
		},
	}

	root.PersistentFlags().StringVar(&opts.apiURL, "api-url", "", "query service base URL (default $API_URL)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 0, "per-request timeout (default $API_TIMEOUT)")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "log level (debug|info|warn|error)")

	root.AddCommand(newRunCmd(opts), newSummaryCmd(opts), newVerifyCmd(opts))
	return root
}

func (o *options) client() *graphql.Client {
	return graphql.NewClient(o.cfg.APIURL, o.cfg.APITimeout, o.cfg.ReportPageSize, o.logger)
}

// parseLevel maps a level name onto slog, the way the service logger does.
func parseLevel(s string) slog.Level {
	var l slog.Level
	if err := l.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelWarn
	}
	return l
}
