package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/couchcryptid/storm-data-dashboard/internal/observability"
	"github.com/couchcryptid/storm-data-dashboard/internal/query"
	"github.com/spf13/cobra"
)

func newRunCmd(opts *options) *cobra.Command {
	var queryFile string

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a GraphQL query through the query console",
		Long: `Run sends a query verbatim to the query service and prints the response
body and elapsed time. Without --query-file the dashboard's default query runs.
Use --query-file - to read the query from stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			text := query.DefaultQuery
			if queryFile != "" {
				b, err := readQuery(cmd.InOrStdin(), queryFile)
				if err != nil {
					return err
				}
				text = string(b)
			}
			return runQuery(cmd, opts, text)
		},
	}

	cmd.Flags().StringVarP(&queryFile, "query-file", "f", "", "file holding the query text, or - for stdin")
	return cmd
}

func readQuery(stdin io.Reader, path string) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read query file: %w", err)
	}
	return b, nil
}

func runQuery(cmd *cobra.Command, opts *options, text string) error {
	console := query.NewConsole(opts.client(), opts.logger, observability.NewMetricsForTesting())
	console.SetEditable(true)
	if _, err := console.SetText(text); err != nil {
		return err
	}
	if _, err := console.Run(cmd.Context()); err != nil {
		return err
	}
	exec, err := console.Wait(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if exec.Status == query.StatusError {
		fmt.Fprintf(cmd.ErrOrStderr(), "query failed after %s\n", exec.Timing())
		return errors.New(exec.Error)
	}

	var pretty bytes.Buffer
	if err := json.Indent(&pretty, []byte(exec.Result), "", "  "); err != nil {
		pretty.Reset()
		pretty.WriteString(exec.Result)
	}
	fmt.Fprintln(out, pretty.String())
	fmt.Fprintf(cmd.ErrOrStderr(), "%s\n", exec.Timing())
	return nil
}
