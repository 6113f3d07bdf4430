package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iho/rewardledger/internal/infrastructure/logger"
	"github.com/iho/rewardledger/internal/infrastructure/postgres"
)

// migrateFuncs run migrations; tests replace them.
var (
	migrateUp   = postgres.RunMigrations
	migrateDown = postgres.RunMigrationsDown
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type cliOptions struct {
	baseURL string
	timeout time.Duration
}

func newRootCmd() *cobra.Command {
	opts := &cliOptions{}

	rootCmd := &cobra.Command{
		Use:           "rewardledger-cli",
		Short:         "RewardLedger CLI tool",
		Long:          `A command line interface for operating the RewardLedger API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.baseURL, "url", "http://localhost:8080", "Base URL of the RewardLedger API")
	rootCmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(entryCmd(opts), reconcileCmd(opts), settingsCmd(opts), migrateCmd())

	return rootCmd
}

func entryCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entry",
		Short: "Ledger entry operations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get <id>",
		Short: "Show an entry",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newAPIClient(opts).call(cmd.OutOrStdout(), http.MethodGet, "/api/v1/entries/"+args[0], nil)
		},
	})

	var completedAt string
	complete := &cobra.Command{
		Use:   "complete <id>",
		Short: "Mark an entry completed and settle it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			body := map[string]any{}
			if completedAt != "" {
				at, err := time.Parse(time.RFC3339, completedAt)
				if err != nil {
					return fmt.Errorf("invalid --at: %w", err)
				}
				body["completed_at"] = at
			}
			return newAPIClient(opts).call(cmd.OutOrStdout(), http.MethodPost, "/api/v1/entries/"+args[0]+"/complete", body)
		},
	}
	complete.Flags().StringVar(&completedAt, "at", "", "Completion time (RFC 3339), defaults to now")
	cmd.AddCommand(complete)

	for _, action := range []string{"cancel", "fail"} {
		action := action
		var reason string
		sub := &cobra.Command{
			Use:   action + " <id>",
			Short: strings.ToUpper(action[:1]) + action[1:] + " a pending or scheduled entry",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return newAPIClient(opts).call(cmd.OutOrStdout(), http.MethodPost, "/api/v1/entries/"+args[0]+"/"+action, map[string]string{"reason": reason})
			},
		}
		sub.Flags().StringVar(&reason, "reason", "", "Reason recorded in the entry metadata")
		cmd.AddCommand(sub)
	}

	return cmd
}

func reconcileCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Reconciliation operations",
	}

	var limit int
	sweep := &cobra.Command{
		Use:   "sweep",
		Short: "Settle completed entries still missing their balance effect",
		RunE: func(cmd *cobra.Command, args []string) error {
			return newAPIClient(opts).call(cmd.OutOrStdout(), http.MethodPost, "/api/v1/reconciliation/sweep", map[string]int{"limit": limit})
		},
	}
	sweep.Flags().IntVar(&limit, "limit", 0, "Maximum entries to settle, 0 uses the server default")

	report := &cobra.Command{
		Use:   "report",
		Short: "Compare every account balance with its settled entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			return newAPIClient(opts).call(cmd.OutOrStdout(), http.MethodGet, "/api/v1/reconciliation/report", nil)
		},
	}

	account := &cobra.Command{
		Use:   "account <id>",
		Short: "Reconcile a single account",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return newAPIClient(opts).call(cmd.OutOrStdout(), http.MethodGet, "/api/v1/accounts/"+args[0]+"/reconciliation", nil)
		},
	}

	cmd.AddCommand(sweep, report, account)
	return cmd
}

func settingsCmd(opts *cliOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Rewards configuration",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "get",
		Short: "Show the rewards configuration in force",
		RunE: func(cmd *cobra.Command, args []string) error {
			return newAPIClient(opts).call(cmd.OutOrStdout(), http.MethodGet, "/api/v1/settings/rewards", nil)
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:     "set key=value...",
		Short:   "Override rewards settings",
		Example: "  rewardledger-cli settings set referral.max_level=3 referral.deposit.levels=1:5,2:2.5",
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values, err := parseAssignments(args)
			if err != nil {
				return err
			}
			return newAPIClient(opts).call(cmd.OutOrStdout(), http.MethodPut, "/api/v1/settings/rewards", map[string]any{"settings": values})
		},
	})

	return cmd
}

func migrateCmd() *cobra.Command {
	var (
		databaseURL string
		path        string
	)

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or roll back database migrations",
	}
	cmd.PersistentFlags().StringVar(&databaseURL, "database-url", os.Getenv("DATABASE_URL"), "PostgreSQL URL")
	cmd.PersistentFlags().StringVar(&path, "path", "", "Migrations directory, defaults to the embedded set")

	run := func(fn func(string, string, zerolog.Logger) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			if databaseURL == "" {
				return fmt.Errorf("--database-url or DATABASE_URL is required")
			}
			return fn(databaseURL, path, logger.New(logger.Config{Format: "console", Output: cmd.ErrOrStderr()}))
		}
	}

	cmd.AddCommand(
		&cobra.Command{Use: "up", Short: "Apply all pending migrations", RunE: run(migrateUp)},
		&cobra.Command{Use: "down", Short: "Roll back the last migration", RunE: run(migrateDown)},
	)

	return cmd
}

func parseAssignments(args []string) (map[string]string, error) {
	values := make(map[string]string, len(args))
	for _, arg := range args {
		key, value, ok := strings.Cut(arg, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("expected key=value, got %q", arg)
		}
		values[strings.TrimSpace(key)] = value
	}
	return values, nil
}

type apiClient struct {
	baseURL string
	http    *http.Client
}

func newAPIClient(opts *cliOptions) *apiClient {
	return &apiClient{
		baseURL: strings.TrimRight(opts.baseURL, "/"),
		http:    &http.Client{Timeout: opts.timeout},
	}
}

// call sends body as JSON and pretty-prints the response to out. Non-2xx
// responses are returned as errors carrying the server message.
func (c *apiClient) call(out io.Writer, method, path string, body any) error {
	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequest(method, c.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	return printJSON(out, payload)
}

func printJSON(out io.Writer, raw []byte) error {
	var buf bytes.Buffer
	if err := json.Indent(&buf, raw, "", "  "); err != nil {
		_, err = out.Write(raw)
		return err
	}
	buf.WriteByte('\n')
	_, err := buf.WriteTo(out)
	return err
}
