// Package cli implements the timeguardctl operator commands.
package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/timeguard/timeguard/internal/app"
	"github.com/timeguard/timeguard/internal/ledger"
	"github.com/timeguard/timeguard/internal/platform/db"
)

type exitError struct {
	code int
}

func (e exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

// NewRootCmd builds the timeguardctl command tree.
func NewRootCmd() *cobra.Command {
	var jsonOutput bool
	root := &cobra.Command{
		Use:           "timeguardctl",
		Short:         "Operator tooling for the TimeGuard audit ledger",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output in JSON format")

	root.AddCommand(&cobra.Command{
		Use:   "verify",
		Short: "Verify the audit ledger hash chain directly against the database",
		Long: `Verify replays every ledger entry from one database snapshot.

Exit status is 0 for an intact ledger, 10 when problems were found and 1 on
errors.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: slog.LevelWarn}))
			pool, err := db.New(cmd.Context(), cfg.PGDSN, 2)
			if err != nil {
				return err
			}
			defer pool.Close()
			verifier := ledger.NewVerifier(ledger.NewRepository(pool), logger)
			code := VerifyCommand(cmd.Context(), verifier, VerifyOptions{
				JSONOutput: jsonOutput,
				Stdout:     cmd.OutOrStdout(),
				Stderr:     cmd.ErrOrStderr(),
			})
			if code != ExitOK {
				return exitError{code: code}
			}
			return nil
		},
	})

	var requestedBy int64
	trigger := &cobra.Command{
		Use:   "trigger",
		Short: "Enqueue an audit:verify task for the worker",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			jobsCLI, err := NewJobsCLI(cfg.AsynqRedis())
			if err != nil {
				return err
			}
			defer jobsCLI.Close()
			info, err := jobsCLI.TriggerVerify(cmd.Context(), requestedBy)
			if errors.Is(err, ErrAlreadyQueued) {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), "a verification is already queued")
				return err
			}
			if err != nil {
				return err
			}
			if jsonOutput {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]string{"id": info.ID, "queue": info.Queue, "type": info.Type})
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "enqueued %s on %s (id %s)\n", info.Type, info.Queue, info.ID)
			return err
		},
	}
	trigger.Flags().Int64Var(&requestedBy, "actor", 0, "actor id recorded on the task")
	root.AddCommand(trigger)

	root.AddCommand(&cobra.Command{
		Use:   "queue",
		Short: "Show the background job queue state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := app.LoadConfig()
			if err != nil {
				return err
			}
			jobsCLI, err := NewJobsCLI(cfg.AsynqRedis())
			if err != nil {
				return err
			}
			defer jobsCLI.Close()
			stats, err := jobsCLI.InspectQueue(cmd.Context())
			if err != nil {
				return err
			}
			if jsonOutput {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(stats)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "queue %s: pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
				stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived)
			return err
		},
	})
	return root
}

// Execute runs the command tree and exits with its status.
func Execute(ctx context.Context) {
	err := NewRootCmd().ExecuteContext(ctx)
	if err == nil {
		return
	}
	var e exitError
	if errors.As(err, &e) {
		os.Exit(e.code)
	}
	fmt.Fprintln(os.Stderr, err.Error())
	os.Exit(ExitError)
}
