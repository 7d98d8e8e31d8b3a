package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/vertti/checkgate/pkg/checkrun"
	"github.com/vertti/checkgate/pkg/output"
)

// ErrChecksNotSettled is returned by status when runs are pending or failed.
var ErrChecksNotSettled = errors.New("checks have not all passed")

var statusTarget targetFlags

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the check runs of a commit and what wait would decide",
	Long: `Fetch the check runs of a commit once and print them with the resulting
verdict. Exits 0 when the checks passed or there is nothing to wait on.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusTarget.register(statusCmd.Flags())
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, _ []string) error {
	s, err := newSession(cmd.Context(), cmd, &statusTarget, nil)
	if err != nil {
		return err
	}

	snapshot, err := s.fetcher.Fetch(s.ctx, s.cfg.Owner, s.cfg.Repo, s.cfg.Ref)
	if err != nil {
		return err
	}
	filter := s.cfg.PollConfig().Filter
	if err := output.PrintRuns(cmd.OutOrStdout(), snapshot, filter); err != nil {
		return err
	}

	switch verdict, _ := checkrun.Aggregate(snapshot, filter); verdict {
	case checkrun.VerdictSuccess, checkrun.VerdictNoWork:
		return nil
	default:
		return ErrChecksNotSettled
	}
}
