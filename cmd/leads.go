package cmd

import (
	"errors"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/JakeFAU/law-leads-crawler/internal/dispatcher"
	"github.com/JakeFAU/law-leads-crawler/internal/lead"
)

func newRetryCmd() *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "retry [apollo_id...]",
		Short: "Return failed leads to pending",
		Long:  "Moves the named failed leads, or with --all every failed lead, back to pending so the next run picks them up.",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 && !all {
				return errors.New("name at least one apollo_id or pass --all")
			}
			if len(args) > 0 && all {
				return errors.New("--all can not be combined with apollo_ids")
			}
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			n, err := appInstance.GetLeads().ResetFailed(cmd.Context(), args)
			if err != nil {
				return fmt.Errorf("retry failed leads: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reset %d failed leads to pending\n", n)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "retry every failed lead")
	return cmd
}

func newResetStaleCmd() *cobra.Command {
	var olderThan time.Duration
	cmd := &cobra.Command{
		Use:   "reset-stale",
		Short: "Return abandoned in_progress leads to pending",
		Long: `Resets leads whose claim is older than --older-than (worker.stale_after by
default). Only use a value larger than the per-candidate timeout, or leads still
being crawled will be handed out twice.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			if olderThan <= 0 {
				olderThan = appInstance.GetConfig().Worker.StaleAfter
			}
			reaper := dispatcher.NewReaper(appInstance.GetLeads(), olderThan, 0, appInstance.GetLogger())
			n, err := reaper.ReapOnce(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "reset %d stale leads to pending\n", n)
			return nil
		},
	}
	cmd.Flags().DurationVar(&olderThan, "older-than", 0, "claim age after which a lead counts as abandoned")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show lead counts per processing status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			appInstance, err := resolveApp(cmd.Context())
			if err != nil {
				return err
			}
			counts, err := appInstance.GetLeads().CountByStatus(cmd.Context())
			if err != nil {
				return fmt.Errorf("count leads: %w", err)
			}
			return printCounts(cmd, counts)
		},
	}
}

func printCounts(cmd *cobra.Command, counts lead.StatusCounts) error {
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	var total int64
	for _, st := range lead.Statuses {
		fmt.Fprintf(tw, "%s\t%d\n", st, counts[st])
		total += counts[st]
	}
	fmt.Fprintf(tw, "total\t%d\n", total)
	return tw.Flush()
}
