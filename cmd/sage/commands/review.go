package commands

import (
	"github.com/spf13/cobra"

	sagecontext "github.com/Ramsey-B/sage/pkg/context"
	"github.com/Ramsey-B/sage/pkg/models"
)

var (
	reviewStatus   string
	reviewLimit    int
	reviewReviewer string
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Work the pending link review queue",
}

var reviewListCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending links, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd.Context(), cfg, logger, false)
		if err != nil {
			return err
		}
		defer a.close(cmd.Context())

		links, err := a.review.List(cmd.Context(), reviewStatus, reviewLimit)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), links)
	},
}

var reviewApproveCmd = &cobra.Command{
	Use:   "approve <id>",
	Short: "Approve a pending link",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReview(cmd, args[0], models.PendingLinkStatusApproved)
	},
}

var reviewRejectCmd = &cobra.Command{
	Use:   "reject <id>",
	Short: "Reject a pending link",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runReview(cmd, args[0], models.PendingLinkStatusRejected)
	},
}

func init() {
	reviewListCmd.Flags().StringVar(&reviewStatus, "status", "pending", "filter by status, empty for all")
	reviewListCmd.Flags().IntVar(&reviewLimit, "limit", 50, "maximum links to list")
	reviewCmd.PersistentFlags().StringVar(&reviewReviewer, "reviewer", "cli", "name recorded on review events")

	reviewCmd.AddCommand(reviewListCmd, reviewApproveCmd, reviewRejectCmd)
}

func runReview(cmd *cobra.Command, id string, status models.PendingLinkStatus) error {
	a, err := newApp(cmd.Context(), cfg, logger, false)
	if err != nil {
		return err
	}
	defer a.close(cmd.Context())

	ctx := sagecontext.SetReviewer(cmd.Context(), reviewReviewer)

	var link *models.PendingLink
	if status == models.PendingLinkStatusApproved {
		link, err = a.review.Approve(ctx, id)
	} else {
		link, err = a.review.Reject(ctx, id)
	}
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), link)
}
