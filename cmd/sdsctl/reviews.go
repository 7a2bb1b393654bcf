package main

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/spf13/cobra"

	"github.com/solaius/sds-registry/pkg/sds"
)

type reviewList struct {
	Reviews   []sds.Review `json:"reviews"`
	TotalSize int          `json:"totalSize"`
}

var reviewsCmd = &cobra.Command{
	Use:     "reviews",
	Aliases: []string{"review", "rev"},
	Short:   "Drive the review workflow",
}

var reviewSubmitFlags struct {
	reviewer    string
	diffSummary string
}

var reviewSubmitCmd = &cobra.Command{
	Use:   "submit <document-id>",
	Short: "Submit a document for review",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if reviewSubmitFlags.reviewer == "" {
			return fmt.Errorf("--reviewer is required")
		}

		var review sds.Review
		err := newClient().postJSON("/api/v1/documents/"+args[0]+"/reviews", map[string]any{
			"reviewerId":  reviewSubmitFlags.reviewer,
			"diffSummary": reviewSubmitFlags.diffSummary,
		}, &review)
		if err != nil {
			return err
		}

		if outputFmt == "table" {
			fmt.Printf("Submitted review %s, assigned to %s\n", review.ID, review.ReviewerID)
			return nil
		}
		return printOutput(review)
	},
}

var reviewListFlags struct {
	status string
}

var reviewListCmd = &cobra.Command{
	Use:   "list <document-id>",
	Short: "List the review history of a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := url.Values{}
		if reviewListFlags.status != "" {
			query.Set("status", reviewListFlags.status)
		}

		var list reviewList
		if err := newClient().getJSON("/api/v1/documents/"+args[0]+"/reviews", query, &list); err != nil {
			return err
		}
		if outputFmt == "table" {
			printReviewTable(list.Reviews)
			return nil
		}
		return printOutput(list)
	},
}

var reviewPendingCmd = &cobra.Command{
	Use:   "pending <document-id>",
	Short: "Show the pending review of a document",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		var review sds.Review
		if err := newClient().getJSON("/api/v1/documents/"+args[0]+"/reviews/pending", nil, &review); err != nil {
			return err
		}
		if outputFmt == "table" {
			printReviewTable([]sds.Review{review})
			return nil
		}
		return printOutput(review)
	},
}

var reviewDecideFlags struct {
	comments      string
	changeRequest string
}

var reviewDecideCmd = &cobra.Command{
	Use:       "decide <review-id> <decision>",
	Short:     "Decide a pending review (approved, rejected, or changes_requested)",
	Args:      cobra.ExactArgs(2),
	ValidArgs: []string{"approved", "rejected", "changes_requested"},
	RunE: func(cmd *cobra.Command, args []string) error {
		decision := strings.ToLower(args[1])

		var review sds.Review
		err := newClient().postJSON("/api/v1/reviews/"+args[0]+"/decision", map[string]any{
			"decision":      decision,
			"comments":      reviewDecideFlags.comments,
			"changeRequest": reviewDecideFlags.changeRequest,
		}, &review)
		if err != nil {
			return err
		}

		if outputFmt == "table" {
			fmt.Printf("Review %s decided as %s\n", review.ID, review.Status)
			return nil
		}
		return printOutput(review)
	},
}

func printReviewTable(reviews []sds.Review) {
	rows := make([][]string, len(reviews))
	for i, r := range reviews {
		rows[i] = []string{
			r.ID,
			r.DocumentID,
			r.ReviewerID,
			string(r.Status),
			r.CreatedAt,
			r.CompletedAt,
		}
	}
	printTable([]string{"id", "document", "reviewer", "status", "created", "completed"}, rows)
}

func init() {
	reviewSubmitCmd.Flags().StringVar(&reviewSubmitFlags.reviewer, "reviewer", "", "Reviewer to assign (required)")
	reviewSubmitCmd.Flags().StringVar(&reviewSubmitFlags.diffSummary, "diff-summary", "", "Summary of the changes under review")

	reviewListCmd.Flags().StringVar(&reviewListFlags.status, "status", "", "Filter by review status")

	reviewDecideCmd.Flags().StringVar(&reviewDecideFlags.comments, "comments", "", "Reviewer comments")
	reviewDecideCmd.Flags().StringVar(&reviewDecideFlags.changeRequest, "change-request", "", "Requested changes (for changes_requested)")

	reviewsCmd.AddCommand(reviewSubmitCmd)
	reviewsCmd.AddCommand(reviewListCmd)
	reviewsCmd.AddCommand(reviewPendingCmd)
	reviewsCmd.AddCommand(reviewDecideCmd)
}
