package main

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/arman/vod-catalog/internal/util"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "List records parked for manual review",
	Long: `List ambiguous records the resolver refused to merge automatically.
Each entry names the record, why it was parked, and the candidate
entities it could belong to. Use "vodcat review resolve <id>" once the
conflict has been handled.`,
	RunE: runReviewList,
}

var reviewResolveCmd = &cobra.Command{
	Use:   "resolve <entry id>",
	Short: "Mark a review entry as handled",
	Args:  cobra.ExactArgs(1),
	RunE:  runReviewResolve,
}

func init() {
	reviewCmd.Flags().Bool("all", false, "include already-resolved entries")
	reviewCmd.Flags().Int("limit", 100, "maximum entries to list")
	viper.BindPFlag("review.all", reviewCmd.Flags().Lookup("all"))
	viper.BindPFlag("review.limit", reviewCmd.Flags().Lookup("limit"))
	reviewCmd.AddCommand(reviewResolveCmd)
	rootCmd.AddCommand(reviewCmd)
}

func runReviewList(cmd *cobra.Command, args []string) error {
	applyLogLevel()
	ctx := context.Background()

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	entries, err := db.ListReviewEntries(ctx, viper.GetBool("review.all"), viper.GetInt("review.limit"))
	if err != nil {
		return fmt.Errorf("failed to list review entries: %w", err)
	}

	if len(entries) == 0 {
		util.SuccessLog("Review queue is empty")
		return nil
	}

	for _, e := range entries {
		status := "pending"
		if e.Resolved {
			status = "resolved"
		}

		fmt.Printf("#%d  [%s]  %s/%s  %q", e.ID, status, e.Platform, e.SourceID, e.RawTitle)
		if e.Year > 0 {
			fmt.Printf(" (%d)", e.Year)
		}
		fmt.Printf("  %s\n", humanize.Time(e.CreatedAt))
		fmt.Printf("    reason: %s\n", e.Reason)
		if len(e.CandidateIDs) > 0 {
			ids := make([]string, len(e.CandidateIDs))
			for i, id := range e.CandidateIDs {
				ids[i] = strconv.FormatInt(id, 10)
			}
			fmt.Printf("    candidates: %s\n", strings.Join(ids, ", "))
		}
		if e.Details != "" {
			fmt.Printf("    %s\n", e.Details)
		}
	}

	util.InfoLog("%d entries", len(entries))
	return nil
}

func runReviewResolve(cmd *cobra.Command, args []string) error {
	applyLogLevel()

	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil {
		return fmt.Errorf("invalid entry id %q", args[0])
	}

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	if err := db.ResolveReviewEntry(context.Background(), id); err != nil {
		return err
	}
	util.SuccessLog("Entry #%d marked resolved", id)
	return nil
}
