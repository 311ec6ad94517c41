package main

import (
	"context"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show catalog-wide counts",
	RunE:  runStats,
}

func init() {
	rootCmd.AddCommand(statsCmd)
}

func runStats(cmd *cobra.Command, args []string) error {
	applyLogLevel()
	ctx := context.Background()

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	stats, err := db.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to gather stats: %w", err)
	}

	fmt.Printf("Catalog: %s\n\n", viper.GetString("db"))
	fmt.Printf("  Movies:            %s\n", humanize.Comma(stats.Movies))
	fmt.Printf("  Series:            %s\n", humanize.Comma(stats.Series))
	fmt.Printf("  With external id:  %s\n", humanize.Comma(stats.WithExternalID))
	fmt.Printf("  Source listings:   %s\n", humanize.Comma(stats.Sources))
	fmt.Printf("  Genres:            %s\n", humanize.Comma(stats.Genres))
	fmt.Printf("  Credits:           %s\n", humanize.Comma(stats.Credits))
	if stats.PendingReviews > 0 {
		fmt.Printf("  Pending reviews:   %s\n", humanize.Comma(stats.PendingReviews))
	}

	return nil
}
