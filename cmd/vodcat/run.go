package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/arman/vod-catalog/internal/ingest"
	"github.com/arman/vod-catalog/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Ingest a feed directory on a fixed interval",
	Long: `Run continuous ingestion: every interval, all *.jsonl feeds in the feed
directory are resolved into the catalog. Feeds are re-read each cycle so
scrapers can overwrite them between runs.

A failing run logs the error and waits for the next tick; only an
interrupt stops the loop.`,
	RunE: runRun,
}

func init() {
	runCmd.Flags().String("feeds", "feeds", "directory of JSONL feed files")
	runCmd.Flags().Duration("interval", 0, "time between ingestion runs (e.g. 30m)")
	viper.BindPFlag("run.feeds", runCmd.Flags().Lookup("feeds"))
	viper.BindPFlag("run.interval", runCmd.Flags().Lookup("interval"))
	rootCmd.AddCommand(runCmd)
}

func runRun(cmd *cobra.Command, args []string) error {
	applyLogLevel()

	feedDir := viper.GetString("run.feeds")
	if _, err := os.Stat(feedDir); err != nil {
		return fmt.Errorf("feed directory unavailable: %w", err)
	}
	interval := viper.GetDuration("run.interval")

	db, err := openStore()
	if err != nil {
		return err
	}
	defer db.Close()

	cache := openCache()
	if cache != nil {
		defer cache.Close()
	}

	events := newEventLogger("")
	defer events.Close()

	resolver, err := buildResolver(db, cache, events)
	if err != nil {
		return err
	}
	ingester, err := buildIngester(resolver, events)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	util.InfoLog("Ingesting %s every %s (Ctrl-C to stop)", feedDir, interval)

	runner := ingest.NewRunner(ingester, db, interval)
	err = runner.Run(ctx, func() ([]ingest.Source, error) {
		return ingest.DirSources(feedDir)
	})
	if err == context.Canceled {
		util.InfoLog("Stopped")
		return nil
	}
	return err
}
