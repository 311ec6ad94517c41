package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/arman/vod-catalog/internal/ingest"
	"github.com/arman/vod-catalog/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Ingest feed files dropped into a directory",
	Long: `Watch a drop directory and ingest each *.jsonl file as it appears.
Processed files are renamed with a .done suffix (.failed on error) so a
restart does not replay them. Files already present at startup are
processed first.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().String("dir", "drop", "directory to watch for feed files")
	viper.BindPFlag("watch.dir", watchCmd.Flags().Lookup("dir"))
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	applyLogLevel()

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

	watcher := ingest.NewWatcher(ingester, viper.GetString("watch.dir"))
	err = watcher.Watch(ctx)
	if err == context.Canceled {
		util.InfoLog("Stopped")
		return nil
	}
	return err
}
