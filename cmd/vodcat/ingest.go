package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/arman/vod-catalog/internal/ingest"
	"github.com/arman/vod-catalog/internal/report"
	"github.com/arman/vod-catalog/internal/util"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [feed files or directories]",
	Short: "Resolve scraped feed files into the catalog",
	Long: `Ingest one or more JSONL feed files (or directories of them) and resolve
every record to a canonical entity.

Each feed file holds one scraped record per line. When a directory is
given, every *.jsonl file in it becomes one source named after the file.
Re-ingesting the same feed is safe: records resolve to the same entities
and listings are refreshed, not duplicated.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().String("platform", "", "override the platform name for all given feeds")
	ingestCmd.Flags().String("summary", "", "write a Markdown run summary to this path")
	viper.BindPFlag("ingest.platform", ingestCmd.Flags().Lookup("platform"))
	viper.BindPFlag("ingest.summary", ingestCmd.Flags().Lookup("summary"))
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	applyLogLevel()
	ctx := context.Background()

	sources, err := collectSources(args, viper.GetString("ingest.platform"))
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return fmt.Errorf("no feed files found in %s", strings.Join(args, ", "))
	}

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

	result, err := ingester.Run(ctx, sources)
	if err != nil {
		return fmt.Errorf("ingestion failed: %w", err)
	}

	if summaryPath := viper.GetString("ingest.summary"); summaryPath != "" {
		summary := result.Summary()
		summary.Duration = result.Duration
		summary.DatabasePath = viper.GetString("db")
		summary.EventLogPath = events.Path()
		if err := report.GatherRunSummary(ctx, db, summary); err != nil {
			util.WarnLog("Failed to gather catalog stats for summary: %v", err)
		}
		if err := report.WriteMarkdownReport(summary, summaryPath); err != nil {
			util.WarnLog("Failed to write summary: %v", err)
		} else {
			util.InfoLog("Run summary: %s", summaryPath)
		}
	}

	if result.Ambiguous > 0 {
		util.WarnLog("%d records parked for review; run: vodcat review", result.Ambiguous)
	}
	util.InfoLog("Total time: %v", result.Duration.Round(time.Millisecond))

	return nil
}

// collectSources expands the command arguments into feed sources
func collectSources(args []string, platformOverride string) ([]ingest.Source, error) {
	var sources []ingest.Source
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot read %s: %w", arg, err)
		}
		if info.IsDir() {
			dirSources, err := ingest.DirSources(arg)
			if err != nil {
				return nil, err
			}
			sources = append(sources, dirSources...)
			continue
		}

		platform := platformOverride
		if platform == "" {
			platform = strings.TrimSuffix(filepath.Base(arg), ".jsonl")
		}
		sources = append(sources, ingest.NewFileSource(arg, platform))
	}
	return sources, nil
}
