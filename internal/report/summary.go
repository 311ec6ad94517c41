package report

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/arman/vod-catalog/internal/store"
)

// RunSummary represents a complete summary of one ingestion run
type RunSummary struct {
	RunID       string
	GeneratedAt time.Time
	Duration    time.Duration

	// Per-run counters
	RecordsSeen     int
	EntitiesCreated int
	RecordsMatched  int
	SourcesCreated  int
	SourcesUpdated  int
	Upgrades        int
	Ambiguous       int
	Rejected        int
	Failed          int

	// Catalog totals after the run
	Catalog store.Stats

	// Metadata
	DatabasePath string
	EventLogPath string
}

// GatherRunSummary fills a summary's catalog totals from the store
func GatherRunSummary(ctx context.Context, db *store.Store, summary *RunSummary) error {
	stats, err := db.GetStats(ctx)
	if err != nil {
		return fmt.Errorf("failed to gather catalog stats: %w", err)
	}
	summary.Catalog = *stats
	if summary.GeneratedAt.IsZero() {
		summary.GeneratedAt = time.Now()
	}
	return nil
}

// WriteMarkdownReport writes the run summary as Markdown
func WriteMarkdownReport(summary *RunSummary, outputPath string) error {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	var md strings.Builder

	md.WriteString("# Catalog Ingestion - Run Summary\n\n")
	md.WriteString(fmt.Sprintf("**Generated:** %s\n\n", summary.GeneratedAt.Format("2006-01-02 15:04:05")))
	if summary.RunID != "" {
		md.WriteString(fmt.Sprintf("**Run:** `%s`\n\n", summary.RunID))
	}
	if summary.DatabasePath != "" {
		md.WriteString(fmt.Sprintf("**Database:** `%s`\n\n", summary.DatabasePath))
	}
	if summary.EventLogPath != "" {
		md.WriteString(fmt.Sprintf("**Event Log:** `%s`\n\n", summary.EventLogPath))
	}

	md.WriteString("---\n\n")

	md.WriteString("## Run\n\n")
	md.WriteString("| Metric | Value |\n")
	md.WriteString("|--------|-------|\n")
	md.WriteString(fmt.Sprintf("| Records Seen | %d |\n", summary.RecordsSeen))
	md.WriteString(fmt.Sprintf("| Entities Created | %d |\n", summary.EntitiesCreated))
	md.WriteString(fmt.Sprintf("| Matched to Existing | %d |\n", summary.RecordsMatched))
	md.WriteString(fmt.Sprintf("| Source Listings Created | %d |\n", summary.SourcesCreated))
	md.WriteString(fmt.Sprintf("| Source Listings Updated | %d |\n", summary.SourcesUpdated))
	if summary.Upgrades > 0 {
		md.WriteString(fmt.Sprintf("| Identity Upgrades | %d |\n", summary.Upgrades))
	}
	if summary.Ambiguous > 0 {
		md.WriteString(fmt.Sprintf("| Parked for Review | %d |\n", summary.Ambiguous))
	}
	if summary.Rejected > 0 {
		md.WriteString(fmt.Sprintf("| Rejected | %d |\n", summary.Rejected))
	}
	if summary.Failed > 0 {
		md.WriteString(fmt.Sprintf("| Failed | %d |\n", summary.Failed))
	}
	if summary.Duration > 0 {
		md.WriteString(fmt.Sprintf("| Duration | %s |\n", summary.Duration.Round(time.Millisecond)))
	}
	md.WriteString("\n")

	md.WriteString("## Catalog\n\n")
	md.WriteString("| Metric | Value |\n")
	md.WriteString("|--------|-------|\n")
	md.WriteString(fmt.Sprintf("| Movies | %d |\n", summary.Catalog.Movies))
	md.WriteString(fmt.Sprintf("| Series | %d |\n", summary.Catalog.Series))
	md.WriteString(fmt.Sprintf("| With External ID | %d |\n", summary.Catalog.WithExternalID))
	md.WriteString(fmt.Sprintf("| Source Listings | %d |\n", summary.Catalog.Sources))
	md.WriteString(fmt.Sprintf("| Genres | %d |\n", summary.Catalog.Genres))
	md.WriteString(fmt.Sprintf("| Credits | %d |\n", summary.Catalog.Credits))
	if summary.Catalog.PendingReviews > 0 {
		md.WriteString(fmt.Sprintf("| Pending Reviews | %d |\n", summary.Catalog.PendingReviews))
	}
	md.WriteString("\n")

	if err := os.WriteFile(outputPath, []byte(md.String()), 0644); err != nil {
		return fmt.Errorf("failed to write report: %w", err)
	}

	return nil
}
