package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/arman/vod-catalog/internal/report"
	"github.com/arman/vod-catalog/internal/resolve"
	"github.com/arman/vod-catalog/internal/util"
	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"
	"github.com/sourcegraph/conc/pool"
)

// Ingester runs scraped records from one or more sources through the
// resolver with a bounded worker pool
type Ingester struct {
	resolver    *resolve.Resolver
	concurrency int
	logger      *report.EventLogger
	progress    bool
}

// Config holds ingester configuration
type Config struct {
	Resolver    *resolve.Resolver
	Concurrency int
	Logger      *report.EventLogger
	Progress    bool // show a progress bar on a TTY
}

// New creates a new Ingester
func New(cfg *Config) (*Ingester, error) {
	if cfg.Resolver == nil {
		return nil, fmt.Errorf("%w: ingester requires a resolver", util.ErrInvalidConfig)
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 8
	}
	return &Ingester{
		resolver:    cfg.Resolver,
		concurrency: cfg.Concurrency,
		logger:      cfg.Logger,
		progress:    cfg.Progress,
	}, nil
}

// Result represents one ingestion run
type Result struct {
	RunID           string
	RecordsSeen     int
	EntitiesCreated int
	RecordsMatched  int
	SourcesCreated  int
	SourcesUpdated  int
	Upgrades        int
	Ambiguous       int
	Rejected        int
	Failed          int
	Duration        time.Duration
}

// Summary converts the run result into a report summary
func (r *Result) Summary() *report.RunSummary {
	return &report.RunSummary{
		RunID:           r.RunID,
		GeneratedAt:     time.Now(),
		Duration:        r.Duration,
		RecordsSeen:     r.RecordsSeen,
		EntitiesCreated: r.EntitiesCreated,
		RecordsMatched:  r.RecordsMatched,
		SourcesCreated:  r.SourcesCreated,
		SourcesUpdated:  r.SourcesUpdated,
		Upgrades:        r.Upgrades,
		Ambiguous:       r.Ambiguous,
		Rejected:        r.Rejected,
		Failed:          r.Failed,
	}
}

// Run fetches every source and resolves all records. A failing source is
// logged and skipped; the run continues with the remaining sources.
func (i *Ingester) Run(ctx context.Context, sources []Source) (*Result, error) {
	start := time.Now()
	result := &Result{RunID: uuid.NewString()}

	util.InfoLog("Starting ingestion run %s (%d sources, %d workers)",
		result.RunID, len(sources), i.concurrency)

	var created, matched, srcCreated, srcUpdated atomic.Int64
	var upgrades, ambiguous, rejected, failed atomic.Int64

	for _, src := range sources {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		records, err := src.Fetch(ctx)
		if err != nil {
			util.ErrorLog("Source %s failed: %v", src.Name(), err)
			i.logger.LogError(report.EventError, src.Name(), "", err)
			failed.Add(1)
			continue
		}

		util.InfoLog("Source %s: %d records", src.Name(), len(records))
		result.RecordsSeen += len(records)

		var bar *progressbar.ProgressBar
		if i.progress && util.IsTerminal(os.Stdout.Fd()) && !util.IsQuiet() {
			// leave room for the description and counters around the bar
			barWidth := min(40, max(10, util.TerminalWidth(os.Stdout.Fd(), 100)-60))
			bar = progressbar.NewOptions(len(records),
				progressbar.OptionSetDescription(fmt.Sprintf("Resolving %s", src.Name())),
				progressbar.OptionSetWidth(barWidth),
				progressbar.OptionShowCount(),
				progressbar.OptionShowIts(),
				progressbar.OptionSetItsString("records"),
				progressbar.OptionThrottle(200*time.Millisecond),
				progressbar.OptionClearOnFinish(),
			)
		}

		p := pool.New().WithMaxGoroutines(i.concurrency)
		for _, rec := range records {
			rec := rec
			p.Go(func() {
				if bar != nil {
					defer bar.Add(1)
				}
				if ctx.Err() != nil {
					return
				}

				res, err := i.resolver.Resolve(ctx, rec)
				if err != nil {
					// malformed input is rejected for good; anything else
					// (storage, retry exhaustion) gets another chance next cycle
					if errors.Is(err, util.ErrInvalidRecord) {
						rejected.Add(1)
						util.DebugLog("Rejected %s/%s: %v", rec.Platform, rec.SourceID, err)
					} else {
						failed.Add(1)
						util.WarnLog("Failed %s/%s: %v", rec.Platform, rec.SourceID, err)
						i.logger.LogError(report.EventError, rec.Platform, rec.SourceID, err)
					}
					return
				}

				switch res.Action {
				case resolve.ActionCreated:
					created.Add(1)
				case resolve.ActionMatched:
					matched.Add(1)
				case resolve.ActionParked:
					ambiguous.Add(1)
				}
				if res.SourceCreated {
					srcCreated.Add(1)
				} else if res.Action != resolve.ActionParked {
					srcUpdated.Add(1)
				}
				if res.ExternalAdopted {
					upgrades.Add(1)
				}
			})
		}
		p.Wait()

		if bar != nil {
			bar.Finish()
		}
	}

	result.EntitiesCreated = int(created.Load())
	result.RecordsMatched = int(matched.Load())
	result.SourcesCreated = int(srcCreated.Load())
	result.SourcesUpdated = int(srcUpdated.Load())
	result.Upgrades = int(upgrades.Load())
	result.Ambiguous = int(ambiguous.Load())
	result.Rejected = int(rejected.Load())
	result.Failed = int(failed.Load())
	result.Duration = time.Since(start)

	util.SuccessLog("Run %s complete: %d seen, %d created, %d matched, %d parked, %d rejected, %d failed in %s",
		result.RunID, result.RecordsSeen, result.EntitiesCreated, result.RecordsMatched,
		result.Ambiguous, result.Rejected, result.Failed, result.Duration.Round(time.Millisecond))

	return result, nil
}
