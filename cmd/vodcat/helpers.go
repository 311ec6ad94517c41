package main

import (
	"fmt"

	"github.com/arman/vod-catalog/internal/idcache"
	"github.com/arman/vod-catalog/internal/ingest"
	"github.com/arman/vod-catalog/internal/match"
	"github.com/arman/vod-catalog/internal/report"
	"github.com/arman/vod-catalog/internal/resolve"
	"github.com/arman/vod-catalog/internal/store"
	"github.com/arman/vod-catalog/internal/util"
	"github.com/spf13/viper"
)

// applyLogLevel sets console log verbosity from the global flags
func applyLogLevel() {
	util.SetVerbose(viper.GetBool("verbose"))
	util.SetQuiet(viper.GetBool("quiet"))
}

// openStore opens the catalog database named in the configuration
func openStore() (*store.Store, error) {
	dbPath := viper.GetString("db")
	util.InfoLog("Opening database: %s", dbPath)

	db, err := store.Open(dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return db, nil
}

// openCache opens the identity cache; a failure degrades to no caching
func openCache() *idcache.Cache {
	cachePath := viper.GetString("cache.db")
	cache, err := idcache.Open(cachePath)
	if err != nil {
		util.WarnLog("Identity cache unavailable, continuing without it: %v", err)
		return nil
	}
	return cache
}

// newEventLogger creates the JSONL event logger for one run
func newEventLogger(runID string) *report.EventLogger {
	logLevel := report.LevelInfo
	if viper.GetBool("quiet") {
		logLevel = report.LevelWarning
	} else if viper.GetBool("verbose") {
		logLevel = report.LevelDebug
	}

	logger, err := report.NewEventLogger("artifacts", logLevel, runID)
	if err != nil {
		util.WarnLog("Failed to create event logger: %v", err)
		return report.NullLogger()
	}
	if logger.Path() != "" {
		util.InfoLog("Event log: %s", logger.Path())
	}
	return logger
}

// buildResolver wires a resolver from the configuration
func buildResolver(db *store.Store, cache *idcache.Cache, events *report.EventLogger) (*resolve.Resolver, error) {
	matcher, err := match.New(match.Config{
		Threshold:     viper.GetFloat64("match.threshold"),
		TieMargin:     viper.GetFloat64("match.tie_margin"),
		YearTolerance: viper.GetInt("match.year_tolerance"),
	}, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid match configuration: %w", err)
	}

	return resolve.New(resolve.Config{
		Store:          db,
		Cache:          cache,
		Matcher:        matcher,
		Events:         events,
		CacheTTL:       viper.GetDuration("cache.ttl"),
		CandidateBound: viper.GetInt("candidates.bound"),
		YearTolerance:  viper.GetInt("match.year_tolerance"),
	})
}

// buildIngester wires an ingester with progress output
func buildIngester(resolver *resolve.Resolver, events *report.EventLogger) (*ingest.Ingester, error) {
	return ingest.New(&ingest.Config{
		Resolver:    resolver,
		Concurrency: viper.GetInt("concurrency"),
		Logger:      events,
		Progress:    true,
	})
}
