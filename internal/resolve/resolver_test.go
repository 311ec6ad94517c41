package resolve

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/arman/vod-catalog/internal/idcache"
	"github.com/arman/vod-catalog/internal/match"
	"github.com/arman/vod-catalog/internal/model"
	"github.com/arman/vod-catalog/internal/store"
)

func newTestResolver(t *testing.T) (*Resolver, *store.Store, *idcache.Cache) {
	t.Helper()

	dir := t.TempDir()
	db, err := store.Open(filepath.Join(dir, "catalog.db"))
	if err != nil {
		t.Fatalf("store.Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	cache, err := idcache.Open(filepath.Join(dir, "cache.db"))
	if err != nil {
		t.Fatalf("idcache.Open: %v", err)
	}
	t.Cleanup(func() { cache.Close() })

	matcher, err := match.New(match.DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("match.New: %v", err)
	}

	r, err := New(Config{
		Store:          db,
		Cache:          cache,
		Matcher:        matcher,
		CacheTTL:       time.Hour,
		CandidateBound: 100,
		YearTolerance:  1,
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r, db, cache
}

func record(platform, sourceID, title string, year int, extID string) model.ScrapedRecord {
	return model.ScrapedRecord{
		Platform:   platform,
		SourceID:   sourceID,
		Title:      title,
		Year:       year,
		ExternalID: extID,
		MediaType:  model.MediaTypeMovie,
	}
}

func TestResolveCreatesThenMatches(t *testing.T) {
	r, _, _ := newTestResolver(t)
	ctx := context.Background()

	first, err := r.Resolve(ctx, record("filimo", "m-1", "The Matrix", 1999, ""))
	if err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	if first.Action != ActionCreated {
		t.Fatalf("first action = %s, want created", first.Action)
	}
	if !first.SourceCreated {
		t.Error("first resolution did not create a source listing")
	}

	second, err := r.Resolve(ctx, record("namava", "n-7", "Matrix", 1999, ""))
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if second.Action != ActionMatched {
		t.Fatalf("second action = %s, want matched", second.Action)
	}
	if second.EntityID != first.EntityID {
		t.Fatalf("entity ids differ: %d vs %d", first.EntityID, second.EntityID)
	}
}

func TestResolveIdempotent(t *testing.T) {
	r, db, _ := newTestResolver(t)
	ctx := context.Background()
	rec := record("filimo", "m-1", "Inception", 2010, "tt1375666")

	first, err := r.Resolve(ctx, rec)
	if err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	for i := 0; i < 3; i++ {
		res, err := r.Resolve(ctx, rec)
		if err != nil {
			t.Fatalf("Resolve #%d: %v", i+2, err)
		}
		if res.EntityID != first.EntityID {
			t.Fatalf("Resolve #%d got entity %d, want %d", i+2, res.EntityID, first.EntityID)
		}
		if res.SourceCreated {
			t.Errorf("Resolve #%d created a duplicate source listing", i+2)
		}
	}

	var count int
	err = db.DB().QueryRow(`SELECT COUNT(*) FROM entities`).Scan(&count)
	if err != nil {
		t.Fatalf("count entities: %v", err)
	}
	if count != 1 {
		t.Fatalf("entity count = %d, want 1", count)
	}
}

func TestResolveMergesByExternalID(t *testing.T) {
	r, _, _ := newTestResolver(t)
	ctx := context.Background()

	// same IMDb id, wildly different titles: must merge
	first, err := r.Resolve(ctx, record("filimo", "m-1", "Amelie", 2001, "tt0211915"))
	if err != nil {
		t.Fatalf("first Resolve: %v", err)
	}
	second, err := r.Resolve(ctx, record("namava", "n-2", "Le Fabuleux Destin", 2001, "tt0211915"))
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if second.EntityID != first.EntityID {
		t.Fatalf("external id did not merge: entities %d and %d", first.EntityID, second.EntityID)
	}
	if second.Confidence != match.ConfidenceCertain {
		t.Errorf("confidence = %s, want certain", second.Confidence)
	}
}

func TestResolveUpgradesIdentity(t *testing.T) {
	r, db, _ := newTestResolver(t)
	ctx := context.Background()

	// first platform knows the title only
	first, err := r.Resolve(ctx, record("filimo", "m-1", "Parasite", 2019, ""))
	if err != nil {
		t.Fatalf("first Resolve: %v", err)
	}

	// second platform brings the external id
	second, err := r.Resolve(ctx, record("namava", "n-2", "Parasite", 2019, "tt6751668"))
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if second.EntityID != first.EntityID {
		t.Fatalf("expected a match, got entities %d and %d", first.EntityID, second.EntityID)
	}
	if !second.ExternalAdopted {
		t.Error("external id was not adopted")
	}

	entity, err := db.GetEntityByID(ctx, first.EntityID)
	if err != nil {
		t.Fatalf("GetEntityByID: %v", err)
	}
	if entity.ExternalID != "tt6751668" {
		t.Errorf("entity external id = %q, want tt6751668", entity.ExternalID)
	}

	// a third record with the same external id now matches by id
	third, err := r.Resolve(ctx, record("filimo", "m-9", "Gisaengchung", 2019, "tt6751668"))
	if err != nil {
		t.Fatalf("third Resolve: %v", err)
	}
	if third.EntityID != first.EntityID {
		t.Fatalf("post-upgrade lookup got entity %d, want %d", third.EntityID, first.EntityID)
	}
}

func TestResolveCacheIsNotAuthoritative(t *testing.T) {
	r, _, cache := newTestResolver(t)
	ctx := context.Background()
	rec := record("filimo", "m-1", "Heat", 1995, "")

	first, err := r.Resolve(ctx, rec)
	if err != nil {
		t.Fatalf("first Resolve: %v", err)
	}

	// wiping the cache must not change the outcome
	if err := cache.Clear(ctx); err != nil {
		t.Fatalf("cache.Clear: %v", err)
	}

	second, err := r.Resolve(ctx, rec)
	if err != nil {
		t.Fatalf("second Resolve: %v", err)
	}
	if second.EntityID != first.EntityID {
		t.Fatalf("after cache clear got entity %d, want %d", second.EntityID, first.EntityID)
	}
	if second.CacheHit {
		t.Error("reported a cache hit after the cache was cleared")
	}

	// third resolution should hit the warmed cache
	third, err := r.Resolve(ctx, rec)
	if err != nil {
		t.Fatalf("third Resolve: %v", err)
	}
	if !third.CacheHit {
		t.Error("expected a cache hit on the third resolution")
	}
	if third.EntityID != first.EntityID {
		t.Fatalf("cache hit resolved entity %d, want %d", third.EntityID, first.EntityID)
	}
}

func TestResolveCacheHitConfidence(t *testing.T) {
	r, _, _ := newTestResolver(t)
	ctx := context.Background()

	// a title-only record warms the composite key; the repeat hit is a
	// title-based identity, not an external-id one
	if _, err := r.Resolve(ctx, record("filimo", "m-1", "Heat", 1995, "")); err != nil {
		t.Fatalf("warm composite: %v", err)
	}
	res, err := r.Resolve(ctx, record("filimo", "m-1", "Heat", 1995, ""))
	if err != nil {
		t.Fatalf("composite repeat: %v", err)
	}
	if !res.CacheHit {
		t.Fatal("expected a composite-key cache hit")
	}
	if res.Confidence != match.ConfidenceHigh {
		t.Errorf("composite cache hit confidence = %s, want high", res.Confidence)
	}

	// an external-id record warms the external key; only that hit is certain
	if _, err := r.Resolve(ctx, record("filimo", "m-2", "Inception", 2010, "tt1375666")); err != nil {
		t.Fatalf("warm external: %v", err)
	}
	res, err = r.Resolve(ctx, record("filimo", "m-2", "Inception", 2010, "tt1375666"))
	if err != nil {
		t.Fatalf("external repeat: %v", err)
	}
	if !res.CacheHit {
		t.Fatal("expected an external-key cache hit")
	}
	if res.Confidence != match.ConfidenceCertain {
		t.Errorf("external cache hit confidence = %s, want certain", res.Confidence)
	}
}

func TestResolveStaleCacheEntryFallsThrough(t *testing.T) {
	r, _, cache := newTestResolver(t)
	ctx := context.Background()
	rec := record("filimo", "m-1", "Alien", 1979, "")

	// poison the cache with an entity id that does not exist
	cache.Store(ctx, "title:alien|1979|movie", 99999, time.Hour)

	res, err := r.Resolve(ctx, rec)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if res.Action != ActionCreated {
		t.Fatalf("action = %s, want created", res.Action)
	}
	if res.EntityID == 99999 {
		t.Error("resolver trusted a stale cache entry")
	}
}

func TestResolveParksAmbiguousRecords(t *testing.T) {
	r, db, _ := newTestResolver(t)
	ctx := context.Background()

	// same title either side of the incoming year; the fuzzy rule
	// cannot split them
	if _, err := r.Resolve(ctx, record("filimo", "m-1", "Nightfall", 2017, "")); err != nil {
		t.Fatalf("seed 1: %v", err)
	}
	if _, err := r.Resolve(ctx, record("filimo", "m-2", "Nightfall", 2019, "")); err != nil {
		t.Fatalf("seed 2: %v", err)
	}

	res, err := r.Resolve(ctx, record("namava", "n-3", "Nightfall", 2018, ""))
	if err != nil {
		t.Fatalf("ambiguous Resolve: %v", err)
	}
	if res.Action != ActionParked {
		t.Fatalf("action = %s, want parked", res.Action)
	}
	if res.ReviewEntryID == 0 {
		t.Error("no review entry id recorded")
	}

	entries, err := db.ListReviewEntries(ctx, false, 10)
	if err != nil {
		t.Fatalf("ListReviewEntries: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("review queue has %d entries, want 1", len(entries))
	}
	if entries[0].Reason != store.ReviewReasonFuzzyTie {
		t.Errorf("review reason = %q, want %q", entries[0].Reason, store.ReviewReasonFuzzyTie)
	}
}

func TestResolveRejectsInvalidRecords(t *testing.T) {
	r, _, _ := newTestResolver(t)
	ctx := context.Background()

	if _, err := r.Resolve(ctx, record("filimo", "", "No Source ID", 2020, "")); err == nil {
		t.Error("expected error for record without source id")
	}
	if _, err := r.Resolve(ctx, record("filimo", "m-1", "", 2020, "")); err == nil {
		t.Error("expected error for record without title")
	}
	if _, err := r.Resolve(ctx, record("filimo", "m-2", "[1080p]", 2020, "")); err == nil {
		t.Error("expected error for title that normalizes to nothing")
	}
}
