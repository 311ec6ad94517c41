package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/arman/vod-catalog/internal/idcache"
	"github.com/arman/vod-catalog/internal/match"
	"github.com/arman/vod-catalog/internal/model"
	"github.com/arman/vod-catalog/internal/normalize"
	"github.com/arman/vod-catalog/internal/report"
	"github.com/arman/vod-catalog/internal/store"
	"github.com/arman/vod-catalog/internal/util"
)

// Action describes what the resolver did with a record
type Action string

const (
	ActionCreated Action = "created" // new entity created
	ActionMatched Action = "matched" // linked to an existing entity
	ActionParked  Action = "parked"  // ambiguous, queued for manual review
)

// Result is the outcome of resolving one scraped record
type Result struct {
	Action          Action
	EntityID        int64
	Confidence      match.Confidence
	Score           float64
	SourceCreated   bool
	ExternalAdopted bool
	CacheHit        bool
	ReviewEntryID   int64 // set when Action is ActionParked
}

// Config wires a Resolver's collaborators and policy
type Config struct {
	Store          *store.Store
	Cache          *idcache.Cache // optional; nil disables caching
	Matcher        *match.Matcher
	Events         *report.EventLogger // optional
	CacheTTL       time.Duration
	CandidateBound int
	YearTolerance  int
	Retry          *util.RetryConfig
}

// Resolver decides, for each scraped record, which catalog entity it
// belongs to, creating one when nothing matches. Safe for concurrent use.
type Resolver struct {
	cfg Config
}

// New creates a Resolver. Store and Matcher are required.
func New(cfg Config) (*Resolver, error) {
	if cfg.Store == nil {
		return nil, fmt.Errorf("%w: resolver requires a store", util.ErrInvalidConfig)
	}
	if cfg.Matcher == nil {
		return nil, fmt.Errorf("%w: resolver requires a matcher", util.ErrInvalidConfig)
	}
	if cfg.CandidateBound <= 0 {
		cfg.CandidateBound = 100
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = 2 * time.Hour
	}
	if cfg.Retry == nil {
		cfg.Retry = util.DefaultRetryConfig()
	}
	return &Resolver{cfg: cfg}, nil
}

// Resolve runs one record through the full pipeline: validate, normalize,
// consult the identity cache, retrieve candidates, decide, persist, and
// refresh the cache. The cache is advisory only; every hit is revalidated
// against the store before use.
func (r *Resolver) Resolve(ctx context.Context, rec model.ScrapedRecord) (*Result, error) {
	start := time.Now()

	if err := rec.Validate(); err != nil {
		r.cfg.Events.LogReject(rec.Platform, rec.SourceID, rec.Title, err.Error())
		return nil, err
	}

	key, err := normalize.Normalize(rec)
	if err != nil {
		r.cfg.Events.LogReject(rec.Platform, rec.SourceID, rec.Title, err.Error())
		return nil, err
	}

	result, err := r.resolveKey(ctx, rec, key)
	if err != nil {
		return nil, err
	}

	if result.Action != ActionParked {
		r.cacheIdentity(ctx, key, result.EntityID)
		r.cfg.Events.LogResolve(rec.Platform, rec.SourceID, rec.Title,
			result.EntityID, string(result.Confidence), time.Since(start))
	}

	return result, nil
}

func (r *Resolver) resolveKey(ctx context.Context, rec model.ScrapedRecord, key normalize.Key) (*Result, error) {
	if entityID, confidence, ok := r.lookupCache(ctx, key); ok {
		// a cache hit is a hint, not an answer; the entity must still exist
		entity, err := r.cfg.Store.GetEntityByID(ctx, entityID)
		if err == nil {
			return r.persistMatch(ctx, rec, key, entity, confidence, 0, true)
		}
		if !errors.Is(err, util.ErrNotFound) {
			return nil, err
		}
		r.invalidateCache(ctx, key)
	}

	candidates, err := util.RetryWithBackoff(ctx, r.cfg.Retry, func() ([]*store.Entity, error) {
		return r.cfg.Store.CandidatesForKey(ctx, key, r.cfg.CandidateBound, r.cfg.YearTolerance)
	}, "retrieve candidates")
	if errors.Is(err, util.ErrAmbiguous) {
		return r.park(ctx, rec, key, store.ReviewReasonDuplicateExternalID, nil, err.Error())
	}
	if err != nil {
		return nil, err
	}

	decision, err := r.cfg.Matcher.Match(key, candidates)
	if errors.Is(err, util.ErrAmbiguous) {
		ids := make([]int64, 0, len(candidates))
		for _, c := range candidates {
			ids = append(ids, c.ID)
		}
		return r.park(ctx, rec, key, store.ReviewReasonFuzzyTie, ids, err.Error())
	}
	if err != nil {
		return nil, err
	}

	if decision.Outcome == match.OutcomeCreateNew {
		return r.createEntity(ctx, rec, key)
	}

	entity, err := r.cfg.Store.GetEntityByID(ctx, decision.EntityID)
	if err != nil {
		return nil, fmt.Errorf("matched entity %d vanished: %w", decision.EntityID, err)
	}

	r.cfg.Events.LogMatch(rec.Platform, rec.SourceID, rec.Title,
		entity.ID, string(decision.Confidence), decision.Score, decision.Reason)

	return r.persistMatch(ctx, rec, key, entity, decision.Confidence, decision.Score, false)
}

// createEntity creates a new entity, or adopts one another worker created
// first. The storage constraint decides the winner; losing the race just
// turns the create into a match.
func (r *Resolver) createEntity(ctx context.Context, rec model.ScrapedRecord, key normalize.Key) (*Result, error) {
	var created bool
	entity, err := util.RetryWithBackoff(ctx, r.cfg.Retry, func() (*store.Entity, error) {
		e, c, err := r.cfg.Store.GetOrCreateEntity(ctx, key, rec.Title)
		if err == nil {
			created = c
		}
		return e, err
	}, "get-or-create entity")
	if err != nil {
		return nil, err
	}

	if created {
		r.cfg.Events.LogCreate(rec.Platform, rec.SourceID, rec.Title, entity.ID)
	}

	confidence := match.ConfidenceNone
	if !created {
		confidence = match.ConfidenceHigh
	}
	result, err := r.persistMatch(ctx, rec, key, entity, confidence, 0, false)
	if err != nil {
		return nil, err
	}
	if created {
		result.Action = ActionCreated
	}
	return result, nil
}

// persistMatch writes the record's listing and metadata under the given
// entity, upgrading the entity's identity when the record carries an
// external id the entity lacks.
func (r *Resolver) persistMatch(ctx context.Context, rec model.ScrapedRecord, key normalize.Key, entity *store.Entity, confidence match.Confidence, score float64, cacheHit bool) (*Result, error) {
	upgradeID := ""
	if key.ExternalID != "" && entity.ExternalID == "" {
		upgradeID = key.ExternalID
	}

	outcome, err := util.RetryWithBackoff(ctx, r.cfg.Retry, func() (*store.PersistOutcome, error) {
		return r.cfg.Store.PersistResolution(ctx, entity.ID, rec, upgradeID)
	}, "persist resolution")
	if errors.Is(err, util.ErrConflict) {
		// another entity claimed this external id while we were deciding:
		// keep the listing without the upgrade and park the conflict
		r.cfg.Events.LogUpgrade(entity.ID, upgradeID, false)
		if _, perr := r.cfg.Store.PersistResolution(ctx, entity.ID, rec, ""); perr != nil {
			return nil, perr
		}
		return r.park(ctx, rec, key, store.ReviewReasonUpgradeConflict, []int64{entity.ID}, err.Error())
	}
	if err != nil {
		return nil, err
	}

	if upgradeID != "" {
		r.cfg.Events.LogUpgrade(entity.ID, upgradeID, outcome.ExternalAdopted)
	}
	r.cfg.Events.LogSource(rec.Platform, rec.SourceID, entity.ID, outcome.SourceCreated)

	return &Result{
		Action:          ActionMatched,
		EntityID:        entity.ID,
		Confidence:      confidence,
		Score:           score,
		SourceCreated:   outcome.SourceCreated,
		ExternalAdopted: outcome.ExternalAdopted,
		CacheHit:        cacheHit,
	}, nil
}

// park queues a record for manual review instead of guessing
func (r *Resolver) park(ctx context.Context, rec model.ScrapedRecord, key normalize.Key, reason string, candidateIDs []int64, details string) (*Result, error) {
	r.cfg.Events.LogAmbiguous(rec.Platform, rec.SourceID, rec.Title, details)

	entryID, err := r.cfg.Store.AddReviewEntry(ctx, rec, reason, candidateIDs, details)
	if err != nil {
		return nil, fmt.Errorf("failed to park %s/%s for review: %w", rec.Platform, rec.SourceID, err)
	}

	util.WarnLog("parked %s/%s (%s) for review: %s",
		rec.Platform, rec.SourceID, strings.TrimSpace(rec.Title), reason)

	return &Result{Action: ActionParked, ReviewEntryID: entryID}, nil
}

// lookupCache consults both cache keys, preferring the external-id key.
// The returned confidence reflects which key hit: external-id equality is
// certain, a title-based composite hit is only high.
func (r *Resolver) lookupCache(ctx context.Context, key normalize.Key) (int64, match.Confidence, bool) {
	if r.cfg.Cache == nil {
		return 0, match.ConfidenceNone, false
	}
	if key.ExternalID != "" {
		if id, ok := r.cfg.Cache.Lookup(ctx, key.ExternalKey()); ok {
			r.cfg.Events.LogCacheHit(key.ExternalKey(), id, true)
			return id, match.ConfidenceCertain, true
		}
	}
	if id, ok := r.cfg.Cache.Lookup(ctx, key.CompositeKey()); ok {
		r.cfg.Events.LogCacheHit(key.CompositeKey(), id, true)
		return id, match.ConfidenceHigh, true
	}
	return 0, match.ConfidenceNone, false
}

// cacheIdentity records both lookup keys after a successful resolution.
// Best effort; the store remains the only authority.
func (r *Resolver) cacheIdentity(ctx context.Context, key normalize.Key, entityID int64) {
	if r.cfg.Cache == nil {
		return
	}
	r.cfg.Cache.Store(ctx, key.CompositeKey(), entityID, r.cfg.CacheTTL)
	if key.ExternalID != "" {
		r.cfg.Cache.Store(ctx, key.ExternalKey(), entityID, r.cfg.CacheTTL)
	}
}

func (r *Resolver) invalidateCache(ctx context.Context, key normalize.Key) {
	if r.cfg.Cache == nil {
		return
	}
	r.cfg.Cache.Invalidate(ctx, key.CompositeKey())
	if key.ExternalID != "" {
		r.cfg.Cache.Invalidate(ctx, key.ExternalKey())
	}
}
