package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/arman/vod-catalog/internal/model"
	"github.com/arman/vod-catalog/internal/store"
	"github.com/arman/vod-catalog/internal/util"
)

type handler struct {
	store *store.Store
}

// EntityResponse is the wire shape of one catalog entity
type EntityResponse struct {
	ID           int64     `json:"id"`
	MediaType    string    `json:"media_type"`
	DisplayTitle string    `json:"display_title"`
	Year         int       `json:"year,omitempty"`
	ExternalID   string    `json:"external_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// SourceResponse is the wire shape of one platform listing
type SourceResponse struct {
	Platform   string    `json:"platform"`
	SourceID   string    `json:"source_id"`
	URL        string    `json:"url,omitempty"`
	RawTitle   string    `json:"raw_title"`
	FirstSeen  time.Time `json:"first_seen_at"`
	LastSeen   time.Time `json:"last_seen_at"`
}

// EntityDetailResponse is an entity with its listings and metadata
type EntityDetailResponse struct {
	EntityResponse
	Sources []SourceResponse `json:"sources"`
	Genres  []string         `json:"genres"`
	Credits []model.Credit   `json:"credits"`
}

// ErrorResponse is the wire shape of an API error
type ErrorResponse struct {
	Error string `json:"error"`
}

func entityResponse(e *store.Entity) EntityResponse {
	return EntityResponse{
		ID:           e.ID,
		MediaType:    string(e.MediaType),
		DisplayTitle: e.DisplayTitle,
		Year:         e.Year,
		ExternalID:   e.ExternalID,
		CreatedAt:    e.CreatedAt,
		UpdatedAt:    e.UpdatedAt,
	}
}

func (h *handler) health(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Ping(r.Context()); err != nil {
		respondJSONError(w, http.StatusServiceUnavailable, "store unreachable")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *handler) listMovies(w http.ResponseWriter, r *http.Request) {
	h.listEntities(w, r, model.MediaTypeMovie)
}

func (h *handler) listSeries(w http.ResponseWriter, r *http.Request) {
	h.listEntities(w, r, model.MediaTypeSeries)
}

func (h *handler) listEntities(w http.ResponseWriter, r *http.Request, mediaType model.MediaType) {
	q := r.URL.Query()

	year := 0
	if raw := q.Get("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "invalid year")
			return
		}
		year = parsed
	}
	limit := intParam(q.Get("limit"), 50, 500)
	offset := intParam(q.Get("offset"), 0, 1<<30)

	entities, err := h.store.ListEntities(r.Context(), mediaType, year, limit, offset)
	if err != nil {
		util.ErrorLog("Failed to list %s entities: %v", mediaType, err)
		respondJSONError(w, http.StatusInternalServerError, "failed to list entities")
		return
	}

	out := make([]EntityResponse, 0, len(entities))
	for _, e := range entities {
		out = append(out, entityResponse(e))
	}
	respondJSON(w, http.StatusOK, out)
}

func (h *handler) getEntity(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "invalid entity id")
		return
	}

	ctx := r.Context()
	entity, err := h.store.GetEntityByID(ctx, id)
	if errors.Is(err, util.ErrNotFound) {
		respondJSONError(w, http.StatusNotFound, "entity not found")
		return
	}
	if err != nil {
		util.ErrorLog("Failed to get entity %d: %v", id, err)
		respondJSONError(w, http.StatusInternalServerError, "failed to get entity")
		return
	}

	detail := EntityDetailResponse{
		EntityResponse: entityResponse(entity),
		Sources:        []SourceResponse{},
		Genres:         []string{},
		Credits:        []model.Credit{},
	}

	sources, err := h.store.SourcesFor(ctx, id)
	if err != nil {
		util.ErrorLog("Failed to load sources for entity %d: %v", id, err)
		respondJSONError(w, http.StatusInternalServerError, "failed to load sources")
		return
	}
	for _, s := range sources {
		detail.Sources = append(detail.Sources, SourceResponse{
			Platform:  s.Platform,
			SourceID:  s.SourceID,
			URL:       s.URL,
			RawTitle:  s.RawTitle,
			FirstSeen: s.FirstSeenAt,
			LastSeen:  s.LastSeenAt,
		})
	}

	if detail.Genres, err = h.store.GenresFor(ctx, id); err != nil {
		util.ErrorLog("Failed to load genres for entity %d: %v", id, err)
		respondJSONError(w, http.StatusInternalServerError, "failed to load genres")
		return
	}
	if detail.Genres == nil {
		detail.Genres = []string{}
	}
	if detail.Credits, err = h.store.CreditsFor(ctx, id); err != nil {
		util.ErrorLog("Failed to load credits for entity %d: %v", id, err)
		respondJSONError(w, http.StatusInternalServerError, "failed to load credits")
		return
	}
	if detail.Credits == nil {
		detail.Credits = []model.Credit{}
	}

	respondJSON(w, http.StatusOK, detail)
}

func (h *handler) getStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.GetStats(r.Context())
	if err != nil {
		util.ErrorLog("Failed to gather stats: %v", err)
		respondJSONError(w, http.StatusInternalServerError, "failed to gather stats")
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

func intParam(raw string, def, max int) int {
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return def
	}
	if v > max {
		return max
	}
	return v
}

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondJSONError sends a JSON error response
func respondJSONError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, ErrorResponse{Error: message})
}
