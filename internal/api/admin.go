package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/hazyhaar/songarena/internal/arena"
	"github.com/hazyhaar/songarena/internal/db"
)

// uploadError reports a rejected item in a batch upload. Valid items in the
// same batch are still applied.
type uploadError struct {
	Index int    `json:"index"`
	ID    string `json:"id,omitempty"`
	Error string `json:"error"`
}

// handleUploadQueries ingests evaluation queries in bulk.
// POST /api/admin/queries [{"id","type","text","track_id","genres","era","is_practice"}]
func (a *API) handleUploadQueries(w http.ResponseWriter, r *http.Request) {
	var items []struct {
		ID         string   `json:"id"`
		Type       string   `json:"type"`
		Text       *string  `json:"text,omitempty"`
		TrackID    *string  `json:"track_id,omitempty"`
		Genres     []string `json:"genres,omitempty"`
		Era        *string  `json:"era,omitempty"`
		IsPractice bool     `json:"is_practice,omitempty"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&items); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	var (
		created, existing int
		errs              []uploadError
	)
	for i, it := range items {
		if msg := validateQueryUpload(it.ID, it.Type, it.Text, it.TrackID); msg != "" {
			errs = append(errs, uploadError{Index: i, ID: it.ID, Error: msg})
			continue
		}
		inserted, err := a.db.CreateQuery(&db.Query{
			ID:          it.ID,
			QueryType:   it.Type,
			QueryText:   it.Text,
			SeedTrackID: it.TrackID,
			Genres:      it.Genres,
			Era:         it.Era,
			IsPractice:  it.IsPractice,
		})
		if err != nil {
			errs = append(errs, uploadError{Index: i, ID: it.ID, Error: "store error"})
			continue
		}
		if inserted {
			created++
		} else {
			existing++
		}
	}
	jsonResp(w, http.StatusOK, map[string]any{
		"created":  created,
		"existing": existing,
		"errors":   errs,
	})
}

func validateQueryUpload(id, qtype string, text, trackID *string) string {
	if id == "" {
		return "id is required"
	}
	switch qtype {
	case "text":
		if text == nil || *text == "" {
			return "text query requires text"
		}
		if trackID != nil {
			return "text query must not carry track_id"
		}
	case "song":
		if trackID == nil || *trackID == "" {
			return "song query requires track_id"
		}
		if text != nil {
			return "song query must not carry text"
		}
	default:
		return "type must be text or song"
	}
	return ""
}

// handleMarkPractice flags a query (and its tasks) as practice.
// POST /api/admin/queries/{id}/practice
func (a *API) handleMarkPractice(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	err := a.db.MarkPractice(id)
	if errors.Is(err, db.ErrNotFound) {
		jsonError(w, "unknown query", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	jsonResp(w, http.StatusOK, map[string]string{"query_id": id, "status": "practice"})
}

// handleUploadTracks refreshes the track catalog used for artist identity.
// POST /api/admin/tracks [{"id","artist_id","artist_name","title"}]
func (a *API) handleUploadTracks(w http.ResponseWriter, r *http.Request) {
	var items []db.Track
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&items); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	var (
		valid []db.Track
		errs  []uploadError
	)
	for i, t := range items {
		if t.ID == "" || t.ArtistID == "" {
			errs = append(errs, uploadError{Index: i, ID: t.ID, Error: "id and artist_id are required"})
			continue
		}
		valid = append(valid, t)
	}
	if err := a.db.UpsertTracks(valid); err != nil {
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	jsonResp(w, http.StatusOK, map[string]any{
		"upserted": len(valid),
		"errors":   errs,
	})
}

// handleUploadCandidates ingests ranked candidate lists, one item per
// (system, query). Each list replaces any earlier upload for the same key.
// POST /api/admin/candidates
// [{"system_id","dataset_id","config","query_id","candidates":[{"track_id","score","rank"}]}]
func (a *API) handleUploadCandidates(w http.ResponseWriter, r *http.Request) {
	var items []struct {
		SystemID   string          `json:"system_id"`
		DatasetID  string          `json:"dataset_id"`
		Config     json.RawMessage `json:"config,omitempty"`
		QueryID    string          `json:"query_id"`
		Candidates []db.Candidate  `json:"candidates"`
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize)).Decode(&items); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}

	var (
		stored int
		errs   []uploadError
	)
	for i, it := range items {
		if msg := validateCandidateUpload(it.SystemID, it.QueryID, it.Candidates); msg != "" {
			errs = append(errs, uploadError{Index: i, ID: it.SystemID + "/" + it.QueryID, Error: msg})
			continue
		}
		if _, err := a.db.GetQuery(it.QueryID); errors.Is(err, db.ErrNotFound) {
			errs = append(errs, uploadError{Index: i, ID: it.SystemID + "/" + it.QueryID, Error: "unknown query"})
			continue
		} else if err != nil {
			errs = append(errs, uploadError{Index: i, ID: it.SystemID + "/" + it.QueryID, Error: "store error"})
			continue
		}
		cfg := "{}"
		if len(it.Config) > 0 {
			cfg = string(it.Config)
		}
		if err := a.db.UpsertSystem(it.SystemID, it.DatasetID, cfg); err != nil {
			errs = append(errs, uploadError{Index: i, ID: it.SystemID, Error: "store error"})
			continue
		}
		if err := a.db.ReplaceCandidates(it.SystemID, it.QueryID, it.Candidates); err != nil {
			errs = append(errs, uploadError{Index: i, ID: it.SystemID + "/" + it.QueryID, Error: "store error"})
			continue
		}
		stored++
	}
	jsonResp(w, http.StatusOK, map[string]any{
		"stored": stored,
		"errors": errs,
	})
}

func validateCandidateUpload(systemID, queryID string, cands []db.Candidate) string {
	if systemID == "" || queryID == "" {
		return "system_id and query_id are required"
	}
	if len(cands) == 0 {
		return "candidates must be non-empty"
	}
	for i, c := range cands {
		if c.TrackID == "" {
			return fmt.Sprintf("candidate %d missing track_id", i)
		}
		if c.Rank != i+1 {
			return fmt.Sprintf("ranks must be dense from 1, got %d at position %d", c.Rank, i)
		}
	}
	return ""
}

// handleSetPolicy registers a new policy version and activates it.
// POST /api/admin/policy {"version","final_k","max_per_artist","exclude_seed_artist","retrieval_depth_k"}
func (a *API) handleSetPolicy(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Version           string `json:"version"`
		FinalK            int    `json:"final_k"`
		MaxPerArtist      int    `json:"max_per_artist"`
		ExcludeSeedArtist bool   `json:"exclude_seed_artist"`
		RetrievalDepthK   int    `json:"retrieval_depth_k"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Version == "" {
		jsonError(w, "version is required", http.StatusBadRequest)
		return
	}
	if req.FinalK < 1 || req.RetrievalDepthK < 1 || req.MaxPerArtist < 1 {
		jsonError(w, "final_k, max_per_artist and retrieval_depth_k must be >= 1", http.StatusBadRequest)
		return
	}
	if req.RetrievalDepthK < req.FinalK {
		jsonError(w, "retrieval_depth_k must be >= final_k", http.StatusBadRequest)
		return
	}

	pol := &db.Policy{
		Version:           req.Version,
		FinalK:            req.FinalK,
		MaxPerArtist:      req.MaxPerArtist,
		ExcludeSeedArtist: req.ExcludeSeedArtist,
		RetrievalDepthK:   req.RetrievalDepthK,
	}
	err := a.db.SetActivePolicy(pol)
	if errors.Is(err, db.ErrDuplicate) {
		jsonError(w, "policy version already exists", http.StatusConflict)
		return
	}
	if err != nil {
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	jsonResp(w, http.StatusCreated, pol)
}

// handleActivatePolicy re-activates an existing policy version.
// POST /api/admin/policy/{version}/activate
func (a *API) handleActivatePolicy(w http.ResponseWriter, r *http.Request) {
	version := r.PathValue("version")
	err := a.db.ActivatePolicy(version)
	if errors.Is(err, db.ErrNotFound) {
		jsonError(w, "unknown policy version", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	jsonResp(w, http.StatusOK, map[string]string{"version": version, "status": "active"})
}

// handleMaterialize runs the full pipeline for the active policy: final
// lists, pairs, tasks. Idempotent; safe to re-run after new uploads.
// POST /api/admin/materialize
func (a *API) handleMaterialize(w http.ResponseWriter, r *http.Request) {
	m := arena.NewMaterializer(a.db, a.arenaCfg.TargetJudgments)
	res, err := m.Run()
	if errors.Is(err, arena.ErrNoActivePolicy) {
		jsonError(w, "no active policy", http.StatusConflict)
		return
	}
	if err != nil {
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	jsonResp(w, http.StatusOK, res)
}

// handleStats returns arena-wide counters.
// GET /api/admin/stats
func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	s, err := a.db.Stats()
	if err != nil {
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	jsonResp(w, http.StatusOK, s)
}

// handlePairProgress returns per-pair coverage.
// GET /api/admin/progress/pairs
func (a *API) handlePairProgress(w http.ResponseWriter, r *http.Request) {
	rows, err := a.db.ProgressByPair()
	if err != nil {
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	jsonResp(w, http.StatusOK, map[string]any{"pairs": rows})
}

// handleQueryProgress returns per-query coverage.
// GET /api/admin/progress/queries
func (a *API) handleQueryProgress(w http.ResponseWriter, r *http.Request) {
	rows, err := a.db.ProgressByQuery()
	if err != nil {
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	jsonResp(w, http.StatusOK, map[string]any{"queries": rows})
}

// handleSetRaterCaps adjusts a rater's assignment caps. Zero disables a cap.
// POST /api/admin/raters/{id}/caps {"soft_cap","total_cap"}
func (a *API) handleSetRaterCaps(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	var req struct {
		SoftCap  int `json:"soft_cap"`
		TotalCap int `json:"total_cap"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.SoftCap < 0 || req.TotalCap < 0 {
		jsonError(w, "caps must be >= 0", http.StatusBadRequest)
		return
	}
	err := a.db.SetRaterCaps(id, req.SoftCap, req.TotalCap)
	if errors.Is(err, db.ErrNotFound) {
		jsonError(w, "unknown rater", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	jsonResp(w, http.StatusOK, map[string]any{"rater_id": id, "soft_cap": req.SoftCap, "total_cap": req.TotalCap})
}

// handleExpireAssignments drops uncompleted claims older than the TTL,
// freeing their scheduling slots. The TTL comes from the request body or
// falls back to the configured claim_ttl_min.
// POST /api/admin/assignments/expire {"ttl_minutes": 30}
func (a *API) handleExpireAssignments(w http.ResponseWriter, r *http.Request) {
	var req struct {
		TTLMinutes int `json:"ttl_minutes"`
	}
	if r.Body != nil {
		// Empty body means "use the configured TTL".
		_ = json.NewDecoder(r.Body).Decode(&req)
	}
	ttl := req.TTLMinutes
	if ttl <= 0 {
		ttl = a.arenaCfg.ClaimTTLMin
	}
	if ttl <= 0 {
		jsonError(w, "ttl_minutes required (claim expiry not configured)", http.StatusBadRequest)
		return
	}

	n, err := a.db.ExpireStaleAssignments(time.Duration(ttl) * time.Minute)
	if err != nil {
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	jsonResp(w, http.StatusOK, map[string]any{"expired": n, "ttl_minutes": ttl})
}
