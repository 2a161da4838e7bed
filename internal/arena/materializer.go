package arena

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/hazyhaar/songarena/internal/db"
	"github.com/hazyhaar/songarena/internal/policy"
)

// Materializer turns uploaded raw data into rateable tasks: final lists
// under the active policy, canonical system pairs, and (query, pair) task
// rows. Safe to re-run after partial failure — every write is an
// idempotent upsert and task counters are never reset.
type Materializer struct {
	db              *db.DB
	targetJudgments int
}

func NewMaterializer(database *db.DB, targetJudgments int) *Materializer {
	return &Materializer{db: database, targetJudgments: targetJudgments}
}

// MaterializationResult reports what one run produced. Errors are
// per-combination: a failing (system, query) never aborts the batch.
type MaterializationResult struct {
	PolicyVersion   string   `json:"policy_version"`
	FinalLists      int      `json:"final_lists"`
	Pairs           int      `json:"pairs"`
	Tasks           int      `json:"tasks"`
	Errors          []string `json:"errors,omitempty"`
	SkippedNoLists  int      `json:"skipped_no_lists"`
	ShortFinalLists int      `json:"short_final_lists"`
}

// Run executes the full pipeline: final lists, then pairs, then tasks.
// Single-writer by design; concurrent raters only ever read its outputs.
func (m *Materializer) Run() (*MaterializationResult, error) {
	pol, err := m.db.GetActivePolicy()
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNoActivePolicy
	}
	if err != nil {
		return nil, err
	}

	res := &MaterializationResult{PolicyVersion: pol.Version}

	if err := m.materializeFinalLists(pol, res); err != nil {
		return nil, err
	}
	if err := m.materializePairs(res); err != nil {
		return nil, err
	}
	if err := m.materializeTasks(pol, res); err != nil {
		return nil, err
	}

	slog.Info("materialization complete",
		"policy", pol.Version,
		"final_lists", res.FinalLists,
		"pairs", res.Pairs,
		"tasks", res.Tasks,
		"errors", len(res.Errors))
	return res, nil
}

func (m *Materializer) materializeFinalLists(pol *db.Policy, res *MaterializationResult) error {
	systems, err := m.db.ListSystemIDs("")
	if err != nil {
		return fmt.Errorf("listing systems: %w", err)
	}
	queries, err := m.db.ListQueries()
	if err != nil {
		return fmt.Errorf("listing queries: %w", err)
	}

	cfg := policy.Config{
		Version:           pol.Version,
		FinalK:            pol.FinalK,
		MaxPerArtist:      pol.MaxPerArtist,
		ExcludeSeedArtist: pol.ExcludeSeedArtist,
		RetrievalDepthK:   pol.RetrievalDepthK,
	}

	for _, q := range queries {
		qc, err := m.queryContext(&q)
		if err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("query %s: %v", q.ID, err))
			continue
		}
		for _, systemID := range systems {
			if err := m.materializeOne(cfg, qc, systemID, &q, res); err != nil {
				res.Errors = append(res.Errors, fmt.Sprintf("%s/%s: %v", systemID, q.ID, err))
			}
		}
	}
	return nil
}

func (m *Materializer) materializeOne(cfg policy.Config, qc policy.QueryContext, systemID string, q *db.Query, res *MaterializationResult) error {
	raw, err := m.db.ListCandidates(systemID, q.ID)
	if err != nil {
		return err
	}
	if len(raw) == 0 {
		res.SkippedNoLists++
		return nil
	}

	trackIDs := make([]string, len(raw))
	for i, c := range raw {
		trackIDs[i] = c.TrackID
	}
	artists, err := m.db.TrackArtists(trackIDs)
	if err != nil {
		return err
	}

	cands := make([]policy.Candidate, len(raw))
	for i, c := range raw {
		cands[i] = policy.Candidate{
			TrackID:  c.TrackID,
			ArtistID: artists[c.TrackID],
			Rank:     c.Rank,
			Score:    c.Score,
		}
	}

	out := policy.Apply(cands, cfg, qc)
	if len(out.FinalList) < cfg.FinalK {
		res.ShortFinalLists++
		slog.Warn("final list short of final_k",
			"system", systemID, "query", q.ID,
			"got", len(out.FinalList), "want", cfg.FinalK,
			"depth_scanned", out.DepthScanned)
	}

	err = m.db.UpsertFinalList(&db.FinalList{
		PolicyVersion: cfg.Version,
		SystemID:      systemID,
		QueryID:       q.ID,
		FinalOrder:    out.FinalList,
		FilterCounts:  out.FilterCounts,
		DepthScanned:  out.DepthScanned,
	})
	if err != nil {
		return err
	}
	res.FinalLists++
	return nil
}

func (m *Materializer) queryContext(q *db.Query) (policy.QueryContext, error) {
	qc := policy.QueryContext{QueryType: q.QueryType}
	if q.QueryType != "song" || q.SeedTrackID == nil {
		return qc, nil
	}
	qc.SeedTrackID = *q.SeedTrackID
	seed, err := m.db.GetTrack(*q.SeedTrackID)
	if errors.Is(err, db.ErrNotFound) {
		// Seed not in the catalog: seed-artist exclusion cannot apply, the
		// seed track id itself is still excluded.
		return qc, nil
	}
	if err != nil {
		return qc, err
	}
	qc.SeedArtistID = seed.ArtistID
	return qc, nil
}

func (m *Materializer) materializePairs(res *MaterializationResult) error {
	systems, err := m.db.ListSystemIDs("")
	if err != nil {
		return err
	}
	for i, a := range systems {
		for _, b := range systems[i+1:] {
			_, created, err := m.db.UpsertPair(a, b)
			if err != nil {
				return fmt.Errorf("pair %s/%s: %w", a, b, err)
			}
			if created {
				res.Pairs++
			}
		}
	}
	return nil
}

func (m *Materializer) materializeTasks(pol *db.Policy, res *MaterializationResult) error {
	queries, err := m.db.ListQueries()
	if err != nil {
		return err
	}
	pairs, err := m.db.ListPairs()
	if err != nil {
		return err
	}

	for _, q := range queries {
		for _, p := range pairs {
			okA, err := m.db.HasFinalList(pol.Version, p.SystemA, q.ID)
			if err != nil {
				return err
			}
			okB, err := m.db.HasFinalList(pol.Version, p.SystemB, q.ID)
			if err != nil {
				return err
			}
			if !okA || !okB {
				res.SkippedNoLists++
				continue
			}
			created, err := m.db.UpsertTask(q.ID, p.ID, m.targetJudgments, q.IsPractice)
			if err != nil {
				return fmt.Errorf("task %s/%s: %w", q.ID, p.ID, err)
			}
			if created {
				res.Tasks++
			}
		}
	}
	return nil
}
