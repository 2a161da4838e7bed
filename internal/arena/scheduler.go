package arena

import (
	"errors"
	"fmt"
	"log/slog"
	mathrand "math/rand/v2"
	"sort"

	"github.com/hazyhaar/songarena/internal/db"
)

// maxClaimAttempts bounds the select-then-claim retry loop. Each lost
// attempt means a concurrent request took the slot, so the pool shrinks;
// the bound only guards against pathological churn.
const maxClaimAttempts = 16

// Scheduler serves the next rateable task to a rater. Stateless: every
// call is a self-contained sequence of store operations, and the claim
// itself is a single guarded insert.
type Scheduler struct {
	db *db.DB
}

func NewScheduler(database *db.DB) *Scheduler {
	return &Scheduler{db: database}
}

// TaskPayload is what the rating UI receives. It exposes track identifiers
// and list positions only — never system identity. Metadata resolution is
// the catalog collaborator's job.
type TaskPayload struct {
	TaskID         string   `json:"task_id"`
	QueryID        string   `json:"query_id"`
	QueryType      string   `json:"query_type"`
	QueryText      *string  `json:"query_text,omitempty"`
	SeedTrackID    *string  `json:"seed_track_id,omitempty"`
	Genres         []string `json:"genres,omitempty"`
	Era            *string  `json:"era,omitempty"`
	LeftList       []string `json:"left_list"`
	RightList      []string `json:"right_list"`
	IsPractice     bool     `json:"is_practice"`
	SoftCapReached bool     `json:"soft_cap_reached,omitempty"`
}

// Next selects, claims and blinds the next task for a rater.
//
// Selection ranks open tasks by fill level after accounting for claims in
// flight (most underfilled first), then by least-recent assignment across
// all raters, breaking remaining ties with a fresh uniform draw. Tasks the
// rater already holds or completed, and tasks whose in-flight claims
// already cover the remaining need, are excluded by the store query.
//
// Returns ErrCapacityExceeded at total_cap, ErrNoTasks when nothing is
// eligible, and ErrConflict only if every claim attempt lost its race.
func (s *Scheduler) Next(raterID string) (*TaskPayload, error) {
	rater, err := s.db.GetRater(raterID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	total, _, err := s.db.CountAssignments(raterID)
	if err != nil {
		return nil, err
	}
	if rater.TotalCap > 0 && total >= rater.TotalCap {
		return nil, ErrCapacityExceeded
	}
	softCapReached := rater.SoftCap > 0 && total >= rater.SoftCap
	if softCapReached {
		slog.Warn("rater past soft cap", "rater", raterID, "assignments", total, "soft_cap", rater.SoftCap)
	}

	pol, err := s.db.GetActivePolicy()
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNoActivePolicy
	}
	if err != nil {
		return nil, err
	}

	for attempt := 0; attempt < maxClaimAttempts; attempt++ {
		cands, err := s.db.EligibleTasks(raterID)
		if err != nil {
			return nil, err
		}
		if len(cands) == 0 {
			return nil, ErrNoTasks
		}

		task := pickTask(cands)
		payload, err := s.claim(rater.ID, pol.Version, task)
		if errors.Is(err, db.ErrClaimLost) {
			continue // a concurrent request won the slot; reselect
		}
		if err != nil {
			return nil, err
		}
		payload.SoftCapReached = softCapReached
		return payload, nil
	}
	return nil, ErrConflict
}

// pickTask orders scheduler candidates and returns the winner. Shuffling
// before the stable sort makes the final tie-break a uniform draw, fresh
// for this request.
func pickTask(cands []db.EligibleTask) *db.EligibleTask {
	mathrand.Shuffle(len(cands), func(i, j int) {
		cands[i], cands[j] = cands[j], cands[i]
	})
	sort.SliceStable(cands, func(i, j int) bool {
		fi := fillLevel(&cands[i])
		fj := fillLevel(&cands[j])
		if fi != fj {
			return fi < fj
		}
		return lessAssigned(cands[i].LastAssigned, cands[j].LastAssigned)
	})
	return &cands[0]
}

// fillLevel is the task's coverage counting claims in flight; lower means
// more underfilled.
func fillLevel(t *db.EligibleTask) float64 {
	return float64(t.CollectedJudgments+t.InFlight) / float64(t.TargetJudgments)
}

// lessAssigned orders by last assignment recency, never-assigned first.
// The datetime text from the store compares chronologically.
func lessAssigned(a, b *string) bool {
	if a == nil {
		return b != nil
	}
	if b == nil {
		return false
	}
	return *a < *b
}

func (s *Scheduler) claim(raterID, policyVersion string, task *db.EligibleTask) (*TaskPayload, error) {
	pair, err := s.db.GetPair(task.PairID)
	if err != nil {
		return nil, fmt.Errorf("loading pair %s: %w", task.PairID, err)
	}
	listA, err := s.db.GetFinalList(policyVersion, pair.SystemA, task.QueryID)
	if err != nil {
		return nil, fmt.Errorf("loading final list %s/%s: %w", pair.SystemA, task.QueryID, err)
	}
	listB, err := s.db.GetFinalList(policyVersion, pair.SystemB, task.QueryID)
	if err != nil {
		return nil, fmt.Errorf("loading final list %s/%s: %w", pair.SystemB, task.QueryID, err)
	}

	seed := newBlindingSeed()
	leftSys, rightSys, leftList, rightList := blind(seed, pair.SystemA, pair.SystemB, listA.FinalOrder, listB.FinalOrder)

	err = s.db.ClaimTask(&db.TaskAssignment{
		RaterID:       raterID,
		TaskID:        task.ID,
		RNGSeed:       seed,
		LeftSystemID:  leftSys,
		RightSystemID: rightSys,
		LeftList:      leftList,
		RightList:     rightList,
	})
	if err != nil {
		return nil, err
	}

	q, err := s.db.GetQuery(task.QueryID)
	if err != nil {
		return nil, fmt.Errorf("loading query %s: %w", task.QueryID, err)
	}

	return &TaskPayload{
		TaskID:      task.ID,
		QueryID:     q.ID,
		QueryType:   q.QueryType,
		QueryText:   q.QueryText,
		SeedTrackID: q.SeedTrackID,
		Genres:      q.Genres,
		Era:         q.Era,
		LeftList:    leftList,
		RightList:   rightList,
		IsPractice:  task.IsPractice,
	}, nil
}
