package arena

import (
	"errors"
	"log/slog"
	"time"

	"github.com/hazyhaar/songarena/internal/db"
)

// Valid judgment choices and confidence bounds.
const (
	ChoiceLeft  = "left"
	ChoiceRight = "right"
	ChoiceTie   = "tie"

	MinConfidence = 1
	MaxConfidence = 3
)

// Recorder persists rater decisions. The store does the whole submission
// as one transaction, so a judgment can never exist without its assignment
// completion and counter advance.
type Recorder struct {
	db *db.DB
}

func NewRecorder(database *db.DB) *Recorder {
	return &Recorder{db: database}
}

// Submit records a judgment for the rater's claim on taskID. The choice
// and confidence are validated here; the blinded presentation comes from
// the assignment row, not from the caller.
func (r *Recorder) Submit(raterID, taskID, choice string, confidence int, presentedAt *time.Time) (*db.Judgment, error) {
	switch choice {
	case ChoiceLeft, ChoiceRight, ChoiceTie:
	default:
		return nil, &ValidationError{Field: "choice", Msg: "must be left, right or tie"}
	}
	if confidence < MinConfidence || confidence > MaxConfidence {
		return nil, &ValidationError{Field: "confidence", Msg: "must be between 1 and 3"}
	}

	j, err := r.db.RecordJudgment(raterID, taskID, choice, confidence, presentedAt)
	switch {
	case errors.Is(err, db.ErrNotFound):
		return nil, ErrNotFound
	case errors.Is(err, db.ErrCompleted):
		return nil, ErrAlreadySubmitted
	case errors.Is(err, db.ErrTaskFull):
		// Reachable only when an expired claim freed a slot that has since
		// been refilled; the submission loses, nothing was recorded.
		return nil, ErrConflict
	case err != nil:
		return nil, err
	}

	slog.Info("judgment recorded",
		"rater", raterID, "task", taskID,
		"choice", choice, "confidence", confidence)
	return j, nil
}

// RaterProgress is the per-rater view for the rating UI.
type RaterProgress struct {
	Assigned    int  `json:"assigned"`
	Completed   int  `json:"completed"`
	SoftCap     int  `json:"soft_cap"`
	TotalCap    int  `json:"total_cap"`
	CanContinue bool `json:"can_continue"`
}

// Progress reports a rater's assignment counts against its caps.
func (r *Recorder) Progress(raterID string) (*RaterProgress, error) {
	rater, err := r.db.GetRater(raterID)
	if errors.Is(err, db.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	total, completed, err := r.db.CountAssignments(raterID)
	if err != nil {
		return nil, err
	}
	p := &RaterProgress{
		Assigned:  total,
		Completed: completed,
		SoftCap:   rater.SoftCap,
		TotalCap:  rater.TotalCap,
	}
	p.CanContinue = rater.TotalCap == 0 || total < rater.TotalCap
	return p, nil
}
