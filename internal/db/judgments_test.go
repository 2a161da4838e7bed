package db

import (
	"errors"
	"testing"
	"time"
)

func TestRecordJudgmentCarriesPresentation(t *testing.T) {
	database := testDB(t)
	task := seedTask(t, database, "q1", 3)
	rater := seedRater(t, database, "alice")
	a := claimFor(t, database, rater.ID, task.ID)

	presentedAt := time.Now().UTC().Truncate(time.Second)
	j, err := database.RecordJudgment(rater.ID, task.ID, "right", 3, &presentedAt)
	if err != nil {
		t.Fatalf("recording judgment: %v", err)
	}

	// The judgment snapshots the assignment's blinded presentation, not
	// anything the caller supplied.
	if j.AssignmentID != a.ID {
		t.Errorf("assignment id = %s, want %s", j.AssignmentID, a.ID)
	}
	if j.LeftSystemID != a.LeftSystemID || j.RightSystemID != a.RightSystemID {
		t.Errorf("systems = (%s, %s), want (%s, %s)",
			j.LeftSystemID, j.RightSystemID, a.LeftSystemID, a.RightSystemID)
	}
	if j.RNGSeed != a.RNGSeed {
		t.Errorf("rng seed = %s, want %s", j.RNGSeed, a.RNGSeed)
	}

	stored, err := database.JudgmentsForTask(task.ID)
	if err != nil {
		t.Fatalf("listing judgments: %v", err)
	}
	if len(stored) != 1 {
		t.Fatalf("judgments = %d, want 1", len(stored))
	}
	if stored[0].Choice != "right" || stored[0].Confidence != 3 {
		t.Errorf("stored (%s, %d), want (right, 3)", stored[0].Choice, stored[0].Confidence)
	}
	if stored[0].PresentedAt == nil {
		t.Error("presented_at not stored")
	}
}

func TestRecordJudgmentWithoutClaim(t *testing.T) {
	database := testDB(t)
	task := seedTask(t, database, "q1", 3)
	rater := seedRater(t, database, "alice")

	_, err := database.RecordJudgment(rater.ID, task.ID, "left", 1, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestRecordJudgmentTwice(t *testing.T) {
	database := testDB(t)
	task := seedTask(t, database, "q1", 3)
	rater := seedRater(t, database, "alice")
	claimFor(t, database, rater.ID, task.ID)

	if _, err := database.RecordJudgment(rater.ID, task.ID, "left", 1, nil); err != nil {
		t.Fatalf("first submission: %v", err)
	}
	_, err := database.RecordJudgment(rater.ID, task.ID, "right", 3, nil)
	if !errors.Is(err, ErrCompleted) {
		t.Errorf("error = %v, want ErrCompleted", err)
	}

	// The losing submission left nothing behind.
	judgments, err := database.JudgmentsForTask(task.ID)
	if err != nil {
		t.Fatalf("listing judgments: %v", err)
	}
	if len(judgments) != 1 {
		t.Errorf("judgments = %d, want 1", len(judgments))
	}
	got, err := database.GetTask(task.ID)
	if err != nil {
		t.Fatalf("loading task: %v", err)
	}
	if got.CollectedJudgments != 1 {
		t.Errorf("collected = %d, want 1", got.CollectedJudgments)
	}
}
