package arena

import (
	"errors"
	"testing"
)

func TestRecorderValidation(t *testing.T) {
	database := testDB(t)
	seedArena(t, database)
	materialize(t, database, 3)
	rec := NewRecorder(database)

	alice := registerRater(t, database, "alice")
	payload, err := NewScheduler(database).Next(alice.ID)
	if err != nil {
		t.Fatalf("claiming: %v", err)
	}

	var verr *ValidationError
	if _, err := rec.Submit(alice.ID, payload.TaskID, "maybe", 2, nil); !errors.As(err, &verr) {
		t.Errorf("bad choice error = %v, want ValidationError", err)
	}
	if _, err := rec.Submit(alice.ID, payload.TaskID, ChoiceLeft, 0, nil); !errors.As(err, &verr) {
		t.Errorf("low confidence error = %v, want ValidationError", err)
	}
	if _, err := rec.Submit(alice.ID, payload.TaskID, ChoiceLeft, 4, nil); !errors.As(err, &verr) {
		t.Errorf("high confidence error = %v, want ValidationError", err)
	}

	// Valid submission still works after the rejections.
	if _, err := rec.Submit(alice.ID, payload.TaskID, ChoiceLeft, 2, nil); err != nil {
		t.Fatalf("valid submission: %v", err)
	}
}

func TestRecorderDoubleSubmit(t *testing.T) {
	database := testDB(t)
	seedArena(t, database)
	materialize(t, database, 3)
	rec := NewRecorder(database)

	alice := registerRater(t, database, "alice")
	payload, err := NewScheduler(database).Next(alice.ID)
	if err != nil {
		t.Fatalf("claiming: %v", err)
	}
	if _, err := rec.Submit(alice.ID, payload.TaskID, ChoiceRight, 3, nil); err != nil {
		t.Fatalf("first submission: %v", err)
	}
	if _, err := rec.Submit(alice.ID, payload.TaskID, ChoiceLeft, 1, nil); !errors.Is(err, ErrAlreadySubmitted) {
		t.Errorf("second submission error = %v, want ErrAlreadySubmitted", err)
	}
}

func TestRecorderUnclaimedTask(t *testing.T) {
	database := testDB(t)
	seedArena(t, database)
	materialize(t, database, 3)

	alice := registerRater(t, database, "alice")
	_, err := NewRecorder(database).Submit(alice.ID, "no-such-task", ChoiceTie, 1, nil)
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}

func TestRecorderProgress(t *testing.T) {
	database := testDB(t)
	seedArena(t, database)
	materialize(t, database, 3)
	rec := NewRecorder(database)

	rater, err := database.CreateRater("alice", 2, 3)
	if err != nil {
		t.Fatalf("creating rater: %v", err)
	}
	payload, err := NewScheduler(database).Next(rater.ID)
	if err != nil {
		t.Fatalf("claiming: %v", err)
	}
	if _, err := rec.Submit(rater.ID, payload.TaskID, ChoiceLeft, 2, nil); err != nil {
		t.Fatalf("submitting: %v", err)
	}

	p, err := rec.Progress(rater.ID)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	if p.Assigned != 1 || p.Completed != 1 {
		t.Errorf("progress = %+v, want assigned 1 completed 1", p)
	}
	if !p.CanContinue {
		t.Error("rater below total cap cannot continue")
	}
}
