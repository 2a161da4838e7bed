package db

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestUpsertTaskPreservesCounters(t *testing.T) {
	database := testDB(t)
	task := seedTask(t, database, "q1", 3)

	rater := seedRater(t, database, "alice")
	claimFor(t, database, rater.ID, task.ID)
	if _, err := database.RecordJudgment(rater.ID, task.ID, "left", 2, nil); err != nil {
		t.Fatalf("recording judgment: %v", err)
	}

	// Re-running materialization must not reset progress or target.
	created, err := database.UpsertTask(task.QueryID, task.PairID, 5, false)
	if err != nil {
		t.Fatalf("re-upserting task: %v", err)
	}
	if created {
		t.Error("re-upsert created a duplicate task")
	}

	got, err := database.GetTask(task.ID)
	if err != nil {
		t.Fatalf("loading task: %v", err)
	}
	if got.CollectedJudgments != 1 {
		t.Errorf("collected = %d, want 1", got.CollectedJudgments)
	}
	if got.TargetJudgments != 3 {
		t.Errorf("target = %d, want 3 (unchanged)", got.TargetJudgments)
	}
}

func TestTaskClosesExactlyAtTarget(t *testing.T) {
	database := testDB(t)
	task := seedTask(t, database, "q1", 2)

	for i, handle := range []string{"alice", "bob"} {
		rater := seedRater(t, database, handle)
		claimFor(t, database, rater.ID, task.ID)
		if _, err := database.RecordJudgment(rater.ID, task.ID, "tie", 1, nil); err != nil {
			t.Fatalf("judgment %d: %v", i+1, err)
		}
	}

	got, err := database.GetTask(task.ID)
	if err != nil {
		t.Fatalf("loading task: %v", err)
	}
	if !got.Done {
		t.Error("task not done at target")
	}
	if got.CollectedJudgments != 2 {
		t.Errorf("collected = %d, want 2", got.CollectedJudgments)
	}

	// A closed task is invisible to the scheduler.
	carol := seedRater(t, database, "carol")
	eligible, err := database.EligibleTasks(carol.ID)
	if err != nil {
		t.Fatalf("eligible tasks: %v", err)
	}
	if len(eligible) != 0 {
		t.Errorf("eligible = %d, want 0 for a done task", len(eligible))
	}
}

func TestConcurrentSubmissionsNeverOvershoot(t *testing.T) {
	database := testDB(t)
	const target = 3
	const raters = 8
	task := seedTask(t, database, "q1", target)

	// More claims than slots: only target of them can exist at once, so
	// claim up to target raters first, then submit concurrently.
	var claimed []string
	for i := 0; i < raters && len(claimed) < target; i++ {
		rater := seedRater(t, database, fmt.Sprintf("rater-%d", i))
		err := database.ClaimTask(&TaskAssignment{
			RaterID: rater.ID, TaskID: task.ID, RNGSeed: "seed",
			LeftSystemID: "sys-a", RightSystemID: "sys-b",
			LeftList: []string{"t1"}, RightList: []string{"t2"},
		})
		if errors.Is(err, ErrClaimLost) {
			continue
		}
		if err != nil {
			t.Fatalf("claim %d: %v", i, err)
		}
		claimed = append(claimed, rater.ID)
	}
	if len(claimed) != target {
		t.Fatalf("claimed = %d, want %d", len(claimed), target)
	}

	var wg sync.WaitGroup
	errs := make([]error, len(claimed))
	for i, raterID := range claimed {
		wg.Add(1)
		go func(i int, raterID string) {
			defer wg.Done()
			_, errs[i] = database.RecordJudgment(raterID, task.ID, "left", 2, nil)
		}(i, raterID)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Errorf("submission %d: %v", i, err)
		}
	}

	got, err := database.GetTask(task.ID)
	if err != nil {
		t.Fatalf("loading task: %v", err)
	}
	if got.CollectedJudgments != target {
		t.Errorf("collected = %d, want exactly %d", got.CollectedJudgments, target)
	}
	if !got.Done {
		t.Error("task not done after reaching target")
	}

	judgments, err := database.JudgmentsForTask(task.ID)
	if err != nil {
		t.Fatalf("listing judgments: %v", err)
	}
	if len(judgments) != target {
		t.Errorf("judgments = %d, want %d", len(judgments), target)
	}
}

func TestConcurrentSubmissionsSerialize(t *testing.T) {
	database := testDB(t)
	const target = 4
	const rounds = 20

	// Repeated full-contention rounds: every slot submits at once.
	// Contending submissions must queue on the store's write lock and all
	// land, never bounce with a busy error.
	for round := 0; round < rounds; round++ {
		task := seedTask(t, database, fmt.Sprintf("q%d", round), target)

		raterIDs := make([]string, target)
		for i := range raterIDs {
			rater := seedRater(t, database, fmt.Sprintf("rater-%d-%d", round, i))
			claimFor(t, database, rater.ID, task.ID)
			raterIDs[i] = rater.ID
		}

		var wg sync.WaitGroup
		errs := make([]error, target)
		for i, raterID := range raterIDs {
			wg.Add(1)
			go func(i int, raterID string) {
				defer wg.Done()
				_, errs[i] = database.RecordJudgment(raterID, task.ID, "tie", 1, nil)
			}(i, raterID)
		}
		wg.Wait()

		for i, err := range errs {
			if err != nil {
				t.Fatalf("round %d submission %d: %v", round, i, err)
			}
		}

		got, err := database.GetTask(task.ID)
		if err != nil {
			t.Fatalf("round %d loading task: %v", round, err)
		}
		if got.CollectedJudgments != target || !got.Done {
			t.Fatalf("round %d: collected = %d, done = %v, want %d and true",
				round, got.CollectedJudgments, got.Done, target)
		}
	}
}

func TestOverClaimRejected(t *testing.T) {
	database := testDB(t)
	task := seedTask(t, database, "q1", 1)

	alice := seedRater(t, database, "alice")
	claimFor(t, database, alice.ID, task.ID)

	// One judgment needed, one claim in flight: no slot left.
	bob := seedRater(t, database, "bob")
	err := database.ClaimTask(&TaskAssignment{
		RaterID: bob.ID, TaskID: task.ID, RNGSeed: "seed",
		LeftSystemID: "sys-a", RightSystemID: "sys-b",
		LeftList: []string{"t1"}, RightList: []string{"t2"},
	})
	if !errors.Is(err, ErrClaimLost) {
		t.Errorf("over-claim error = %v, want ErrClaimLost", err)
	}
}

func TestDoubleClaimRejected(t *testing.T) {
	database := testDB(t)
	task := seedTask(t, database, "q1", 3)

	alice := seedRater(t, database, "alice")
	claimFor(t, database, alice.ID, task.ID)

	err := database.ClaimTask(&TaskAssignment{
		RaterID: alice.ID, TaskID: task.ID, RNGSeed: "seed",
		LeftSystemID: "sys-a", RightSystemID: "sys-b",
		LeftList: []string{"t1"}, RightList: []string{"t2"},
	})
	if !errors.Is(err, ErrClaimLost) {
		t.Errorf("double-claim error = %v, want ErrClaimLost", err)
	}
}
