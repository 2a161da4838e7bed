package db

import (
	"path/filepath"
	"testing"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	database, err := Open(filepath.Join(t.TempDir(), "arena.db"))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

// seedTask creates a query, two systems, their pair and one open task with
// the given target. Returns the task.
func seedTask(t *testing.T, database *DB, queryID string, target int) *Task {
	t.Helper()
	text := "upbeat synthwave"
	if _, err := database.CreateQuery(&Query{ID: queryID, QueryType: "text", QueryText: &text}); err != nil {
		t.Fatalf("creating query: %v", err)
	}
	for _, sys := range []string{"sys-a", "sys-b"} {
		if err := database.UpsertSystem(sys, "default", "{}"); err != nil {
			t.Fatalf("upserting system: %v", err)
		}
	}
	pair, _, err := database.UpsertPair("sys-a", "sys-b")
	if err != nil {
		t.Fatalf("upserting pair: %v", err)
	}
	if _, err := database.UpsertTask(queryID, pair.ID, target, false); err != nil {
		t.Fatalf("upserting task: %v", err)
	}
	task, err := taskByKey(database, queryID, pair.ID)
	if err != nil {
		t.Fatalf("loading task: %v", err)
	}
	return task
}

func taskByKey(database *DB, queryID, pairID string) (*Task, error) {
	return scanTask(database.QueryRow(`
		SELECT id, query_id, pair_id, target_judgments, collected_judgments, done, is_practice, created_at
		FROM tasks WHERE query_id = ? AND pair_id = ?`, queryID, pairID))
}

func seedRater(t *testing.T, database *DB, handle string) *Rater {
	t.Helper()
	r, err := database.CreateRater(handle, 0, 0)
	if err != nil {
		t.Fatalf("creating rater %s: %v", handle, err)
	}
	return r
}

func claimFor(t *testing.T, database *DB, raterID, taskID string) *TaskAssignment {
	t.Helper()
	a := &TaskAssignment{
		RaterID:       raterID,
		TaskID:        taskID,
		RNGSeed:       "00000000deadbeef",
		LeftSystemID:  "sys-a",
		RightSystemID: "sys-b",
		LeftList:      []string{"t1", "t2"},
		RightList:     []string{"t3", "t4"},
	}
	if err := database.ClaimTask(a); err != nil {
		t.Fatalf("claiming task for %s: %v", raterID, err)
	}
	return a
}
