package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// TaskAssignment binds one rater to one task until completed. The row
// carries the blinded presentation frozen at claim time so the recorder
// can persist exactly what the rater saw.
type TaskAssignment struct {
	ID            string     `json:"id"`
	RaterID       string     `json:"rater_id"`
	TaskID        string     `json:"task_id"`
	RNGSeed       string     `json:"rng_seed"`
	LeftSystemID  string     `json:"left_system_id"`
	RightSystemID string     `json:"right_system_id"`
	LeftList      []string   `json:"left_list"`
	RightList     []string   `json:"right_list"`
	AssignedAt    time.Time  `json:"assigned_at"`
	Completed     bool       `json:"completed"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

// ClaimTask atomically claims a task for a rater by inserting the
// assignment row. The guarded INSERT..SELECT re-checks, inside the
// statement, that the task is still open and has an in-flight slot free;
// the unique (rater_id, task_id) key catches the remaining race window.
// Losing either way returns ErrClaimLost so the scheduler can retry
// selection.
func (db *DB) ClaimTask(a *TaskAssignment) error {
	left, err := json.Marshal(a.LeftList)
	if err != nil {
		return err
	}
	right, err := json.Marshal(a.RightList)
	if err != nil {
		return err
	}
	if a.ID == "" {
		a.ID = NewID()
	}

	res, err := db.Exec(`
		INSERT INTO task_assignments (id, rater_id, task_id, rng_seed, left_system_id, right_system_id, left_list, right_list)
		SELECT ?, ?, t.id, ?, ?, ?, ?, ?
		FROM tasks t
		WHERE t.id = ?
		  AND t.done = 0
		  AND NOT EXISTS (SELECT 1 FROM task_assignments x
		                  WHERE x.task_id = t.id AND x.rater_id = ?)
		  AND (SELECT COUNT(*) FROM task_assignments x
		       WHERE x.task_id = t.id AND x.completed = 0)
		      < t.target_judgments - t.collected_judgments`,
		a.ID, a.RaterID, a.RNGSeed, a.LeftSystemID, a.RightSystemID, string(left), string(right),
		a.TaskID, a.RaterID)
	if isUniqueViolation(err) {
		return ErrClaimLost
	}
	if err != nil {
		return fmt.Errorf("claiming task: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrClaimLost
	}
	return nil
}

// GetAssignment returns the assignment binding a rater to a task.
func (db *DB) GetAssignment(raterID, taskID string) (*TaskAssignment, error) {
	row := db.QueryRow(`
		SELECT id, rater_id, task_id, rng_seed, left_system_id, right_system_id,
		       left_list, right_list, assigned_at, completed, completed_at
		FROM task_assignments WHERE rater_id = ? AND task_id = ?`, raterID, taskID)
	return scanAssignment(row)
}

func scanAssignment(row *sql.Row) (*TaskAssignment, error) {
	var a TaskAssignment
	var left, right string
	var completed int
	var completedAt sql.NullTime
	err := row.Scan(&a.ID, &a.RaterID, &a.TaskID, &a.RNGSeed, &a.LeftSystemID, &a.RightSystemID,
		&left, &right, &a.AssignedAt, &completed, &completedAt)
	if err != nil {
		return nil, mapNoRows(err)
	}
	a.Completed = completed == 1
	if completedAt.Valid {
		a.CompletedAt = &completedAt.Time
	}
	if err := json.Unmarshal([]byte(left), &a.LeftList); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(right), &a.RightList); err != nil {
		return nil, err
	}
	return &a, nil
}

// completeAssignment flips the assignment to completed. Conditional on
// completed = 0: a second submission finds no row to update and gets
// ErrCompleted. Runs inside the caller's transaction.
func completeAssignment(tx *sql.Tx, assignmentID string) error {
	res, err := tx.Exec(`
		UPDATE task_assignments
		SET completed = 1, completed_at = datetime('now')
		WHERE id = ? AND completed = 0`, assignmentID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrCompleted
	}
	return nil
}

// CountAssignments returns a rater's total and completed assignment counts.
func (db *DB) CountAssignments(raterID string) (total, completed int, err error) {
	err = db.QueryRow(`
		SELECT COUNT(*), COALESCE(SUM(completed), 0)
		FROM task_assignments WHERE rater_id = ?`, raterID).Scan(&total, &completed)
	return total, completed, err
}

// ExpireStaleAssignments deletes uncompleted claims older than the cutoff.
// Deleting (rather than completing) frees both the in-flight slot and the
// (rater, task) unique key, so the task can be served again — to anyone.
func (db *DB) ExpireStaleAssignments(olderThan time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-olderThan).Format("2006-01-02 15:04:05")
	res, err := db.Exec(`
		DELETE FROM task_assignments
		WHERE completed = 0 AND assigned_at < ?`, cutoff)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
