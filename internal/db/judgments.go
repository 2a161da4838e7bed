package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"
)

// Judgment is one rater's recorded decision for one completed assignment.
// Append-only: never updated or deleted.
type Judgment struct {
	ID            string     `json:"id"`
	AssignmentID  string     `json:"assignment_id"`
	RaterID       string     `json:"rater_id"`
	TaskID        string     `json:"task_id"`
	QueryID       string     `json:"query_id"`
	PairID        string     `json:"pair_id"`
	LeftSystemID  string     `json:"left_system_id"`
	RightSystemID string     `json:"right_system_id"`
	LeftList      []string   `json:"left_list"`
	RightList     []string   `json:"right_list"`
	Choice        string     `json:"choice"`
	Confidence    int        `json:"confidence"`
	RNGSeed       string     `json:"rng_seed"`
	PresentedAt   *time.Time `json:"presented_at,omitempty"`
	SubmittedAt   time.Time  `json:"submitted_at"`
}

// InsertJudgment persists a judgment within a transaction. The UNIQUE key
// on assignment_id is the last line of defense against double recording.
func insertJudgment(tx *sql.Tx, j *Judgment) error {
	left, err := json.Marshal(j.LeftList)
	if err != nil {
		return err
	}
	right, err := json.Marshal(j.RightList)
	if err != nil {
		return err
	}
	_, err = tx.Exec(`
		INSERT INTO judgments (id, assignment_id, rater_id, task_id, query_id, pair_id,
			left_system_id, right_system_id, left_list, right_list,
			choice, confidence, rng_seed, presented_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		j.ID, j.AssignmentID, j.RaterID, j.TaskID, j.QueryID, j.PairID,
		j.LeftSystemID, j.RightSystemID, string(left), string(right),
		j.Choice, j.Confidence, j.RNGSeed, j.PresentedAt)
	if isUniqueViolation(err) {
		return ErrCompleted
	}
	return err
}

// RecordJudgment performs the whole submission as one transaction: mark
// the assignment completed, advance the task counter (closing the task
// exactly at target), and append the judgment row. The three steps succeed
// or fail together — a judgment is never persisted without its matching
// state transitions.
//
// Returns ErrNotFound if no assignment binds the rater to the task,
// ErrCompleted on re-submission, and ErrTaskFull if the counter was
// already at target (possible only via expired-and-reclaimed slots).
func (db *DB) RecordJudgment(raterID, taskID, choice string, confidence int, presentedAt *time.Time) (*Judgment, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	a, err := getAssignmentTx(tx, raterID, taskID)
	if err != nil {
		return nil, err
	}
	if a.Completed {
		return nil, ErrCompleted
	}

	task, err := getTaskTx(tx, taskID)
	if err != nil {
		return nil, err
	}

	if err := completeAssignment(tx, a.ID); err != nil {
		return nil, err
	}
	if err := collectJudgment(tx, taskID); err != nil {
		return nil, err
	}

	j := &Judgment{
		ID:            NewID(),
		AssignmentID:  a.ID,
		RaterID:       raterID,
		TaskID:        taskID,
		QueryID:       task.QueryID,
		PairID:        task.PairID,
		LeftSystemID:  a.LeftSystemID,
		RightSystemID: a.RightSystemID,
		LeftList:      a.LeftList,
		RightList:     a.RightList,
		Choice:        choice,
		Confidence:    confidence,
		RNGSeed:       a.RNGSeed,
		PresentedAt:   presentedAt,
	}
	if err := insertJudgment(tx, j); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing judgment: %w", err)
	}
	j.SubmittedAt = time.Now().UTC()
	return j, nil
}

func getAssignmentTx(tx *sql.Tx, raterID, taskID string) (*TaskAssignment, error) {
	row := tx.QueryRow(`
		SELECT id, rater_id, task_id, rng_seed, left_system_id, right_system_id,
		       left_list, right_list, assigned_at, completed, completed_at
		FROM task_assignments WHERE rater_id = ? AND task_id = ?`, raterID, taskID)
	return scanAssignment(row)
}

func getTaskTx(tx *sql.Tx, id string) (*Task, error) {
	return scanTask(tx.QueryRow(`
		SELECT id, query_id, pair_id, target_judgments, collected_judgments, done, is_practice, created_at
		FROM tasks WHERE id = ?`, id))
}

// ListJudgments returns all judgments in submission order.
func (db *DB) ListJudgments() ([]Judgment, error) {
	rows, err := db.Query(`
		SELECT id, assignment_id, rater_id, task_id, query_id, pair_id,
		       left_system_id, right_system_id, left_list, right_list,
		       choice, confidence, rng_seed, presented_at, submitted_at
		FROM judgments ORDER BY submitted_at, rowid`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanJudgments(rows)
}

// JudgmentsForTask returns a task's judgments ordered by submission.
func (db *DB) JudgmentsForTask(taskID string) ([]Judgment, error) {
	rows, err := db.Query(`
		SELECT id, assignment_id, rater_id, task_id, query_id, pair_id,
		       left_system_id, right_system_id, left_list, right_list,
		       choice, confidence, rng_seed, presented_at, submitted_at
		FROM judgments WHERE task_id = ? ORDER BY submitted_at, rowid`, taskID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanJudgments(rows)
}

func scanJudgments(rows *sql.Rows) ([]Judgment, error) {
	var judgments []Judgment
	for rows.Next() {
		var j Judgment
		var left, right string
		var presentedAt sql.NullTime
		if err := rows.Scan(&j.ID, &j.AssignmentID, &j.RaterID, &j.TaskID, &j.QueryID, &j.PairID,
			&j.LeftSystemID, &j.RightSystemID, &left, &right,
			&j.Choice, &j.Confidence, &j.RNGSeed, &presentedAt, &j.SubmittedAt); err != nil {
			return nil, err
		}
		if presentedAt.Valid {
			j.PresentedAt = &presentedAt.Time
		}
		if err := json.Unmarshal([]byte(left), &j.LeftList); err != nil {
			return nil, err
		}
		if err := json.Unmarshal([]byte(right), &j.RightList); err != nil {
			return nil, err
		}
		judgments = append(judgments, j)
	}
	return judgments, rows.Err()
}
