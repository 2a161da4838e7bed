package db

import (
	"database/sql"
	"time"
)

// Task is one unit of rating work: a query compared between a pair of
// systems, with a coverage target. Counters are mutated only through
// CollectJudgment.
type Task struct {
	ID                 string    `json:"id"`
	QueryID            string    `json:"query_id"`
	PairID             string    `json:"pair_id"`
	TargetJudgments    int       `json:"target_judgments"`
	CollectedJudgments int       `json:"collected_judgments"`
	Done               bool      `json:"done"`
	IsPractice         bool      `json:"is_practice"`
	CreatedAt          time.Time `json:"created_at"`
}

// UpsertTask creates the task for (query, pair) if absent. An existing
// task keeps its counters and target untouched, so re-running
// materialization never resets progress. Returns true if a row was added.
func (db *DB) UpsertTask(queryID, pairID string, targetJudgments int, isPractice bool) (bool, error) {
	res, err := db.Exec(`
		INSERT INTO tasks (id, query_id, pair_id, target_judgments, is_practice)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(query_id, pair_id) DO NOTHING`,
		NewID(), queryID, pairID, targetJudgments, boolToInt(isPractice))
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// GetTask returns one task by ID.
func (db *DB) GetTask(id string) (*Task, error) {
	return scanTask(db.QueryRow(`
		SELECT id, query_id, pair_id, target_judgments, collected_judgments, done, is_practice, created_at
		FROM tasks WHERE id = ?`, id))
}

func scanTask(row *sql.Row) (*Task, error) {
	var t Task
	var done, practice int
	err := row.Scan(&t.ID, &t.QueryID, &t.PairID, &t.TargetJudgments, &t.CollectedJudgments, &done, &practice, &t.CreatedAt)
	if err != nil {
		return nil, mapNoRows(err)
	}
	t.Done = done == 1
	t.IsPractice = practice == 1
	return &t, nil
}

// EligibleTask is a scheduler candidate with its in-flight claim count and
// the recency of its last assignment across all raters.
type EligibleTask struct {
	Task
	InFlight     int
	LastAssigned *string // datetime text; nil if never assigned
}

// EligibleTasks returns tasks a rater may claim: not done, never assigned
// to this rater, and with fewer uncompleted claims in flight than judgments
// still needed. Ordering among the results is the scheduler's business.
func (db *DB) EligibleTasks(raterID string) ([]EligibleTask, error) {
	rows, err := db.Query(`
		SELECT t.id, t.query_id, t.pair_id, t.target_judgments, t.collected_judgments,
		       t.done, t.is_practice, t.created_at,
		       (SELECT COUNT(*) FROM task_assignments a
		        WHERE a.task_id = t.id AND a.completed = 0) AS in_flight,
		       (SELECT MAX(a.assigned_at) FROM task_assignments a
		        WHERE a.task_id = t.id) AS last_assigned
		FROM tasks t
		WHERE t.done = 0
		  AND NOT EXISTS (SELECT 1 FROM task_assignments a
		                  WHERE a.task_id = t.id AND a.rater_id = ?)
		  AND (SELECT COUNT(*) FROM task_assignments a
		       WHERE a.task_id = t.id AND a.completed = 0)
		      < t.target_judgments - t.collected_judgments`, raterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tasks []EligibleTask
	for rows.Next() {
		var t EligibleTask
		var done, practice int
		var last sql.NullString
		if err := rows.Scan(&t.ID, &t.QueryID, &t.PairID, &t.TargetJudgments, &t.CollectedJudgments,
			&done, &practice, &t.CreatedAt, &t.InFlight, &last); err != nil {
			return nil, err
		}
		t.Done = done == 1
		t.IsPractice = practice == 1
		if last.Valid {
			t.LastAssigned = &last.String
		}
		tasks = append(tasks, t)
	}
	return tasks, rows.Err()
}

// collectJudgment is the single conditional increment-and-close update.
// It never reads the counter first: the WHERE clause rejects a full task
// and the CASE closes it exactly when the new count reaches target, so two
// concurrent submissions cannot double-cross the threshold or lose an
// increment. Runs inside the caller's transaction.
func collectJudgment(tx *sql.Tx, taskID string) error {
	res, err := tx.Exec(`
		UPDATE tasks
		SET collected_judgments = collected_judgments + 1,
		    done = CASE WHEN collected_judgments + 1 >= target_judgments THEN 1 ELSE 0 END
		WHERE id = ? AND collected_judgments < target_judgments`, taskID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrTaskFull
	}
	return nil
}
