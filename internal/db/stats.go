package db

// Read-only aggregate counters for the progress/export layer. Practice
// tasks are excluded from every aggregate here; they only show up in the
// dedicated practice counts.
type ArenaStats struct {
	TotalQueries   int `json:"total_queries"`
	TotalSystems   int `json:"total_systems"`
	TotalPairs     int `json:"total_pairs"`
	TotalTasks     int `json:"total_tasks"`
	CompletedTasks int `json:"completed_tasks"`
	PracticeTasks  int `json:"practice_tasks"`
	TotalJudgments int `json:"total_judgments"`
	UniqueRaters   int `json:"unique_raters"`
}

// Stats returns arena-wide counters.
func (db *DB) Stats() (*ArenaStats, error) {
	var s ArenaStats
	err := db.QueryRow(`
		SELECT (SELECT COUNT(*) FROM queries WHERE is_practice = 0),
		       (SELECT COUNT(*) FROM systems),
		       (SELECT COUNT(*) FROM pairs),
		       (SELECT COUNT(*) FROM tasks WHERE is_practice = 0),
		       (SELECT COUNT(*) FROM tasks WHERE is_practice = 0 AND done = 1),
		       (SELECT COUNT(*) FROM tasks WHERE is_practice = 1),
		       (SELECT COUNT(*) FROM judgments j
		        WHERE NOT EXISTS (SELECT 1 FROM tasks t WHERE t.id = j.task_id AND t.is_practice = 1)),
		       (SELECT COUNT(DISTINCT rater_id) FROM judgments)`).
		Scan(&s.TotalQueries, &s.TotalSystems, &s.TotalPairs, &s.TotalTasks,
			&s.CompletedTasks, &s.PracticeTasks, &s.TotalJudgments, &s.UniqueRaters)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// PairProgress summarizes coverage for one system pair.
type PairProgress struct {
	PairID         string `json:"pair_id"`
	SystemA        string `json:"system_a"`
	SystemB        string `json:"system_b"`
	Tasks          int    `json:"tasks"`
	DoneTasks      int    `json:"done_tasks"`
	Judgments      int    `json:"judgments"`
	TargetJudgment int    `json:"target_judgments"`
}

// ProgressByPair returns per-pair coverage, excluding practice tasks.
func (db *DB) ProgressByPair() ([]PairProgress, error) {
	rows, err := db.Query(`
		SELECT p.id, p.system_a, p.system_b,
		       COUNT(t.id),
		       COALESCE(SUM(t.done), 0),
		       COALESCE(SUM(t.collected_judgments), 0),
		       COALESCE(SUM(t.target_judgments), 0)
		FROM pairs p
		LEFT JOIN tasks t ON t.pair_id = p.id AND t.is_practice = 0
		GROUP BY p.id, p.system_a, p.system_b
		ORDER BY p.system_a, p.system_b`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var progress []PairProgress
	for rows.Next() {
		var pp PairProgress
		if err := rows.Scan(&pp.PairID, &pp.SystemA, &pp.SystemB,
			&pp.Tasks, &pp.DoneTasks, &pp.Judgments, &pp.TargetJudgment); err != nil {
			return nil, err
		}
		progress = append(progress, pp)
	}
	return progress, rows.Err()
}

// QueryProgress summarizes coverage for one query.
type QueryProgress struct {
	QueryID   string `json:"query_id"`
	QueryType string `json:"query_type"`
	Tasks     int    `json:"tasks"`
	DoneTasks int    `json:"done_tasks"`
	Judgments int    `json:"judgments"`
}

// ProgressByQuery returns per-query coverage, excluding practice queries.
func (db *DB) ProgressByQuery() ([]QueryProgress, error) {
	rows, err := db.Query(`
		SELECT q.id, q.query_type,
		       COUNT(t.id),
		       COALESCE(SUM(t.done), 0),
		       COALESCE(SUM(t.collected_judgments), 0)
		FROM queries q
		LEFT JOIN tasks t ON t.query_id = q.id
		WHERE q.is_practice = 0
		GROUP BY q.id, q.query_type
		ORDER BY q.id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var progress []QueryProgress
	for rows.Next() {
		var qp QueryProgress
		if err := rows.Scan(&qp.QueryID, &qp.QueryType, &qp.Tasks, &qp.DoneTasks, &qp.Judgments); err != nil {
			return nil, err
		}
		progress = append(progress, qp)
	}
	return progress, rows.Err()
}
