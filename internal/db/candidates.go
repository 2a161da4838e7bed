package db

// Candidate is one raw ranked result from one system for one query.
type Candidate struct {
	TrackID string  `json:"track_id"`
	Score   float64 `json:"score"`
	Rank    int     `json:"rank"`
}

// ReplaceCandidates stores the full ranked list for a (system, query).
// Candidate rows are immutable per upload: a re-upload replaces the whole
// list atomically rather than patching ranks.
func (db *DB) ReplaceCandidates(systemID, queryID string, cands []Candidate) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`DELETE FROM candidates WHERE system_id = ? AND query_id = ?`, systemID, queryID); err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO candidates (system_id, query_id, rank, track_id, score)
		VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, c := range cands {
		if _, err := stmt.Exec(systemID, queryID, c.Rank, c.TrackID, c.Score); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListCandidates returns raw candidates for a (system, query) in rank order.
func (db *DB) ListCandidates(systemID, queryID string) ([]Candidate, error) {
	rows, err := db.Query(`
		SELECT track_id, score, rank FROM candidates
		WHERE system_id = ? AND query_id = ?
		ORDER BY rank`, systemID, queryID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cands []Candidate
	for rows.Next() {
		var c Candidate
		if err := rows.Scan(&c.TrackID, &c.Score, &c.Rank); err != nil {
			return nil, err
		}
		cands = append(cands, c)
	}
	return cands, rows.Err()
}
