package db

import (
	"database/sql"
	"encoding/json"
	"time"
)

// Query is a text or seed-track search specification. Immutable once created.
type Query struct {
	ID          string    `json:"id"`
	QueryType   string    `json:"query_type"` // "text" or "song"
	QueryText   *string   `json:"query_text,omitempty"`
	SeedTrackID *string   `json:"seed_track_id,omitempty"`
	Genres      []string  `json:"genres"`
	Era         *string   `json:"era,omitempty"`
	IsPractice  bool      `json:"is_practice"`
	CreatedAt   time.Time `json:"created_at"`
}

// CreateQuery inserts a query. Re-uploading an existing ID is a no-op, so
// batch uploads can be retried safely. Returns true if a row was inserted.
func (db *DB) CreateQuery(q *Query) (bool, error) {
	genres, err := json.Marshal(q.Genres)
	if err != nil {
		return false, err
	}
	res, err := db.Exec(`
		INSERT INTO queries (id, query_type, query_text, seed_track_id, genres, era, is_practice)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		q.ID, q.QueryType, q.QueryText, q.SeedTrackID, string(genres), q.Era, boolToInt(q.IsPractice))
	if err != nil {
		return false, err
	}
	n, _ := res.RowsAffected()
	return n > 0, nil
}

// GetQuery returns one query by ID.
func (db *DB) GetQuery(id string) (*Query, error) {
	row := db.QueryRow(`
		SELECT id, query_type, query_text, seed_track_id, genres, era, is_practice, created_at
		FROM queries WHERE id = ?`, id)
	return scanQuery(row)
}

// ListQueries returns all queries ordered by creation.
func (db *DB) ListQueries() ([]Query, error) {
	rows, err := db.Query(`
		SELECT id, query_type, query_text, seed_track_id, genres, era, is_practice, created_at
		FROM queries ORDER BY created_at, id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var queries []Query
	for rows.Next() {
		q, err := scanQuery(rows)
		if err != nil {
			return nil, err
		}
		queries = append(queries, *q)
	}
	return queries, rows.Err()
}

// MarkPractice flags a query (and its existing tasks) as practice.
func (db *DB) MarkPractice(queryID string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`UPDATE queries SET is_practice = 1 WHERE id = ?`, queryID)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec(`UPDATE tasks SET is_practice = 1 WHERE query_id = ?`, queryID); err != nil {
		return err
	}
	return tx.Commit()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuery(row rowScanner) (*Query, error) {
	var q Query
	var queryText, seedTrackID, era sql.NullString
	var genres string
	var isPractice int
	err := row.Scan(&q.ID, &q.QueryType, &queryText, &seedTrackID, &genres, &era, &isPractice, &q.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if queryText.Valid {
		q.QueryText = &queryText.String
	}
	if seedTrackID.Valid {
		q.SeedTrackID = &seedTrackID.String
	}
	if era.Valid {
		q.Era = &era.String
	}
	q.IsPractice = isPractice == 1
	if err := json.Unmarshal([]byte(genres), &q.Genres); err != nil {
		q.Genres = nil
	}
	return &q, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
