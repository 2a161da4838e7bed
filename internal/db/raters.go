package db

import (
	"database/sql"
	"time"
)

// Rater is a participant identity with assignment caps. A total_cap of 0
// means unlimited; soft_cap only triggers a warning, never a rejection.
type Rater struct {
	ID        string    `json:"id"`
	Handle    string    `json:"handle"`
	SoftCap   int       `json:"soft_cap"`
	TotalCap  int       `json:"total_cap"`
	CreatedAt time.Time `json:"created_at"`
}

// CreateRater registers a rater. A taken handle returns ErrDuplicate.
func (db *DB) CreateRater(handle string, softCap, totalCap int) (*Rater, error) {
	r := &Rater{ID: NewID(), Handle: handle, SoftCap: softCap, TotalCap: totalCap}
	_, err := db.Exec(`
		INSERT INTO raters (id, handle, soft_cap, total_cap)
		VALUES (?, ?, ?, ?)`, r.ID, r.Handle, r.SoftCap, r.TotalCap)
	if isUniqueViolation(err) {
		return nil, ErrDuplicate
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GetRater returns one rater by ID.
func (db *DB) GetRater(id string) (*Rater, error) {
	return scanRater(db.QueryRow(`
		SELECT id, handle, soft_cap, total_cap, created_at FROM raters WHERE id = ?`, id))
}

// GetRaterByHandle returns one rater by handle.
func (db *DB) GetRaterByHandle(handle string) (*Rater, error) {
	return scanRater(db.QueryRow(`
		SELECT id, handle, soft_cap, total_cap, created_at FROM raters WHERE handle = ?`, handle))
}

// SetRaterCaps adjusts a rater's caps.
func (db *DB) SetRaterCaps(id string, softCap, totalCap int) error {
	res, err := db.Exec(`UPDATE raters SET soft_cap = ?, total_cap = ? WHERE id = ?`, softCap, totalCap, id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRater(row *sql.Row) (*Rater, error) {
	var r Rater
	err := row.Scan(&r.ID, &r.Handle, &r.SoftCap, &r.TotalCap, &r.CreatedAt)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &r, nil
}
