package db

import (
	"database/sql"
	"time"
)

// Policy is a versioned post-processing configuration. Immutable once
// created: changed settings require a new version.
type Policy struct {
	Version           string    `json:"version"`
	FinalK            int       `json:"final_k"`
	MaxPerArtist      int       `json:"max_per_artist"`
	ExcludeSeedArtist bool      `json:"exclude_seed_artist"`
	RetrievalDepthK   int       `json:"retrieval_depth_k"`
	IsActive          bool      `json:"is_active"`
	CreatedAt         time.Time `json:"created_at"`
}

// SetActivePolicy inserts a new policy version and makes it the single
// active one in one transaction. An existing version is rejected with
// ErrDuplicate; activate a past version with ActivatePolicy instead.
func (db *DB) SetActivePolicy(p *Policy) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.Exec(`
		INSERT INTO policies (version, final_k, max_per_artist, exclude_seed_artist, retrieval_depth_k, is_active)
		VALUES (?, ?, ?, ?, ?, 0)`,
		p.Version, p.FinalK, p.MaxPerArtist, boolToInt(p.ExcludeSeedArtist), p.RetrievalDepthK)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE policies SET is_active = 0 WHERE is_active = 1`); err != nil {
		return err
	}
	if _, err := tx.Exec(`UPDATE policies SET is_active = 1 WHERE version = ?`, p.Version); err != nil {
		return err
	}
	return tx.Commit()
}

// ActivatePolicy switches the active flag to an existing version.
func (db *DB) ActivatePolicy(version string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.Exec(`UPDATE policies SET is_active = 1 WHERE version = ?`, version)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	if _, err := tx.Exec(`UPDATE policies SET is_active = 0 WHERE version != ? AND is_active = 1`, version); err != nil {
		return err
	}
	return tx.Commit()
}

// GetActivePolicy returns the active policy, or ErrNotFound if none is set.
func (db *DB) GetActivePolicy() (*Policy, error) {
	return db.scanPolicy(db.QueryRow(`
		SELECT version, final_k, max_per_artist, exclude_seed_artist, retrieval_depth_k, is_active, created_at
		FROM policies WHERE is_active = 1`))
}

// GetPolicy returns a policy by version.
func (db *DB) GetPolicy(version string) (*Policy, error) {
	return db.scanPolicy(db.QueryRow(`
		SELECT version, final_k, max_per_artist, exclude_seed_artist, retrieval_depth_k, is_active, created_at
		FROM policies WHERE version = ?`, version))
}

func (db *DB) scanPolicy(row *sql.Row) (*Policy, error) {
	var p Policy
	var excl, active int
	err := row.Scan(&p.Version, &p.FinalK, &p.MaxPerArtist, &excl, &p.RetrievalDepthK, &active, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	p.ExcludeSeedArtist = excl == 1
	p.IsActive = active == 1
	return &p, nil
}
