package db

import (
	"database/sql"
	"encoding/json"
	"time"
)

// FinalList is the policy-filtered ranked list for one (policy, system,
// query). Derived data: recomputed on every materialization run, never
// hand-edited.
type FinalList struct {
	PolicyVersion string         `json:"policy_version"`
	SystemID      string         `json:"system_id"`
	QueryID       string         `json:"query_id"`
	FinalOrder    []string       `json:"final_order"`
	FilterCounts  map[string]int `json:"filter_counts"`
	DepthScanned  int            `json:"depth_scanned"`
	GeneratedAt   time.Time      `json:"generated_at"`
}

// UpsertFinalList writes a materialized final list, overwriting any
// previous result for the same (policy, system, query).
func (db *DB) UpsertFinalList(fl *FinalList) error {
	order, err := json.Marshal(fl.FinalOrder)
	if err != nil {
		return err
	}
	counts, err := json.Marshal(fl.FilterCounts)
	if err != nil {
		return err
	}
	_, err = db.Exec(`
		INSERT INTO final_lists (policy_version, system_id, query_id, final_order, filter_counts, depth_scanned, generated_at)
		VALUES (?, ?, ?, ?, ?, ?, datetime('now'))
		ON CONFLICT(policy_version, system_id, query_id) DO UPDATE SET
			final_order = excluded.final_order,
			filter_counts = excluded.filter_counts,
			depth_scanned = excluded.depth_scanned,
			generated_at = datetime('now')`,
		fl.PolicyVersion, fl.SystemID, fl.QueryID, string(order), string(counts), fl.DepthScanned)
	return err
}

// GetFinalList returns the final list for a (policy, system, query).
func (db *DB) GetFinalList(policyVersion, systemID, queryID string) (*FinalList, error) {
	var fl FinalList
	var order, counts string
	err := db.QueryRow(`
		SELECT policy_version, system_id, query_id, final_order, filter_counts, depth_scanned, generated_at
		FROM final_lists
		WHERE policy_version = ? AND system_id = ? AND query_id = ?`,
		policyVersion, systemID, queryID).
		Scan(&fl.PolicyVersion, &fl.SystemID, &fl.QueryID, &order, &counts, &fl.DepthScanned, &fl.GeneratedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(order), &fl.FinalOrder); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(counts), &fl.FilterCounts); err != nil {
		return nil, err
	}
	return &fl, nil
}

// HasFinalList reports whether a final list exists for the combination.
func (db *DB) HasFinalList(policyVersion, systemID, queryID string) (bool, error) {
	var count int
	err := db.QueryRow(`
		SELECT COUNT(*) FROM final_lists
		WHERE policy_version = ? AND system_id = ? AND query_id = ?`,
		policyVersion, systemID, queryID).Scan(&count)
	return count > 0, err
}
