package db

import "time"

// System identifies one retrieval system under comparison.
type System struct {
	ID        string    `json:"id"`
	DatasetID string    `json:"dataset_id"`
	Config    string    `json:"config"`
	CreatedAt time.Time `json:"created_at"`
}

// UpsertSystem registers a system, keeping the first-seen dataset binding.
func (db *DB) UpsertSystem(id, datasetID, configJSON string) error {
	if datasetID == "" {
		datasetID = "default"
	}
	if configJSON == "" {
		configJSON = "{}"
	}
	_, err := db.Exec(`
		INSERT INTO systems (id, dataset_id, config)
		VALUES (?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET config = excluded.config`,
		id, datasetID, configJSON)
	return err
}

// ListSystemIDs returns system identifiers for a dataset in lexicographic
// order, which is also the canonical pair ordering.
func (db *DB) ListSystemIDs(datasetID string) ([]string, error) {
	query := `SELECT id FROM systems`
	var args []any
	if datasetID != "" {
		query += ` WHERE dataset_id = ?`
		args = append(args, datasetID)
	}
	query += ` ORDER BY id`

	rows, err := db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}
