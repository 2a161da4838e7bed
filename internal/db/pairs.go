package db

// Pair is one unordered comparison between two systems. system_a is always
// the lexicographically smaller identifier, so (A,B) and (B,A) resolve to
// the same row and the same ID.
type Pair struct {
	ID      string `json:"id"`
	SystemA string `json:"system_a"`
	SystemB string `json:"system_b"`
}

// CanonicalPair orders two system identifiers and derives the pair ID.
func CanonicalPair(a, b string) Pair {
	if b < a {
		a, b = b, a
	}
	return Pair{ID: a + "__" + b, SystemA: a, SystemB: b}
}

// UpsertPair inserts the canonical pair for two systems. Regenerating for
// an unchanged system set inserts nothing. Returns true if a row was added.
func (db *DB) UpsertPair(a, b string) (Pair, bool, error) {
	p := CanonicalPair(a, b)
	res, err := db.Exec(`
		INSERT INTO pairs (id, system_a, system_b)
		VALUES (?, ?, ?)
		ON CONFLICT(system_a, system_b) DO NOTHING`,
		p.ID, p.SystemA, p.SystemB)
	if err != nil {
		return p, false, err
	}
	n, _ := res.RowsAffected()
	return p, n > 0, nil
}

// GetPair returns a pair by ID.
func (db *DB) GetPair(id string) (*Pair, error) {
	var p Pair
	err := db.QueryRow(`SELECT id, system_a, system_b FROM pairs WHERE id = ?`, id).
		Scan(&p.ID, &p.SystemA, &p.SystemB)
	if err != nil {
		return nil, mapNoRows(err)
	}
	return &p, nil
}

// ListPairs returns all pairs in canonical order.
func (db *DB) ListPairs() ([]Pair, error) {
	rows, err := db.Query(`SELECT id, system_a, system_b FROM pairs ORDER BY system_a, system_b`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pairs []Pair
	for rows.Next() {
		var p Pair
		if err := rows.Scan(&p.ID, &p.SystemA, &p.SystemB); err != nil {
			return nil, err
		}
		pairs = append(pairs, p)
	}
	return pairs, rows.Err()
}
