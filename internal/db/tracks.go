package db

import "database/sql"

// Track is the minimal catalog entry the policy engine needs: stable artist
// identity. Title and artist name are carried through for the export layer
// but never resolved here.
type Track struct {
	ID         string  `json:"id"`
	ArtistID   string  `json:"artist_id"`
	ArtistName *string `json:"artist_name,omitempty"`
	Title      *string `json:"title,omitempty"`
}

// UpsertTracks inserts or refreshes catalog entries in one transaction.
func (db *DB) UpsertTracks(tracks []Track) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	stmt, err := tx.Prepare(`
		INSERT INTO tracks (id, artist_id, artist_name, title)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			artist_id = excluded.artist_id,
			artist_name = COALESCE(excluded.artist_name, tracks.artist_name),
			title = COALESCE(excluded.title, tracks.title)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, t := range tracks {
		if _, err := stmt.Exec(t.ID, t.ArtistID, t.ArtistName, t.Title); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// GetTrack returns one catalog entry.
func (db *DB) GetTrack(id string) (*Track, error) {
	var t Track
	var artistName, title sql.NullString
	err := db.QueryRow(`SELECT id, artist_id, artist_name, title FROM tracks WHERE id = ?`, id).
		Scan(&t.ID, &t.ArtistID, &artistName, &title)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	if artistName.Valid {
		t.ArtistName = &artistName.String
	}
	if title.Valid {
		t.Title = &title.String
	}
	return &t, nil
}

// TrackArtists maps track IDs to artist IDs. Tracks missing from the
// catalog are absent from the result.
func (db *DB) TrackArtists(ids []string) (map[string]string, error) {
	artists := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return artists, nil
	}

	stmt, err := db.Prepare(`SELECT artist_id FROM tracks WHERE id = ?`)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	for _, id := range ids {
		if _, ok := artists[id]; ok {
			continue
		}
		var artistID string
		err := stmt.QueryRow(id).Scan(&artistID)
		if err == sql.ErrNoRows {
			continue
		}
		if err != nil {
			return nil, err
		}
		artists[id] = artistID
	}
	return artists, nil
}
