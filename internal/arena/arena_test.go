package arena

import (
	"fmt"
	"path/filepath"
	"testing"

	"github.com/hazyhaar/songarena/internal/db"
)

func testDB(t *testing.T) *db.DB {
	t.Helper()
	database, err := db.Open(filepath.Join(t.TempDir(), "arena.db"))
	if err != nil {
		t.Fatalf("opening test database: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

// seedArena loads a small but complete fixture: a track catalog, two text
// queries, three systems with candidate lists for q1 (only two of them
// cover q2), and an active policy.
func seedArena(t *testing.T, database *db.DB) {
	t.Helper()

	var tracks []db.Track
	for i := 1; i <= 12; i++ {
		tracks = append(tracks, db.Track{
			ID:       fmt.Sprintf("t%d", i),
			ArtistID: fmt.Sprintf("artist-%d", (i-1)%6),
		})
	}
	if err := database.UpsertTracks(tracks); err != nil {
		t.Fatalf("seeding tracks: %v", err)
	}

	for _, q := range []string{"q1", "q2"} {
		text := "query " + q
		if _, err := database.CreateQuery(&db.Query{ID: q, QueryType: "text", QueryText: &text}); err != nil {
			t.Fatalf("seeding query %s: %v", q, err)
		}
	}

	systems := map[string][]string{
		"sys-a": {"t1", "t2", "t3", "t4", "t5"},
		"sys-b": {"t3", "t4", "t5", "t6", "t7"},
		"sys-c": {"t8", "t9", "t10", "t11", "t12"},
	}
	for sys, trackIDs := range systems {
		if err := database.UpsertSystem(sys, "default", "{}"); err != nil {
			t.Fatalf("seeding system %s: %v", sys, err)
		}
		cands := make([]db.Candidate, len(trackIDs))
		for i, id := range trackIDs {
			cands[i] = db.Candidate{TrackID: id, Rank: i + 1, Score: 1.0 / float64(i+1)}
		}
		if err := database.ReplaceCandidates(sys, "q1", cands); err != nil {
			t.Fatalf("seeding candidates %s/q1: %v", sys, err)
		}
		if sys != "sys-c" {
			if err := database.ReplaceCandidates(sys, "q2", cands); err != nil {
				t.Fatalf("seeding candidates %s/q2: %v", sys, err)
			}
		}
	}

	err := database.SetActivePolicy(&db.Policy{
		Version: "v1", FinalK: 3, MaxPerArtist: 1, ExcludeSeedArtist: true, RetrievalDepthK: 50,
	})
	if err != nil {
		t.Fatalf("seeding policy: %v", err)
	}
}

func materialize(t *testing.T, database *db.DB, target int) *MaterializationResult {
	t.Helper()
	res, err := NewMaterializer(database, target).Run()
	if err != nil {
		t.Fatalf("materializing: %v", err)
	}
	return res
}

func registerRater(t *testing.T, database *db.DB, handle string) *db.Rater {
	t.Helper()
	r, err := database.CreateRater(handle, 0, 0)
	if err != nil {
		t.Fatalf("creating rater %s: %v", handle, err)
	}
	return r
}
