// Package policy implements the arena-owned post-processing of raw ranked
// candidates into final lists: per-artist cap, seed exclusion,
// deduplication, depth and size limits. Apply is a pure function —
// identical inputs always yield identical output, so materialization runs
// are idempotent.
package policy

// Filter reasons tallied in Result.FilterCounts.
const (
	ReasonArtistCap     = "artist_cap"
	ReasonSeedExclusion = "seed_exclusion"
	ReasonSeedTrack     = "seed_track"
	ReasonDuplicate     = "duplicate"
	ReasonInsufficient  = "insufficient_results"
)

// Config is the closed, enumerated policy options struct.
type Config struct {
	Version           string
	FinalK            int
	MaxPerArtist      int
	ExcludeSeedArtist bool
	RetrievalDepthK   int
}

// Candidate is one raw ranked result with its artist resolved. A missing
// artist (empty ArtistID) exempts the candidate from artist-based filters.
type Candidate struct {
	TrackID  string
	ArtistID string
	Rank     int
	Score    float64
}

// QueryContext carries the query-side inputs the filters depend on.
type QueryContext struct {
	QueryType    string // "text" or "song"
	SeedTrackID  string
	SeedArtistID string
}

// Result is the outcome of applying a policy to one candidate list.
// FilterCounts holds only nonzero tallies. DepthScanned counts every raw
// candidate examined, including skipped ones.
type Result struct {
	FinalList    []string
	FilterCounts map[string]int
	DepthScanned int
}

// Apply scans candidates in rank order and accepts them into the final
// list until FinalK are accepted, RetrievalDepthK candidates have been
// scanned, or input runs out. A list shorter than FinalK is not an error;
// the shortfall is tallied under insufficient_results for operator
// visibility.
func Apply(cands []Candidate, cfg Config, qc QueryContext) Result {
	res := Result{
		FinalList:    []string{},
		FilterCounts: map[string]int{},
	}

	excludeSeedArtist := cfg.ExcludeSeedArtist && qc.QueryType == "song" && qc.SeedArtistID != ""

	seen := make(map[string]bool, cfg.FinalK)
	artistCounts := make(map[string]int)

	for _, c := range cands {
		if len(res.FinalList) >= cfg.FinalK || res.DepthScanned >= cfg.RetrievalDepthK {
			break
		}
		res.DepthScanned++

		// The seed track itself never competes against its own query.
		if qc.SeedTrackID != "" && c.TrackID == qc.SeedTrackID {
			res.FilterCounts[ReasonSeedTrack]++
			continue
		}
		if excludeSeedArtist && c.ArtistID == qc.SeedArtistID {
			res.FilterCounts[ReasonSeedExclusion]++
			continue
		}
		if seen[c.TrackID] {
			res.FilterCounts[ReasonDuplicate]++
			continue
		}
		if c.ArtistID != "" && artistCounts[c.ArtistID] >= cfg.MaxPerArtist {
			res.FilterCounts[ReasonArtistCap]++
			continue
		}

		res.FinalList = append(res.FinalList, c.TrackID)
		seen[c.TrackID] = true
		if c.ArtistID != "" {
			artistCounts[c.ArtistID]++
		}
	}

	if len(res.FinalList) < cfg.FinalK {
		res.FilterCounts[ReasonInsufficient] = cfg.FinalK - len(res.FinalList)
	}

	return res
}
