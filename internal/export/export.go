// Package export produces judgment datasets for downstream analysis, with
// rater identities anonymized per export.
package export

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/hazyhaar/songarena/internal/db"
)

// JudgmentExport is one judgment row in the JSONL dataset. System identities
// are unblinded here; rater IDs are anonymized.
type JudgmentExport struct {
	ExportedAt    string   `json:"exported_at"`
	Version       string   `json:"export_version"`
	JudgmentID    string   `json:"judgment_id"`
	TaskID        string   `json:"task_id"`
	QueryID       string   `json:"query_id"`
	PairID        string   `json:"pair_id"`
	RaterID       string   `json:"rater_id"` // anonymized
	LeftSystemID  string   `json:"left_system_id"`
	RightSystemID string   `json:"right_system_id"`
	LeftList      []string `json:"left_list"`
	RightList     []string `json:"right_list"`
	Choice        string   `json:"choice"`
	WinnerSystem  *string  `json:"winner_system,omitempty"`
	Confidence    int      `json:"confidence"`
	RNGSeed       string   `json:"rng_seed"`
	PresentedAt   *string  `json:"presented_at,omitempty"`
	SubmittedAt   string   `json:"submitted_at"`
}

// Exporter produces judgment exports from the store.
type Exporter struct {
	database *db.DB
}

func NewExporter(database *db.DB) *Exporter {
	return &Exporter{database: database}
}

// ExportJSONL writes all judgments as JSONL, one judgment per line, in
// submission order. The anonymization map is fresh per export: the same
// rater gets the same pseudonym within one file, different ones across
// files.
func (e *Exporter) ExportJSONL(w io.Writer) error {
	judgments, err := e.database.ListJudgments()
	if err != nil {
		return fmt.Errorf("listing judgments: %w", err)
	}

	anon := newAnonMap()
	exportedAt := time.Now().UTC().Format(time.RFC3339)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	for i := range judgments {
		if err := enc.Encode(exportJudgment(&judgments[i], anon, exportedAt)); err != nil {
			return err
		}
	}
	return nil
}

// ExportCSV writes all judgments as CSV with list columns pipe-joined.
func (e *Exporter) ExportCSV(w io.Writer) error {
	judgments, err := e.database.ListJudgments()
	if err != nil {
		return fmt.Errorf("listing judgments: %w", err)
	}

	anon := newAnonMap()
	exportedAt := time.Now().UTC().Format(time.RFC3339)
	cw := csv.NewWriter(w)
	header := []string{
		"judgment_id", "task_id", "query_id", "pair_id", "rater_id",
		"left_system_id", "right_system_id", "left_list", "right_list",
		"choice", "winner_system", "confidence", "rng_seed",
		"presented_at", "submitted_at", "exported_at",
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for i := range judgments {
		je := exportJudgment(&judgments[i], anon, exportedAt)
		row := []string{
			je.JudgmentID, je.TaskID, je.QueryID, je.PairID, je.RaterID,
			je.LeftSystemID, je.RightSystemID,
			strings.Join(je.LeftList, "|"), strings.Join(je.RightList, "|"),
			je.Choice, deref(je.WinnerSystem), strconv.Itoa(je.Confidence),
			je.RNGSeed, deref(je.PresentedAt), je.SubmittedAt, je.ExportedAt,
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func exportJudgment(j *db.Judgment, anon *anonMap, exportedAt string) JudgmentExport {
	je := JudgmentExport{
		ExportedAt:    exportedAt,
		Version:       "1.0",
		JudgmentID:    j.ID,
		TaskID:        j.TaskID,
		QueryID:       j.QueryID,
		PairID:        j.PairID,
		RaterID:       anon.get(j.RaterID),
		LeftSystemID:  j.LeftSystemID,
		RightSystemID: j.RightSystemID,
		LeftList:      j.LeftList,
		RightList:     j.RightList,
		Choice:        j.Choice,
		Confidence:    j.Confidence,
		RNGSeed:       j.RNGSeed,
		SubmittedAt:   j.SubmittedAt.UTC().Format(time.RFC3339),
	}
	switch j.Choice {
	case "left":
		je.WinnerSystem = &j.LeftSystemID
	case "right":
		je.WinnerSystem = &j.RightSystemID
	}
	if j.PresentedAt != nil {
		s := j.PresentedAt.UTC().Format(time.RFC3339)
		je.PresentedAt = &s
	}
	return je
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// anonMap maps real rater IDs to randomized stable pseudonyms within one
// export.
type anonMap struct {
	mapping map[string]string
	salt    string
}

func newAnonMap() *anonMap {
	salt := make([]byte, 16)
	rand.Read(salt)
	return &anonMap{
		mapping: make(map[string]string),
		salt:    hex.EncodeToString(salt),
	}
}

func (m *anonMap) get(realID string) string {
	if anon, ok := m.mapping[realID]; ok {
		return anon
	}
	hash := sha256.Sum256([]byte(m.salt + realID))
	anon := "rater_" + hex.EncodeToString(hash[:6])
	m.mapping[realID] = anon
	return anon
}
