package api

import (
	"log/slog"
	"net/http"

	"github.com/hazyhaar/songarena/internal/export"
)

// handleExportJSONL streams all judgments as JSONL with rater IDs
// anonymized.
// GET /api/admin/export/judgments.jsonl
func (a *API) handleExportJSONL(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Content-Disposition", `attachment; filename="judgments.jsonl"`)
	if err := export.NewExporter(a.db).ExportJSONL(w); err != nil {
		// Headers may already be out; log and abort the stream.
		slog.Error("judgment export failed", "format", "jsonl", "error", err)
	}
}

// handleExportCSV streams all judgments as CSV.
// GET /api/admin/export/judgments.csv
func (a *API) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="judgments.csv"`)
	if err := export.NewExporter(a.db).ExportCSV(w); err != nil {
		slog.Error("judgment export failed", "format", "csv", "error", err)
	}
}
