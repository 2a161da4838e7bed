package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/hazyhaar/songarena/internal/arena"
)

// handleNextTask claims and returns the next blinded comparison for the
// authenticated rater.
// GET /api/task/next
func (a *API) handleNextTask(w http.ResponseWriter, r *http.Request) {
	raterID := a.raterID(w, r)
	if raterID == "" {
		return
	}

	payload, err := a.scheduler.Next(raterID)
	switch {
	case errors.Is(err, arena.ErrNotFound):
		jsonError(w, "unknown rater", http.StatusNotFound)
	case errors.Is(err, arena.ErrNoTasks):
		jsonResp(w, http.StatusOK, map[string]any{"done": true})
	case errors.Is(err, arena.ErrCapacityExceeded):
		jsonError(w, "assignment cap reached", http.StatusForbidden)
	case errors.Is(err, arena.ErrNoActivePolicy):
		jsonError(w, "no active policy", http.StatusConflict)
	case errors.Is(err, arena.ErrConflict):
		jsonError(w, "could not claim a task, retry", http.StatusConflict)
	case err != nil:
		jsonError(w, "internal error", http.StatusInternalServerError)
	default:
		jsonResp(w, http.StatusOK, payload)
	}
}

// handleSubmitJudgment records the rater's decision for a held task.
// POST /api/judgments {"task_id","choice","confidence","presented_at"}
func (a *API) handleSubmitJudgment(w http.ResponseWriter, r *http.Request) {
	raterID := a.raterID(w, r)
	if raterID == "" {
		return
	}

	var req struct {
		TaskID      string `json:"task_id"`
		Choice      string `json:"choice"`
		Confidence  int    `json:"confidence"`
		PresentedAt string `json:"presented_at,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.TaskID == "" {
		jsonError(w, "task_id is required", http.StatusBadRequest)
		return
	}
	var presentedAt *time.Time
	if req.PresentedAt != "" {
		t, err := time.Parse(time.RFC3339, req.PresentedAt)
		if err != nil {
			jsonError(w, "presented_at must be RFC 3339", http.StatusBadRequest)
			return
		}
		presentedAt = &t
	}

	j, err := a.recorder.Submit(raterID, req.TaskID, req.Choice, req.Confidence, presentedAt)
	var verr *arena.ValidationError
	switch {
	case errors.As(err, &verr):
		jsonError(w, verr.Error(), http.StatusBadRequest)
	case errors.Is(err, arena.ErrNotFound):
		jsonError(w, "no claim on this task", http.StatusNotFound)
	case errors.Is(err, arena.ErrAlreadySubmitted):
		jsonError(w, "judgment already submitted for this task", http.StatusConflict)
	case errors.Is(err, arena.ErrConflict):
		jsonError(w, "task no longer accepts judgments", http.StatusConflict)
	case err != nil:
		jsonError(w, "internal error", http.StatusInternalServerError)
	default:
		jsonResp(w, http.StatusCreated, j)
	}
}

// handleRaterProgress reports the rater's assignment counts against caps.
// GET /api/progress
func (a *API) handleRaterProgress(w http.ResponseWriter, r *http.Request) {
	raterID := a.raterID(w, r)
	if raterID == "" {
		return
	}
	p, err := a.recorder.Progress(raterID)
	if errors.Is(err, arena.ErrNotFound) {
		jsonError(w, "unknown rater", http.StatusNotFound)
		return
	}
	if err != nil {
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	jsonResp(w, http.StatusOK, p)
}
