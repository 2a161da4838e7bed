// Package api exposes the arena over HTTP: rater registration and rating
// flow, and the admin surface for uploads, policy management,
// materialization and export.
package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"regexp"
	"time"

	"github.com/hazyhaar/songarena/internal/arena"
	"github.com/hazyhaar/songarena/internal/auth"
	"github.com/hazyhaar/songarena/internal/config"
	"github.com/hazyhaar/songarena/internal/db"
)

// handleRe validates rater handle format: ASCII alphanumeric, underscore,
// hyphen only.
var handleRe = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// maxBodySize is the maximum HTTP body size for upload endpoints.
const maxBodySize = 10 * 1024 * 1024 // 10MB batches

// RegisterRateLimiter guards rater registration (30 req/60s per IP).
var RegisterRateLimiter = NewRateLimiter(30, 60*time.Second)

type API struct {
	db        *db.DB
	auth      *auth.Auth
	arenaCfg  config.ArenaConfig
	scheduler *arena.Scheduler
	recorder  *arena.Recorder
}

func New(database *db.DB, a *auth.Auth, arenaCfg config.ArenaConfig) *API {
	return &API{
		db:        database,
		auth:      a,
		arenaCfg:  arenaCfg,
		scheduler: arena.NewScheduler(database),
		recorder:  arena.NewRecorder(database),
	}
}

// RegisterRoutes mounts all API endpoints on the mux.
func (a *API) RegisterRoutes(mux *http.ServeMux) {
	// Rating flow
	mux.HandleFunc("POST /api/raters", RateLimitMiddleware(RegisterRateLimiter, a.handleRegisterRater))
	mux.HandleFunc("GET /api/task/next", a.handleNextTask)
	mux.HandleFunc("POST /api/judgments", a.handleSubmitJudgment)
	mux.HandleFunc("GET /api/progress", a.handleRaterProgress)

	// Admin
	mux.HandleFunc("POST /api/admin/login", a.handleAdminLogin)
	mux.HandleFunc("POST /api/admin/queries", a.requireAdmin(a.handleUploadQueries))
	mux.HandleFunc("POST /api/admin/queries/{id}/practice", a.requireAdmin(a.handleMarkPractice))
	mux.HandleFunc("POST /api/admin/tracks", a.requireAdmin(a.handleUploadTracks))
	mux.HandleFunc("POST /api/admin/candidates", a.requireAdmin(a.handleUploadCandidates))
	mux.HandleFunc("POST /api/admin/policy", a.requireAdmin(a.handleSetPolicy))
	mux.HandleFunc("POST /api/admin/policy/{version}/activate", a.requireAdmin(a.handleActivatePolicy))
	mux.HandleFunc("POST /api/admin/materialize", a.requireAdmin(a.handleMaterialize))
	mux.HandleFunc("GET /api/admin/stats", a.requireAdmin(a.handleStats))
	mux.HandleFunc("GET /api/admin/progress/pairs", a.requireAdmin(a.handlePairProgress))
	mux.HandleFunc("GET /api/admin/progress/queries", a.requireAdmin(a.handleQueryProgress))
	mux.HandleFunc("POST /api/admin/raters/{id}/caps", a.requireAdmin(a.handleSetRaterCaps))
	mux.HandleFunc("POST /api/admin/assignments/expire", a.requireAdmin(a.handleExpireAssignments))
	mux.HandleFunc("GET /api/admin/export/judgments.jsonl", a.requireAdmin(a.handleExportJSONL))
	mux.HandleFunc("GET /api/admin/export/judgments.csv", a.requireAdmin(a.handleExportCSV))
}

// raterID extracts the authenticated rater, or writes 401 and returns "".
func (a *API) raterID(w http.ResponseWriter, r *http.Request) string {
	claims := a.auth.ExtractClaims(r)
	if claims == nil || claims.RaterID == "" {
		jsonError(w, "authentication required", http.StatusUnauthorized)
		return ""
	}
	return claims.RaterID
}

func (a *API) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		claims := a.auth.ExtractClaims(r)
		if claims == nil || !claims.Admin {
			jsonError(w, "admin authentication required", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}

// handleAdminLogin exchanges the admin password for an admin token.
// POST /api/admin/login {"password": "..."}
func (a *API) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if !a.auth.CheckAdminPassword(req.Password) {
		jsonError(w, "invalid password", http.StatusUnauthorized)
		return
	}
	token, err := a.auth.AdminToken()
	if err != nil {
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	jsonResp(w, http.StatusOK, map[string]string{"token": token})
}

// handleRegisterRater creates a rater with caps from config and returns a
// session token.
// POST /api/raters {"handle": "..."}
func (a *API) handleRegisterRater(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Handle string `json:"handle"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, "invalid request body", http.StatusBadRequest)
		return
	}
	if req.Handle == "" || !handleRe.MatchString(req.Handle) {
		jsonError(w, "handle must be non-empty alphanumeric/underscore/hyphen", http.StatusBadRequest)
		return
	}

	rater, err := a.db.CreateRater(req.Handle, a.arenaCfg.SoftCap, a.arenaCfg.TotalCap)
	if errors.Is(err, db.ErrDuplicate) {
		jsonError(w, "handle already taken", http.StatusConflict)
		return
	}
	if err != nil {
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}

	token, err := a.auth.RaterToken(rater.ID, rater.Handle)
	if err != nil {
		jsonError(w, "internal error", http.StatusInternalServerError)
		return
	}
	jsonResp(w, http.StatusCreated, map[string]any{
		"rater": rater,
		"token": token,
	})
}

func jsonResp(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func jsonError(w http.ResponseWriter, msg string, status int) {
	jsonResp(w, status, map[string]string{"error": msg})
}
