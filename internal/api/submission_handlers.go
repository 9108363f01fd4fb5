package api

import (
	"net/http"
	"time"

	"github.com/soaringjerry/teacheval/internal/logging"
	"github.com/soaringjerry/teacheval/internal/middleware"
	"github.com/soaringjerry/teacheval/internal/models"
	"github.com/soaringjerry/teacheval/internal/services"
	"github.com/soaringjerry/teacheval/internal/utils"
)

// POST /api/submissions
func (rt *Router) handleSubmit(w http.ResponseWriter, r *http.Request) {
	var req services.SubmitRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	res, err := rt.Submissions.Submit(r.Context(), req)
	if err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"ok":         true,
		"message":    utils.T(middleware.LocaleFromContext(r.Context()), "submit.ok"),
		"submission": res.Submission,
		"sheetName":  res.SheetName,
	})
}

// DELETE /api/submissions/cache
func (rt *Router) handleClearCache(w http.ResponseWriter, r *http.Request) {
	if err := rt.Results.ClearCache(r.Context()); err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":      true,
		"message": utils.T(middleware.LocaleFromContext(r.Context()), "cache.cleared"),
	})
}

// GET /api/teachers. A directory failure still answers 200 with an empty
// list so the form stays usable.
func (rt *Router) handleTeachers(w http.ResponseWriter, r *http.Request) {
	teachers := []models.Teacher{}
	unavailable := rt.Directory == nil
	if !unavailable {
		list, err := rt.Directory.ListTeachers(r.Context())
		if err != nil {
			rt.Log.Warn("list teachers failed", err)
			unavailable = true
		} else if list != nil {
			teachers = list
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"teachers": teachers, "storeUnavailable": unavailable})
}

// GET /api/teams
func (rt *Router) handleTeams(w http.ResponseWriter, r *http.Request) {
	teams := []string{}
	unavailable := rt.Directory == nil
	if !unavailable {
		list, err := rt.Directory.ListTeams(r.Context())
		if err != nil {
			rt.Log.Warn("list teams failed", err)
			unavailable = true
		} else if list != nil {
			teams = list
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"teams": teams, "storeUnavailable": unavailable})
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// POST /api/auth/login
func (rt *Router) handleLogin(w http.ResponseWriter, r *http.Request) {
	if rt.Auth == nil {
		writeError(w, http.StatusServiceUnavailable, "login disabled")
		return
	}
	var req loginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	res, err := rt.Auth.Login(req.Username, req.Password)
	if err != nil {
		rt.Log.Warn("admin login failed", logging.Fields{"username": req.Username, "remote": r.RemoteAddr})
		rt.writeServiceError(w, r, err)
		return
	}
	out := map[string]any{"token": res.Token, "username": res.Username}
	if res.ExpiresAt != nil {
		out["expiresAt"] = res.ExpiresAt.UTC().Format(time.RFC3339)
	}
	writeJSON(w, http.StatusOK, out)
}
