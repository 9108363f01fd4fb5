package api

import (
	"net/http"
	"net/url"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/soaringjerry/teacheval/internal/middleware"
	"github.com/soaringjerry/teacheval/internal/services"
	"github.com/soaringjerry/teacheval/internal/utils"
)

// filterFromQuery reads teacher, term, year, month, yearLevel and team.
// Missing values and "All" mean no restriction.
func filterFromQuery(q url.Values) (services.Filter, error) {
	f := services.Filter{
		TeacherName: q.Get("teacher"),
		Term:        q.Get("term"),
		YearLevel:   q.Get("yearLevel"),
		Team:        q.Get("team"),
	}
	var err error
	if f.Year, err = services.ParseYear(q.Get("year")); err != nil {
		return f, err
	}
	if f.Month, err = services.ParseMonth(q.Get("month")); err != nil {
		return f, err
	}
	return f, nil
}

// GET /api/dashboard
func (rt *Router) handleDashboard(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r.URL.Query())
	if err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	refresh, _ := strconv.ParseBool(r.URL.Query().Get("refresh"))
	d, err := rt.Results.Dashboard(r.Context(), f, refresh)
	if err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rt.dashboardBody(r, d))
}

func (rt *Router) dashboardBody(r *http.Request, d *services.Dashboard) map[string]any {
	locale := middleware.LocaleFromContext(r.Context())
	body := map[string]any{"dashboard": d}
	if d.NoData {
		body["message"] = utils.T(locale, "dashboard.nodata")
	}
	if d.StoreUnavailable {
		body["warning"] = utils.T(locale, "store.unavailable")
	}
	return body
}

// GET /api/dashboard/export
func (rt *Router) handleExport(w http.ResponseWriter, r *http.Request) {
	f, err := filterFromQuery(r.URL.Query())
	if err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	name, data, err := rt.Results.Export(r.Context(), f)
	if err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename*=UTF-8''"+url.PathEscape(name))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// GET /api/dashboard/options?teacher=
func (rt *Router) handleOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := rt.Results.Options(r.Context(), r.URL.Query().Get("teacher"))
	if err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

// GET /api/public/results?teacher=
func (rt *Router) handlePublicResults(w http.ResponseWriter, r *http.Request) {
	d, err := rt.Results.PublicResults(r.Context(), r.URL.Query().Get("teacher"))
	if err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rt.dashboardBody(r, d))
}

// POST /api/links
func (rt *Router) handleFormLink(w http.ResponseWriter, r *http.Request) {
	var req services.FormLinkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	link, err := rt.Links.FormLink(r.Context(), req)
	if err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, link)
}

// GET /api/public-links
func (rt *Router) handleListPublicLinks(w http.ResponseWriter, r *http.Request) {
	list, err := rt.Links.ListPublic(r.Context())
	if err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"links": list})
}

type setPublicLinkRequest struct {
	Enabled bool `json:"enabled"`
}

// PUT /api/public-links/{teacher}
func (rt *Router) handleSetPublicLink(w http.ResponseWriter, r *http.Request) {
	// chi matches on RawPath when it is set, leaving the parameter escaped.
	teacher := chi.URLParam(r, "teacher")
	if r.URL.RawPath != "" {
		if unescaped, err := url.PathUnescape(teacher); err == nil {
			teacher = unescaped
		}
	}
	var req setPublicLinkRequest
	if err := decodeJSON(w, r, &req); err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	st, err := rt.Links.SetPublic(r.Context(), teacher, req.Enabled)
	if err != nil {
		rt.writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
