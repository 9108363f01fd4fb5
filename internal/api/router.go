package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/soaringjerry/teacheval/internal/gate"
	"github.com/soaringjerry/teacheval/internal/logging"
	"github.com/soaringjerry/teacheval/internal/metrics"
	"github.com/soaringjerry/teacheval/internal/middleware"
	"github.com/soaringjerry/teacheval/internal/models"
	"github.com/soaringjerry/teacheval/internal/services"
	"github.com/soaringjerry/teacheval/internal/utils"
)

// Deps are the services behind the HTTP API.
type Deps struct {
	Submissions *services.SubmissionService
	Results     *services.ResultsService
	Links       *services.LinkService
	Auth        *services.AuthService
	Directory   services.DirectoryStore
	Flags       gate.FlagReader
	Tokens      *middleware.Tokens
	Categories  []models.Category
	Log         logging.Logger

	Commit      string
	BuildTime   string
	CORSOrigins []string
	StaticDir   string
}

type Router struct {
	Deps
	now func() time.Time
}

func NewRouter(d Deps) *Router {
	if d.Log == nil {
		d.Log = logging.Discard()
	}
	if d.Tokens == nil {
		d.Tokens = middleware.NewTokens("")
	}
	return &Router{Deps: d, now: time.Now}
}

// Handler builds the chi route tree.
func (rt *Router) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestLogger(rt.Log))
	r.Use(middleware.SecureHeaders)
	r.Use(middleware.CORS(rt.CORSOrigins))
	r.Use(middleware.LocaleMiddleware)
	r.Use(rt.Tokens.WithAuth)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusNotFound, string(services.ErrorNotFound))
	})

	r.Get("/health", rt.handleHealth)
	r.Get("/version", rt.handleVersion)
	r.Handle("/metrics", metrics.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.NoStore)

		r.Get("/form", rt.handleForm)
		r.Get("/gate", rt.handleGate)
		r.Get("/gate/countdown", rt.handleCountdown)
		r.With(middleware.RequireAuth).Post("/gate/dashboard", rt.handleEnterDashboard)

		r.Post("/submissions", rt.handleSubmit)
		r.With(middleware.RequireAuth).Delete("/submissions/cache", rt.handleClearCache)

		r.Get("/teachers", rt.handleTeachers)
		r.Get("/teams", rt.handleTeams)
		r.Post("/auth/login", rt.handleLogin)

		r.Group(func(r chi.Router) {
			r.Use(middleware.RequireAuth)
			r.Get("/dashboard", rt.handleDashboard)
			r.Get("/dashboard/export", rt.handleExport)
			r.Get("/dashboard/options", rt.handleOptions)
			r.Post("/links", rt.handleFormLink)
			r.Get("/public-links", rt.handleListPublicLinks)
			r.Put("/public-links/{teacher}", rt.handleSetPublicLink)
		})

		r.Get("/public/results", rt.handlePublicResults)
	})

	if rt.StaticDir != "" {
		r.Handle("/*", http.FileServer(http.Dir(rt.StaticDir)))
	}
	return r
}

func (rt *Router) handleHealth(w http.ResponseWriter, r *http.Request) {
	locale := middleware.LocaleFromContext(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{
		"ok":         true,
		"name":       "Teacher Evaluation API",
		"locale":     locale,
		"msg":        utils.T(locale, "health.ok"),
		"commit":     rt.Commit,
		"build_time": rt.BuildTime,
	})
}

func (rt *Router) handleVersion(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"commit": rt.Commit, "build_time": rt.BuildTime})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

var statusByCode = map[services.ErrorCode]int{
	services.ErrorInvalid:      http.StatusBadRequest,
	services.ErrorForbidden:    http.StatusForbidden,
	services.ErrorNotFound:     http.StatusNotFound,
	services.ErrorUnauthorized: http.StatusUnauthorized,
	services.ErrorBadGateway:   http.StatusBadGateway,
	services.ErrorGone:         http.StatusGone,
}

// writeServiceError maps service errors to HTTP responses. Anything that is
// not a ServiceError is logged and reported as a plain 500.
func (rt *Router) writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	locale := middleware.LocaleFromContext(r.Context())
	var inc *services.IncompleteError
	if errors.As(err, &inc) {
		writeJSON(w, http.StatusBadRequest, map[string]any{
			"error":    "incomplete",
			"message":  utils.T(locale, "submit.incomplete"),
			"answered": inc.Answered,
			"total":    inc.Total,
			"missing":  inc.Missing,
		})
		return
	}
	if se, ok := services.AsServiceError(err); ok {
		status, known := statusByCode[se.Code]
		if !known {
			status = http.StatusInternalServerError
		}
		body := map[string]string{"error": string(se.Code), "message": se.Message}
		switch {
		case errors.Is(err, services.ErrAccessDenied):
			body["state"] = string(gate.StateAccessDenied)
			body["message"] = utils.T(locale, "gate.denied")
		case se.Code == services.ErrorGone:
			body["state"] = string(gate.StateExpired)
			body["message"] = utils.T(locale, "gate.expired")
		case se.Code == services.ErrorBadGateway:
			body["message"] = utils.T(locale, "submit.failed")
		case se.Code == services.ErrorUnauthorized:
			body["message"] = utils.T(locale, "auth.invalid")
		}
		writeJSON(w, status, body)
		return
	}
	rt.Log.Error("request failed", logging.Fields{"path": r.URL.Path}, err)
	writeError(w, http.StatusInternalServerError, "internal")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	if err := dec.Decode(v); err != nil {
		return services.NewInvalidError("invalid JSON body")
	}
	return nil
}
