package api

import (
	"fmt"
	"net/http"
	"time"

	"github.com/soaringjerry/teacheval/internal/gate"
	"github.com/soaringjerry/teacheval/internal/logging"
	"github.com/soaringjerry/teacheval/internal/metrics"
	"github.com/soaringjerry/teacheval/internal/middleware"
	"github.com/soaringjerry/teacheval/internal/models"
	"github.com/soaringjerry/teacheval/internal/utils"
)

func (rt *Router) location() *time.Location {
	if rt.Results != nil {
		return rt.Results.Location()
	}
	return time.UTC
}

func (rt *Router) defaultInfo() models.TeacherInfo {
	return models.DefaultTeacherInfo(rt.now().In(rt.location()))
}

// GET /api/form
func (rt *Router) handleForm(w http.ResponseWriter, r *http.Request) {
	labels := models.RatingLabels
	if middleware.LocaleFromContext(r.Context()) == "en" {
		labels = models.RatingLabelsEN
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"categories":    rt.Categories,
		"labels":        labels,
		"letters":       models.RatingLetters,
		"terms":         models.Terms,
		"teacherInfo":   rt.defaultInfo(),
		"minRating":     models.MinRating,
		"maxRating":     models.MaxRating,
		"questionCount": models.TotalQuestions(rt.Categories),
	})
}

// GET /api/gate?teacher=...&exp=...&mode=...
func (rt *Router) handleGate(w http.ResponseWriter, r *http.Request) {
	d, err := gate.Resolve(r.Context(), r.URL.Query(), rt.Flags, rt.now(), rt.defaultInfo())
	if err != nil {
		rt.Log.Error("gate flag lookup failed", logging.Fields{"teacher": d.Teacher}, err)
	}
	metrics.GateDecisions.WithLabelValues(string(d.State)).Inc()

	locale := middleware.LocaleFromContext(r.Context())
	body := map[string]any{"decision": d}
	switch d.State {
	case gate.StateExpired:
		body["message"] = utils.T(locale, "gate.expired")
	case gate.StateAccessDenied:
		body["message"] = utils.T(locale, "gate.denied")
	}
	writeJSON(w, http.StatusOK, body)
}

// POST /api/gate/dashboard with the current gate query string in the URL.
func (rt *Router) handleEnterDashboard(w http.ResponseWriter, r *http.Request) {
	d, err := gate.Resolve(r.Context(), r.URL.Query(), rt.Flags, rt.now(), rt.defaultInfo())
	if err != nil {
		rt.Log.Error("gate flag lookup failed", logging.Fields{"teacher": d.Teacher}, err)
	}
	_, loggedIn := middleware.AdminFromContext(r.Context())
	next, ok := gate.EnterDashboard(d, loggedIn)
	if !ok {
		writeJSON(w, http.StatusForbidden, map[string]any{"error": "forbidden", "decision": d})
		return
	}
	metrics.GateDecisions.WithLabelValues(string(next.State)).Inc()
	writeJSON(w, http.StatusOK, map[string]any{"decision": next})
}

// GET /api/gate/countdown?exp=<epoch ms>
//
// Streams "tick" events with the remaining milliseconds once per second and a
// final "expired" event. The countdown stops when the client goes away.
func (rt *Router) handleCountdown(w http.ResponseWriter, r *http.Request) {
	exp, ok := gate.ParseExp(r.URL.Query().Get(gate.ParamExp))
	if !ok {
		writeError(w, http.StatusBadRequest, "exp required")
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	// Callbacks run on the countdown goroutine; writes are funnelled through
	// a channel so only this handler touches w.
	events := make(chan string, 1)
	cd := gate.StartCountdown(r.Context(), time.UnixMilli(exp), gate.CountdownConfig{
		Now: rt.now,
		OnTick: func(remaining time.Duration) {
			select {
			case events <- fmt.Sprintf("event: tick\ndata: %d\n\n", remaining.Milliseconds()):
			default:
			}
		},
		OnExpire: func() {
			events <- "event: expired\ndata: " + string(gate.StateExpired) + "\n\n"
		},
	})
	defer cd.Stop()

	for {
		select {
		case ev := <-events:
			_, _ = fmt.Fprint(w, ev)
			flusher.Flush()
		case <-cd.Done():
			// drain the final event, if any
			select {
			case ev := <-events:
				_, _ = fmt.Fprint(w, ev)
				flusher.Flush()
			default:
			}
			return
		}
	}
}
