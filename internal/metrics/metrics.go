package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "evaluation",
		Name:      "submissions_total",
		Help:      "Submission attempts by result (ok, incomplete, invalid, expired, store_error).",
	}, []string{"result"})

	StoreRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "evaluation",
		Name:      "store_requests_total",
		Help:      "Calls to the spreadsheet store and directory.",
	}, []string{"op", "result"})

	GateDecisions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "evaluation",
		Name:      "gate_decisions_total",
		Help:      "Access gate decisions by resulting state.",
	}, []string{"state"})

	HTTPRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "evaluation",
		Name:      "http_requests_total",
		Help:      "HTTP requests by method and status code.",
	}, []string{"method", "status"})
)

// ObserveStore counts one store call.
func ObserveStore(op string, err error) {
	StoreRequests.WithLabelValues(op, result(err)).Inc()
}

func result(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// Handler serves the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}
