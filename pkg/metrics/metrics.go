package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	namespace = "gangway"
	subsystem = "core"

	LabelOutcome = "outcome"
	LabelState   = "state"
	LabelTenant  = "tenant"
)

func Dispatch(outcome string) {
	dispatches.With(prometheus.Labels{
		LabelOutcome: outcome,
	}).Inc()
}

func DeployResult(state, tenant string, duration time.Duration) {
	deploys.With(prometheus.Labels{
		LabelState:  state,
		LabelTenant: tenant,
	}).Inc()

	deployDuration.With(prometheus.Labels{
		LabelState: state,
	}).Observe(duration.Seconds())
}

func HealthCheck() {
	healthChecks.Inc()
}

var (
	dispatches = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:      "dispatches_total",
		Help:      "number of operations dispatched to the remote platform, by outcome",
		Namespace: namespace,
		Subsystem: subsystem,
	},
		[]string{
			LabelOutcome,
		},
	)

	deploys = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name:      "deploys_total",
		Help:      "number of deployment jobs, by terminal state",
		Namespace: namespace,
		Subsystem: subsystem,
	},
		[]string{
			LabelState,
			LabelTenant,
		},
	)

	healthChecks = prometheus.NewCounter(prometheus.CounterOpts{
		Name:      "health_checks_total",
		Help:      "number of health queries issued by the poller",
		Namespace: namespace,
		Subsystem: subsystem,
	})

	deployDuration = prometheus.NewSummaryVec(prometheus.SummaryOpts{
		Name:      "deploy_duration_seconds",
		Help:      "time from job start to terminal state",
		Namespace: namespace,
		Subsystem: subsystem,
	},
		[]string{
			LabelState,
		},
	)
)

func init() {
	prometheus.MustRegister(dispatches)
	prometheus.MustRegister(deploys)
	prometheus.MustRegister(healthChecks)
	prometheus.MustRegister(deployDuration)
}

func Handler() http.Handler {
	return promhttp.Handler()
}
