// Package metrics exposes prometheus collectors for both node roles.
// A nil *Metrics is valid and records nothing.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"power_windows/internal/models"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "power_windows"

type Metrics struct {
	reg *prometheus.Registry

	httpRequestsTotal *prometheus.CounterVec
	httpDuration      *prometheus.HistogramVec
	commandsApplied   *prometheus.CounterVec
	motionState       *prometheus.GaugeVec
	interrupts        *prometheus.CounterVec
	faults            prometheus.Counter
	relayed           *prometheus.CounterVec
	reachableDoors    prometheus.Gauge
	broadcastLag      *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		httpRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total count of HTTP requests processed by route and status.",
		}, []string{"route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Histogram of HTTP request durations by route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),
		commandsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "door_commands_applied_total",
			Help:      "Commands applied to the motion controller by kind and result.",
		}, []string{"kind", "result"}),
		motionState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "door_motion_state",
			Help:      "Current motion state (1 for the active state label, 0 otherwise).",
		}, []string{"door", "state"}),
		interrupts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "door_interrupts_total",
			Help:      "Supervisor-initiated stops by reason.",
		}, []string{"reason"}),
		faults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "door_faults_total",
			Help:      "Hardware or command-handling faults reported to the breaker.",
		}),
		relayed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "hub_relayed_commands_total",
			Help:      "Commands relayed to door nodes by door, command and result.",
		}, []string{"door", "command", "result"}),
		reachableDoors: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "hub_reachable_doors",
			Help:      "Doors with a known network address.",
		}),
		broadcastLag: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "broadcast_dropped_total",
			Help:      "Messages a lagging consumer skipped, by consumer.",
		}, []string{"consumer"}),
	}

	m.reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.httpRequestsTotal,
		m.httpDuration,
		m.commandsApplied,
		m.motionState,
		m.interrupts,
		m.faults,
		m.relayed,
		m.reachableDoors,
		m.broadcastLag,
	)
	return m
}

// Handler serves the collectors of this instance.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

func (m *Metrics) ObserveHTTP(route string, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.httpRequestsTotal.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(elapsed.Seconds())
}

// CommandApplied counts one command; result is "ok" or "error".
func (m *Metrics) CommandApplied(kind models.CommandKind, result string) {
	if m == nil {
		return
	}
	m.commandsApplied.WithLabelValues(kind.String(), result).Inc()
}

// MotionState sets the state label of door to 1 and every other label to 0.
func (m *Metrics) MotionState(door models.DoorIdentity, st models.MotionState) {
	if m == nil {
		return
	}
	for _, s := range models.AllMotionStates() {
		v := 0.0
		if s == st {
			v = 1
		}
		m.motionState.WithLabelValues(string(door), s.String()).Set(v)
	}
}

func (m *Metrics) Interrupt(reason string) {
	if m == nil {
		return
	}
	m.interrupts.WithLabelValues(reason).Inc()
}

func (m *Metrics) Fault() {
	if m == nil {
		return
	}
	m.faults.Inc()
}

func (m *Metrics) Relayed(door models.DoorIdentity, kind models.CommandKind, result string) {
	if m == nil {
		return
	}
	m.relayed.WithLabelValues(string(door), kind.String(), result).Inc()
}

func (m *Metrics) ReachableDoors(n int) {
	if m == nil {
		return
	}
	m.reachableDoors.Set(float64(n))
}

func (m *Metrics) Lagged(consumer string, dropped uint64) {
	if m == nil {
		return
	}
	m.broadcastLag.WithLabelValues(consumer).Add(float64(dropped))
}
