package importer

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds Prometheus collectors for import runs.
type Metrics struct {
	objectsCreated  *prometheus.CounterVec
	accountsCreated prometheus.Counter
	relationsSet    *prometheus.CounterVec
	exitRenames     prometheus.Counter
	failures        *prometheus.CounterVec
	phaseSeconds    *prometheus.GaugeVec
}

// NewMetrics creates the import collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		objectsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pennport_objects_created_total",
			Help: "Destination objects created, by class.",
		}, []string{"class"}),
		accountsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pennport_accounts_created_total",
			Help: "Destination accounts created.",
		}),
		relationsSet: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pennport_relations_set_total",
			Help: "Relations wired, by kind.",
		}, []string{"kind"}),
		exitRenames: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pennport_exit_renames_total",
			Help: "Exits renamed to resolve a name clash in their container.",
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pennport_import_failures_total",
			Help: "Failed import runs, by error kind.",
		}, []string{"kind"}),
		phaseSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pennport_phase_duration_seconds",
			Help: "Wall time of the last run of each phase.",
		}, []string{"phase"}),
	}

	reg.MustRegister(
		m.objectsCreated,
		m.accountsCreated,
		m.relationsSet,
		m.exitRenames,
		m.failures,
		m.phaseSeconds,
	)
	return m
}

// A nil *Metrics is valid and records nothing.

func (m *Metrics) objectCreated(class string) {
	if m != nil {
		m.objectsCreated.WithLabelValues(class).Inc()
	}
}

func (m *Metrics) accountCreated() {
	if m != nil {
		m.accountsCreated.Inc()
	}
}

func (m *Metrics) relationSet(kind Relation) {
	if m != nil {
		m.relationsSet.WithLabelValues(string(kind)).Inc()
	}
}

func (m *Metrics) exitRenamed() {
	if m != nil {
		m.exitRenames.Inc()
	}
}

func (m *Metrics) phaseDone(phase Phase, d time.Duration) {
	if m != nil {
		m.phaseSeconds.WithLabelValues(string(phase)).Set(d.Seconds())
	}
}

func (m *Metrics) failed(err error) {
	if m != nil {
		m.failures.WithLabelValues(errorKind(err)).Inc()
	}
}

// errorKind names the sentinel an import error matches.
func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrWorldNotEmpty):
		return "world_not_empty"
	case errors.Is(err, ErrDuplicateLegacyID):
		return "duplicate_legacy_id"
	case errors.Is(err, ErrUnknownTypeMapping):
		return "unknown_type_mapping"
	case errors.Is(err, ErrExternalStore):
		return "external_store"
	case errors.Is(err, ErrPanic):
		return "panic"
	}
	return "other"
}
