package importer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/crystal-mush/pennport/pkg/config"
	"github.com/crystal-mush/pennport/pkg/events"
	"github.com/crystal-mush/pennport/pkg/gamedb"
)

// Phase names a stage of an import run.
type Phase string

const (
	PhasePrecondition Phase = "precondition"
	PhaseIdentity     Phase = "identity"
	PhaseSkeleton     Phase = "skeleton"
	PhaseRelations    Phase = "relations"
	PhaseFinalize     Phase = "finalize"
)

// State is the remap table a run builds.
type State struct {
	LegacyToNew           map[gamedb.DBRef]uuid.UUID
	AccountsByLegacyOwner map[gamedb.DBRef]uuid.UUID
	Unassigned            uuid.UUID

	// Created lists migrated legacy ids in creation order.
	Created []gamedb.DBRef
}

func newState() *State {
	return &State{
		LegacyToNew:           make(map[gamedb.DBRef]uuid.UUID),
		AccountsByLegacyOwner: make(map[gamedb.DBRef]uuid.UUID),
	}
}

// Result is the outcome of one run. Err is nil on success; on failure it
// is a *PhaseError and the counters show how far the run got.
type Result struct {
	State       *State
	Objects     int
	Accounts    int
	Relations   int
	ExitRenames int
	Phase       Phase // last phase entered
	Err         error
}

// Pipeline migrates one linked snapshot into a Store.
type Pipeline struct {
	db         *gamedb.Database
	store      Store
	conf       *config.Config
	classifier Classifier
	reporter   Reporter
	log        logrus.FieldLogger
	metrics    *Metrics
	bus        *events.Bus
	ledger     Ledger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

func WithConfig(conf *config.Config) Option { return func(p *Pipeline) { p.conf = conf } }

// WithClassifier overrides the core code parent lookup.
func WithClassifier(c Classifier) Option { return func(p *Pipeline) { p.classifier = c } }

// WithReporter sets who receives the final message. The default logs it.
func WithReporter(r Reporter) Option { return func(p *Pipeline) { p.reporter = r } }

func WithLogger(log logrus.FieldLogger) Option { return func(p *Pipeline) { p.log = log } }

func WithMetrics(m *Metrics) Option { return func(p *Pipeline) { p.metrics = m } }

func WithBus(bus *events.Bus) Option { return func(p *Pipeline) { p.bus = bus } }

func WithLedger(l Ledger) Option { return func(p *Pipeline) { p.ledger = l } }

// New creates a pipeline for db. The snapshot is linked on Run if it has
// not been already.
func New(db *gamedb.Database, store Store, opts ...Option) *Pipeline {
	p := &Pipeline{
		db:    db,
		store: store,
		conf:  config.Default(),
		log:   logrus.StandardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.reporter == nil {
		p.reporter = logReporter{log: p.log}
	}
	return p
}

// Run executes the four phases in order. It never panics and never returns
// an error other than through Result.Err. Exactly one message goes to the
// Reporter. Objects created before a failure are left in place.
func (p *Pipeline) Run(ctx context.Context) (res *Result) {
	res = &Result{State: newState()}
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			res.Err = phaseErr(res.Phase, gamedb.Nothing, ErrPanic, fmt.Errorf("%v", r))
		}
		p.conclude(res, time.Since(start))
	}()

	res.Err = p.run(ctx, res)
	return res
}

type phaseFunc func(ctx context.Context, res *Result) error

func (p *Pipeline) run(ctx context.Context, res *Result) error {
	res.Phase = PhasePrecondition
	if !p.db.Linked() {
		p.db.Link()
	}
	if p.classifier == nil {
		c, found := CoreCodeClassifier(p.db, p.conf)
		if !found {
			p.log.WithField("name", p.conf.CoreCodeParent).Warn("import: no core code parent; no accounts or groups will be recognised")
		}
		p.classifier = c
	}

	n, err := p.store.ObjectCount(ctx)
	if err != nil {
		return storeErr(PhasePrecondition, gamedb.Nothing, err)
	}
	if n > 0 {
		return phaseErr(PhasePrecondition, gamedb.Nothing, ErrWorldNotEmpty, fmt.Errorf("%d objects present", n))
	}

	phases := []struct {
		phase Phase
		fn    phaseFunc
	}{
		{PhaseIdentity, p.identity},
		{PhaseSkeleton, p.skeleton},
		{PhaseRelations, p.relations},
		{PhaseFinalize, p.finalize},
	}
	for _, ph := range phases {
		res.Phase = ph.phase
		log := p.log.WithField("phase", ph.phase)
		log.Debug("import: phase start")
		p.bus.Emit(events.Event{Type: events.EvPhaseStart, Phase: string(ph.phase), Legacy: gamedb.Nothing})

		t := time.Now()
		if err := ph.fn(ctx, res); err != nil {
			return err
		}
		elapsed := time.Since(t)
		p.metrics.phaseDone(ph.phase, elapsed)
		log.WithField("elapsed", elapsed).Debug("import: phase done")
		p.bus.Emit(events.Event{Type: events.EvPhaseDone, Phase: string(ph.phase), Legacy: gamedb.Nothing})
	}
	return nil
}

func (p *Pipeline) conclude(res *Result, elapsed time.Duration) {
	if res.Err != nil {
		p.metrics.failed(res.Err)
		p.log.WithError(res.Err).WithField("phase", res.Phase).Error("import: run aborted")
		msg := fmt.Sprintf("Import failed: %v (%d accounts and %d objects were created and remain in place)",
			res.Err, res.Accounts, res.Objects)
		p.bus.Emit(events.Event{Type: events.EvRunFailed, Phase: string(res.Phase), Legacy: gamedb.Nothing, Text: msg})
		p.reporter.Report(msg)
		return
	}

	msg := fmt.Sprintf("Import complete: %d accounts, %d objects, %d relations, %d exits renamed.",
		res.Accounts, res.Objects, res.Relations, res.ExitRenames)
	p.log.WithFields(logrus.Fields{
		"accounts":  res.Accounts,
		"objects":   res.Objects,
		"relations": res.Relations,
		"elapsed":   elapsed,
	}).Info("import: run complete")
	p.bus.Emit(events.Event{Type: events.EvRunDone, Phase: string(res.Phase), Legacy: gamedb.Nothing, Text: msg})
	p.reporter.Report(msg)
}
