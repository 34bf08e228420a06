// Package schedule turns declarative time specifications into scheduled jobs.
// A specification combines a one-shot delay or absolute time, a repeating
// interval or cron expression, and count/time limits; it resolves to a
// canonical JobSpec handed to an execution engine. Engines are cached per
// engine configuration: the first specification with a novel configuration
// creates an instance, later ones reuse it, and an engine whose last job is
// removed is stopped and evicted.
package schedule

import (
	"github.com/google/uuid"

	"github.com/okampfer/go-chrono/logger"
)

// Scheduler is the public entry point. It owns the engine registry, so each
// composition root (and each test) constructs its own isolated instance.
type Scheduler struct {
	log      logger.Logger
	clock    Clock
	defaults EngineConfig
	registry *registry
}

// SchedulerOption configures a Scheduler at construction time.
type SchedulerOption func(*Scheduler)

// WithLogger sets the logger. The default discards everything.
func WithLogger(log logger.Logger) SchedulerOption {
	return func(s *Scheduler) { s.log = log }
}

// WithClock sets the clock used to resolve wall-clock time expressions.
func WithClock(clock Clock) SchedulerOption {
	return func(s *Scheduler) { s.clock = clock }
}

// WithDefaults sets the engine configuration applied when a specification
// does not carry its own engine options.
func WithDefaults(cfg EngineConfig) SchedulerOption {
	return func(s *Scheduler) { s.defaults = cfg }
}

// New creates a Scheduler that builds engines through factory. It panics on a
// nil factory: a scheduler without an engine is a wiring error, caught at
// startup rather than on the first Schedule call.
func New(factory Factory, opts ...SchedulerOption) *Scheduler {
	if factory == nil {
		panic("schedule: engine factory must not be nil")
	}

	s := &Scheduler{
		log:      logger.NewNoop(),
		clock:    SystemClock,
		defaults: EngineConfig{Workers: DefaultWorkers},
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.defaults.Workers <= 0 {
		s.defaults.Workers = DefaultWorkers
	}
	s.registry = newRegistry(factory, s.log)
	return s
}

// Schedule registers fn to run according to the given specification and
// returns the fully resolved JobSpec, including the job identity and the
// engine configuration, for a later Stop. A specification without an id gets
// a generated one; re-registering under the same id replaces the prior job.
// Engine rejection is propagated, not retried.
func (s *Scheduler) Schedule(fn func(), args ...any) (JobSpec, error) {
	if fn == nil {
		return JobSpec{}, &ValidationError{
			Field:   "fn",
			Message: "must not be nil",
			Action:  "Pass the callback to run",
			Err:     ErrMalformedArguments,
		}
	}

	raw, err := foldArgs(args)
	if err != nil {
		return JobSpec{}, err
	}
	spec, err := resolveSpec(opSchedule, raw, s.clock, s.defaults)
	if err != nil {
		return JobSpec{}, err
	}
	if spec.ID == "" {
		spec.ID = uuid.NewString()
	}

	if err := s.registry.schedule(spec.Engine, spec.ID, fn, spec.Job); err != nil {
		return JobSpec{}, err
	}

	spec.IDs = map[EngineConfig][]string{spec.Engine: {spec.ID}}

	s.log.Info().
		Str("jobID", spec.ID).
		Int("workers", spec.Engine.Workers).
		Bool("singleton", spec.Job.Singleton).
		Msg("Job scheduled")

	return spec, nil
}

// Stop unschedules jobs and reports whether any job was actually removed.
// The target set is, in order of preference: an explicit ids mapping, the
// single id of the specification against its engine configuration, or every
// identity registered against that configuration through this scheduler.
// Stopping an already-unscheduled job is a no-op, not an error, so passing
// the same JobSpec twice returns false the second time.
func (s *Scheduler) Stop(args ...any) (bool, error) {
	raw, err := foldArgs(args)
	if err != nil {
		return false, err
	}
	spec, err := resolveSpec(opStop, raw, s.clock, s.defaults)
	if err != nil {
		return false, err
	}

	targets := spec.IDs
	if len(targets) == 0 {
		if spec.ID != "" {
			targets = map[EngineConfig][]string{spec.Engine: {spec.ID}}
		} else {
			targets = map[EngineConfig][]string{spec.Engine: s.registry.idsFor(spec.Engine)}
		}
	}

	return s.registry.stop(targets), nil
}

// Jobs returns a snapshot of the identities currently registered per engine
// configuration.
func (s *Scheduler) Jobs() map[EngineConfig][]string {
	return s.registry.snapshot()
}

// Shutdown stops every live engine and clears the registry. The scheduler
// remains usable; the next Schedule call builds fresh engines.
func (s *Scheduler) Shutdown() {
	s.registry.shutdown()
	s.log.Info().Msg("Scheduler shut down")
}
