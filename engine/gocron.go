// Package engine provides the default execution engine on top of gocron.
// It maps resolved job options onto gocron job definitions and implements the
// schedule.Engine boundary: replace-by-id registration, removal, job count
// and shutdown.
package engine

import (
	"fmt"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/okampfer/go-chrono/schedule"
)

// Gocron runs jobs on a gocron scheduler. One instance corresponds to one
// engine configuration; the registry creates it lazily and stops it when it
// holds no more jobs.
type Gocron struct {
	mu   sync.Mutex
	s    gocron.Scheduler
	jobs map[string]gocron.Job
}

var _ schedule.Engine = (*Gocron)(nil)

// Factory builds engines for a scheduler registry.
func Factory() schedule.Factory {
	return func(cfg schedule.EngineConfig) (schedule.Engine, error) {
		return New(cfg)
	}
}

// New creates and starts an engine with cfg's worker pool size.
func New(cfg schedule.EngineConfig) (*Gocron, error) {
	workers := cfg.Workers
	if workers <= 0 {
		workers = schedule.DefaultWorkers
	}

	s, err := gocron.NewScheduler(
		gocron.WithLimitConcurrentJobs(uint(workers), gocron.LimitModeWait), //nolint:gosec // G115: workers is validated positive
	)
	if err != nil {
		return nil, fmt.Errorf("engine: failed to create gocron scheduler: %w", err)
	}
	s.Start()

	return &Gocron{s: s, jobs: make(map[string]gocron.Job)}, nil
}

// Schedule registers fn under id. A job already registered under id is
// replaced; if gocron rejects the new definition the prior job stays in place.
func (g *Gocron) Schedule(id string, fn func(), opts schedule.JobOptions) error {
	definition, jobOptions := buildJob(opts, time.Now())

	g.mu.Lock()
	defer g.mu.Unlock()

	job, err := g.s.NewJob(definition, gocron.NewTask(fn), jobOptions...)
	if err != nil {
		return fmt.Errorf("engine: %w", err)
	}

	if prev, ok := g.jobs[id]; ok {
		_ = g.s.RemoveJob(prev.ID())
	}
	g.jobs[id] = job
	return nil
}

// Unschedule removes the job with the given id, reporting whether one existed.
func (g *Gocron) Unschedule(id string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()

	job, ok := g.jobs[id]
	if !ok {
		return false
	}
	delete(g.jobs, id)
	_ = g.s.RemoveJob(job.ID())
	return true
}

// Count reports the number of currently registered jobs.
func (g *Gocron) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.jobs)
}

// Stop shuts the gocron scheduler down.
func (g *Gocron) Stop() {
	_ = g.s.Shutdown()
}

// buildJob maps resolved job options onto a gocron job definition. Precedence:
// a cron expression wins, then a repeat interval, then a one-shot at the
// resolved start time (immediately when no start was given). An `in` delay is
// translated to an absolute start relative to now; an explicit `at` wins over
// `in` when both are present.
func buildJob(opts schedule.JobOptions, now time.Time) (gocron.JobDefinition, []gocron.JobOption) {
	var start *time.Time
	if opts.At != nil {
		start = opts.At
	} else if opts.In != nil {
		t := now.Add(*opts.In)
		start = &t
	}

	var jobOptions []gocron.JobOption
	if opts.Until != nil {
		jobOptions = append(jobOptions, gocron.WithStopAt(gocron.WithStopDateTime(*opts.Until)))
	}
	if opts.Limit != nil {
		jobOptions = append(jobOptions, gocron.WithLimitedRuns(uint(*opts.Limit))) //nolint:gosec // G115: limit is validated non-negative
	}
	if opts.Singleton {
		jobOptions = append(jobOptions, gocron.WithSingletonMode(gocron.LimitModeReschedule))
	}

	var definition gocron.JobDefinition
	switch {
	case opts.Cron != "":
		definition = gocron.CronJob(opts.Cron, false)
		if start != nil {
			jobOptions = append(jobOptions, gocron.WithStartAt(gocron.WithStartDateTime(*start)))
		}
	case opts.Every != nil:
		definition = gocron.DurationJob(*opts.Every)
		if start != nil {
			jobOptions = append(jobOptions, gocron.WithStartAt(gocron.WithStartDateTime(*start)))
		}
	default:
		if start != nil {
			definition = gocron.OneTimeJob(gocron.OneTimeJobStartDateTime(*start))
		} else {
			definition = gocron.OneTimeJob(gocron.OneTimeJobStartImmediately())
		}
	}

	return definition, jobOptions
}
