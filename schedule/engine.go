package schedule

// Engine is the execution collaborator that actually fires callbacks. The
// scheduler resolves specifications and tracks identities; everything about
// trigger computation, cron parsing, worker pools and cluster singleton
// enforcement lives behind this boundary.
type Engine interface {
	// Schedule registers fn under id with the resolved job options. An id
	// already present replaces the prior job.
	Schedule(id string, fn func(), opts JobOptions) error

	// Unschedule removes the job with the given id and reports whether a job
	// was actually removed.
	Unschedule(id string) bool

	// Count reports the number of currently scheduled jobs.
	Count() int

	// Stop shuts the engine down. It is called once, when the registry evicts
	// the instance.
	Stop()
}

// Factory constructs an engine for a given configuration. The registry calls
// it at most once per distinct configuration value; the instance is reused
// until it becomes idle and is evicted.
type Factory func(cfg EngineConfig) (Engine, error)
