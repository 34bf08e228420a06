package schedule

import (
	"fmt"
	"sort"
	"sync"

	"github.com/okampfer/go-chrono/logger"
)

// registry maps engine configurations to live engine instances plus the job
// identities registered against them through this layer. A single mutex
// serializes create-or-reuse and idle-check-or-evict decisions: without it,
// concurrent callers could build two engines for one configuration, or evict
// an engine another caller is scheduling onto.
type registry struct {
	mu      sync.Mutex
	factory Factory
	log     logger.Logger
	entries map[EngineConfig]*engineEntry
}

type engineEntry struct {
	config EngineConfig
	engine Engine
	ids    map[string]struct{}
}

func newRegistry(factory Factory, log logger.Logger) *registry {
	return &registry{
		factory: factory,
		log:     log,
		entries: make(map[EngineConfig]*engineEntry),
	}
}

// schedule hands the job to the engine for cfg, constructing the engine on
// first use of that configuration. The whole create-schedule-record sequence
// runs under the registry lock so a concurrent stop cannot evict the engine
// mid-flight. A freshly created engine is torn down again if its first job is
// rejected, leaving no empty entry behind.
func (r *registry) schedule(cfg EngineConfig, id string, fn func(), opts JobOptions) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[cfg]
	created := false
	if !ok {
		eng, err := r.factory(cfg)
		if err != nil {
			return fmt.Errorf("schedule: engine construction failed: %w", err)
		}
		entry = &engineEntry{config: cfg, engine: eng, ids: make(map[string]struct{})}
		r.entries[cfg] = entry
		created = true
		r.log.Info().Int("workers", cfg.Workers).Msg("Engine created")
	}

	if err := entry.engine.Schedule(id, fn, opts); err != nil {
		if created {
			entry.engine.Stop()
			delete(r.entries, cfg)
		}
		return fmt.Errorf("schedule: job '%s' %w: %w", id, ErrEngineReject, err)
	}

	entry.ids[id] = struct{}{}
	return nil
}

// stop unschedules every (engine, id) pair independently; one miss does not
// prevent the others. Unknown configurations are no-ops, never created. Each
// engine left without jobs is stopped and evicted. Reports whether any job
// was actually removed.
func (r *registry) stop(targets map[EngineConfig][]string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := false
	for cfg, ids := range targets {
		entry, ok := r.entries[cfg]
		if !ok {
			continue
		}
		for _, id := range ids {
			if entry.engine.Unschedule(id) {
				removed = true
				r.log.Debug().Str("jobID", id).Msg("Job unscheduled")
			}
			delete(entry.ids, id)
		}
		r.evictIfIdleLocked(entry)
	}
	return removed
}

// evictIfIdleLocked stops and removes the entry once its engine reports zero
// scheduled jobs. Must be called with r.mu held.
func (r *registry) evictIfIdleLocked(entry *engineEntry) {
	if entry.engine.Count() != 0 {
		return
	}
	entry.engine.Stop()
	delete(r.entries, entry.config)
	r.log.Info().Int("workers", entry.config.Workers).Msg("Idle engine stopped and evicted")
}

// idsFor returns the identities registered against cfg through this layer.
func (r *registry) idsFor(cfg EngineConfig) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.entries[cfg]
	if !ok {
		return nil
	}
	return sortedIDs(entry)
}

// snapshot reports the tracked identities per live engine configuration.
func (r *registry) snapshot() map[EngineConfig][]string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[EngineConfig][]string, len(r.entries))
	for cfg, entry := range r.entries {
		out[cfg] = sortedIDs(entry)
	}
	return out
}

// shutdown stops every live engine and clears the registry.
func (r *registry) shutdown() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for cfg, entry := range r.entries {
		entry.engine.Stop()
		delete(r.entries, cfg)
	}
}

func sortedIDs(entry *engineEntry) []string {
	ids := make([]string, 0, len(entry.ids))
	for id := range entry.ids {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
