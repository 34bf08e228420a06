package schedule

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/okampfer/go-chrono/logger"
)

type fakeEngine struct {
	mu          sync.Mutex
	config      EngineConfig
	jobs        map[string]func()
	stopped     bool
	scheduleErr error
}

func newFakeEngine(cfg EngineConfig) *fakeEngine {
	return &fakeEngine{config: cfg, jobs: make(map[string]func())}
}

func (f *fakeEngine) Schedule(id string, fn func(), _ JobOptions) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.scheduleErr != nil {
		return f.scheduleErr
	}
	f.jobs[id] = fn
	return nil
}

func (f *fakeEngine) Unschedule(id string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.jobs[id]
	delete(f.jobs, id)
	return ok
}

func (f *fakeEngine) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.jobs)
}

func (f *fakeEngine) Stop() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.stopped = true
}

type fakeFactory struct {
	mu          sync.Mutex
	engines     []*fakeEngine
	err         error
	scheduleErr error // pre-seeded onto every engine this factory builds
}

func (f *fakeFactory) new(cfg EngineConfig) (Engine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	eng := newFakeEngine(cfg)
	eng.scheduleErr = f.scheduleErr
	f.engines = append(f.engines, eng)
	return eng, nil
}

func (f *fakeFactory) built() []*fakeEngine {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*fakeEngine(nil), f.engines...)
}

func noop() {}

func TestRegistryReusesEngsPerConfig(t *testing.T) {
	factory := &fakeFactory{}
	r := newRegistry(factory.new, logger.NewNoop())

	require.NoError(t, r.schedule(EngineConfig{Workers: 5}, "a", noop, JobOptions{}))
	require.NoError(t, r.schedule(EngineConfig{Workers: 5}, "b", noop, JobOptions{}))
	assert.Len(t, factory.built(), 1, "equal configurations share one engine")

	require.NoError(t, r.schedule(EngineConfig{Workers: 2}, "c", noop, JobOptions{}))
	assert.Len(t, factory.built(), 2, "a new configuration builds a new engine")
}

func TestRegistryEngineConstructionFailure(t *testing.T) {
	factory := &fakeFactory{err: errors.New("boom")}
	r := newRegistry(factory.new, logger.NewNoop())

	err := r.schedule(EngineConfig{Workers: 5}, "a", noop, JobOptions{})

	require.Error(t, err)
	assert.Empty(t, r.snapshot(), "no entry recorded for a failed construction")
}

func TestRegistryRejectedFirstJobEvictsFreshEngine(t *testing.T) {
	factory := &fakeFactory{scheduleErr: errors.New("bad cron")}
	r := newRegistry(factory.new, logger.NewNoop())

	err := r.schedule(EngineConfig{Workers: 3}, "c", noop, JobOptions{})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEngineReject)

	engines := factory.built()
	require.Len(t, engines, 1)
	assert.True(t, engines[0].stopped, "fresh engine torn down after its first job was rejected")
	assert.Empty(t, r.snapshot())
}

func TestRegistryRejectedJobKeepsBusyEngine(t *testing.T) {
	factory := &fakeFactory{}
	r := newRegistry(factory.new, logger.NewNoop())

	cfg := EngineConfig{Workers: 5}
	require.NoError(t, r.schedule(cfg, "a", noop, JobOptions{}))

	factory.built()[0].scheduleErr = errors.New("bad cron")
	err := r.schedule(cfg, "b", noop, JobOptions{})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEngineReject)
	assert.False(t, factory.built()[0].stopped, "engine with live jobs survives a rejection")
	assert.Equal(t, []string{"a"}, r.idsFor(cfg))
}

func TestRegistryStopEvictsIdleEngine(t *testing.T) {
	factory := &fakeFactory{}
	r := newRegistry(factory.new, logger.NewNoop())

	cfg := EngineConfig{Workers: 5}
	require.NoError(t, r.schedule(cfg, "a", noop, JobOptions{}))
	require.NoError(t, r.schedule(cfg, "b", noop, JobOptions{}))

	removed := r.stop(map[EngineConfig][]string{cfg: {"a"}})
	assert.True(t, removed)
	assert.False(t, factory.built()[0].stopped, "engine keeps running while jobs remain")

	removed = r.stop(map[EngineConfig][]string{cfg: {"b"}})
	assert.True(t, removed)
	assert.True(t, factory.built()[0].stopped, "engine stopped once its last job is removed")
	assert.Empty(t, r.snapshot())
}

func TestRegistryStopUnknownTargets(t *testing.T) {
	factory := &fakeFactory{}
	r := newRegistry(factory.new, logger.NewNoop())

	removed := r.stop(map[EngineConfig][]string{{Workers: 5}: {"ghost"}})

	assert.False(t, removed)
	assert.Empty(t, factory.built(), "stop never constructs engines")
}

func TestRegistryStopPartialMiss(t *testing.T) {
	factory := &fakeFactory{}
	r := newRegistry(factory.new, logger.NewNoop())

	cfg := EngineConfig{Workers: 5}
	require.NoError(t, r.schedule(cfg, "a", noop, JobOptions{}))

	removed := r.stop(map[EngineConfig][]string{cfg: {"ghost", "a"}})

	assert.True(t, removed, "one success makes the whole stop true")
}

func TestRegistryShutdown(t *testing.T) {
	factory := &fakeFactory{}
	r := newRegistry(factory.new, logger.NewNoop())

	require.NoError(t, r.schedule(EngineConfig{Workers: 5}, "a", noop, JobOptions{}))
	require.NoError(t, r.schedule(EngineConfig{Workers: 2}, "b", noop, JobOptions{}))

	r.shutdown()

	for _, eng := range factory.built() {
		assert.True(t, eng.stopped)
	}
	assert.Empty(t, r.snapshot())
}

func TestRegistryConcurrentScheduleSingleEngine(t *testing.T) {
	factory := &fakeFactory{}
	r := newRegistry(factory.new, logger.NewNoop())
	cfg := EngineConfig{Workers: 5}

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_ = r.schedule(cfg, string(rune('a'+n%26)), noop, JobOptions{})
		}(i)
	}
	wg.Wait()

	assert.Len(t, factory.built(), 1, "concurrent callers never build duplicate engines")
}
