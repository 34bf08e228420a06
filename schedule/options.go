package schedule

import (
	"fmt"
	"strings"
	"time"
)

// EngineConfig is the subset of a specification's options that configure an
// engine instance rather than an individual job. It is comparable and serves
// as the registry key: two specifications with equal engine configuration
// share one engine instance.
type EngineConfig struct {
	// Workers is the size of the engine's worker pool.
	Workers int
}

// DefaultWorkers is the worker pool size applied when neither the caller nor
// the scheduler defaults specify one.
const DefaultWorkers = 5

// JobOptions carries the resolved job-specific options handed to the engine.
// Nil pointer fields were not supplied. No combination is rejected at this
// layer; the engine decides firing semantics.
type JobOptions struct {
	In        *time.Duration // delay before the first fire
	At        *time.Time     // absolute first-fire time
	Every     *time.Duration // repeat interval
	Until     *time.Time     // repeat cutoff
	Limit     *int           // max fire count
	Cron      string         // cron expression, passed through opaque
	Singleton bool           // run on at most one node in a cluster
}

// JobSpec is the canonical, fully resolved description of one scheduled job.
// Schedule returns it augmented with the job identity so the caller can later
// hand it back to Stop.
type JobSpec struct {
	ID     string
	Engine EngineConfig
	Job    JobOptions

	// IDs records the identities this call registered, keyed by engine
	// configuration. It is an output convenience for bulk Stop calls, never
	// an input contract.
	IDs map[EngineConfig][]string
}

type operation string

const (
	opSchedule operation = "schedule"
	opStop     operation = "stop"
)

const (
	keyIn        = "in"
	keyAt        = "at"
	keyEvery     = "every"
	keyUntil     = "until"
	keyLimit     = "limit"
	keyCron      = "cron"
	keySingleton = "singleton"
	keyID        = "id"
	keyIDs       = "ids"
	keyWorkers   = "workers"
)

var keyAliases = map[string]string{
	"num-threads": keyWorkers,
	"num-workers": keyWorkers,
}

func keySet(keys ...string) map[string]struct{} {
	s := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		s[k] = struct{}{}
	}
	return s
}

// Allow-lists are fixed per operation: stop accepts only identities plus the
// engine configuration used for lookup.
var allowedKeys = map[operation]map[string]struct{}{
	opSchedule: keySet(keyIn, keyAt, keyEvery, keyUntil, keyLimit, keyCron, keySingleton, keyID, keyIDs, keyWorkers),
	opStop:     keySet(keyID, keyIDs, keyWorkers),
}

// Option incrementally sets one key of a specification. Options mix freely
// with raw key/value arguments and maps; applying the same keys in any order
// yields the same specification, with last write winning on duplicates.
type Option func(map[string]any)

func set(key string, v any) Option {
	return func(m map[string]any) { m[key] = v }
}

// In sets the delay before the first fire. Accepts any period expression.
func In(v any) Option { return set(keyIn, v) }

// At sets the absolute first-fire time. Accepts any time expression.
func At(v any) Option { return set(keyAt, v) }

// Every sets the repeat interval. Accepts any period expression.
func Every(v any) Option { return set(keyEvery, v) }

// Until sets the repeat cutoff. Accepts any time expression.
func Until(v any) Option { return set(keyUntil, v) }

// Limit caps the number of fires.
func Limit(n int) Option { return set(keyLimit, n) }

// Cron sets a cron expression, passed through to the engine unparsed.
func Cron(expr string) Option { return set(keyCron, expr) }

// Singleton marks whether the job may run on more than one cluster node.
func Singleton(b bool) Option { return set(keySingleton, b) }

// ID sets the job identity. Re-registering under the same identity replaces
// the prior job.
func ID(id string) Option { return set(keyID, id) }

// IDs sets an explicit engine-to-identities mapping for bulk Stop calls.
func IDs(ids map[EngineConfig][]string) Option { return set(keyIDs, ids) }

// Workers sets the engine worker pool size. This is engine configuration:
// specifications with equal worker counts share one engine instance.
func Workers(n int) Option { return set(keyWorkers, n) }

// foldArgs collapses a heterogeneous argument list into a single raw option
// map. A lone map or JobSpec contributes its keys wholesale; everything else
// must come as alternating key/value pairs.
func foldArgs(args []any) (map[string]any, error) {
	out := make(map[string]any, len(args))
	i := 0
	for i < len(args) {
		switch a := args[i].(type) {
		case Option:
			a(out)
			i++
		case map[string]any:
			for k, v := range a {
				out[k] = v
			}
			i++
		case JobSpec:
			out[keyID] = a.ID
			out[keyWorkers] = a.Engine.Workers
			if len(a.IDs) > 0 {
				out[keyIDs] = a.IDs
			}
			i++
		default:
			key, ok := argKey(a)
			if !ok {
				return nil, &ValidationError{
					Field:   "arguments",
					Message: fmt.Sprintf("expected an option key, got %T", a),
					Action:  "Pass key/value pairs, option maps or Option values",
					Err:     ErrMalformedArguments,
				}
			}
			if i+1 >= len(args) {
				return nil, &ValidationError{
					Field:   "arguments",
					Message: fmt.Sprintf("option '%s' has no value", key),
					Action:  "Pass key/value pairs of even length",
					Err:     ErrMalformedArguments,
				}
			}
			out[key] = args[i+1]
			i += 2
		}
	}
	return out, nil
}

func argKey(a any) (string, bool) {
	switch k := a.(type) {
	case string:
		return k, true
	case fmt.Stringer:
		return k.String(), true
	}
	return "", false
}

func normalizeKey(k string) string {
	s := strings.ToLower(trimKeyword(k))
	if alias, ok := keyAliases[s]; ok {
		return alias
	}
	return s
}

func trimKeyword(k string) string {
	return strings.TrimPrefix(strings.TrimSpace(k), ":")
}

// resolveSpec validates the raw option map against the operation's allow-list
// and resolves every value to its canonical form. Defaults merge in with
// lowest precedence: engine configuration defaults, then job defaults, then
// caller values.
func resolveSpec(op operation, raw map[string]any, clock Clock, defaults EngineConfig) (JobSpec, error) {
	normalized := make(map[string]any, len(raw))
	for k, v := range raw {
		normalized[normalizeKey(k)] = v
	}

	allowed := allowedKeys[op]
	for k := range normalized {
		if _, ok := allowed[k]; !ok {
			return JobSpec{}, &ValidationError{
				Field:   k,
				Message: fmt.Sprintf("is not a recognized option for %s", op),
				Action:  "Remove the option or check its spelling",
				Err:     ErrUnrecognizedOption,
			}
		}
	}

	spec := JobSpec{
		Engine: defaults,
		Job:    JobOptions{Singleton: true},
	}
	if spec.Engine.Workers <= 0 {
		spec.Engine.Workers = DefaultWorkers
	}

	if v, ok := normalized[keyIn]; ok {
		d, err := ResolvePeriod(v)
		if err != nil {
			return JobSpec{}, err
		}
		spec.Job.In = &d
	}
	if v, ok := normalized[keyAt]; ok {
		t, err := ResolveInstant(v, clock)
		if err != nil {
			return JobSpec{}, err
		}
		spec.Job.At = &t
	}
	if v, ok := normalized[keyEvery]; ok {
		d, err := ResolvePeriod(v)
		if err != nil {
			return JobSpec{}, err
		}
		spec.Job.Every = &d
	}
	if v, ok := normalized[keyUntil]; ok {
		t, err := ResolveInstant(v, clock)
		if err != nil {
			return JobSpec{}, err
		}
		spec.Job.Until = &t
	}
	if v, ok := normalized[keyLimit]; ok {
		n, ok := intValue(v)
		if !ok || n < 0 {
			return JobSpec{}, optionValueError(keyLimit, v, "Use a non-negative integer")
		}
		spec.Job.Limit = &n
	}
	if v, ok := normalized[keyCron]; ok {
		expr, ok := v.(string)
		if !ok {
			return JobSpec{}, optionValueError(keyCron, v, "Use a cron expression string")
		}
		spec.Job.Cron = expr
	}
	if v, ok := normalized[keySingleton]; ok {
		b, ok := v.(bool)
		if !ok {
			return JobSpec{}, optionValueError(keySingleton, v, "Use a boolean")
		}
		spec.Job.Singleton = b
	}
	if v, ok := normalized[keyID]; ok {
		id, ok := argKey(v)
		if !ok || id == "" {
			return JobSpec{}, optionValueError(keyID, v, "Use a non-empty string identity")
		}
		spec.ID = trimKeyword(id)
	}
	if v, ok := normalized[keyIDs]; ok {
		ids, ok := v.(map[EngineConfig][]string)
		if !ok {
			return JobSpec{}, optionValueError(keyIDs, v, "Use a map of engine configuration to identities")
		}
		spec.IDs = make(map[EngineConfig][]string, len(ids))
		for cfg, list := range ids {
			spec.IDs[cfg] = append([]string(nil), list...)
		}
	}
	if v, ok := normalized[keyWorkers]; ok {
		n, ok := intValue(v)
		if !ok || n < 1 {
			return JobSpec{}, optionValueError(keyWorkers, v, "Use a positive integer")
		}
		spec.Engine.Workers = n
	}

	return spec, nil
}

func optionValueError(key string, v any, action string) *ValidationError {
	return &ValidationError{
		Field:   key,
		Message: fmt.Sprintf("has unusable value %v (%T)", v, v),
		Action:  action,
		Err:     ErrMalformedArguments,
	}
}

func intValue(v any) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int32:
		return int(n), true
	case int64:
		return int(n), true
	case uint:
		return int(n), true
	case float64:
		return int(n), true
	}
	return 0, false
}
