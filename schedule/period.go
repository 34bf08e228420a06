package schedule

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Clock supplies the current time. Resolution of wall-clock expressions such
// as "14:30" depends on it, so tests inject a fixed clock.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// SystemClock reports the real time in the local timezone.
var SystemClock Clock = systemClock{}

type locationClock struct {
	loc *time.Location
}

func (c locationClock) Now() time.Time { return time.Now().In(c.loc) }

// InLocation returns a clock that reports the real time in loc.
// Wall-clock expressions resolved against it use that zone.
func InLocation(loc *time.Location) Clock {
	if loc == nil {
		return SystemClock
	}
	return locationClock{loc: loc}
}

// Unit is a symbolic period unit keyword. Singular and plural spellings are
// equivalent, as are keyword-style spellings with a leading colon.
type Unit string

const (
	Second Unit = "second"
	Minute Unit = "minute"
	Hour   Unit = "hour"
	Day    Unit = "day"
	Week   Unit = "week"
)

var unitFactors = map[Unit]time.Duration{
	Second: time.Second,
	Minute: time.Minute,
	Hour:   time.Hour,
	Day:    24 * time.Hour,
	Week:   7 * 24 * time.Hour,
}

// UnitFactor returns the duration of one u.
func UnitFactor(u Unit) (time.Duration, error) {
	f, ok := unitFactors[canonicalUnit(u)]
	if !ok {
		return 0, &ValidationError{
			Field:   "unit",
			Message: fmt.Sprintf("'%s' is not a recognized period unit", u),
			Action:  "Use second, minute, hour, day or week",
			Err:     ErrInvalidPeriodUnit,
		}
	}
	return f, nil
}

func canonicalUnit(u Unit) Unit {
	s := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(string(u))), ":")
	if _, ok := unitFactors[Unit(s)]; !ok {
		if singular := strings.TrimSuffix(s, "s"); singular != s {
			if _, ok := unitFactors[Unit(singular)]; ok {
				return Unit(singular)
			}
		}
	}
	return Unit(s)
}

// Span is one multiplier/unit pair of a period expression, e.g. {5, Minute}.
type Span struct {
	Count int64
	Unit  Unit
}

// ResolvePeriod normalizes a period expression into a duration. It accepts a
// time.Duration, a non-negative integer of milliseconds, a unit keyword
// (multiplier 1), a Span, or a sequence of Spans summed together.
func ResolvePeriod(v any) (time.Duration, error) {
	switch p := v.(type) {
	case time.Duration:
		if p < 0 {
			return 0, negativePeriod(p.String())
		}
		return p, nil
	case int:
		return periodMillis(int64(p))
	case int32:
		return periodMillis(int64(p))
	case int64:
		return periodMillis(p)
	case float64:
		return periodMillis(int64(p))
	case Unit:
		return UnitFactor(p)
	case string:
		return UnitFactor(Unit(p))
	case Span:
		return spanDuration(p)
	case []Span:
		var total time.Duration
		for _, sp := range p {
			d, err := spanDuration(sp)
			if err != nil {
				return 0, err
			}
			total += d
		}
		return total, nil
	default:
		return 0, &ValidationError{
			Field:   "period",
			Message: fmt.Sprintf("cannot be resolved from %T", v),
			Action:  "Pass milliseconds, a unit keyword or multiplier/unit spans",
			Err:     ErrMalformedArguments,
		}
	}
}

func periodMillis(ms int64) (time.Duration, error) {
	if ms < 0 {
		return 0, negativePeriod(strconv.FormatInt(ms, 10))
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func spanDuration(sp Span) (time.Duration, error) {
	if sp.Count < 0 {
		return 0, negativePeriod(fmt.Sprintf("%d %s", sp.Count, sp.Unit))
	}
	factor, err := UnitFactor(sp.Unit)
	if err != nil {
		return 0, err
	}
	return time.Duration(sp.Count) * factor, nil
}

func negativePeriod(value string) *ValidationError {
	return &ValidationError{
		Field:   "period",
		Message: fmt.Sprintf("'%s' is negative", value),
		Action:  "Use a non-negative duration",
		Err:     ErrMalformedArguments,
	}
}

var clockTimePattern = regexp.MustCompile(`^([01]?[0-9]|2[0-3]):([0-5][0-9])$`)

// ResolveInstant normalizes a time expression into an absolute instant. It
// accepts a time.Time, a non-negative integer of epoch milliseconds, or an
// "HH:mm" string interpreted as the next future occurrence of that wall-clock
// time in the clock's location, rolling to the next day if it has already
// passed today.
func ResolveInstant(v any, clock Clock) (time.Time, error) {
	if clock == nil {
		clock = SystemClock
	}
	switch t := v.(type) {
	case time.Time:
		return t, nil
	case int:
		return epochMillis(int64(t))
	case int64:
		return epochMillis(t)
	case float64:
		return epochMillis(int64(t))
	case string:
		return nextClockTime(t, clock)
	default:
		return time.Time{}, &ValidationError{
			Field:   "time",
			Message: fmt.Sprintf("cannot be resolved from %T", v),
			Action:  "Pass a time.Time, epoch milliseconds or an HH:mm string",
			Err:     ErrInvalidTimeFormat,
		}
	}
}

func epochMillis(ms int64) (time.Time, error) {
	if ms < 0 {
		return time.Time{}, &ValidationError{
			Field:   "time",
			Message: fmt.Sprintf("epoch value %d is negative", ms),
			Action:  "Use a non-negative epoch millisecond value",
			Err:     ErrInvalidTimeFormat,
		}
	}
	return time.UnixMilli(ms), nil
}

func nextClockTime(s string, clock Clock) (time.Time, error) {
	m := clockTimePattern.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return time.Time{}, &ValidationError{
			Field:   "time",
			Message: fmt.Sprintf("'%s' does not match HH:mm", s),
			Action:  "Use a 24-hour HH:mm clock time",
			Err:     ErrInvalidTimeFormat,
		}
	}

	hour, _ := strconv.Atoi(m[1])
	minute, _ := strconv.Atoi(m[2])

	now := clock.Now()
	at := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !at.After(now) {
		at = at.AddDate(0, 0, 1)
	}
	return at, nil
}
