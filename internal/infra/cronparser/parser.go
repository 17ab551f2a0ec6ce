// Package cronparser turns the configured sweep schedule into concrete
// occurrence times for the orchestrator's reconcile loop.
package cronparser

import (
	"fmt"
	"strings"
	"time"

	cron "github.com/netresearch/go-cron"
)

var _parser = cron.MustNewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// Schedule is a parsed cron expression bound to a timezone. Validation
// happens once at construction so the reconcile loop never has to handle a
// parse error.
type Schedule struct {
	schedule cron.Schedule
}

// New parses the cron spec. If tz is non-empty and the spec carries no
// CRON_TZ=/TZ= prefix, it is evaluated in that IANA timezone; the default
// is UTC.
func New(spec, tz string) (*Schedule, error) {
	schedule, err := _parser.Parse(buildSpec(spec, tz))
	if err != nil {
		return nil, fmt.Errorf("parse cron spec %q: %w", spec, err)
	}

	return &Schedule{schedule: schedule}, nil
}

// NextAfter returns the next occurrence strictly after `after`.
func (s *Schedule) NextAfter(after time.Time) time.Time {
	return s.schedule.Next(after)
}

func buildSpec(spec, tz string) string {
	hasTZPrefix := strings.HasPrefix(spec, "CRON_TZ=") ||
		strings.HasPrefix(spec, "TZ=")

	if hasTZPrefix {
		return spec
	}

	if tz != "" {
		return "CRON_TZ=" + tz + " " + spec
	}

	return "CRON_TZ=UTC " + spec
}
