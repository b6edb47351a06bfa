// Package schedule decides when scans run: a cron-style cadence, widened to
// every tick inside an optional rapid window around fixtures.
package schedule

import (
	"fmt"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// Reasons returned by Gate.Check.
const (
	ReasonRapidWindow = "rapid_window"
	ReasonCron        = "cron"
	ReasonDisabled    = "gate_disabled"
	ReasonOffSchedule = "off_schedule"
)

// GateConfig configures a Gate.
type GateConfig struct {
	Enabled bool
	// Timezone the cron spec and window times are evaluated in.
	Timezone string
	// Cron is a standard five-field spec, e.g. "*/30 * * * *".
	Cron string
	// RapidWindowStart and RapidWindowEnd are ISO-8601 local times. A value
	// with an explicit offset is honoured as given.
	RapidWindowStart string
	RapidWindowEnd   string
}

// Gate reports whether a scan should run at a given minute.
type Gate struct {
	enabled bool
	loc     *time.Location
	sched   cron.Schedule
	start   time.Time
	end     time.Time
	window  bool
}

// NewGate parses cfg. An invalid window is an error rather than silently
// ignored.
func NewGate(cfg GateConfig) (*Gate, error) {
	loc := time.UTC
	if cfg.Timezone != "" {
		l, err := time.LoadLocation(cfg.Timezone)
		if err != nil {
			return nil, fmt.Errorf("schedule: load timezone %q: %w", cfg.Timezone, err)
		}
		loc = l
	}

	g := &Gate{enabled: cfg.Enabled, loc: loc}

	spec := strings.TrimSpace(cfg.Cron)
	if spec == "" {
		spec = "*/30 * * * *"
	}
	if !strings.HasPrefix(spec, "CRON_TZ=") && !strings.HasPrefix(spec, "TZ=") && !strings.HasPrefix(spec, "@") {
		spec = "CRON_TZ=" + loc.String() + " " + spec
	}
	sched, err := cron.ParseStandard(spec)
	if err != nil {
		return nil, fmt.Errorf("schedule: parse cron %q: %w", cfg.Cron, err)
	}
	g.sched = sched

	if cfg.RapidWindowStart != "" || cfg.RapidWindowEnd != "" {
		start, err := parseLocal(cfg.RapidWindowStart, loc)
		if err != nil {
			return nil, fmt.Errorf("schedule: rapid window start: %w", err)
		}
		end, err := parseLocal(cfg.RapidWindowEnd, loc)
		if err != nil {
			return nil, fmt.Errorf("schedule: rapid window end: %w", err)
		}
		if !end.After(start) {
			return nil, fmt.Errorf("schedule: rapid window end %s is not after start %s", cfg.RapidWindowEnd, cfg.RapidWindowStart)
		}
		g.start, g.end, g.window = start, end, true
	}
	return g, nil
}

// Location returns the timezone the gate evaluates in.
func (g *Gate) Location() *time.Location {
	return g.loc
}

// Check reports whether a scan should run at now and why.
func (g *Gate) Check(now time.Time) (bool, string) {
	if !g.enabled {
		return true, ReasonDisabled
	}
	now = now.In(g.loc)
	if g.InRapidWindow(now) {
		return true, ReasonRapidWindow
	}
	minute := now.Truncate(time.Minute)
	if g.sched.Next(minute.Add(-time.Second)).Equal(minute) {
		return true, ReasonCron
	}
	return false, ReasonOffSchedule
}

// InRapidWindow reports whether start <= now < end.
func (g *Gate) InRapidWindow(now time.Time) bool {
	if !g.window {
		return false
	}
	return !now.Before(g.start) && now.Before(g.end)
}

var localLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
}

func parseLocal(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, nil
	}
	for _, layout := range localLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised time %q", s)
}
