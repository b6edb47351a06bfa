package domain

import "time"

// ScanEvent is the JSON envelope published on the bus after each scan.
type ScanEvent struct {
	Type          string               `json:"type"` // "scan_completed" or "scan_skipped"
	ScanID        string               `json:"scan_id"`
	FetchedAt     time.Time            `json:"fetched_at"`
	EventsScanned int                  `json:"events_scanned"`
	Opportunities int                  `json:"opportunities"`
	BestROIPct    float64              `json:"best_roi_pct"`
	Failures      []CompetitionFailure `json:"failures,omitempty"`
	Reason        string               `json:"reason,omitempty"`
}

// ArbEvent is published once per opportunity found in a scan.
type ArbEvent struct {
	Type        string      `json:"type"` // "arb_detected"
	ScanID      string      `json:"scan_id"`
	Opportunity Opportunity `json:"opportunity"`
}

// Status is a summary of the process's current operational state.
type Status struct {
	Mode          string    `json:"mode"`
	UptimeSeconds int64     `json:"uptime_seconds"`
	LastScanID    string    `json:"last_scan_id,omitempty"`
	LastScanAt    time.Time `json:"last_scan_at,omitempty"`
	Competitions  []string  `json:"competitions"`
}
