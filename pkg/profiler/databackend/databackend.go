package databackend

import "time"

// DataBackend is an abstract type for handling persistence
// of settled measurements.
type DataBackend interface {
	// Store stores a result.
	Store(*Result) error

	// Close closes all connections or handles to it's backend
	// and should be called, when no more results need to persisted.
	Close() error
}

// Result represents one settled image load.
type Result struct {
	Generation uint64    `json:"generation"`
	Index      int       `json:"index"`
	Side       string    `json:"side"`
	URL        string    `json:"url"`
	Status     string    `json:"status"`
	DurationMs float64   `json:"duration_ms"`
	SettledAt  time.Time `json:"settled_at"`
}
