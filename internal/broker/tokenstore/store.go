// Package tokenstore persists brokerage access tokens keyed by issue date so
// a restart on the same day reuses the token instead of issuing a new one.
package tokenstore

import (
	"context"
	"time"
)

// DateKeyLayout formats the per-day key.
const DateKeyLayout = "20060102"

// Record is a persisted access token.
type Record struct {
	Token     string    `yaml:"token" json:"token"`
	ExpiresAt time.Time `yaml:"valid-date" json:"valid_date"`
	IssuedAt  time.Time `yaml:"issued-at" json:"issued_at"`
}

// Valid reports whether the token is still usable at now.
func (r Record) Valid(now time.Time) bool {
	return r.Token != "" && now.Before(r.ExpiresAt)
}

// Store loads and saves token records by date key.
type Store interface {
	// Load returns the record for key. ok is false when none exists.
	Load(ctx context.Context, key string) (rec Record, ok bool, err error)
	// Save stores rec under key, replacing any previous record.
	Save(ctx context.Context, key string, rec Record) error
}

// DateKey returns the store key for t.
func DateKey(t time.Time) string {
	return t.Format(DateKeyLayout)
}
