// Package market answers whether the KRX regular session is open.
package market

import (
	"time"

	"github.com/rxtech-lab/kis-autotrader/internal/types"
)

const (
	openHour    = 9
	openMinute  = 0
	closeHour   = 15
	closeMinute = 30

	// HoursLabel is the regular session shown in status output.
	HoursLabel = "09:00 ~ 15:30"
)

// Seoul is the exchange time zone. Korea observes no daylight saving, so a
// fixed +09:00 zone is used when tzdata is unavailable.
var Seoul = mustSeoul()

func mustSeoul() *time.Location {
	loc, err := time.LoadLocation("Asia/Seoul")
	if err != nil {
		return time.FixedZone("KST", 9*60*60)
	}

	return loc
}

// Hours is the market-hours gate.
type Hours interface {
	IsOpen(t time.Time) bool
	NextOpen(t time.Time) time.Time
	Status(t time.Time) types.MarketStatus
}

// RegularHours implements Hours for the weekday 09:00–15:30 session.
// Public holidays are not modelled.
type RegularHours struct{}

// NewRegularHours returns the default market-hours gate.
func NewRegularHours() *RegularHours {
	return &RegularHours{}
}

// IsOpen reports whether t falls on a weekday between 09:00 and 15:30
// Seoul time, both bounds inclusive.
func (RegularHours) IsOpen(t time.Time) bool {
	local := t.In(Seoul)
	if isWeekend(local) {
		return false
	}

	open, closing := sessionBounds(local)

	return !local.Before(open) && !local.After(closing)
}

// NextOpen returns the next weekday 09:00. Once today's 09:00 has passed the
// search starts from tomorrow.
func (RegularHours) NextOpen(t time.Time) time.Time {
	local := t.In(Seoul)
	next, _ := sessionBounds(local)

	if !local.Before(next) {
		next = next.AddDate(0, 0, 1)
	}

	for isWeekend(next) {
		next = next.AddDate(0, 0, 1)
	}

	return next
}

// Status summarises the market state at t.
func (h RegularHours) Status(t time.Time) types.MarketStatus {
	return types.MarketStatus{
		IsOpen:      h.IsOpen(t),
		CurrentTime: t.In(Seoul),
		MarketHours: HoursLabel,
		NextOpen:    h.NextOpen(t),
	}
}

func sessionBounds(local time.Time) (time.Time, time.Time) {
	y, m, d := local.Date()
	open := time.Date(y, m, d, openHour, openMinute, 0, 0, Seoul)
	closing := time.Date(y, m, d, closeHour, closeMinute, 0, 0, Seoul)

	return open, closing
}

func isWeekend(t time.Time) bool {
	wd := t.Weekday()

	return wd == time.Saturday || wd == time.Sunday
}
