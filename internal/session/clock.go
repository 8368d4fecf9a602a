// Package session provides the trading-session clock capability: when the
// session opens and closes, and whether a given day trades at all. The engine
// takes the interface so its session-scoped logic is testable with synthetic
// clocks.
package session

import (
	"time"

	"github.com/scmhub/calendar"
)

// Clock answers session-boundary questions for the engine and the poll loop.
type Clock interface {
	// Now returns the current time in the exchange timezone.
	Now() time.Time

	// SessionOpen returns the session open instant for t's trading day.
	SessionOpen(t time.Time) time.Time

	// SessionClose returns the session close instant for t's trading day.
	SessionClose(t time.Time) time.Time

	// IsTradingDay reports whether t falls on a trading day (not weekend/holiday).
	IsTradingDay(t time.Time) bool
}

// MarketClock is the live NYSE implementation.
type MarketClock struct {
	location *time.Location
	nyse     *calendar.Calendar
}

// Compile-time interface verification
var _ Clock = (*MarketClock)(nil)

// NewMarketClock creates a clock for the given timezone (typically
// "America/New_York"). Falls back to UTC if the zone cannot be loaded.
func NewMarketClock(timezone string) *MarketClock {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		loc = time.UTC
	}
	return &MarketClock{
		location: loc,
		nyse:     calendar.XNYS(),
	}
}

func (c *MarketClock) Now() time.Time {
	return time.Now().In(c.location)
}

// SessionOpen returns 09:30 local on t's date.
func (c *MarketClock) SessionOpen(t time.Time) time.Time {
	t = t.In(c.location)
	return time.Date(t.Year(), t.Month(), t.Day(), 9, 30, 0, 0, c.location)
}

// SessionClose returns 16:00 local on t's date.
func (c *MarketClock) SessionClose(t time.Time) time.Time {
	t = t.In(c.location)
	return time.Date(t.Year(), t.Month(), t.Day(), 16, 0, 0, 0, c.location)
}

func (c *MarketClock) IsTradingDay(t time.Time) bool {
	// Evaluate at noon so date matching is unambiguous across DST edges
	t = t.In(c.location)
	noon := time.Date(t.Year(), t.Month(), t.Day(), 12, 0, 0, 0, c.location)
	return c.nyse.IsBusinessDay(noon)
}

// Location returns the clock's timezone location.
func (c *MarketClock) Location() *time.Location {
	return c.location
}
