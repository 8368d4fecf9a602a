package session

import "time"

// ManualClock is a synthetic clock for tests and replays. Open/close offsets
// are applied to whatever date Current carries, so advancing Current walks
// the session forward without touching the boundaries.
type ManualClock struct {
	Current   time.Time
	OpenHour  int
	OpenMin   int
	CloseHour int
	CloseMin  int
	Trading   bool
}

// Compile-time interface verification
var _ Clock = (*ManualClock)(nil)

// NewManualClock returns a trading-day clock opened 09:30-16:00 around start.
func NewManualClock(start time.Time) *ManualClock {
	return &ManualClock{
		Current:   start,
		OpenHour:  9,
		OpenMin:   30,
		CloseHour: 16,
		Trading:   true,
	}
}

func (c *ManualClock) Now() time.Time { return c.Current }

func (c *ManualClock) SessionOpen(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), c.OpenHour, c.OpenMin, 0, 0, t.Location())
}

func (c *ManualClock) SessionClose(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), c.CloseHour, c.CloseMin, 0, 0, t.Location())
}

func (c *ManualClock) IsTradingDay(time.Time) bool { return c.Trading }

// Advance moves the clock forward by d.
func (c *ManualClock) Advance(d time.Duration) { c.Current = c.Current.Add(d) }
