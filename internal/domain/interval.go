package domain

import (
	"fmt"
	"time"
)

// MaxOffsetDays bounds the day offsets of a RelativeInterval, well inside
// what time.Duration can hold.
const MaxOffsetDays = 100000

// RelativeInterval is a pair of day offsets around today. Start may be
// negative and nothing forces Start <= End.
type RelativeInterval struct {
	StartDays int
	EndDays   int
}

func (r RelativeInterval) String() string {
	return fmt.Sprintf("[%d, %d]", r.StartDays, r.EndDays)
}

// Clamp limits both offsets to [-MaxOffsetDays, MaxOffsetDays].
func (r RelativeInterval) Clamp() RelativeInterval {
	return RelativeInterval{StartDays: clampDays(r.StartDays), EndDays: clampDays(r.EndDays)}
}

func clampDays(n int) int {
	return max(-MaxOffsetDays, min(n, MaxOffsetDays))
}

// AbsoluteInterval is a closed range of instants.
type AbsoluteInterval struct {
	From time.Time
	To   time.Time
}

// Intersects reports whether [start, end] shares at least one instant
// with the interval.
func (iv AbsoluteInterval) Intersects(start, end time.Time) bool {
	return !end.Before(iv.From) && !start.After(iv.To)
}

// Widen moves both ends outwards by d. A negative d narrows.
func (iv AbsoluteInterval) Widen(d time.Duration) AbsoluteInterval {
	return AbsoluteInterval{From: iv.From.Add(-d), To: iv.To.Add(d)}
}

func (iv AbsoluteInterval) IsZero() bool {
	return iv.From.IsZero() && iv.To.IsZero()
}

func (iv AbsoluteInterval) In(loc *time.Location) AbsoluteInterval {
	return AbsoluteInterval{From: iv.From.In(loc), To: iv.To.In(loc)}
}

func (iv AbsoluteInterval) String() string {
	return iv.From.Format(time.RFC3339) + " .. " + iv.To.Format(time.RFC3339)
}
