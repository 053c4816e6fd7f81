// Package agenda turns a relative day window and a batch of raw calendar
// events into an ordered list of events in the display timezone.
package agenda

import (
	"time"

	"github.com/daladno/upcoming/internal/domain"
)

const (
	Day = 24 * time.Hour

	// DefaultSlack widens the query window so that date-only events read
	// under another zone's midnight are still fetched.
	DefaultSlack = 2 * Day
)

// QueryOptions shapes the interval sent to the calendar server.
type QueryOptions struct {
	Slack time.Duration
	// ExclusiveBounds narrows the query by one second at each end, for
	// servers that treat time-range bounds as inclusive.
	ExclusiveBounds bool
}

// Window holds both intervals of one run. Query is only ever used to ask
// the server; Display decides what is shown.
type Window struct {
	Anchor  time.Time
	Display domain.AbsoluteInterval
	Query   domain.AbsoluteInterval
}

// AnchorMidnight returns local midnight of the day now falls on in loc.
func AnchorMidnight(now time.Time, loc *time.Location) time.Time {
	local := now.In(loc)
	midnight := time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, loc)
	return midnight.UTC()
}

// ComputeInterval applies the day offsets to anchor on absolute instants.
// A reversed interval is swapped rather than rejected. Offsets beyond
// domain.MaxOffsetDays are clamped.
func ComputeInterval(rel domain.RelativeInterval, anchor time.Time) domain.AbsoluteInterval {
	rel = rel.Clamp()
	from := anchor.Add(time.Duration(rel.StartDays) * Day)
	to := anchor.Add(time.Duration(rel.EndDays) * Day)
	if to.Before(from) {
		from, to = to, from
	}
	return domain.AbsoluteInterval{From: from, To: to}
}

// QueryInterval derives the server-side interval from the display one.
func QueryInterval(display domain.AbsoluteInterval, opts QueryOptions) domain.AbsoluteInterval {
	q := display.Widen(opts.Slack)
	if opts.ExclusiveBounds {
		q = q.Widen(-time.Second)
	}
	return q
}

// NewWindow computes anchor, display and query intervals for now.
func NewWindow(rel domain.RelativeInterval, loc *time.Location, now time.Time, opts QueryOptions) Window {
	anchor := AnchorMidnight(now, loc)
	display := ComputeInterval(rel, anchor)
	return Window{
		Anchor:  anchor,
		Display: display,
		Query:   QueryInterval(display, opts),
	}
}
