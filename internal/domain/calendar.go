package domain

import "time"

// Calendar is one collection exposed by a source.
type Calendar struct {
	Source      string // source name, e.g. "caldav" or the feed name
	Path        string // collection path or feed URL
	DisplayName string
}

func (c Calendar) String() string {
	if c.DisplayName == "" {
		return c.Path
	}
	return c.DisplayName + " (" + c.Path + ")"
}

// CanonicalEvent is a well-formed event with both ends expressed in the
// display timezone.
type CanonicalEvent struct {
	Calendar string
	UID      string
	Summary  string
	Location string
	Start    time.Time
	End      time.Time
	AllDay   bool
}

// TimeRange is the clock part of the event: "all day", "14:30" or
// "14:30-15:00".
func (e CanonicalEvent) TimeRange() string {
	if e.AllDay {
		return "all day"
	}
	if e.End.IsZero() || e.End.Equal(e.Start) {
		return e.Start.Format("15:04")
	}
	return e.Start.Format("15:04") + "-" + e.End.Format("15:04")
}

// When is the start date followed by the time range.
func (e CanonicalEvent) When() string {
	if e.AllDay {
		return e.Start.Format("02 Jan 2006") + " (all day)"
	}
	return e.Start.Format("02 Jan 2006") + " " + e.TimeRange()
}

// Agenda is the ordered result of one run. Window is the display
// interval expressed in the display timezone.
type Agenda struct {
	Window AbsoluteInterval
	Events []CanonicalEvent
}

// Empty reports the "no events" outcome.
func (a Agenda) Empty() bool {
	return len(a.Events) == 0
}

func (a Agenda) Len() int {
	return len(a.Events)
}
