package domain

import "errors"

var (
	ErrMissingStart   = errors.New("event has no start")
	ErrMissingEnd     = errors.New("event has no end")
	ErrMissingSummary = errors.New("event has no summary")
)

// RawEvent is a VEVENT as handed over by a calendar source, before any
// timezone work has been done on it.
type RawEvent struct {
	Calendar string // name of the calendar it was fetched from
	UID      string
	Summary  *string // nil when the SUMMARY property is absent
	Location string
	Start    Timestamp
	End      Timestamp
}

// Validate reports whether the event carries a start, an end and a
// summary. It never looks inside the timestamps.
func (e RawEvent) Validate() error {
	if e.Start.IsZero() {
		return ErrMissingStart
	}
	if e.End.IsZero() {
		return ErrMissingEnd
	}
	if e.Summary == nil {
		return ErrMissingSummary
	}
	return nil
}
