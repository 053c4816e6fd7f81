package domain

import (
	"fmt"
	"time"
)

// TimestampKind tells how an event timestamp was written at the source.
type TimestampKind int

const (
	KindAbsent   TimestampKind = iota
	KindDate                   // bare date, all-day
	KindFloating               // date-time without any zone
	KindZoned                  // date-time bound to a zone or UTC
)

func (k TimestampKind) String() string {
	switch k {
	case KindDate:
		return "date"
	case KindFloating:
		return "floating"
	case KindZoned:
		return "zoned"
	default:
		return "absent"
	}
}

// Timestamp is one DTSTART/DTEND value as it came from the source.
// The zero value is an absent field.
type Timestamp struct {
	kind  TimestampKind
	year  int
	month time.Month
	day   int
	t     time.Time
}

// Date builds a date-only timestamp.
func Date(year int, month time.Month, day int) Timestamp {
	return Timestamp{kind: KindDate, year: year, month: month, day: day}
}

// FloatingDateTime builds a date-time with no zone. Only the wall clock
// fields of wall are kept; its location is ignored.
func FloatingDateTime(wall time.Time) Timestamp {
	return Timestamp{
		kind: KindFloating,
		t:    time.Date(wall.Year(), wall.Month(), wall.Day(), wall.Hour(), wall.Minute(), wall.Second(), wall.Nanosecond(), time.UTC),
	}
}

// ZonedDateTime builds a date-time pinned to an absolute instant.
func ZonedDateTime(t time.Time) Timestamp {
	return Timestamp{kind: KindZoned, t: t}
}

func (ts Timestamp) Kind() TimestampKind { return ts.kind }

func (ts Timestamp) IsZero() bool { return ts.kind == KindAbsent }

// YMD returns the civil date of a KindDate timestamp.
func (ts Timestamp) YMD() (int, time.Month, int) {
	return ts.year, ts.month, ts.day
}

// Wall returns the wall clock of a floating timestamp, expressed in UTC
// fields, or the instant of a zoned one.
func (ts Timestamp) Wall() time.Time {
	return ts.t
}

func (ts Timestamp) String() string {
	switch ts.kind {
	case KindDate:
		return fmt.Sprintf("%04d-%02d-%02d", ts.year, int(ts.month), ts.day)
	case KindFloating:
		return ts.t.Format("2006-01-02T15:04:05")
	case KindZoned:
		return ts.t.Format(time.RFC3339)
	default:
		return "<absent>"
	}
}
