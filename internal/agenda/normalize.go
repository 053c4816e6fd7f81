package agenda

import (
	"errors"
	"fmt"
	"time"

	"github.com/daladno/upcoming/internal/domain"
)

// ErrMalformedEvent marks an event dropped for missing fields.
var ErrMalformedEvent = errors.New("malformed event")

// Localize expresses ts in loc.
//
// A bare date becomes midnight of that date in loc, not in UTC. A floating
// date-time is assumed to already be wall clock time in loc.
func Localize(ts domain.Timestamp, loc *time.Location) (time.Time, error) {
	switch ts.Kind() {
	case domain.KindDate:
		y, m, d := ts.YMD()
		return time.Date(y, m, d, 0, 0, 0, 0, loc), nil
	case domain.KindFloating:
		w := ts.Wall()
		return time.Date(w.Year(), w.Month(), w.Day(), w.Hour(), w.Minute(), w.Second(), w.Nanosecond(), loc), nil
	case domain.KindZoned:
		return ts.Wall().In(loc), nil
	default:
		return time.Time{}, fmt.Errorf("localize %s timestamp", ts.Kind())
	}
}

// Normalize validates raw and converts it to a CanonicalEvent in loc.
func Normalize(raw domain.RawEvent, loc *time.Location) (domain.CanonicalEvent, error) {
	if err := raw.Validate(); err != nil {
		return domain.CanonicalEvent{}, fmt.Errorf("%w %q: %w", ErrMalformedEvent, raw.UID, err)
	}

	start, err := Localize(raw.Start, loc)
	if err != nil {
		return domain.CanonicalEvent{}, fmt.Errorf("%w %q: start: %w", ErrMalformedEvent, raw.UID, err)
	}
	end, err := Localize(raw.End, loc)
	if err != nil {
		return domain.CanonicalEvent{}, fmt.Errorf("%w %q: end: %w", ErrMalformedEvent, raw.UID, err)
	}

	return domain.CanonicalEvent{
		Calendar: raw.Calendar,
		UID:      raw.UID,
		Summary:  *raw.Summary,
		Location: raw.Location,
		Start:    start,
		End:      end,
		AllDay:   raw.Start.Kind() == domain.KindDate,
	}, nil
}

// Stats describes what NormalizeAll did with a batch.
type Stats struct {
	Received int
	Dropped  []error
	// Floating counts events with at least one zone-less date-time.
	Floating int
}

// NormalizeAll normalizes a batch, keeping retrieval order. Bad events are
// recorded in Stats and skipped; they never stop the batch.
func NormalizeAll(raws []domain.RawEvent, loc *time.Location) ([]domain.CanonicalEvent, Stats) {
	stats := Stats{Received: len(raws)}
	out := make([]domain.CanonicalEvent, 0, len(raws))
	for _, raw := range raws {
		ev, err := Normalize(raw, loc)
		if err != nil {
			stats.Dropped = append(stats.Dropped, err)
			continue
		}
		if raw.Start.Kind() == domain.KindFloating || raw.End.Kind() == domain.KindFloating {
			stats.Floating++
		}
		out = append(out, ev)
	}
	return out, stats
}
