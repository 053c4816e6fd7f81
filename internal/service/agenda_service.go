package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/daladno/upcoming/internal/agenda"
	"github.com/daladno/upcoming/internal/domain"
)

// EventSource is anything events can be read from: a CalDAV server, an
// ICS feed.
type EventSource interface {
	Name() string
	Calendars(ctx context.Context) ([]domain.Calendar, error)
	Events(ctx context.Context, cal domain.Calendar, from, to time.Time) ([]domain.RawEvent, error)
}

// RetrievalError wraps a failure of a source. It is kept apart from
// configuration errors so the caller can tell them apart.
type RetrievalError struct {
	Source   string
	Calendar string
	Err      error
}

func (e *RetrievalError) Error() string {
	if e.Calendar == "" {
		return fmt.Sprintf("%s: %v", e.Source, e.Err)
	}
	return fmt.Sprintf("%s: calendar %s: %v", e.Source, e.Calendar, e.Err)
}

func (e *RetrievalError) Unwrap() error { return e.Err }

// Options configure an AgendaService.
type Options struct {
	Calendars []string
	Interval  domain.RelativeInterval
	Location  *time.Location
	Query     agenda.QueryOptions
}

// AgendaService runs the fetch, normalize, filter and sort pipeline.
type AgendaService struct {
	sources []EventSource
	opts    Options
	now     func() time.Time
	logger  zerolog.Logger
}

func NewAgendaService(sources []EventSource, opts Options, logger zerolog.Logger) *AgendaService {
	if opts.Location == nil {
		opts.Location = time.UTC
	}
	return &AgendaService{
		sources: sources,
		opts:    opts,
		now:     time.Now,
		logger:  logger,
	}
}

// SetClock replaces time.Now
func (s *AgendaService) SetClock(now func() time.Time) {
	s.now = now
}

// Window computes the intervals for the current instant.
func (s *AgendaService) Window() agenda.Window {
	return agenda.NewWindow(s.opts.Interval, s.opts.Location, s.now(), s.opts.Query)
}

// Calendars lists every calendar of every source.
func (s *AgendaService) Calendars(ctx context.Context) ([]domain.Calendar, error) {
	var all []domain.Calendar
	for _, src := range s.sources {
		cals, err := src.Calendars(ctx)
		if err != nil {
			return nil, &RetrievalError{Source: src.Name(), Err: err}
		}
		all = append(all, cals...)
	}
	return all, nil
}

// Upcoming fetches every selected calendar with the widened query window,
// then keeps only what falls into the display window. Any source failure
// aborts the run; malformed events are only dropped.
func (s *AgendaService) Upcoming(ctx context.Context) (domain.Agenda, error) {
	w := s.Window()
	s.logger.Debug().
		Stringer("interval", s.opts.Interval).
		Stringer("display", w.Display).
		Stringer("query", w.Query).
		Msg("time window")

	var raws []domain.RawEvent
	for _, src := range s.sources {
		cals, err := src.Calendars(ctx)
		if err != nil {
			return domain.Agenda{}, &RetrievalError{Source: src.Name(), Err: err}
		}
		for _, cal := range cals {
			if !Selected(cal, s.opts.Calendars) {
				continue
			}
			events, err := src.Events(ctx, cal, w.Query.From, w.Query.To)
			if err != nil {
				return domain.Agenda{}, &RetrievalError{Source: src.Name(), Calendar: cal.String(), Err: err}
			}
			raws = append(raws, events...)
		}
	}

	canonical, stats := agenda.NormalizeAll(raws, s.opts.Location)
	for _, err := range stats.Dropped {
		s.logger.Debug().Err(err).Msg("event dropped")
	}
	if stats.Floating > 0 {
		s.logger.Warn().
			Int("events", stats.Floating).
			Str("timezone", s.opts.Location.String()).
			Msg("events without timezone were read as display timezone wall clock")
	}

	events := agenda.FilterAndSort(canonical, w.Display)
	s.logger.Info().
		Int("fetched", stats.Received).
		Int("dropped", len(stats.Dropped)).
		Int("shown", len(events)).
		Msg("agenda ready")

	return domain.Agenda{
		Window: w.Display.In(s.opts.Location),
		Events: events,
	}, nil
}

// Selected reports whether cal is picked by the selector list: an empty
// list picks everything, otherwise any entry must be a substring of the
// calendar's name or path.
func Selected(cal domain.Calendar, selectors []string) bool {
	if len(selectors) == 0 {
		return true
	}
	for _, sel := range selectors {
		if strings.Contains(cal.DisplayName, sel) || strings.Contains(cal.Path, sel) {
			return true
		}
	}
	return false
}
