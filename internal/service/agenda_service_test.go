package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daladno/upcoming/internal/agenda"
	"github.com/daladno/upcoming/internal/domain"
)

type fakeSource struct {
	name      string
	calendars []domain.Calendar
	events    map[string][]domain.RawEvent
	calErr    error
	eventsErr error

	queried []string
	from    time.Time
	to      time.Time
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Calendars(ctx context.Context) ([]domain.Calendar, error) {
	return f.calendars, f.calErr
}

func (f *fakeSource) Events(ctx context.Context, cal domain.Calendar, from, to time.Time) ([]domain.RawEvent, error) {
	f.queried = append(f.queried, cal.DisplayName)
	f.from, f.to = from, to
	if f.eventsErr != nil {
		return nil, f.eventsErr
	}
	return f.events[cal.Path], nil
}

func strPtr(s string) *string { return &s }

func allDay(uid, summary string, start, end time.Time) domain.RawEvent {
	return domain.RawEvent{
		UID:     uid,
		Summary: strPtr(summary),
		Start:   domain.Date(start.Date()),
		End:     domain.Date(end.Date()),
	}
}

func zoned(uid, summary string, start time.Time, d time.Duration) domain.RawEvent {
	return domain.RawEvent{
		UID:     uid,
		Summary: strPtr(summary),
		Start:   domain.ZonedDateTime(start),
		End:     domain.ZonedDateTime(start.Add(d)),
	}
}

var now = time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

func newService(sources []EventSource, opts Options) *AgendaService {
	svc := NewAgendaService(sources, opts, zerolog.Nop())
	svc.SetClock(func() time.Time { return now })
	return svc
}

func TestUpcoming_Pipeline(t *testing.T) {
	d := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	day := 24 * time.Hour

	src := &fakeSource{
		name: "caldav",
		calendars: []domain.Calendar{
			{Path: "/cal/work/", DisplayName: "Work"},
			{Path: "/cal/home/", DisplayName: "Home"},
		},
		events: map[string][]domain.RawEvent{
			"/cal/work/": {
				zoned("w2", "Review", d.Add(2*day+9*time.Hour), time.Hour),
				zoned("w1", "Standup", d.Add(9*time.Hour), 15*time.Minute),
				{UID: "broken", Start: domain.Date(2024, 3, 16), End: domain.Date(2024, 3, 17)},
			},
			"/cal/home/": {
				allDay("stale", "Only in slack", d.Add(-9*day), d.Add(-8*day)),
				allDay("h1", "Birthday", d.Add(day), d.Add(2*day)),
			},
		},
	}

	svc := newService([]EventSource{src}, Options{
		Interval: domain.RelativeInterval{StartDays: -7, EndDays: 365},
		Location: time.UTC,
		Query:    agenda.QueryOptions{Slack: agenda.DefaultSlack},
	})

	got, err := svc.Upcoming(context.Background())
	require.NoError(t, err)

	require.False(t, got.Empty())
	var order []string
	for _, ev := range got.Events {
		order = append(order, ev.UID)
	}
	assert.Equal(t, []string{"w1", "h1", "w2"}, order)

	// the server was asked for the widened window
	assert.Equal(t, d.Add(-9*day), src.from)
	assert.Equal(t, d.Add(367*day), src.to)
	assert.Equal(t, d.Add(-7*day), got.Window.From)
	assert.Equal(t, d.Add(365*day), got.Window.To)
}

func TestUpcoming_CalendarSelection(t *testing.T) {
	src := &fakeSource{
		name: "caldav",
		calendars: []domain.Calendar{
			{Path: "/cal/work/", DisplayName: "Work"},
			{Path: "/cal/home/", DisplayName: "Home"},
			{Path: "/cal/holidays-it/", DisplayName: "Festività"},
		},
	}

	svc := newService([]EventSource{src}, Options{
		Calendars: []string{"Work", "holidays"},
		Interval:  domain.RelativeInterval{StartDays: 0, EndDays: 7},
	})

	got, err := svc.Upcoming(context.Background())
	require.NoError(t, err)
	assert.True(t, got.Empty())
	assert.Equal(t, []string{"Work", "Festività"}, src.queried)
}

func TestUpcoming_NoEvents(t *testing.T) {
	src := &fakeSource{name: "ics", calendars: []domain.Calendar{{Path: "p", DisplayName: "p"}}}
	svc := newService([]EventSource{src}, Options{Interval: domain.RelativeInterval{StartDays: 0, EndDays: 1}})

	got, err := svc.Upcoming(context.Background())
	require.NoError(t, err)
	assert.True(t, got.Empty())
	assert.Equal(t, 0, got.Len())
}

func TestUpcoming_MisorderedIntervalYieldsWindow(t *testing.T) {
	d := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)
	src := &fakeSource{
		name:      "caldav",
		calendars: []domain.Calendar{{Path: "p", DisplayName: "p"}},
		events:    map[string][]domain.RawEvent{"p": {zoned("x", "x", d.Add(time.Hour), time.Hour)}},
	}
	svc := newService([]EventSource{src}, Options{Interval: domain.RelativeInterval{StartDays: 3, EndDays: -3}})

	got, err := svc.Upcoming(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, got.Len())
}

func TestUpcoming_DisplayTimezone(t *testing.T) {
	rome, err := time.LoadLocation("Europe/Rome")
	require.NoError(t, err)

	src := &fakeSource{
		name:      "caldav",
		calendars: []domain.Calendar{{Path: "p", DisplayName: "p"}},
		events: map[string][]domain.RawEvent{"p": {
			allDay("a", "Holiday", time.Date(2024, 3, 16, 0, 0, 0, 0, time.UTC), time.Date(2024, 3, 17, 0, 0, 0, 0, time.UTC)),
		}},
	}
	svc := newService([]EventSource{src}, Options{
		Interval: domain.RelativeInterval{StartDays: 0, EndDays: 2},
		Location: rome,
	})

	got, err := svc.Upcoming(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, got.Len())

	ev := got.Events[0]
	assert.Equal(t, rome, ev.Start.Location())
	assert.Equal(t, "2024-03-16T00:00:00+01:00", ev.Start.Format(time.RFC3339))
	assert.True(t, ev.AllDay)

	assert.Equal(t, rome, got.Window.From.Location())
	assert.Equal(t, rome, got.Window.To.Location())
}

func TestUpcoming_RetrievalError(t *testing.T) {
	boom := errors.New("connection refused")

	tests := []struct {
		name string
		src  *fakeSource
		cal  string
	}{
		{
			name: "discovery",
			src:  &fakeSource{name: "caldav", calErr: boom},
		},
		{
			name: "query",
			src:  &fakeSource{name: "caldav", calendars: []domain.Calendar{{Path: "/w/", DisplayName: "Work"}}, eventsErr: boom},
			cal:  "Work (/w/)",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newService([]EventSource{tt.src}, Options{Interval: domain.RelativeInterval{StartDays: 0, EndDays: 1}})

			_, err := svc.Upcoming(context.Background())
			require.Error(t, err)
			var rerr *RetrievalError
			require.True(t, errors.As(err, &rerr))
			assert.Equal(t, "caldav", rerr.Source)
			assert.Equal(t, tt.cal, rerr.Calendar)
			assert.True(t, errors.Is(err, boom))
		})
	}
}

func TestCalendars(t *testing.T) {
	a := &fakeSource{name: "caldav", calendars: []domain.Calendar{{Path: "/a/", DisplayName: "A"}}}
	b := &fakeSource{name: "ics", calendars: []domain.Calendar{{Path: "https://x/b.ics", DisplayName: "B"}}}
	svc := newService([]EventSource{a, b}, Options{})

	cals, err := svc.Calendars(context.Background())
	require.NoError(t, err)
	require.Len(t, cals, 2)
	assert.Equal(t, "A", cals[0].DisplayName)
	assert.Equal(t, "B", cals[1].DisplayName)
}

func TestSelected(t *testing.T) {
	cal := domain.Calendar{Path: "/dav/alice/personal/", DisplayName: "Personal"}

	assert.True(t, Selected(cal, nil))
	assert.True(t, Selected(cal, []string{}))
	assert.True(t, Selected(cal, []string{"Pers"}))
	assert.True(t, Selected(cal, []string{"nope", "alice"}))
	assert.False(t, Selected(cal, []string{"Work"}))
	assert.False(t, Selected(cal, []string{"personal "}))
}
