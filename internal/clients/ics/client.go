// Package ics reads events from plain iCalendar subscription URLs.
package ics

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"
	"github.com/rs/zerolog"

	"github.com/daladno/upcoming/internal/domain"
)

// Feed is a single ICS subscription.
type Feed struct {
	Name string
	URL  string
}

// Client fetches one or more ICS feeds. Each feed is exposed as a
// calendar named after it.
type Client struct {
	feeds  []Feed
	client *http.Client
	logger zerolog.Logger
}

func NewClient(feeds []Feed, logger zerolog.Logger) *Client {
	return &Client{
		feeds: feeds,
		client: &http.Client{
			Timeout: 15 * time.Second,
		},
		logger: logger.With().Str("source", "ics").Logger(),
	}
}

func (c *Client) Name() string { return "ics" }

// Calendars lists the configured feeds without contacting them.
func (c *Client) Calendars(ctx context.Context) ([]domain.Calendar, error) {
	out := make([]domain.Calendar, 0, len(c.feeds))
	for _, f := range c.feeds {
		out = append(out, domain.Calendar{Source: c.Name(), Path: f.URL, DisplayName: f.Name})
	}
	return out, nil
}

// Events downloads the feed of cal and keeps the VEVENTs overlapping
// [from, to], the way a CalDAV server answers a time-range query. A zero
// bound leaves that side open.
func (c *Client) Events(ctx context.Context, cal domain.Calendar, from, to time.Time) ([]domain.RawEvent, error) {
	if cal.Path == "" {
		return nil, errors.New("source URL is empty")
	}

	body, err := c.fetch(ctx, cal.Path)
	if err != nil {
		return nil, err
	}
	defer body.Close()

	parsed, err := ical.ParseCalendar(body)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", cal.DisplayName, err)
	}

	vevents := parsed.Events()
	events := make([]domain.RawEvent, 0, len(vevents))
	for _, ve := range vevents {
		ev, err := parseVEvent(ve)
		if err != nil {
			c.logger.Warn().Err(err).Str("feed", cal.DisplayName).Msg("ics vevent parse failed")
		}
		if !overlaps(ev, from, to) {
			continue
		}
		ev.Calendar = cal.DisplayName
		events = append(events, ev)
	}

	c.logger.Debug().
		Str("feed", cal.DisplayName).
		Str("url", redactURL(cal.Path)).
		Int("vevent_count", len(vevents)).
		Int("event_count", len(events)).
		Time("from", from).
		Time("to", to).
		Msg("ics parse completed")

	return events, nil
}

func (c *Client) fetch(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "text/calendar")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", redactURL(rawURL), err)
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: unexpected status %s", redactURL(rawURL), resp.Status)
	}
	return resp.Body, nil
}

// parseVEvent maps a VEVENT onto a RawEvent. A timestamp that cannot be
// read is left absent and reported; the event is dropped downstream.
func parseVEvent(ve *ical.VEvent) (domain.RawEvent, error) {
	var out domain.RawEvent
	var errs []error

	if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
		out.UID = p.Value
	}
	if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
		summary := unescapeText(p.Value)
		out.Summary = &summary
	}
	if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
		out.Location = unescapeText(p.Value)
	}

	if p := ve.GetProperty(ical.ComponentPropertyDtStart); p != nil {
		ts, err := parseTimestamp(p.Value, p.ICalParameters)
		if err != nil {
			errs = append(errs, fmt.Errorf("DTSTART: %w", err))
		}
		out.Start = ts
	}
	if p := ve.GetProperty(ical.ComponentPropertyDtEnd); p != nil {
		ts, err := parseTimestamp(p.Value, p.ICalParameters)
		if err != nil {
			errs = append(errs, fmt.Errorf("DTEND: %w", err))
		}
		out.End = ts
	}

	if len(errs) > 0 {
		return out, fmt.Errorf("event %q: %w", out.UID, errors.Join(errs...))
	}
	return out, nil
}

// overlaps applies a time-range query to ev. Dates and floating times are
// read as UTC, as servers do; the query slack covers the difference.
// Events missing either end are kept so they are counted as malformed.
func overlaps(ev domain.RawEvent, from, to time.Time) bool {
	if ev.Start.IsZero() || ev.End.IsZero() {
		return true
	}
	start, end := utcInstant(ev.Start), utcInstant(ev.End)
	if !from.IsZero() && end.Before(from) {
		return false
	}
	if !to.IsZero() && start.After(to) {
		return false
	}
	return true
}

func utcInstant(ts domain.Timestamp) time.Time {
	if ts.Kind() == domain.KindDate {
		y, m, d := ts.YMD()
		return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	}
	return ts.Wall()
}

func param(params map[string][]string, name string) string {
	if vs, ok := params[name]; ok && len(vs) > 0 {
		return vs[0]
	}
	return ""
}

// parseTimestamp classifies a DATE or DATE-TIME value: VALUE=DATE or no
// 'T' is a date, a trailing Z or a loadable TZID is zoned, anything else
// floats.
func parseTimestamp(value string, params map[string][]string) (domain.Timestamp, error) {
	value = strings.TrimSpace(value)

	if strings.EqualFold(param(params, "VALUE"), "DATE") || !strings.Contains(value, "T") {
		t, err := time.Parse("20060102", value)
		if err != nil {
			return domain.Timestamp{}, err
		}
		return domain.Date(t.Date()), nil
	}

	if strings.HasSuffix(value, "Z") {
		t, err := time.Parse("20060102T150405Z", value)
		if err != nil {
			return domain.Timestamp{}, err
		}
		return domain.ZonedDateTime(t), nil
	}

	if tzid := param(params, "TZID"); tzid != "" {
		if loc, err := time.LoadLocation(tzid); err == nil {
			t, err := time.ParseInLocation("20060102T150405", value, loc)
			if err != nil {
				return domain.Timestamp{}, err
			}
			return domain.ZonedDateTime(t), nil
		}
	}

	t, err := time.Parse("20060102T150405", value)
	if err != nil {
		return domain.Timestamp{}, err
	}
	return domain.FloatingDateTime(t), nil
}

var textUnescaper = strings.NewReplacer(`\\`, `\`, `\,`, `,`, `\;`, `;`, `\n`, "\n", `\N`, "\n")

func unescapeText(s string) string {
	return textUnescaper.Replace(s)
}

// redactURL drops credentials and the query string.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return "<invalid url>"
	}
	u.User = nil
	u.RawQuery = ""
	return u.String()
}
