package caldav

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav/caldav"
	"github.com/rs/zerolog"

	"github.com/daladno/upcoming/internal/domain"
)

// Client reads events from a CalDAV server
type Client struct {
	baseURL   string
	username  string
	password  string
	transport http.RoundTripper
	client    *caldav.Client
	logger    zerolog.Logger
}

// NewClient creates a new CalDAV client
func NewClient(baseURL, username, password string, logger zerolog.Logger) *Client {
	return &Client{
		baseURL:   baseURL,
		username:  username,
		password:  password,
		transport: http.DefaultTransport,
		logger:    logger.With().Str("source", SourceName).Logger(),
	}
}

// WithTransport replaces the HTTP transport, mostly for tests.
func (c *Client) WithTransport(rt http.RoundTripper) *Client {
	c.transport = rt
	c.client = nil
	return c
}

func (c *Client) Name() string { return SourceName }

// connect establishes connection to CalDAV server
func (c *Client) connect() (*caldav.Client, error) {
	if c.client != nil {
		return c.client, nil
	}

	httpClient := &http.Client{
		Transport: &basicAuthTransport{
			username: c.username,
			password: c.password,
			base:     c.transport,
		},
		Timeout: 30 * time.Second,
	}

	client, err := caldav.NewClient(httpClient, c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("connect to CalDAV: %w", err)
	}

	c.client = client
	return client, nil
}

// basicAuthTransport adds Basic Auth to HTTP requests and turns a
// rejected login into ErrAccessDenied.
type basicAuthTransport struct {
	username string
	password string
	base     http.RoundTripper
}

func (t *basicAuthTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	if t.username != "" || t.password != "" {
		req = req.Clone(req.Context())
		req.SetBasicAuth(t.username, t.password)
	}
	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		resp.Body.Close()
		return nil, fmt.Errorf("%w (HTTP %d)", ErrAccessDenied, resp.StatusCode)
	}
	return resp, nil
}

// Calendars returns all calendars of the current user
func (c *Client) Calendars(ctx context.Context) ([]domain.Calendar, error) {
	client, err := c.connect()
	if err != nil {
		return nil, err
	}

	// Find the user's calendar home
	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return nil, fmt.Errorf("find principal: %w", err)
	}

	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return nil, fmt.Errorf("find home set: %w", err)
	}

	cals, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return nil, fmt.Errorf("find calendars: %w", err)
	}

	result := make([]domain.Calendar, 0, len(cals))
	for _, cal := range cals {
		result = append(result, domain.Calendar{
			Source:      SourceName,
			Path:        cal.Path,
			DisplayName: cal.Name,
		})
	}

	return result, nil
}

// Events returns the events of cal overlapping [from, to]. The range is
// handed to the server as is.
func (c *Client) Events(ctx context.Context, cal domain.Calendar, from, to time.Time) ([]domain.RawEvent, error) {
	client, err := c.connect()
	if err != nil {
		return nil, err
	}

	if cal.Path == "" {
		return nil, fmt.Errorf("calendar path not specified")
	}

	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:     ical.CompCalendar,
			AllProps: true,
			AllComps: true,
		},
		CompFilter: caldav.CompFilter{
			Name: ical.CompCalendar,
			Comps: []caldav.CompFilter{
				{
					Name:  ical.CompEvent,
					Start: from.UTC(),
					End:   to.UTC(),
				},
			},
		},
	}

	objects, err := client.QueryCalendar(ctx, cal.Path, query)
	if err != nil {
		return nil, fmt.Errorf("query calendar %s: %w", cal.Path, err)
	}

	name := cal.DisplayName
	if name == "" {
		name = cal.Path
	}

	events := make([]domain.RawEvent, 0, len(objects))
	for i := range objects {
		event, err := c.parseCalendarObject(&objects[i])
		if err != nil {
			c.logger.Debug().Err(err).Str("path", objects[i].Path).Msg("skipping calendar object")
			continue
		}
		event.Calendar = name
		events = append(events, event)
	}

	c.logger.Debug().
		Str("calendar", name).
		Int("objects", len(objects)).
		Int("events", len(events)).
		Msg("calendar queried")

	return events, nil
}

// parseCalendarObject extracts the first VEVENT of a CalDAV object
func (c *Client) parseCalendarObject(obj *caldav.CalendarObject) (domain.RawEvent, error) {
	if obj.Data == nil {
		return domain.RawEvent{}, fmt.Errorf("no data in calendar object")
	}

	for _, comp := range obj.Data.Children {
		if comp.Name != ical.CompEvent {
			continue
		}
		return c.parseEvent(comp), nil
	}

	return domain.RawEvent{}, fmt.Errorf("no VEVENT in calendar object")
}

func (c *Client) parseEvent(comp *ical.Component) domain.RawEvent {
	var event domain.RawEvent

	if prop := comp.Props.Get(ical.PropUID); prop != nil {
		event.UID = prop.Value
	}

	if prop := comp.Props.Get(ical.PropSummary); prop != nil {
		summary, err := prop.Text()
		if err != nil {
			summary = prop.Value
		}
		event.Summary = &summary
	}

	if prop := comp.Props.Get(ical.PropLocation); prop != nil {
		if loc, err := prop.Text(); err == nil {
			event.Location = loc
		}
	}

	event.Start = c.timestamp(event.UID, comp.Props.Get(ical.PropDateTimeStart))
	event.End = c.timestamp(event.UID, comp.Props.Get(ical.PropDateTimeEnd))

	return event
}

// timestamp maps a DTSTART/DTEND property onto the domain variant. An
// unreadable value is reported as absent, which later drops the event.
func (c *Client) timestamp(uid string, prop *ical.Prop) domain.Timestamp {
	ts, err := Timestamp(prop)
	if err != nil {
		c.logger.Warn().Err(err).Str("uid", uid).Str("prop", prop.Name).Msg("unreadable timestamp")
		return domain.Timestamp{}
	}
	return ts
}

// Timestamp classifies an iCalendar date or date-time property.
func Timestamp(prop *ical.Prop) (domain.Timestamp, error) {
	if prop == nil {
		return domain.Timestamp{}, nil
	}
	value := strings.TrimSpace(prop.Value)

	if prop.ValueType() == ical.ValueDate || !strings.Contains(value, "T") {
		t, err := time.Parse(dateLayout, value)
		if err != nil {
			return domain.Timestamp{}, fmt.Errorf("parse date %q: %w", value, err)
		}
		return domain.Date(t.Date()), nil
	}

	if strings.HasSuffix(value, "Z") || prop.Params.Get(ical.ParamTimezoneID) != "" {
		t, err := prop.DateTime(time.UTC)
		if err == nil {
			return domain.ZonedDateTime(t), nil
		}
		if strings.HasSuffix(value, "Z") {
			return domain.Timestamp{}, fmt.Errorf("parse date-time %q: %w", value, err)
		}
		// TZID that is not an IANA name: keep the wall clock.
	}

	t, err := time.Parse(dateTimeLayout, strings.TrimSuffix(value, "Z"))
	if err != nil {
		return domain.Timestamp{}, fmt.Errorf("parse date-time %q: %w", value, err)
	}
	return domain.FloatingDateTime(t), nil
}
