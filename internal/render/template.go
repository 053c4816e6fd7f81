// Package render turns an agenda into text lines using a small template
// language: {field} or {field:strftime}, with {{ and }} as literal braces.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/lestrrat-go/strftime"

	"github.com/daladno/upcoming/internal/domain"
)

// FormatError is a broken event_format. It is a configuration problem,
// reported to the user rather than crashing the run.
type FormatError struct {
	Template string
	Field    string
	Reason   string
}

func (e *FormatError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("wrong event_format %q: %s", e.Template, e.Reason)
	}
	return fmt.Sprintf("wrong event_format %q, at %s: %s", e.Template, e.Field, e.Reason)
}

type fieldKind int

const (
	textField fieldKind = iota
	timeField
)

var fields = map[string]fieldKind{
	"start":    timeField,
	"end":      timeField,
	"summary":  textField,
	"calendar": textField,
	"uid":      textField,
	"location": textField,
	"time":     textField,
	"when":     textField,
}

// defaultTimeLayout is used for a time field with no format spec.
const defaultTimeLayout = "2006-01-02 15:04:05-07:00"

type segment struct {
	literal string
	field   string
	format  *strftime.Strftime // time fields with a spec
}

// Template is a parsed event_format.
type Template struct {
	src      string
	segments []segment
}

// Parse compiles src, rejecting unknown fields and directives.
func Parse(src string) (*Template, error) {
	t := &Template{src: src}
	var lit strings.Builder

	flush := func() {
		if lit.Len() > 0 {
			t.segments = append(t.segments, segment{literal: lit.String()})
			lit.Reset()
		}
	}

	for i := 0; i < len(src); i++ {
		c := src[i]
		switch {
		case c == '{' && i+1 < len(src) && src[i+1] == '{':
			lit.WriteByte('{')
			i++
		case c == '}' && i+1 < len(src) && src[i+1] == '}':
			lit.WriteByte('}')
			i++
		case c == '}':
			return nil, &FormatError{Template: src, Reason: "single '}' encountered"}
		case c == '{':
			end := strings.IndexByte(src[i:], '}')
			if end < 0 {
				return nil, &FormatError{Template: src, Reason: "unclosed '{'"}
			}
			seg, err := parseField(src, src[i+1:i+end])
			if err != nil {
				return nil, err
			}
			flush()
			t.segments = append(t.segments, seg)
			i += end
		default:
			lit.WriteByte(c)
		}
	}
	flush()

	return t, nil
}

// MustParse is Parse for templates known to be valid.
func MustParse(src string) *Template {
	t, err := Parse(src)
	if err != nil {
		panic(err)
	}
	return t
}

func parseField(src, body string) (segment, error) {
	name, spec, hasSpec := strings.Cut(body, ":")
	kind, ok := fields[name]
	if !ok {
		return segment{}, &FormatError{Template: src, Field: name, Reason: "unknown field"}
	}

	seg := segment{field: name}
	switch {
	case kind == textField && hasSpec:
		return segment{}, &FormatError{Template: src, Field: name, Reason: "text fields take no format"}
	case kind == timeField && hasSpec:
		f, err := strftime.New(spec)
		if err != nil {
			return segment{}, &FormatError{Template: src, Field: name, Reason: err.Error()}
		}
		seg.format = f
	}
	return seg, nil
}

func (t *Template) String() string { return t.src }

// Execute renders one event.
func (t *Template) Execute(ev domain.CanonicalEvent) string {
	var b strings.Builder
	for _, seg := range t.segments {
		if seg.field == "" {
			b.WriteString(seg.literal)
			continue
		}
		switch seg.field {
		case "start":
			b.WriteString(seg.formatTime(ev.Start))
		case "end":
			b.WriteString(seg.formatTime(ev.End))
		case "summary":
			b.WriteString(ev.Summary)
		case "calendar":
			b.WriteString(ev.Calendar)
		case "uid":
			b.WriteString(ev.UID)
		case "location":
			b.WriteString(ev.Location)
		case "time":
			b.WriteString(ev.TimeRange())
		case "when":
			b.WriteString(ev.When())
		}
	}
	return b.String()
}

func (seg segment) formatTime(t time.Time) string {
	if seg.format == nil {
		return t.Format(defaultTimeLayout)
	}
	return seg.format.FormatString(t)
}
