package render

import (
	"fmt"
	"io"
	"strings"

	"github.com/daladno/upcoming/internal/domain"
)

// NoEvents is printed instead of an empty list.
const NoEvents = "No events"

// Lines renders every event of agenda, or the single NoEvents line.
func Lines(agenda domain.Agenda, tmpl *Template) []string {
	if agenda.Empty() {
		return []string{NoEvents}
	}
	out := make([]string, 0, agenda.Len())
	for _, ev := range agenda.Events {
		out = append(out, tmpl.Execute(ev))
	}
	return out
}

// Write prints the agenda one line per event.
func Write(w io.Writer, agenda domain.Agenda, tmpl *Template) error {
	for _, line := range Lines(agenda, tmpl) {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return fmt.Errorf("write agenda: %w", err)
		}
	}
	return nil
}

// Text joins the rendered lines, for message sinks.
func Text(agenda domain.Agenda, tmpl *Template) string {
	return strings.Join(Lines(agenda, tmpl), "\n")
}

// Heading names the window an agenda covers, in the agenda's timezone.
// It is empty when the window is unknown.
func Heading(agenda domain.Agenda) string {
	if agenda.Window.IsZero() {
		return ""
	}
	from, to := agenda.Window.From, agenda.Window.To
	return fmt.Sprintf("Events %s - %s (%s)",
		from.Format("02 Jan 2006"), to.Format("02 Jan 2006"), from.Location())
}

// Message is the agenda as sent to chats: the heading, a blank line and
// the rendered lines.
func Message(agenda domain.Agenda, tmpl *Template) string {
	heading := Heading(agenda)
	if heading == "" {
		return Text(agenda, tmpl)
	}
	return heading + "\n\n" + Text(agenda, tmpl)
}
