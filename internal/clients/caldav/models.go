package caldav

import "errors"

// ErrAccessDenied is returned when the server rejects the credentials.
var ErrAccessDenied = errors.New("access denied to server, maybe wrong password")

// SourceName is the name CalDAV calendars are reported under.
const SourceName = "caldav"

const (
	dateLayout     = "20060102"
	dateTimeLayout = "20060102T150405"
)
