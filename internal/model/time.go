package model

import "time"

// TimeFormat is how instants are stored in the database and carried on
// the wire. RFC3339Nano keeps sub-second precision so two quick edits to
// the same task still compare as distinct under last-writer-wins.
const TimeFormat = time.RFC3339Nano

// FormatTime encodes an instant for textual storage, always in UTC.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeFormat)
}

// ParseTime decodes an instant from textual storage.
func ParseTime(s string) (time.Time, error) {
	return time.Parse(TimeFormat, s)
}
