package domain

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

const (
	dateLayout      = "2006-01-02"
	wallLayout      = "2006-01-02T15:04:05"
	wallStoreLayout = "2006-01-02 15:04:05"
)

// Date is a calendar date without time of day or time zone.
// It round-trips through "YYYY-MM-DD" unchanged regardless of the process time zone.
type Date struct {
	Year  int
	Month time.Month
	Day   int
}

// ParseDate parses a "YYYY-MM-DD" string
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: invalid date %q, expected YYYY-MM-DD", ErrInvalidInput, s)
	}
	return DateOf(t), nil
}

// DateOf returns the calendar date of t in t's own location
func DateOf(t time.Time) Date {
	y, m, d := t.Date()
	return Date{Year: y, Month: m, Day: d}
}

// Today returns the current calendar date in loc
func Today(loc *time.Location) Date {
	if loc == nil {
		loc = time.UTC
	}
	return DateOf(time.Now().In(loc))
}

// IsZero reports whether the date is unset
func (d Date) IsZero() bool {
	return d.Year == 0 && d.Month == 0 && d.Day == 0
}

// String formats the date as YYYY-MM-DD
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return fmt.Sprintf("%04d-%02d-%02d", d.Year, int(d.Month), d.Day)
}

// Compare returns -1, 0 or 1 when d is before, equal to or after o
func (d Date) Compare(o Date) int {
	switch {
	case d.Year != o.Year:
		return cmpInt(d.Year, o.Year)
	case d.Month != o.Month:
		return cmpInt(int(d.Month), int(o.Month))
	default:
		return cmpInt(d.Day, o.Day)
	}
}

func (d Date) MarshalJSON() ([]byte, error) {
	if d.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(d.String())
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: date must be a string", ErrInvalidInput)
	}
	if s == nil || *s == "" {
		*d = Date{}
		return nil
	}
	parsed, err := ParseDate(*s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Scan implements sql.Scanner for DATE and TEXT columns
func (d *Date) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*d = Date{}
		return nil
	case time.Time:
		*d = DateOf(v)
		return nil
	case string:
		return d.scanString(v)
	case []byte:
		return d.scanString(string(v))
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

func (d *Date) scanString(s string) error {
	if len(s) > len(dateLayout) {
		s = s[:len(dateLayout)]
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer; the date is stored as plain text
func (d Date) Value() (driver.Value, error) {
	if d.IsZero() {
		return nil, nil
	}
	return d.String(), nil
}

// WallTime is a local wall-clock value as entered by the user. It carries no
// time zone and is never converted between zones. A date-only value is kept apart
// from an explicit midnight so both render back the way they were entered.
type WallTime struct {
	t        time.Time // wall clock components, location always UTC
	dateOnly bool
}

var wallInputLayouts = []string{
	wallLayout,
	"2006-01-02T15:04",
	wallStoreLayout,
	"2006-01-02 15:04",
	dateLayout,
}

// ParseWallTime parses a date or date-time without zone offset
func ParseWallTime(s string) (WallTime, error) {
	s = strings.TrimSpace(s)
	for _, layout := range wallInputLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return WallTime{t: t, dateOnly: layout == dateLayout}, nil
		}
	}
	return WallTime{}, fmt.Errorf("%w: invalid event date %q, expected YYYY-MM-DD or YYYY-MM-DDTHH:MM[:SS] without zone", ErrInvalidInput, s)
}

// NewWallTime builds a wall-clock value from explicit components
func NewWallTime(year int, month time.Month, day, hour, minute, sec int) WallTime {
	return WallTime{t: time.Date(year, month, day, hour, minute, sec, 0, time.UTC)}
}

// WallTimeFromDate returns a date-only wall-clock value
func WallTimeFromDate(d Date) WallTime {
	if d.IsZero() {
		return WallTime{}
	}
	w := NewWallTime(d.Year, d.Month, d.Day, 0, 0, 0)
	w.dateOnly = true
	return w
}

func wallTimeOf(t time.Time) WallTime {
	return NewWallTime(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second())
}

// IsZero reports whether the value is unset
func (w WallTime) IsZero() bool { return w.t.IsZero() }

// DateOnly reports whether the value was entered without a time of day
func (w WallTime) DateOnly() bool { return w.dateOnly }

// WithDateOnly restores the date-only flag kept next to a stored value. Only a
// midnight value can be date-only.
func (w WallTime) WithDateOnly(dateOnly bool) WallTime {
	h, m, s := w.t.Clock()
	w.dateOnly = dateOnly && h == 0 && m == 0 && s == 0
	return w
}

// Date returns the calendar date part
func (w WallTime) Date() Date { return DateOf(w.t) }

// Before reports whether w is earlier than o
func (w WallTime) Before(o WallTime) bool { return w.t.Before(o.t) }

// Equal reports whether both values denote the same wall-clock instant. The
// date-only flag is not compared.
func (w WallTime) Equal(o WallTime) bool { return w.t.Equal(o.t) }

// String renders YYYY-MM-DD for date-only values and YYYY-MM-DDTHH:MM:SS otherwise
func (w WallTime) String() string {
	if w.IsZero() {
		return ""
	}
	if w.DateOnly() {
		return w.t.Format(dateLayout)
	}
	return w.t.Format(wallLayout)
}

func (w WallTime) MarshalJSON() ([]byte, error) {
	if w.IsZero() {
		return []byte("null"), nil
	}
	return json.Marshal(w.String())
}

func (w *WallTime) UnmarshalJSON(data []byte) error {
	var s *string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%w: event date must be a string", ErrInvalidInput)
	}
	if s == nil || *s == "" {
		*w = WallTime{}
		return nil
	}
	parsed, err := ParseWallTime(*s)
	if err != nil {
		return err
	}
	*w = parsed
	return nil
}

// Scan implements sql.Scanner for TIMESTAMP (without zone) and TEXT columns
func (w *WallTime) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*w = WallTime{}
		return nil
	case time.Time:
		*w = wallTimeOf(v)
		return nil
	case string:
		return w.scanString(v)
	case []byte:
		return w.scanString(string(v))
	default:
		return fmt.Errorf("cannot scan %T into WallTime", src)
	}
}

func (w *WallTime) scanString(s string) error {
	if parsed, err := ParseWallTime(s); err == nil {
		*w = parsed
		return nil
	}
	// drivers may render the stored text with an offset; the wall clock part is what counts
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02 15:04:05Z07:00", "2006-01-02 15:04:05.999999999"} {
		if t, err := time.Parse(layout, s); err == nil {
			*w = wallTimeOf(t)
			return nil
		}
	}
	return fmt.Errorf("cannot parse %q as event date", s)
}

// Value implements driver.Valuer using a zone-less text form
func (w WallTime) Value() (driver.Value, error) {
	if w.IsZero() {
		return nil, nil
	}
	return w.t.Format(wallStoreLayout), nil
}

func cmpInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}
