package wikibase

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
)

// TimePrecision is the granularity of a TimeValue, coarsest first.
type TimePrecision int

const (
	PrecisionGigaYear TimePrecision = iota
	PrecisionHundredMegaYear
	PrecisionTenMegaYear
	PrecisionMegaYear
	PrecisionHundredKiloYear
	PrecisionTenKiloYear
	PrecisionMillennium
	PrecisionCentury
	PrecisionDecade
	PrecisionYear
	PrecisionMonth
	PrecisionDay
	PrecisionHour
	PrecisionMinute
	PrecisionSecond
)

// CalendarModel is the calendar a TimeValue is expressed in.
type CalendarModel int

const (
	CalendarUnknown CalendarModel = iota
	CalendarGregorian
	CalendarJulian
)

const (
	GregorianCalendarURI = "http://www.wikidata.org/entity/Q1985727"
	JulianCalendarURI    = "http://www.wikidata.org/entity/Q1985786"
)

// URI returns the concept URI of the calendar, or "" for CalendarUnknown.
func (c CalendarModel) URI() string {
	switch c {
	case CalendarGregorian:
		return GregorianCalendarURI
	case CalendarJulian:
		return JulianCalendarURI
	}
	return ""
}

func calendarFromURI(uri string) CalendarModel {
	switch entityURIID(uri) {
	case "Q1985727":
		return CalendarGregorian
	case "Q1985786":
		return CalendarJulian
	}
	return CalendarUnknown
}

const (
	maxYear           = 99999999999
	minYearWidth      = 4
	maxTimeZoneOffset = 12 * 60
	maxMonth          = 12
	maxDay            = 31
	maxHour           = 60
	maxMinute         = 60
	maxSecond         = 30
)

var timePattern = regexp.MustCompile(`^([+-])(\d{1,11})-(\d{2})-(\d{2})T(\d{2}):(\d{2}):(\d{2})Z$`)

// TimeValue is a point in time with precision, uncertainty and calendar.
// Month and Day may be zero for precisions coarser than a month or day.
type TimeValue struct {
	Year   int64
	Month  int
	Day    int
	Hour   int
	Minute int
	Second int
	// TimeZoneOffset is the offset from UTC in minutes.
	TimeZoneOffset int
	Before         int
	After          int
	Precision      TimePrecision
	CalendarModel  CalendarModel

	// yearWidth is the number of year digits read from the wire, kept so a
	// decoded value re-encodes with the same padding.
	yearWidth int
	// negativeZero records a decoded "-0000" year, which Year alone cannot hold.
	negativeZero bool
}

// NewTimeValue creates a time value with zero offset and uncertainty.
func NewTimeValue(year int64, month, day, hour, minute, second int, precision TimePrecision, calendar CalendarModel) (*TimeValue, error) {
	v := &TimeValue{
		Year:          year,
		Month:         month,
		Day:           day,
		Hour:          hour,
		Minute:        minute,
		Second:        second,
		Precision:     precision,
		CalendarModel: calendar,
	}
	if err := v.validate(); err != nil {
		return nil, err
	}
	return v, nil
}

// NewDateValue creates a day-precision Gregorian date.
func NewDateValue(year int64, month, day int) (*TimeValue, error) {
	return NewTimeValue(year, month, day, 0, 0, 0, PrecisionDay, CalendarGregorian)
}

func (*TimeValue) Kind() ValueKind { return KindTime }
func (*TimeValue) dataValue()      {}

func (v *TimeValue) validate() error {
	switch {
	case v.Year > maxYear || v.Year < -maxYear:
		return formatErr("year %d out of range", v.Year)
	case v.Month < 0 || v.Month > maxMonth:
		return formatErr("month %d out of range", v.Month)
	case v.Day < 0 || v.Day > maxDay:
		return formatErr("day %d out of range", v.Day)
	case v.Hour < 0 || v.Hour > maxHour:
		return formatErr("hour %d out of range", v.Hour)
	case v.Minute < 0 || v.Minute > maxMinute:
		return formatErr("minute %d out of range", v.Minute)
	case v.Second < 0 || v.Second > maxSecond:
		return formatErr("second %d out of range", v.Second)
	case v.TimeZoneOffset < -maxTimeZoneOffset || v.TimeZoneOffset > maxTimeZoneOffset:
		return formatErr("timezone offset %d out of range", v.TimeZoneOffset)
	case v.Before < 0 || v.After < 0:
		return formatErr("before/after must not be negative")
	case v.Precision < PrecisionGigaYear || v.Precision > PrecisionSecond:
		return formatErr("precision %d out of range", v.Precision)
	}
	return nil
}

// TimeString formats the signed ISO 8601-like timestamp, e.g.
// "+00000002013-01-01T00:00:00Z". The year is padded to at least four
// digits, or to the width it was decoded with.
func (v *TimeValue) TimeString() string {
	sign := "+"
	year := v.Year
	if year < 0 {
		sign = "-"
		year = -year
	} else if year == 0 && v.negativeZero {
		sign = "-"
	}
	width := max(v.yearWidth, minYearWidth)
	return fmt.Sprintf("%s%0*d-%02d-%02dT%02d:%02d:%02dZ",
		sign, width, year, v.Month, v.Day, v.Hour, v.Minute, v.Second)
}

func (v *TimeValue) Encode() (any, error) {
	if v.CalendarModel == CalendarUnknown {
		return nil, stateErr("time value has unknown calendar model")
	}
	if err := v.validate(); err != nil {
		return nil, err
	}
	return map[string]any{
		"time":          v.TimeString(),
		"timezone":      v.TimeZoneOffset,
		"before":        v.Before,
		"after":         v.After,
		"precision":     int(v.Precision),
		"calendarmodel": v.CalendarModel.URI(),
	}, nil
}

// Equal compares all fields except the decoded year padding and sign of a
// zero year.
func (v *TimeValue) Equal(other DataValue) bool {
	o, ok := other.(*TimeValue)
	if !ok || o == nil {
		return false
	}
	return v.Year == o.Year && v.Month == o.Month && v.Day == o.Day &&
		v.Hour == o.Hour && v.Minute == o.Minute && v.Second == o.Second &&
		v.TimeZoneOffset == o.TimeZoneOffset &&
		v.Before == o.Before && v.After == o.After &&
		v.Precision == o.Precision && v.CalendarModel == o.CalendarModel
}

func (v *TimeValue) String() string { return v.TimeString() }

// parseTimeString reads the signed timestamp into the date fields of v.
func parseTimeString(s string, v *TimeValue) error {
	m := timePattern.FindStringSubmatch(s)
	if m == nil {
		return formatErr("invalid time %q", s)
	}
	year, err := strconv.ParseInt(m[2], 10, 64)
	if err != nil {
		return formatErr("invalid year in %q", s)
	}
	if m[1] == "-" {
		year = -year
	}
	v.Year = year
	v.negativeZero = m[1] == "-" && year == 0
	v.yearWidth = len(m[2])
	parts := []*int{&v.Month, &v.Day, &v.Hour, &v.Minute, &v.Second}
	for i, p := range parts {
		n, _ := strconv.Atoi(m[3+i])
		*p = n
	}
	return nil
}

func decodeTimeValue(raw json.RawMessage) (*TimeValue, error) {
	m, err := decodeObject(raw, "time")
	if err != nil {
		return nil, err
	}
	v := &TimeValue{}

	ts, err := requireString(m, "time", "time")
	if err != nil {
		return nil, err
	}
	if err := parseTimeString(ts, v); err != nil {
		return nil, err
	}

	ints := []struct {
		key string
		dst *int
	}{
		{"timezone", &v.TimeZoneOffset},
		{"before", &v.Before},
		{"after", &v.After},
	}
	for _, f := range ints {
		n, err := requireInt(m, f.key, "time")
		if err != nil {
			return nil, err
		}
		*f.dst = int(n)
	}
	p, err := requireInt(m, "precision", "time")
	if err != nil {
		return nil, err
	}
	v.Precision = TimePrecision(p)

	cal, err := requireString(m, "calendarmodel", "time")
	if err != nil {
		return nil, err
	}
	v.CalendarModel = calendarFromURI(cal)

	if err := v.validate(); err != nil {
		return nil, err
	}
	return v, nil
}
