// Package daterange resolves the named range tokens used by reports and the
// dashboard into concrete, inclusive time intervals.
package daterange

import (
	"net/http"
	"strings"
	"time"

	"go-safety/internal/shared/apperror"
)

type Token string

const (
	Day    Token = "day"
	Week   Token = "week"
	Month  Token = "month"
	Year   Token = "year"
	All    Token = "all"
	Custom Token = "custom"
)

const dateLayout = "2006-01-02"

var ErrInvalidRange = apperror.New(
	apperror.CodeInvalidRange,
	"Invalid date range",
	http.StatusBadRequest,
)

// Range is an interval inclusive on both ends.
type Range struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

func (r Range) Contains(t time.Time) bool {
	return !t.Before(r.Start) && !t.After(r.End)
}

// Days lists the midnight of every calendar day the range touches, in the
// location of Start.
func (r Range) Days() []time.Time {
	loc := r.Start.Location()
	end := r.End.In(loc)
	var days []time.Time
	for d := StartOfDay(r.Start); !d.After(end); d = d.AddDate(0, 0, 1) {
		days = append(days, d)
	}
	return days
}

func ParseToken(s string) (Token, error) {
	switch t := Token(strings.ToLower(strings.TrimSpace(s))); t {
	case "":
		return All, nil
	case Day, Week, Month, Year, All, Custom:
		return t, nil
	default:
		return "", ErrInvalidRange.WithDetails("unknown range " + s)
	}
}

// Resolve maps token to an interval around now. It returns nil for All.
// For Custom, end defaults to start and start must not come after end.
func Resolve(token Token, now time.Time, customStart, customEnd *time.Time) (*Range, error) {
	today := StartOfDay(now)

	switch token {
	case All:
		return nil, nil
	case Day:
		return &Range{Start: today, End: endOf(today, 0, 0, 1)}, nil
	case Week:
		// ISO week: Monday is day 0, Sunday closes the week that began six days earlier
		offset := (int(today.Weekday()) + 6) % 7
		start := today.AddDate(0, 0, -offset)
		return &Range{Start: start, End: endOf(start, 0, 0, 7)}, nil
	case Month:
		start := time.Date(today.Year(), today.Month(), 1, 0, 0, 0, 0, today.Location())
		return &Range{Start: start, End: endOf(start, 0, 1, 0)}, nil
	case Year:
		r := YearRange(today.Year(), today.Location())
		return &r, nil
	case Custom:
		if customStart == nil {
			return nil, ErrInvalidRange.WithDetails("startDate is required for a custom range")
		}
		end := *customStart
		if customEnd != nil {
			end = *customEnd
		}
		if customStart.After(end) {
			return nil, ErrInvalidRange.WithDetails("startDate must not be after endDate")
		}
		return &Range{Start: *customStart, End: end}, nil
	default:
		return nil, ErrInvalidRange.WithDetails("unknown range " + string(token))
	}
}

// YearRange covers Jan 1 00:00:00.000 through Dec 31 23:59:59.999 of year.
func YearRange(year int, loc *time.Location) Range {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, loc)
	return Range{Start: start, End: endOf(start, 1, 0, 0)}
}

func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// EndOfDay is the last millisecond of t's calendar day.
func EndOfDay(t time.Time) time.Time {
	return endOf(StartOfDay(t), 0, 0, 1)
}

func endOf(start time.Time, years, months, days int) time.Time {
	return start.AddDate(years, months, days).Add(-time.Millisecond)
}

// ParseStart reads a lower bound. A bare date means the start of that day.
func ParseStart(s string, loc *time.Location) (time.Time, error) {
	return parseBound(s, loc, false)
}

// ParseEnd reads an upper bound. A bare date means the last millisecond of that day.
func ParseEnd(s string, loc *time.Location) (time.Time, error) {
	return parseBound(s, loc, true)
}

func parseBound(s string, loc *time.Location, endOfDay bool) (time.Time, error) {
	s = strings.TrimSpace(s)
	if d, err := time.ParseInLocation(dateLayout, s, loc); err == nil {
		if endOfDay {
			return EndOfDay(d), nil
		}
		return d, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, ErrInvalidRange.WithDetails("dates must be YYYY-MM-DD or RFC 3339: " + s)
	}
	return t.In(loc), nil
}
