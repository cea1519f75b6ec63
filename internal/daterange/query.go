package daterange

import (
	"strings"
	"time"
)

// Query is a range selection as it arrives on a request.
type Query struct {
	Range     string `form:"range"`
	StartDate string `form:"startDate"`
	EndDate   string `form:"endDate"`
}

// Selection is a resolved Query. Range is nil when Token is All.
type Selection struct {
	Token Token
	Range *Range
}

// Resolve turns q into a Selection relative to now. A start/end pair sent
// without a range token is read as a custom range, which older clients rely on.
func (q Query) Resolve(now time.Time) (Selection, error) {
	raw := q.Range
	if raw == "" && (q.StartDate != "" || q.EndDate != "") {
		raw = string(Custom)
	}
	token, err := ParseToken(raw)
	if err != nil {
		return Selection{}, err
	}

	var start, end *time.Time
	if token == Custom {
		loc := now.Location()
		if q.StartDate != "" {
			t, err := ParseStart(q.StartDate, loc)
			if err != nil {
				return Selection{}, err
			}
			start = &t
		}
		if q.EndDate != "" {
			t, err := ParseEnd(q.EndDate, loc)
			if err != nil {
				return Selection{}, err
			}
			end = &t
		} else if start != nil && isBareDate(q.StartDate) {
			// a single bare date covers that whole day
			t := EndOfDay(*start)
			end = &t
		}
	}

	rng, err := Resolve(token, now, start, end)
	if err != nil {
		return Selection{}, err
	}
	return Selection{Token: token, Range: rng}, nil
}

func isBareDate(s string) bool {
	_, err := time.Parse(dateLayout, strings.TrimSpace(s))
	return err == nil
}
