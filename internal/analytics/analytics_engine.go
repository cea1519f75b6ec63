// Package analytics groups safety records into report rows: per area,
// department, month, day and equipment kind, plus the dashboard summary.
package analytics

import (
	"math"
	"net/http"
	"sort"
	"strings"
	"time"

	"go-safety/internal/compliance"
	"go-safety/internal/daterange"
	"go-safety/internal/safetyrecord"
	"go-safety/internal/shared/apperror"
)

type Dimension string

const (
	DimensionArea       Dimension = "area"
	DimensionDepartment Dimension = "department"
	DimensionMonth      Dimension = "month"
	DimensionDay        Dimension = "day"
	DimensionEquipment  Dimension = "equipment"
)

const (
	EquipmentShoes   = "Safety Shoes"
	EquipmentGlasses = "Safety Glasses"
	EquipmentJacket  = "Safety Jacket"
)

var ErrUnsupportedDimension = apperror.New(
	apperror.CodeUnsupportedDimension,
	"Unsupported dimension",
	http.StatusBadRequest,
)

func ParseDimension(s string) (Dimension, error) {
	switch d := Dimension(strings.ToLower(strings.TrimSpace(s))); d {
	case DimensionArea, DimensionDepartment, DimensionMonth, DimensionDay, DimensionEquipment:
		return d, nil
	default:
		return "", ErrUnsupportedDimension.WithDetails("unknown dimension " + s)
	}
}

// AggregationResult is one group of records. Strength fields are only set
// for area and department groups.
type AggregationResult struct {
	GroupKey       string  `json:"groupKey"`
	Label          string  `json:"label,omitempty"`
	Total          int     `json:"total"`
	Defaulters     int     `json:"defaulters"`
	Compliant      int     `json:"compliant"`
	ComplianceRate float64 `json:"complianceRate"`
	TotalStrength  int     `json:"totalStrength,omitempty"`
	AvgStrength    int     `json:"avgStrength,omitempty"`
}

type EquipmentResult struct {
	Equipment      string  `json:"equipment"`
	Compliant      int     `json:"compliant"`
	NonCompliant   int     `json:"nonCompliant"`
	ComplianceRate float64 `json:"complianceRate"`
}

// Result holds Equipment rows for DimensionEquipment and Groups otherwise.
type Result struct {
	Dimension Dimension
	Groups    []AggregationResult
	Equipment []EquipmentResult
}

// Rows is the slice a caller should render for r.Dimension.
func (r Result) Rows() any {
	if r.Dimension == DimensionEquipment {
		return r.Equipment
	}
	return r.Groups
}

type Summary struct {
	TotalRecords     int     `json:"totalRecords"`
	TotalDefaulters  int     `json:"totalDefaulters"`
	ComplianceRate   float64 `json:"complianceRate"`
	NonCompliantRate float64 `json:"nonCompliantRate"`
}

type Option func(*aggregateOptions)

type aggregateOptions struct {
	denseDays bool
	year      int
}

// WithDenseDays emits a zero row for every day of the range that has no
// records. It has no effect without a range.
func WithDenseDays() Option {
	return func(o *aggregateOptions) { o.denseDays = true }
}

// WithYear picks the year of the month series instead of deriving it from
// the range or the clock.
func WithYear(year int) Option {
	return func(o *aggregateOptions) { o.year = year }
}

// Engine computes report rows. It holds no state besides the clock and
// location used when a month series has no range to take its year from.
type Engine struct {
	now func() time.Time
	loc *time.Location
}

func NewEngine(now func() time.Time, loc *time.Location) *Engine {
	if now == nil {
		now = time.Now
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Engine{now: now, loc: loc}
}

func (e *Engine) Aggregate(
	records []safetyrecord.SafetyRecord,
	dim Dimension,
	rng *daterange.Range,
	opts ...Option,
) (Result, error) {
	var o aggregateOptions
	for _, opt := range opts {
		opt(&o)
	}

	filtered := filterByRange(records, rng)
	res := Result{Dimension: dim}

	switch dim {
	case DimensionArea:
		res.Groups = groupBy(filtered, func(r safetyrecord.SafetyRecord) string { return r.Area })
	case DimensionDepartment:
		res.Groups = groupBy(filtered, func(r safetyrecord.SafetyRecord) string { return r.Department })
	case DimensionMonth:
		res.Groups = e.byMonth(filtered, rng, o.year)
	case DimensionDay:
		res.Groups = e.byDay(filtered, rng, o.denseDays)
	case DimensionEquipment:
		res.Equipment = byEquipment(filtered)
	default:
		return Result{}, ErrUnsupportedDimension.WithDetails("unknown dimension " + string(dim))
	}
	return res, nil
}

// Summarize is the dashboard headline for records inside rng. Its compliance
// rate counts equipment items present out of those required, in whole percent.
func (e *Engine) Summarize(records []safetyrecord.SafetyRecord, rng *daterange.Range) Summary {
	filtered := filterByRange(records, rng)

	var defaulters, itemsPresent int
	for _, r := range filtered {
		if r.IsDefaulter {
			defaulters++
		}
		itemsPresent += boolToInt(r.SafetyShoes) + boolToInt(r.SafetyGlasses) + boolToInt(r.SafetyJacket)
	}

	total := len(filtered)
	return Summary{
		TotalRecords:     total,
		TotalDefaulters:  defaulters,
		ComplianceRate:   compliance.Percentage(itemsPresent, total*compliance.RequiredEquipment, 0),
		NonCompliantRate: compliance.Percentage(defaulters, total, 0),
	}
}

func filterByRange(records []safetyrecord.SafetyRecord, rng *daterange.Range) []safetyrecord.SafetyRecord {
	if rng == nil {
		return records
	}
	out := make([]safetyrecord.SafetyRecord, 0, len(records))
	for _, r := range records {
		if rng.Contains(r.Date) {
			out = append(out, r)
		}
	}
	return out
}

type bucket struct {
	key        string
	label      string
	total      int
	defaulters int
	strength   int
}

func (b *bucket) add(r safetyrecord.SafetyRecord) {
	b.total++
	b.strength += r.Strength
	if r.IsDefaulter {
		b.defaulters++
	}
}

func (b *bucket) result() AggregationResult {
	compliant := b.total - b.defaulters
	return AggregationResult{
		GroupKey:       b.key,
		Label:          b.label,
		Total:          b.total,
		Defaulters:     b.defaulters,
		Compliant:      compliant,
		ComplianceRate: compliance.GroupRate(compliant, b.total),
	}
}

// groupBy keeps groups in first-seen order, then sorts by defaulters
// descending. Equal counts keep that order.
func groupBy(records []safetyrecord.SafetyRecord, key func(safetyrecord.SafetyRecord) string) []AggregationResult {
	index := make(map[string]*bucket)
	var order []*bucket
	for _, r := range records {
		k := key(r)
		b, ok := index[k]
		if !ok {
			b = &bucket{key: k}
			index[k] = b
			order = append(order, b)
		}
		b.add(r)
	}

	out := make([]AggregationResult, 0, len(order))
	for _, b := range order {
		row := b.result()
		row.TotalStrength = b.strength
		row.AvgStrength = int(math.Round(float64(b.strength) / float64(b.total)))
		out = append(out, row)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Defaulters > out[j].Defaulters
	})
	return out
}

func (e *Engine) byMonth(records []safetyrecord.SafetyRecord, rng *daterange.Range, year int) []AggregationResult {
	loc := e.loc
	if rng != nil {
		loc = rng.Start.Location()
	}
	if year == 0 {
		if rng != nil {
			year = rng.Start.Year()
		} else {
			year = e.now().In(loc).Year()
		}
	}

	buckets := make([]bucket, 12)
	for i := range buckets {
		m := time.Month(i + 1)
		buckets[i] = bucket{
			key:   time.Date(year, m, 1, 0, 0, 0, 0, loc).Format("2006-01"),
			label: m.String()[:3],
		}
	}
	for _, r := range records {
		d := r.Date.In(loc)
		if d.Year() != year {
			continue
		}
		buckets[d.Month()-1].add(r)
	}

	out := make([]AggregationResult, len(buckets))
	for i := range buckets {
		out[i] = buckets[i].result()
	}
	return out
}

func (e *Engine) byDay(records []safetyrecord.SafetyRecord, rng *daterange.Range, dense bool) []AggregationResult {
	loc := e.loc
	if rng != nil {
		loc = rng.Start.Location()
	}

	index := make(map[string]*bucket)
	for _, r := range records {
		k := r.Date.In(loc).Format("2006-01-02")
		b, ok := index[k]
		if !ok {
			b = &bucket{key: k}
			index[k] = b
		}
		b.add(r)
	}

	var keys []string
	if dense && rng != nil {
		for _, d := range rng.Days() {
			k := d.Format("2006-01-02")
			if _, ok := index[k]; !ok {
				index[k] = &bucket{key: k}
			}
			keys = append(keys, k)
		}
	} else {
		keys = make([]string, 0, len(index))
		for k := range index {
			keys = append(keys, k)
		}
		sort.Strings(keys)
	}

	out := make([]AggregationResult, 0, len(keys))
	for _, k := range keys {
		out = append(out, index[k].result())
	}
	return out
}

func byEquipment(records []safetyrecord.SafetyRecord) []EquipmentResult {
	var shoes, glasses, jacket int
	for _, r := range records {
		shoes += boolToInt(r.SafetyShoes)
		glasses += boolToInt(r.SafetyGlasses)
		jacket += boolToInt(r.SafetyJacket)
	}

	total := len(records)
	row := func(name string, compliant int) EquipmentResult {
		return EquipmentResult{
			Equipment:      name,
			Compliant:      compliant,
			NonCompliant:   total - compliant,
			ComplianceRate: compliance.GroupRate(compliant, total),
		}
	}
	return []EquipmentResult{
		row(EquipmentShoes, shoes),
		row(EquipmentGlasses, glasses),
		row(EquipmentJacket, jacket),
	}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
