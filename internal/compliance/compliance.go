// Package compliance holds the rule that decides whether a checked person is a
// defaulter and how compliance percentages are computed.
package compliance

import "math"

// RequiredEquipment is the number of equipment items every person must wear.
const RequiredEquipment = 3

type Evaluation struct {
	IsDefaulter    bool    `json:"isDefaulter"`
	ComplianceRate float64 `json:"complianceRate"`
}

// Evaluate scores a single record. The rate is the share of the three items
// present, rounded to a whole percent.
func Evaluate(shoes, glasses, jacket bool) Evaluation {
	present := countTrue(shoes, glasses, jacket)
	return Evaluation{
		IsDefaulter:    IsDefaulter(shoes, glasses, jacket),
		ComplianceRate: math.Round(100 * float64(present) / RequiredEquipment),
	}
}

// IsDefaulter reports whether at least one item is missing.
func IsDefaulter(shoes, glasses, jacket bool) bool {
	return !(shoes && glasses && jacket)
}

// GroupRate is the percentage of fully compliant records in a group, rounded
// to one decimal. An empty group has a rate of 0.
func GroupRate(compliant, total int) float64 {
	return Percentage(compliant, total, 1)
}

// Percentage returns 100*part/whole rounded to the given number of decimals,
// or 0 when whole is not positive.
func Percentage(part, whole, decimals int) float64 {
	if whole <= 0 {
		return 0
	}
	scale := math.Pow(10, float64(decimals))
	return math.Round(100*float64(part)/float64(whole)*scale) / scale
}

func countTrue(flags ...bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}
