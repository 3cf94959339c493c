// Package grading holds the marksheet arithmetic shared by every portal:
// percentages, grade bands and pass/fail.
package grading

import "math"

// PassPercentage is the minimum overall and default per-subject percentage to pass.
const PassPercentage = 33.0

type band struct {
	min   float64
	grade string
}

var bands = []band{
	{90, "A+"},
	{80, "A"},
	{70, "B+"},
	{60, "B"},
	{50, "C+"},
	{40, "C"},
	{33, "D"},
}

// Grade maps a percentage to its band. Thresholds are inclusive.
func Grade(percentage float64) string {
	for _, b := range bands {
		if percentage >= b.min {
			return b.grade
		}
	}
	return "F"
}

// Round2 rounds half away from zero to two decimals.
func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// Percentage returns obtained/max*100 rounded to two decimals, 0 when max is 0.
func Percentage(obtained, max float64) float64 {
	if max <= 0 {
		return 0
	}
	return Round2(obtained / max * 100)
}

// DefaultPassMarks is the pass mark applied when a subject does not set one.
func DefaultPassMarks(max float64) float64 {
	return Round2(max * PassPercentage / 100)
}

// Mean averages values, 0 for an empty slice.
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}
