package grading

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGradeBands(t *testing.T) {
	cases := []struct {
		pct  float64
		want string
	}{
		{100, "A+"},
		{90, "A+"},
		{89.99, "A"},
		{80, "A"},
		{79.5, "B+"},
		{70, "B+"},
		{60, "B"},
		{50, "C+"},
		{40, "C"},
		{33, "D"},
		{32.9, "F"},
		{0, "F"},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Grade(tc.pct), "percentage %v", tc.pct)
	}
}

func TestPercentage(t *testing.T) {
	assert.Equal(t, 66.67, Percentage(200, 300))
	assert.Equal(t, 0.0, Percentage(10, 0))
	assert.Equal(t, 33.0, DefaultPassMarks(100))
	assert.Equal(t, 16.5, DefaultPassMarks(50))
}

func TestMean(t *testing.T) {
	assert.Equal(t, 0.0, Mean(nil))
	assert.Equal(t, 75.0, Mean([]float64{70, 80}))
}
