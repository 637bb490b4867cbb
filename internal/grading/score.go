package grading

import (
	"math"
	"strconv"
)

// wholeEpsilon absorbs float drift from summing thirds and similar fractions.
const wholeEpsilon = 1e-9

// FormatScore renders earned points out of n questions as "<value>/<n>".
// The value is an integer when whole, otherwise rounded to one decimal place.
func FormatScore(earned float64, n int) string {
	return FormatPoints(earned) + "/" + strconv.Itoa(n)
}

func FormatPoints(v float64) string {
	if r := math.Round(v); math.Abs(v-r) < wholeEpsilon {
		return strconv.FormatInt(int64(r), 10)
	}
	return strconv.FormatFloat(math.Round(v*10)/10, 'f', 1, 64)
}
