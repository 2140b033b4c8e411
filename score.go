package main

import (
	"regexp"
	"strconv"
)

// scorePattern matches an optional sign followed by digits with at most one
// decimal point, or a bare fraction like ".5".
var scorePattern = regexp.MustCompile(`[-+]?(?:\d+(?:\.\d+)?|\.\d+)`)

// ParseScore extracts the first numeric literal from oracle output.
// The second return value is false when the text contains no literal.
func ParseScore(text string) (float64, bool) {
	match := scorePattern.FindString(text)
	if match == "" {
		return 0, false
	}
	score, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return score, true
}
