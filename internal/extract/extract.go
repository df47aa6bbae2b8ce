// Package extract pulls numeric samples out of arbitrary response text.
package extract

import (
	"regexp"
	"strconv"
)

// numberPattern matches numeric literals: optional sign, digits, optional
// decimal part, optional exponent. Maximal match, left to right. This is a
// best-effort extractor, not a grammar-aware parser; changing the pattern
// changes which upstream payloads produce samples.
var numberPattern = regexp.MustCompile(`-?\d+(\.\d+)?([eE][+-]?\d+)?`)

// Samples returns every numeric literal found in text, in order of
// appearance. Duplicates are preserved. The result is never nil so it
// always JSON-encodes as an array.
func Samples(text string) []float64 {
	matches := numberPattern.FindAllString(text, -1)
	out := make([]float64, 0, len(matches))
	for _, m := range matches {
		v, err := strconv.ParseFloat(m, 64)
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}
