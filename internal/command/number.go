package command

import (
	"regexp"
	"strconv"
	"strings"
)

// numericPrefix matches a leading decimal number; a comma is accepted as the
// decimal separator.
var numericPrefix = regexp.MustCompile(`^[+-]?(?:\d+(?:[.,]\d*)?|[.,]\d+)`)

// parseLeadingNumber parses the numeric prefix of a token, so "26", "26°"
// and "22,5" all yield a value while "a26" does not.
func parseLeadingNumber(token string) (float64, bool) {
	m := numericPrefix.FindString(token)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.Replace(m, ",", ".", 1), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// firstInRange returns the first whitespace-separated token of t whose
// numeric prefix lies in [lo, hi].
func firstInRange(t string, lo, hi float64) (float64, bool) {
	for _, token := range strings.Fields(t) {
		v, ok := parseLeadingNumber(token)
		if ok && v >= lo && v <= hi {
			return v, true
		}
	}
	return 0, false
}

// formatNumber renders v without trailing zeros: 26, 22.5, 0.5.
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
