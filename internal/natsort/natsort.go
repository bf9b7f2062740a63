// Package natsort orders strings the way humans expect hostnames to be
// ordered: embedded numbers compare by value, so "host2" sorts before
// "host10".
package natsort

import "strings"

// Compare returns -1, 0 or +1 depending on whether a sorts before, equal to
// or after b.
//
// Both strings are split into maximal runs of ASCII digits and runs of
// everything else. Runs are compared pairwise: digit runs by numeric value
// (on equal value the run with fewer leading zeros first), other runs
// byte-wise, and a digit run sorts before a non-digit run. When every run
// ties the plain string comparison decides, so Compare is a total order.
func Compare(a, b string) int {
	ra, rb := a, b
	for ra != "" && rb != "" {
		ca, restA, digitA := nextRun(ra)
		cb, restB, digitB := nextRun(rb)

		var c int
		switch {
		case digitA && digitB:
			c = compareNumeric(ca, cb)
		case digitA:
			c = -1
		case digitB:
			c = 1
		default:
			c = strings.Compare(ca, cb)
		}
		if c != 0 {
			return c
		}
		ra, rb = restA, restB
	}

	switch {
	case ra == "" && rb != "":
		return -1
	case ra != "" && rb == "":
		return 1
	}
	return strings.Compare(a, b)
}

// nextRun splits off the leading run of s.
func nextRun(s string) (run, rest string, digit bool) {
	digit = isDigit(s[0])
	i := 1
	for i < len(s) && isDigit(s[i]) == digit {
		i++
	}
	return s[:i], s[i:], digit
}

func compareNumeric(a, b string) int {
	ta := strings.TrimLeft(a, "0")
	tb := strings.TrimLeft(b, "0")
	if len(ta) != len(tb) {
		if len(ta) < len(tb) {
			return -1
		}
		return 1
	}
	if c := strings.Compare(ta, tb); c != 0 {
		return c
	}
	// Same value: fewer leading zeros first.
	switch {
	case len(a) < len(b):
		return -1
	case len(a) > len(b):
		return 1
	}
	return 0
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}
