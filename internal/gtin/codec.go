// Package gtin normalizes and validates GS1 Global Trade Item Numbers.
package gtin

import (
	"strings"
	"unicode"
)

// validLengths are the GTIN-8, GTIN-12, GTIN-13 and GTIN-14 forms.
var validLengths = map[int]struct{}{8: {}, 12: {}, 13: {}, 14: {}}

// Normalize keeps only decimal digits, folding any Unicode digit (full-width,
// Arabic-Indic...) to its ASCII form. It performs no length or checksum check.
func Normalize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if d, ok := digitValue(r); ok {
			b.WriteByte(byte('0' + d))
		}
	}
	return b.String()
}

// digitValue returns the value of a Unicode decimal digit. Nd digits come in
// contiguous runs of ten starting at zero, so the offset into a range of the
// Nd table gives the value.
func digitValue(r rune) (int, bool) {
	if r >= '0' && r <= '9' {
		return int(r - '0'), true
	}
	if !unicode.IsDigit(r) {
		return 0, false
	}
	for _, rg := range unicode.Nd.R16 {
		if lo, hi := rune(rg.Lo), rune(rg.Hi); r >= lo && r <= hi {
			return int(r-lo) % 10, true
		}
	}
	for _, rg := range unicode.Nd.R32 {
		if lo, hi := rune(rg.Lo), rune(rg.Hi); r >= lo && r <= hi {
			return int(r-lo) % 10, true
		}
	}
	return 0, false
}

// CheckDigit computes the GS1 mod-10 check digit for body. Digits are
// weighted 3,1,3,1... starting from the rightmost one.
func CheckDigit(body string) int {
	sum := 0
	weight := 3
	for i := len(body) - 1; i >= 0; i-- {
		d := int(body[i] - '0')
		sum += d * weight
		if weight == 3 {
			weight = 1
		} else {
			weight = 3
		}
	}
	return (10 - sum%10) % 10
}

// IsValid reports whether code, after normalization, has a valid GTIN length
// and a matching check digit.
func IsValid(code string) bool {
	s := Normalize(code)
	if _, ok := validLengths[len(s)]; !ok {
		return false
	}
	last := int(s[len(s)-1] - '0')
	return CheckDigit(s[:len(s)-1]) == last
}

// TryRepair attempts to produce a valid GTIN from raw by (re)computing the
// check digit. Already valid codes are returned unchanged. Lengths 7, 11 and
// 12 are treated as bodies and get a check digit appended; length 13 gets its
// last digit replaced. Anything else cannot be repaired.
func TryRepair(raw string) (string, bool) {
	s := Normalize(raw)
	if IsValid(s) {
		return s, true
	}

	var body string
	switch len(s) {
	case 7, 11, 12:
		body = s
	case 13:
		body = s[:12]
	default:
		return "", false
	}
	return body + string(rune('0'+CheckDigit(body))), true
}
