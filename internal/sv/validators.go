package sv

import "strings"

// Validator is the per-kind semantic check a regex hit must pass
// before being accepted as a match. It must be pure and total.
type Validator func(candidate string) bool

// luhnValid implements the Luhn checksum used by card numbers.
func luhnValid(candidate string) bool {
	digits := onlyDigits(candidate)
	if len(digits) < 13 || len(digits) > 19 {
		return false
	}
	sum := 0
	alt := false
	for i := len(digits) - 1; i >= 0; i-- {
		d := int(digits[i] - '0')
		if alt {
			d *= 2
			if d > 9 {
				d -= 9
			}
		}
		sum += d
		alt = !alt
	}
	return sum%10 == 0
}

// governmentIDUSValid rejects the well-known invalid SSN ranges:
// area 000/666/9xx, group 00, serial 0000.
func governmentIDUSValid(candidate string) bool {
	digits := onlyDigits(candidate)
	if len(digits) != 9 {
		return false
	}
	area := digits[0:3]
	group := digits[3:5]
	serial := digits[5:9]

	if area == "000" || area == "666" || area[0] == '9' {
		return false
	}
	if group == "00" {
		return false
	}
	if serial == "0000" {
		return false
	}
	return true
}

// governmentIDINValid performs a minimal structural check for a
// 12-digit Aadhaar-shaped identifier: leading digit 2-9, not
// all-identical.
func governmentIDINValid(candidate string) bool {
	digits := onlyDigits(candidate)
	if len(digits) != 12 {
		return false
	}
	if digits[0] == '0' || digits[0] == '1' {
		return false
	}
	return !allIdentical(digits)
}

// e164Valid rejects candidates that are all the same digit or a
// monotonic run (e.g. 1234567890), both of which are almost never
// real phone numbers but match naive digit-count regexes.
func e164Valid(candidate string) bool {
	digits := onlyDigits(candidate)
	if len(digits) < 8 || len(digits) > 15 {
		return false
	}
	if allIdentical(digits) {
		return false
	}
	if isMonotonicRun(digits) {
		return false
	}
	return true
}

// ipv4Valid checks that each dotted-decimal octet is in [0,255].
func ipv4Valid(candidate string) bool {
	parts := strings.Split(candidate, ".")
	if len(parts) != 4 {
		return false
	}
	for _, p := range parts {
		if p == "" || len(p) > 3 {
			return false
		}
		n := 0
		for _, c := range p {
			if c < '0' || c > '9' {
				return false
			}
			n = n*10 + int(c-'0')
		}
		if n > 255 {
			return false
		}
	}
	return true
}

// alwaysValid is used by kinds whose regex is specific enough that no
// further semantic check is needed (email, api-key).
func alwaysValid(string) bool { return true }

func onlyDigits(s string) string {
	var b strings.Builder
	for _, c := range s {
		if c >= '0' && c <= '9' {
			b.WriteRune(c)
		}
	}
	return b.String()
}

func allIdentical(s string) bool {
	if len(s) == 0 {
		return false
	}
	for i := 1; i < len(s); i++ {
		if s[i] != s[0] {
			return false
		}
	}
	return true
}

func isMonotonicRun(s string) bool {
	if len(s) < 2 {
		return false
	}
	ascending, descending := true, true
	for i := 1; i < len(s); i++ {
		if s[i] != s[i-1]+1 {
			ascending = false
		}
		if s[i] != s[i-1]-1 {
			descending = false
		}
	}
	return ascending || descending
}
