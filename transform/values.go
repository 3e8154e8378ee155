package transform

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// BoundedCountMax is the largest value ParseBoundedCount accepts. Anything
// longer than three digits is assumed to be a misplaced phone number.
const BoundedCountMax = 999

var (
	scientificRE = regexp.MustCompile(`(?i)^(\d+)(?:\.(\d+))?e\+(\d+)$`)
	countRE      = regexp.MustCompile(`^\d{1,3}$`)
	nonDigitRE   = regexp.MustCompile(`\D+`)
)

// CleanValue trims a raw cell and collapses the spreadsheet sentinels
// (blank, #N/A) to the empty string.
func CleanValue(v string) string {
	s := strings.TrimSpace(v)
	if s == "" || strings.EqualFold(s, "#N/A") {
		return ""
	}
	return s
}

// ExpandScientific reverses the scientific notation that spreadsheet software
// forces onto long phone numbers ("5.27E+11" -> "527000000000"). The
// expansion is a textual digit reconstruction; round-tripping through a float
// would lose precision past ~15 digits. Strings without a positive-exponent
// marker pass through unchanged.
func ExpandScientific(s string) string {
	m := scientificRE.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return s
	}
	whole, frac := m[1], m[2]
	shift, err := strconv.Atoi(m[3])
	if err != nil {
		return s
	}
	zeros := shift - len(frac)
	if zeros < 0 {
		zeros = 0
	}
	return whole + frac + strings.Repeat("0", zeros)
}

// ParseBoundedCount parses a call count from a 1-3 digit string. Everything
// else (negatives, decimals, phone-length digit runs, text) is rejected so a
// quantity column polluted with a phone number never inflates totals.
func ParseBoundedCount(v string) (int, bool) {
	s := strings.TrimSpace(v)
	if !countRE.MatchString(s) {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n > BoundedCountMax {
		return 0, false
	}
	return n, true
}

// PhoneKey strips a value down to its digits. Keys are used only for
// matching against the override table, never for display: "1-561-555-1234"
// and "15615551234" must land on the same entry.
func PhoneKey(v string) string {
	return nonDigitRE.ReplaceAllString(strings.TrimSpace(v), "")
}

// Capitalize upper-cases the first rune and lower-cases the remainder, the
// form used when a caller name is promoted into a reason.
func Capitalize(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	return string(unicode.ToUpper(r[0])) + strings.ToLower(string(r[1:]))
}
