package completion

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// retryPhrase matches messages like "Please try again in 2.5s."
	retryPhrase = regexp.MustCompile(`(?i)try again in (\d+(?:\.\d+)?)\s*([a-z]+)`)

	// bareHint matches values like "34s", "250ms", "1.5m" or "20".
	bareHint = regexp.MustCompile(`^(\d+(?:\.\d+)?)\s*([a-zA-Z]*)$`)
)

// ParseRetryHint extracts a "try again in <n><unit>" suggestion from a free
// text service message. The unit is returned as written, so callers must
// still check RetryHint.Duration.
func ParseRetryHint(message string) (RetryHint, bool) {
	m := retryPhrase.FindStringSubmatch(message)
	if m == nil {
		return RetryHint{}, false
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return RetryHint{}, false
	}
	return RetryHint{Value: value, Unit: strings.ToLower(m[2])}, true
}

// ParseDurationHint parses a bare retry-after value such as a Retry-After
// header or a RetryInfo delay. A value without unit is taken as seconds.
func ParseDurationHint(s string) (RetryHint, bool) {
	m := bareHint.FindStringSubmatch(strings.TrimSpace(s))
	if m == nil {
		return RetryHint{}, false
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return RetryHint{}, false
	}
	unit := strings.ToLower(m[2])
	if unit == "" {
		unit = UnitSeconds
	}
	return RetryHint{Value: value, Unit: unit}, true
}
