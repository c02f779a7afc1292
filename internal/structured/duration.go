package structured

import (
	"fmt"
	"regexp"
	"strconv"
)

var isoDuration = regexp.MustCompile(`^PT(?:(\d+)H)?(?:(\d+)M)?$`)

// ParseDuration converts an ISO-8601 time duration such as PT1H30M into
// "1 hr 30 min". The second result is false for anything else.
func ParseDuration(s string) (string, bool) {
	m := isoDuration.FindStringSubmatch(s)
	if m == nil || (m[1] == "" && m[2] == "") {
		return "", false
	}
	hours, _ := strconv.Atoi(m[1])
	minutes, _ := strconv.Atoi(m[2])

	switch {
	case hours > 0 && minutes > 0:
		return fmt.Sprintf("%d hr %d min", hours, minutes), true
	case hours > 0:
		return fmt.Sprintf("%d hr", hours), true
	default:
		return fmt.Sprintf("%d min", minutes), true
	}
}

// humanDuration returns the parsed duration, or s unchanged when it cannot be parsed.
func humanDuration(s string) string {
	if d, ok := ParseDuration(s); ok {
		return d
	}
	return s
}
