package feeds

import (
	"regexp"
	"strconv"
	"strings"
)

// iso8601DurationPattern matches the subset of ISO 8601 durations feeds
// actually emit: PT1H2M3S, PT45M, PT30S, PT1H30.5S, etc. Date components
// (years/months/days) never appear in a podcast <itunes:duration>-style
// field, so they are not matched.
var iso8601DurationPattern = regexp.MustCompile(`(?i)^PT(?:(\d+(?:\.\d+)?)H)?(?:(\d+(?:\.\d+)?)M)?(?:(\d+(?:\.\d+)?)S)?$`)

// ParseDurationMs parses a duration string in any of the forms the
// iTunes/media namespace or an enclosure attribute commonly carries:
// plain seconds ("754" or "754.2"), "MM:SS", "HH:MM:SS", or an ISO 8601
// "PT…" form. Returns ok=false for anything it cannot confidently parse —
// callers should leave DurationMs at its prior value (0/unknown) rather
// than guess.
func ParseDurationMs(raw string) (ms int64, ok bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}

	if strings.HasPrefix(strings.ToUpper(raw), "PT") {
		return parseISO8601(raw)
	}

	if strings.Contains(raw, ":") {
		return parseClockDuration(raw)
	}

	secs, err := strconv.ParseFloat(raw, 64)
	if err != nil || secs < 0 {
		return 0, false
	}
	return int64(secs * 1000), true
}

func parseISO8601(raw string) (int64, bool) {
	m := iso8601DurationPattern.FindStringSubmatch(raw)
	if m == nil {
		return 0, false
	}
	if m[1] == "" && m[2] == "" && m[3] == "" {
		return 0, false
	}
	var totalSecs float64
	for i, mult := range []float64{3600, 60, 1} {
		if m[i+1] == "" {
			continue
		}
		v, err := strconv.ParseFloat(m[i+1], 64)
		if err != nil {
			return 0, false
		}
		totalSecs += v * mult
	}
	return int64(totalSecs * 1000), true
}

func parseClockDuration(raw string) (int64, bool) {
	parts := strings.Split(raw, ":")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, false
	}
	var nums []float64
	for _, p := range parts {
		v, err := strconv.ParseFloat(p, 64)
		if err != nil || v < 0 {
			return 0, false
		}
		nums = append(nums, v)
	}
	var totalSecs float64
	if len(nums) == 2 {
		totalSecs = nums[0]*60 + nums[1]
	} else {
		totalSecs = nums[0]*3600 + nums[1]*60 + nums[2]
	}
	return int64(totalSecs * 1000), true
}
