package feeds

import "testing"

func TestParseDurationMsPlainSeconds(t *testing.T) {
	ms, ok := ParseDurationMs("754")
	if !ok || ms != 754000 {
		t.Errorf("got ms=%d ok=%v", ms, ok)
	}
}

func TestParseDurationMsClockMMSS(t *testing.T) {
	ms, ok := ParseDurationMs("12:34")
	if !ok || ms != (12*60+34)*1000 {
		t.Errorf("got ms=%d ok=%v", ms, ok)
	}
}

func TestParseDurationMsClockHHMMSS(t *testing.T) {
	ms, ok := ParseDurationMs("01:02:03")
	if !ok || ms != (3600+120+3)*1000 {
		t.Errorf("got ms=%d ok=%v", ms, ok)
	}
}

func TestParseDurationMsISO8601(t *testing.T) {
	cases := map[string]int64{
		"PT1H2M3S": (3600 + 120 + 3) * 1000,
		"PT45M":    45 * 60 * 1000,
		"PT30S":    30 * 1000,
		"pt1h":     3600 * 1000,
	}
	for in, want := range cases {
		ms, ok := ParseDurationMs(in)
		if !ok || ms != want {
			t.Errorf("ParseDurationMs(%q) = %d, %v want %d", in, ms, ok, want)
		}
	}
}

func TestParseDurationMsInvalid(t *testing.T) {
	cases := []string{"", "not a duration", "PT", "-5", "1:2:3:4"}
	for _, in := range cases {
		if _, ok := ParseDurationMs(in); ok {
			t.Errorf("ParseDurationMs(%q) unexpectedly succeeded", in)
		}
	}
}
