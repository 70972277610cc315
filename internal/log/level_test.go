package log

import "testing"

func TestLevelOrdering(t *testing.T) {
	if !(Warning < Error && Error < Info && Info < Debug) {
		t.Errorf("expected Warning < Error < Info < Debug, got %d < %d < %d < %d", Warning, Error, Info, Debug)
	}
}

func TestLevelEnables(t *testing.T) {
	cases := []struct {
		level   Level
		other   Level
		enabled bool
	}{
		{Warning, Warning, true},
		{Warning, Debug, false},
		{Error, Warning, true},
		{Error, Debug, false},
		{Debug, Info, true},
		{Debug, Debug, true},
	}

	for _, c := range cases {
		if got := c.level.Enables(c.other); got != c.enabled {
			t.Errorf("%v.Enables(%v) = %v, want %v", c.level, c.other, got, c.enabled)
		}
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"warning": Warning,
		"WARNING": Warning,
		"error":   Error,
		"info":    Info,
		"debug":   Debug,
	}

	for input, want := range cases {
		got, ok := ParseLevel(input)
		if !ok {
			t.Errorf("ParseLevel(%q) reported not ok", input)
		}
		if got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", input, got, want)
		}
	}
}

func TestParseLevelUnknownDefaultsToError(t *testing.T) {
	level, ok := ParseLevel("not-a-level")
	if ok {
		t.Error("expected ParseLevel to report not ok for an unknown level")
	}
	if level != Error {
		t.Errorf("expected the fallback level to be Error, got %v", level)
	}
}
