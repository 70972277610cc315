package metrics

import (
	"testing"
	"time"
)

func TestTimerElapsed(t *testing.T) {
	timer := NewTimer()
	time.Sleep(10 * time.Millisecond)

	elapsed := timer.Elapsed()
	if elapsed < 10*time.Millisecond {
		t.Errorf("expected at least 10ms elapsed, got %v", elapsed)
	}
}

func TestTimerElapsedIsMonotonic(t *testing.T) {
	timer := NewTimer()

	first := timer.Elapsed()
	time.Sleep(5 * time.Millisecond)
	second := timer.Elapsed()

	if second <= first {
		t.Errorf("expected elapsed duration to increase, got first=%v second=%v", first, second)
	}
}
