package attempt

import "testing"

func TestWeigh(t *testing.T) {
	w := Weigh(6, 10, 3)
	if w.Score != 18 || w.MaxScore != 30 {
		t.Errorf("weighted = %d/%d, want 18/30", w.Score, w.MaxScore)
	}
	if w.Percent == nil || *w.Percent != 60.0 {
		t.Errorf("percent = %v, want 60.0", w.Percent)
	}
}

func TestWeighRounding(t *testing.T) {
	w := Weigh(1, 3, 1)
	if w.Percent == nil || *w.Percent != 33.33 {
		t.Errorf("percent = %v, want 33.33", w.Percent)
	}
}

func TestWeighZeroMax(t *testing.T) {
	w := Weigh(0, 0, 5)
	if w.Percent != nil {
		t.Errorf("percent should be nil when max is 0, got %v", *w.Percent)
	}
}
