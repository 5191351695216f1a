package grading_test

import (
	"context"
	"testing"

	"github.com/studylane/assessment-engine/internal/grading"
)

func TestSingleChoice(t *testing.T) {
	g := grading.NewDefaultGrader()
	q := grading.Q{Type: "single_choice", Points: 3, CorrectOption: 2}

	tests := []struct {
		name     string
		selected int
		correct  bool
	}{
		{"correct option", 2, true},
		{"wrong option", 1, false},
		{"unanswered option zero", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := g.Grade(context.Background(), q, grading.Answer{SelectedOption: tt.selected})
			if err != nil {
				t.Fatalf("grade: %v", err)
			}
			if res.Correct != tt.correct {
				t.Errorf("correct = %v, want %v", res.Correct, tt.correct)
			}
			want := 0
			if tt.correct {
				want = q.Points
			}
			if res.Points != want {
				t.Errorf("points = %d, want %d", res.Points, want)
			}
			if res.MaxPoints != q.Points {
				t.Errorf("max = %d, want %d", res.MaxPoints, q.Points)
			}
		})
	}
}

func TestTextMatching(t *testing.T) {
	g := grading.NewDefaultGrader()

	tests := []struct {
		name    string
		key     string
		answer  string
		correct bool
	}{
		{"exact", "paris", "paris", true},
		{"case insensitive", "paris", "PARIS", true},
		{"trimmed both sides", "paris", "  Paris  ", true},
		{"key with spaces", "  paris ", "paris", true},
		{"wrong answer", "paris", "london", false},
		{"blank key never matches", "", "anything", false},
		{"blank key vs blank answer", "   ", "   ", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := grading.Q{Type: "text", Points: 2, CorrectText: tt.key}
			res, err := g.Grade(context.Background(), q, grading.Answer{Text: tt.answer})
			if err != nil {
				t.Fatalf("grade: %v", err)
			}
			if res.Correct != tt.correct {
				t.Errorf("correct = %v, want %v", res.Correct, tt.correct)
			}
		})
	}
}

func TestOpenNeedsManual(t *testing.T) {
	g := grading.NewDefaultGrader()
	res, err := g.Grade(context.Background(), grading.Q{Type: "open", Points: 5}, grading.Answer{Text: "my essay"})
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if !res.NeedsManual {
		t.Error("open question should need manual grading")
	}
	if res.Correct || res.Points != 0 {
		t.Errorf("open question should auto-grade to incorrect/0, got correct=%v points=%d", res.Correct, res.Points)
	}
}

func TestUnknownTypeErrors(t *testing.T) {
	g := grading.NewDefaultGrader()
	if _, err := g.Grade(context.Background(), grading.Q{Type: "numeric"}, grading.Answer{}); err == nil {
		t.Error("expected error for unknown question type")
	}
}

type fixedStrategy struct{ points int }

func (s fixedStrategy) Grade(context.Context, grading.Q, grading.Answer) (grading.Result, error) {
	return grading.Result{Points: s.points}, nil
}

func TestWithStrategy(t *testing.T) {
	g := grading.NewDefaultGrader(grading.WithStrategy("text", fixedStrategy{points: 7}))
	res, err := g.Grade(context.Background(), grading.Q{Type: "text", Points: 2}, grading.Answer{})
	if err != nil {
		t.Fatalf("grade: %v", err)
	}
	if res.Points != 7 {
		t.Errorf("override strategy not used, points = %d", res.Points)
	}
}
