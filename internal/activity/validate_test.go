package activity

import (
	"errors"
	"testing"

	"github.com/studylane/assessment-engine/internal/errs"
)

func validSingleChoice(id string, idx int) Question {
	return Question{
		ID:            id,
		OrderIndex:    idx,
		Type:          QuestionSingleChoice,
		Prompt:        "pick one",
		Points:        2,
		Options:       []string{"a", "b", "c", "d"},
		CorrectOption: 2,
	}
}

func TestValidate(t *testing.T) {
	base := Activity{
		ID:    "a1",
		Title: "Fractions homework",
		Type:  TypeHomeworkTest,
	}

	tests := []struct {
		name    string
		mutate  func(*Activity)
		wantErr bool
	}{
		{"ok", func(a *Activity) { a.Questions = []Question{validSingleChoice("q1", 1)} }, false},
		{"empty title", func(a *Activity) { a.Title = "  " }, true},
		{"bad type", func(a *Activity) { a.Type = "exam" }, true},
		{"time limit on homework", func(a *Activity) { a.TimeLimitSec = 60 }, true},
		{"time limit on control work", func(a *Activity) {
			a.Type = TypeControlWork
			a.TimeLimitSec = 60
		}, false},
		{"duplicate order index", func(a *Activity) {
			a.Questions = []Question{validSingleChoice("q1", 1), validSingleChoice("q2", 1)}
		}, true},
		{"three options", func(a *Activity) {
			q := validSingleChoice("q1", 1)
			q.Options = []string{"a", "b", "c"}
			a.Questions = []Question{q}
		}, true},
		{"correct option out of range", func(a *Activity) {
			q := validSingleChoice("q1", 1)
			q.CorrectOption = 5
			a.Questions = []Question{q}
		}, true},
		{"zero points", func(a *Activity) {
			q := validSingleChoice("q1", 1)
			q.Points = 0
			a.Questions = []Question{q}
		}, true},
		{"open question on remedial task", func(a *Activity) {
			a.Type = TypeRemedialTask
			a.Questions = []Question{{ID: "q1", OrderIndex: 1, Type: QuestionOpen, Prompt: "essay", Points: 5}}
		}, true},
		{"open question on homework", func(a *Activity) {
			a.Questions = []Question{{ID: "q1", OrderIndex: 1, Type: QuestionOpen, Prompt: "essay", Points: 5}}
		}, false},
		{"blank text key tolerated", func(a *Activity) {
			a.Questions = []Question{{ID: "q1", OrderIndex: 1, Type: QuestionText, Prompt: "capital?", Points: 1}}
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := base
			tt.mutate(&a)
			err := Validate(a)
			if tt.wantErr && err == nil {
				t.Error("expected validation error, got nil")
			}
			if !tt.wantErr && err != nil {
				t.Errorf("unexpected error: %v", err)
			}
			if err != nil {
				var verr *errs.ValidationError
				if !errors.As(err, &verr) {
					t.Errorf("error is not a ValidationError: %T", err)
				}
			}
		})
	}
}

func TestCanPublish(t *testing.T) {
	a := Activity{ID: "a1", Title: "t", Type: TypeHomeworkTest, Status: StatusDraft}
	if err := CanPublish(a); err == nil {
		t.Error("publishing with zero questions must fail")
	}
	a.Questions = []Question{validSingleChoice("q1", 1)}
	if err := CanPublish(a); err != nil {
		t.Errorf("publish should succeed: %v", err)
	}
	a.Status = StatusReady
	if err := CanPublish(a); err == nil {
		t.Error("publishing twice must fail")
	}
}

func TestClampWeight(t *testing.T) {
	for _, tt := range []struct{ in, want int }{
		{0, 1}, {-5, 1}, {1, 1}, {3, 3}, {100, 100}, {101, 100},
	} {
		if got := ClampWeight(tt.in); got != tt.want {
			t.Errorf("ClampWeight(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestStripAnswerKeys(t *testing.T) {
	a := Activity{Questions: []Question{
		validSingleChoice("q1", 1),
		{ID: "q2", OrderIndex: 2, Type: QuestionText, Points: 1, CorrectTextAnswer: "paris"},
	}}
	s := a.StripAnswerKeys()
	for _, q := range s.Questions {
		if q.CorrectOption != 0 || q.CorrectTextAnswer != "" {
			t.Errorf("question %s still carries answer key", q.ID)
		}
	}
	// the original is untouched
	if a.Questions[0].CorrectOption == 0 || a.Questions[1].CorrectTextAnswer == "" {
		t.Error("StripAnswerKeys must not mutate the receiver")
	}
}
