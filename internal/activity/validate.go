package activity

import (
	"strings"

	"github.com/studylane/assessment-engine/internal/errs"
)

const (
	minWeight = 1
	maxWeight = 100
)

// ClampWeight forces a weight multiplier into [minWeight, maxWeight].
func ClampWeight(w int) int {
	if w < minWeight {
		return minWeight
	}
	if w > maxWeight {
		return maxWeight
	}
	return w
}

// Validate checks an activity definition at creation/edit time. Publication
// has one extra rule on top of this (see CanPublish).
func Validate(a Activity) error {
	if strings.TrimSpace(a.Title) == "" {
		return errs.Validationf("title is required")
	}
	switch a.Type {
	case TypeHomeworkTest, TypeControlWork, TypeWeeklyStar, TypeRemedialTask:
	default:
		return errs.Validationf("unknown activity type %q", a.Type)
	}
	if a.TimeLimitSec < 0 {
		return errs.Validationf("time_limit_sec must not be negative")
	}
	if a.TimeLimitSec > 0 && a.Type != TypeControlWork {
		return errs.Validationf("time limit is only allowed on %s activities", TypeControlWork)
	}
	seen := make(map[int]bool, len(a.Questions))
	for _, q := range a.Questions {
		if err := validateQuestion(a.Type, q); err != nil {
			return err
		}
		if seen[q.OrderIndex] {
			return errs.Validationf("duplicate question order_index %d", q.OrderIndex)
		}
		seen[q.OrderIndex] = true
	}
	return nil
}

func validateQuestion(at Type, q Question) error {
	if q.Points < 1 {
		return errs.Validationf("question %q: points must be at least 1", q.ID)
	}
	switch q.Type {
	case QuestionSingleChoice:
		if len(q.Options) != OptionCount {
			return errs.Validationf("question %q: single_choice needs exactly %d options", q.ID, OptionCount)
		}
		if q.CorrectOption < 1 || q.CorrectOption > OptionCount {
			return errs.Validationf("question %q: correct_option must be in 1..%d", q.ID, OptionCount)
		}
	case QuestionText:
		// blank CorrectTextAnswer is tolerated; it just never matches
	case QuestionOpen:
		if at == TypeRemedialTask {
			return errs.Validationf("question %q: %s activities may not contain open questions", q.ID, TypeRemedialTask)
		}
	default:
		return errs.Validationf("question %q: unknown type %q", q.ID, q.Type)
	}
	return nil
}

// CanPublish gates the DRAFT->READY transition.
func CanPublish(a Activity) error {
	if a.Status == StatusReady {
		return errs.Validationf("activity %s is already published", a.ID)
	}
	if len(a.Questions) == 0 {
		return errs.Validationf("cannot publish activity %s with zero questions", a.ID)
	}
	return Validate(a)
}
