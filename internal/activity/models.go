package activity

// Type classifies a gradable unit of work.
type Type string

const (
	TypeHomeworkTest Type = "homework_test"
	TypeControlWork  Type = "control_work"
	TypeWeeklyStar   Type = "weekly_star"
	TypeRemedialTask Type = "remedial_task"
)

// Status is the publication state. DRAFT activities are editable and hidden
// from students; READY activities are immutable.
type Status string

const (
	StatusDraft Status = "draft"
	StatusReady Status = "ready"
)

type QuestionType string

const (
	QuestionSingleChoice QuestionType = "single_choice"
	QuestionText         QuestionType = "text"
	QuestionOpen         QuestionType = "open" // graded manually
)

// OptionCount is the fixed number of choices a single_choice question carries.
const OptionCount = 4

type Question struct {
	ID         string       `json:"id"`
	OrderIndex int          `json:"order_index"`
	Type       QuestionType `json:"type"`
	Prompt     string       `json:"prompt"`
	Points     int          `json:"points"`

	// single_choice only: exactly OptionCount options, CorrectOption in 1..OptionCount.
	Options       []string `json:"options,omitempty"`
	CorrectOption int      `json:"correct_option,omitempty"`

	// text only. Matched case-insensitively after trimming; a blank key is
	// legal but always grades as incorrect.
	CorrectTextAnswer string `json:"correct_text_answer,omitempty"`
}

type Activity struct {
	ID       string `json:"id"`
	CourseID string `json:"course_id"`
	Title    string `json:"title"`
	Topic    string `json:"topic"`
	Type     Type   `json:"type"`
	Status   Status `json:"status"`

	// WeightMultiplier scales raw scores for cross-activity aggregation.
	// Clamped to [1,100] at creation; everything downstream trusts it.
	WeightMultiplier int `json:"weight_multiplier"`

	// TimeLimitSec is only meaningful for control_work; 0 means untimed.
	TimeLimitSec int `json:"time_limit_sec,omitempty"`

	// Unix seconds; 0 means no deadline.
	Deadline int64 `json:"deadline,omitempty"`

	// AssignedWeek orders remedial_task candidates (most recent first).
	AssignedWeek int `json:"assigned_week,omitempty"`

	PublishedAt int64 `json:"published_at,omitempty"`
	CreatedAt   int64 `json:"created_at,omitempty"`

	Questions []Question `json:"questions"`
}

// Timed reports whether attempts against this activity run on a clock.
func (a Activity) Timed() bool {
	return a.Type == TypeControlWork && a.TimeLimitSec > 0
}

// MaxScore is the sum of points over every question, answered or not.
func (a Activity) MaxScore() int {
	total := 0
	for _, q := range a.Questions {
		total += q.Points
	}
	return total
}

// Question looks up a question by id.
func (a Activity) Question(id string) (Question, bool) {
	for _, q := range a.Questions {
		if q.ID == id {
			return q, true
		}
	}
	return Question{}, false
}

// HasOpenQuestions reports whether submitting an attempt leaves manual
// grading work behind.
func (a Activity) HasOpenQuestions() bool {
	for _, q := range a.Questions {
		if q.Type == QuestionOpen {
			return true
		}
	}
	return false
}

// StripAnswerKeys blanks the grading keys for student-facing views.
func (a Activity) StripAnswerKeys() Activity {
	qs := make([]Question, len(a.Questions))
	copy(qs, a.Questions)
	for i := range qs {
		qs[i].CorrectOption = 0
		qs[i].CorrectTextAnswer = ""
	}
	a.Questions = qs
	return a
}
