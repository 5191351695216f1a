package attempt

// Status is the attempt lifecycle state. GRADED is terminal except for the
// re-grading path (grade() may run again on a GRADED attempt).
type Status string

const (
	StatusInProgress Status = "in_progress"
	StatusSubmitted  Status = "submitted" // waiting on manual grading of open questions
	StatusGraded     Status = "graded"
)

// AnswerRecord is one student answer inside an attempt, exactly one per
// question of the activity.
type AnswerRecord struct {
	QuestionID     string `json:"question_id"`
	SelectedOption int    `json:"selected_option,omitempty"` // single_choice only, 1-based
	TextAnswer     string `json:"text_answer,omitempty"`     // text / open only

	// nil while in_progress; set at submit. Open answers stay false until a
	// grader awards full points.
	IsCorrect     *bool `json:"is_correct"`
	PointsAwarded *int  `json:"points_awarded"`

	// Manual grading metadata, open questions only.
	Feedback string `json:"feedback,omitempty"`
	GradedAt int64  `json:"graded_at,omitempty"`
}

type Attempt struct {
	ID         string `json:"id"`
	ActivityID string `json:"activity_id"`
	StudentID  string `json:"student_id"`

	// Number is 1-based and monotonically increasing per student+activity.
	Number int `json:"attempt_number"`

	Status      Status `json:"status"`
	StartedAt   int64  `json:"started_at"`
	SubmittedAt int64  `json:"submitted_at,omitempty"`

	Score    int `json:"score"`
	MaxScore int `json:"max_score"`

	Answers []AnswerRecord `json:"answers,omitempty"`
}

// Answer looks up the record for a question id.
func (a *Attempt) Answer(questionID string) (*AnswerRecord, bool) {
	for i := range a.Answers {
		if a.Answers[i].QuestionID == questionID {
			return &a.Answers[i], true
		}
	}
	return nil, false
}

// AnswerInput is the submit() payload item for one question.
type AnswerInput struct {
	QuestionID     string `json:"question_id" validate:"required"`
	SelectedOption int    `json:"selected_option,omitempty"`
	TextAnswer     string `json:"text_answer,omitempty"`
}

// GradeInput is one manual grade applied to an open answer.
type GradeInput struct {
	QuestionID    string `json:"question_id" validate:"required"`
	PointsAwarded int    `json:"points_awarded"`
	Feedback      string `json:"feedback,omitempty"`
}

// StartResult reports whether start() created a fresh attempt or returned
// the attempt already in progress.
type StartResult struct {
	Attempt Attempt `json:"attempt"`
	Created bool    `json:"created"`
}

// View is an attempt plus its weighted totals, the shape every read path
// returns.
type View struct {
	Attempt
	Weighted Weighted `json:"weighted"`
}
