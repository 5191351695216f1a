package grading

import (
	"context"
	"errors"
)

// Q is a minimal view of a question needed for grading. Kept independent of
// the activity package so strategies stay pure.
type Q struct {
	Type          string
	Points        int
	CorrectOption int    // single_choice: 1-based option index
	CorrectText   string // text: key matched after normalization
}

// Answer is one student response to a single question.
type Answer struct {
	SelectedOption int    // single_choice
	Text           string // text / open
}

// Result is the outcome of grading a single answer.
type Result struct {
	Correct     bool
	Points      int  // points awarded automatically
	MaxPoints   int  // the question's max points
	NeedsManual bool // true if teacher review is required
}

// Strategy grades a single question type.
type Strategy interface {
	Grade(ctx context.Context, q Q, ans Answer) (Result, error)
}

// Grader routes by question type to the correct Strategy.
type Grader interface {
	Grade(ctx context.Context, q Q, ans Answer) (Result, error)
}

type defaultGrader struct {
	strategies map[string]Strategy
}

func (g *defaultGrader) Grade(ctx context.Context, q Q, ans Answer) (Result, error) {
	s, ok := g.strategies[q.Type]
	if !ok {
		return Result{}, errors.New("no grading strategy for question type " + q.Type)
	}
	return s.Grade(ctx, q, ans)
}

type Option func(*config)

type config struct {
	extra map[string]Strategy
}

// WithStrategy overrides or adds the strategy for a question type.
func WithStrategy(qtype string, s Strategy) Option {
	return func(c *config) { c.extra[qtype] = s }
}

// NewDefaultGrader installs the built-in strategies: single_choice, text, open.
func NewDefaultGrader(opts ...Option) Grader {
	cfg := &config{extra: map[string]Strategy{}}
	for _, o := range opts {
		o(cfg)
	}
	strategies := map[string]Strategy{
		"single_choice": singleChoiceStrategy{},
		"text":          textStrategy{},
		"open":          openStrategy{},
	}
	for k, v := range cfg.extra {
		strategies[k] = v
	}
	return &defaultGrader{strategies: strategies}
}

// --- Strategies ---

type singleChoiceStrategy struct{}

func (singleChoiceStrategy) Grade(_ context.Context, q Q, ans Answer) (Result, error) {
	res := Result{MaxPoints: q.Points}
	if ans.SelectedOption == q.CorrectOption {
		res.Correct = true
		res.Points = q.Points
	}
	return res, nil
}

type textStrategy struct{}

func (textStrategy) Grade(_ context.Context, q Q, ans Answer) (Result, error) {
	res := Result{MaxPoints: q.Points}
	// A blank key never matches, even a blank answer.
	if textMatches(q.CorrectText, ans.Text) {
		res.Correct = true
		res.Points = q.Points
	}
	return res, nil
}

type openStrategy struct{}

func (openStrategy) Grade(_ context.Context, q Q, _ Answer) (Result, error) {
	// Incorrect with zero points until a human grades it.
	return Result{MaxPoints: q.Points, NeedsManual: true}, nil
}
