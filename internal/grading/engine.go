package grading

import (
	"context"
	"errors"
	"strings"
)

var ErrNoStrategy = errors.New("no grading strategy for question type")

// Question types understood by the default grader.
const (
	TypeSingle = "mcq_single"
	TypeMulti  = "mcq_multi"
)

// Q is a minimal view of a question needed for grading.
type Q struct {
	Type      string
	Points    float64
	AnswerKey []string
}

// Result is the outcome of grading a single question response.
type Result struct {
	AutoPoints float64 // points awarded
	MaxPoints  float64 // the question's max points
	Hits       int     // correct letters selected
	Misses     int     // selected letters that are not in the key
	Feedback   []string
}

// Strategy grades a single question.
type Strategy interface {
	Grade(ctx context.Context, q Q, response []string) (Result, error)
}

// Grader routes by question type to the correct Strategy.
type Grader interface {
	Grade(ctx context.Context, q Q, response []string) (Result, error)
}

type defaultGrader struct {
	strategies map[string]Strategy
}

func (g *defaultGrader) Grade(ctx context.Context, q Q, response []string) (Result, error) {
	s, ok := g.strategies[q.Type]
	if !ok {
		return Result{MaxPoints: q.Points}, ErrNoStrategy
	}
	return s.Grade(ctx, q, response)
}

// Engine options

type Option func(*config)

type config struct {
	AllowPartialMulti bool // 1/k credit per correct letter on multi-answer questions
}

func WithPartialMulti(b bool) Option { return func(c *config) { c.AllowPartialMulti = b } }

// NewDefaultGrader installs built-in strategies.
func NewDefaultGrader(opts ...Option) Grader {
	cfg := &config{
		AllowPartialMulti: true,
	}
	for _, o := range opts {
		o(cfg)
	}
	return &defaultGrader{
		strategies: map[string]Strategy{
			TypeSingle: choiceStrategy{allowPartial: true},
			TypeMulti:  choiceStrategy{allowPartial: cfg.AllowPartialMulti},
		},
	}
}

// TypeFor derives the question type from the size of its answer key.
func TypeFor(answerKey []string) string {
	if len(answerKey) > 1 {
		return TypeMulti
	}
	return TypeSingle
}

// --- Strategies ---

// choiceStrategy awards Points/k for every selected letter that is in the key,
// where k is the size of the key. Selected letters outside the key earn nothing
// and take nothing away.
type choiceStrategy struct{ allowPartial bool }

func (s choiceStrategy) Grade(_ context.Context, q Q, response []string) (Result, error) {
	res := Result{MaxPoints: q.Points}
	correct := toSet(q.AnswerKey)
	if len(correct) == 0 {
		return res, errors.New("empty answer key")
	}
	resp := toSet(response)

	for r := range resp {
		if _, ok := correct[r]; ok {
			res.Hits++
		} else {
			res.Misses++
		}
	}

	switch {
	case res.Hits == len(correct):
		res.AutoPoints = q.Points
	case s.allowPartial:
		res.AutoPoints = q.Points * (float64(res.Hits) / float64(len(correct)))
	}
	if res.Misses > 0 {
		res.Feedback = append(res.Feedback, "incorrect option selected")
	}
	return res, nil
}

// helpers

func toSet(arr []string) map[string]struct{} {
	m := make(map[string]struct{}, len(arr))
	for _, s := range arr {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" {
			continue
		}
		m[s] = struct{}{}
	}
	return m
}
