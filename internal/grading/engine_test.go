package grading

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestChoiceCredit(t *testing.T) {
	g := NewDefaultGrader()
	cases := []struct {
		name     string
		key      []string
		selected []string
		want     float64
	}{
		{"single correct", []string{"A"}, []string{"A"}, 1},
		{"multi half", []string{"A", "B"}, []string{"A"}, 0.5},
		{"wrong letter earns nothing", []string{"A", "B"}, []string{"A", "C"}, 0.5},
		{"empty", []string{"A"}, nil, 0},
		{"all wrong", []string{"B", "C"}, []string{"A", "D"}, 0},
		{"full multi", []string{"B", "C"}, []string{"C", "B"}, 1},
		{"third", []string{"A", "B", "C"}, []string{"B"}, 1.0 / 3},
		{"lowercase selection", []string{"A"}, []string{"a"}, 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			q := Q{Type: TypeFor(tc.key), Points: 1, AnswerKey: tc.key}
			res, err := g.Grade(context.Background(), q, tc.selected)
			if err != nil {
				t.Fatalf("grade: %v", err)
			}
			if math.Abs(res.AutoPoints-tc.want) > 1e-9 {
				t.Fatalf("got %v want %v", res.AutoPoints, tc.want)
			}
		})
	}
}

func TestNoPartialMulti(t *testing.T) {
	g := NewDefaultGrader(WithPartialMulti(false))
	q := Q{Type: TypeMulti, Points: 1, AnswerKey: []string{"A", "B"}}
	res, err := g.Grade(context.Background(), q, []string{"A"})
	if err != nil {
		t.Fatal(err)
	}
	if res.AutoPoints != 0 {
		t.Fatalf("expected 0 without partial credit, got %v", res.AutoPoints)
	}
	if res.Hits != 1 {
		t.Fatalf("hits = %d", res.Hits)
	}
}

func TestUnknownType(t *testing.T) {
	g := NewDefaultGrader()
	_, err := g.Grade(context.Background(), Q{Type: "essay", Points: 1}, nil)
	if !errors.Is(err, ErrNoStrategy) {
		t.Fatalf("expected ErrNoStrategy, got %v", err)
	}
}

func TestFormatScore(t *testing.T) {
	cases := []struct {
		earned float64
		n      int
		want   string
	}{
		{2, 2, "2/2"},
		{0.5, 2, "0.5/2"},
		{0, 3, "0/3"},
		{1.0/3 + 1.0/3 + 1.0/3, 1, "1/1"},
		{1.0 / 3, 1, "0.3/1"},
		{2.96, 3, "3.0/3"},
		{1.25, 4, "1.3/4"},
	}
	for _, tc := range cases {
		if got := FormatScore(tc.earned, tc.n); got != tc.want {
			t.Errorf("FormatScore(%v,%d) = %q want %q", tc.earned, tc.n, got, tc.want)
		}
	}
}
