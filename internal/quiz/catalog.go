package quiz

import (
	"context"
	"strings"
)

// Draft is an instructor's in-progress quiz. The caller owns it (request body,
// client state); nothing about a draft is kept on the server.
type Draft struct {
	Name        string   `json:"name"`
	QuestionIDs []string `json:"question_ids"`
}

func (d *Draft) Add(id string) {
	if !d.Has(id) {
		d.QuestionIDs = append(d.QuestionIDs, id)
	}
}

func (d *Draft) Remove(id string) {
	out := d.QuestionIDs[:0]
	for _, x := range d.QuestionIDs {
		if x != id {
			out = append(out, x)
		}
	}
	d.QuestionIDs = out
}

// Toggle flips membership of id, mirroring a checkbox.
func (d *Draft) Toggle(id string) {
	if d.Has(id) {
		d.Remove(id)
		return
	}
	d.Add(id)
}

func (d Draft) Has(id string) bool {
	for _, x := range d.QuestionIDs {
		if x == id {
			return true
		}
	}
	return false
}

// IDs returns the selected question ids in selection order without repeats.
func (d Draft) IDs() []string { return compactIDs(d.QuestionIDs) }

// CreateQuiz stores a quiz linking questionIDs in the given order.
func (s *Service) CreateQuiz(ctx context.Context, name string, questionIDs []string) (Quiz, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return Quiz{}, ErrInvalidQuizName
	}
	ids := compactIDs(questionIDs)
	if len(ids) == 0 {
		return Quiz{}, ErrEmptyQuestionSet
	}
	found, err := s.store.SelectQuestions(ctx, ids)
	if err != nil {
		return Quiz{}, err
	}
	if len(found) != len(ids) {
		have := make(map[string]struct{}, len(found))
		for _, q := range found {
			have[q.ID] = struct{}{}
		}
		for _, id := range ids {
			if _, ok := have[id]; !ok {
				return Quiz{}, errorf(ErrQuestionNotFound, "%s", id)
			}
		}
	}

	qz := Quiz{ID: s.newID(), Name: name, QuestionCount: len(ids), CreatedAt: s.now().Unix()}
	if err := s.store.CreateQuiz(ctx, qz, ids); err != nil {
		return Quiz{}, err
	}
	s.emit(ctx, EventQuizCreated, qz.ID, qz)
	return qz, nil
}

// CreateFromDraft is CreateQuiz fed by a caller-owned draft.
func (s *Service) CreateFromDraft(ctx context.Context, d Draft) (Quiz, error) {
	return s.CreateQuiz(ctx, d.Name, d.IDs())
}

func (s *Service) GetQuiz(ctx context.Context, id string) (Quiz, error) {
	return s.store.GetQuiz(ctx, strings.TrimSpace(id))
}

func (s *Service) ListQuizzes(ctx context.Context) ([]Quiz, error) {
	return s.store.ListQuizzes(ctx)
}

// ListQuestionIDs returns the quiz's question ids in link order.
func (s *Service) ListQuestionIDs(ctx context.Context, quizID string) ([]string, error) {
	qs, err := s.store.QuizQuestions(ctx, quizID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(qs))
	for _, q := range qs {
		ids = append(ids, q.ID)
	}
	return ids, nil
}

// QuizQuestions returns the quiz's full questions, answer keys included, in
// link order.
func (s *Service) QuizQuestions(ctx context.Context, quizID string) ([]Question, error) {
	return s.store.QuizQuestions(ctx, quizID)
}
