package quiz

import (
	"context"
	"fmt"
	"strings"
)

type ImportOptions struct {
	// DefaultAnswer is used for rows whose answers cell is blank. Leave it
	// empty to reject such rows instead.
	DefaultAnswer string
}

// BuildQuestion maps a normalised spreadsheet row onto a Question.
func BuildQuestion(row ImportRow, opts ImportOptions) (Question, error) {
	q := Question{
		Text: strings.TrimSpace(row.Question),
		A:    strings.TrimSpace(row.A),
		B:    strings.TrimSpace(row.B),
		C:    strings.TrimSpace(row.C),
		D:    strings.TrimSpace(row.D),
		Tag:  strings.TrimSpace(row.Tag),
	}
	raw := strings.TrimSpace(row.Answers)
	if raw == "" {
		raw = opts.DefaultAnswer
	}
	if raw == "" {
		return Question{}, errorf(ErrInvalidQuestion, "answers column is empty")
	}
	ans, err := ParseSelection(raw)
	if err != nil {
		return Question{}, err
	}
	q.Answers = ans
	if err := q.Validate(); err != nil {
		return Question{}, err
	}
	return q, nil
}

// Import validates every row before writing any of them; one bad row aborts
// the whole import with ErrInvalidImportFormat.
func (s *Service) Import(ctx context.Context, rows []ImportRow, mode ImportMode, opts ImportOptions) (int, error) {
	if mode != ImportAppend && mode != ImportReplace {
		return 0, errorf(ErrInvalidImportFormat, "unknown import mode %q", mode)
	}
	if len(rows) == 0 {
		return 0, errorf(ErrInvalidImportFormat, "no question rows")
	}
	qs := make([]Question, 0, len(rows))
	for i, row := range rows {
		q, err := BuildQuestion(row, opts)
		if err != nil {
			return 0, fmt.Errorf("%w: row %d: %v", ErrInvalidImportFormat, i+1, err)
		}
		q.ID = s.newID()
		qs = append(qs, q)
	}
	if err := s.store.ImportQuestions(ctx, qs, mode); err != nil {
		return 0, err
	}
	s.emit(ctx, EventQuestionsImported, string(mode), map[string]any{"mode": mode, "count": len(qs)})
	return len(qs), nil
}

// Select returns every question when ids is empty, otherwise exactly the
// questions whose id is listed, in storage order.
func (s *Service) Select(ctx context.Context, ids []string) ([]Question, error) {
	return s.store.SelectQuestions(ctx, compactIDs(ids))
}

func (s *Service) GetQuestion(ctx context.Context, id string) (Question, error) {
	return s.store.GetQuestion(ctx, strings.TrimSpace(id))
}

// UpdateQuestion rewrites text, options, answers and tag of an existing question.
// Once a quiz links the question only text and tag may change; other edits
// fail with ErrBankInUse.
func (s *Service) UpdateQuestion(ctx context.Context, q Question) (Question, error) {
	q.Text = strings.TrimSpace(q.Text)
	q.Tag = strings.TrimSpace(q.Tag)
	q.A, q.B = strings.TrimSpace(q.A), strings.TrimSpace(q.B)
	q.C, q.D = strings.TrimSpace(q.C), strings.TrimSpace(q.D)
	if err := q.Validate(); err != nil {
		return Question{}, err
	}
	if err := s.store.UpdateQuestion(ctx, q); err != nil {
		return Question{}, err
	}
	return s.store.GetQuestion(ctx, q.ID)
}

// compactIDs trims ids and drops blanks and repeats, keeping first occurrence.
func compactIDs(ids []string) []string {
	out := make([]string, 0, len(ids))
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
