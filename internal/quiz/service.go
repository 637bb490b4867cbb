package quiz

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/mind-engage/mindengage-quiz/internal/grading"
)

// Event types written to the event log.
const (
	EventQuestionsImported = "QuestionsImported"
	EventQuizCreated       = "QuizCreated"
	EventAttemptStarted    = "AttemptStarted"
	EventAttemptSubmitted  = "AttemptSubmitted"
)

// Events receives domain events. Delivery is best effort.
type Events interface {
	Emit(ctx context.Context, typ, key string, payload any) error
}

type Service struct {
	store  Store
	grader grading.Grader
	events Events
	now    func() time.Time
	newID  func() string
}

type ServiceOption func(*Service)

func WithGrader(g grading.Grader) ServiceOption { return func(s *Service) { s.grader = g } }
func WithEvents(e Events) ServiceOption         { return func(s *Service) { s.events = e } }
func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}
func WithIDs(newID func() string) ServiceOption { return func(s *Service) { s.newID = newID } }

func NewService(store Store, opts ...ServiceOption) *Service {
	s := &Service{
		store:  store,
		grader: grading.NewDefaultGrader(),
		now:    time.Now,
		newID:  func() string { return uuid.NewString() },
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// ---- students ----

// LoginOrRegister returns the student for username, creating it on first use.
func (s *Service) LoginOrRegister(ctx context.Context, username string) (Student, error) {
	u, err := normalizeUsername(username)
	if err != nil {
		return Student{}, err
	}
	return s.store.UpsertStudent(ctx, Student{ID: s.newID(), Username: u, CreatedAt: s.now().Unix()})
}

func (s *Service) GetStudent(ctx context.Context, id string) (Student, error) {
	return s.store.GetStudent(ctx, id)
}

func normalizeUsername(username string) (string, error) {
	u := strings.ToLower(strings.TrimSpace(username))
	if u == "" || len(u) > 64 || strings.ContainsAny(u, " \t\r\n") {
		return "", ErrInvalidUsername
	}
	return u, nil
}

// ---- attempt lifecycle ----

// StartOrResume returns the student's attempt at quizID, creating it together
// with one empty response per linked question if none exists yet.
func (s *Service) StartOrResume(ctx context.Context, studentID, quizID string) (Attempt, error) {
	if _, err := s.store.GetStudent(ctx, studentID); err != nil {
		return Attempt{}, err
	}
	qs, err := s.store.QuizQuestions(ctx, quizID)
	if err != nil {
		return Attempt{}, err
	}
	if len(qs) == 0 {
		return Attempt{}, errorf(ErrQuizNotFound, "quiz %s has no questions", quizID)
	}

	a := Attempt{ID: s.newID(), StudentID: studentID, QuizID: quizID, StartedAt: s.now().Unix()}
	resps := make([]Response, len(qs))
	for i, q := range qs {
		resps[i] = Response{ID: s.newID(), AttemptID: a.ID, QuestionID: q.ID, Position: i + 1}
	}
	got, created, err := s.store.StartAttempt(ctx, a, resps)
	if err != nil {
		return Attempt{}, err
	}
	if created {
		s.emit(ctx, EventAttemptStarted, got.ID, got)
	}
	return got, nil
}

func (s *Service) GetAttempt(ctx context.Context, id string) (Attempt, error) {
	return s.store.GetAttempt(ctx, id)
}

func (s *Service) ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error) {
	if opts.Limit <= 0 || opts.Limit > 500 {
		opts.Limit = 50
	}
	if opts.Offset < 0 {
		opts.Offset = 0
	}
	return s.store.ListAttempts(ctx, opts)
}

// GetQuestionAt returns the question at 1-based position in link order.
func (s *Service) GetQuestionAt(ctx context.Context, quizID string, position int) (Question, bool, error) {
	qs, err := s.store.QuizQuestions(ctx, quizID)
	if err != nil {
		return Question{}, false, err
	}
	if position < 1 || position > len(qs) {
		return Question{}, false, errorf(ErrOutOfRange, "position %d of %d", position, len(qs))
	}
	return qs[position-1], position == len(qs), nil
}

// QuestionView is GetQuestionAt for an attempt, with the stored selection.
func (s *Service) QuestionView(ctx context.Context, attemptID string, position int) (AttemptQuestion, error) {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return AttemptQuestion{}, err
	}
	resps, err := s.store.AttemptResponses(ctx, a.ID)
	if err != nil {
		return AttemptQuestion{}, err
	}
	if position < 1 || position > len(resps) {
		return AttemptQuestion{}, errorf(ErrOutOfRange, "position %d of %d", position, len(resps))
	}
	r := resps[position-1]
	q, err := s.store.GetQuestion(ctx, r.QuestionID)
	if err != nil {
		return AttemptQuestion{}, err
	}
	return AttemptQuestion{
		AttemptID: a.ID,
		Position:  position,
		Total:     len(resps),
		IsLast:    position == len(resps),
		Question:  q.Public(),
		Selected:  r.Selected,
	}, nil
}

// RecordResponse overwrites the stored selection for one question.
func (s *Service) RecordResponse(ctx context.Context, attemptID, questionID string, sel Selection) error {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return err
	}
	if a.Completed {
		return ErrAttemptCompleted
	}
	q, err := s.store.GetQuestion(ctx, questionID)
	if errors.Is(err, ErrQuestionNotFound) {
		return errorf(ErrQuestionNotInAttempt, "%s", questionID)
	}
	if err != nil {
		return err
	}
	if err := q.Accepts(sel); err != nil {
		return err
	}
	return s.store.SaveResponse(ctx, a.ID, q.ID, sel)
}

// Navigate moves the cursor one step. Next from the last question is rejected:
// the only way forward from there is Submit.
func (s *Service) Navigate(ctx context.Context, quizID string, current int, dir Direction) (int, error) {
	qs, err := s.store.QuizQuestions(ctx, quizID)
	if err != nil {
		return 0, err
	}
	n := len(qs)
	if current < 1 || current > n {
		return 0, errorf(ErrOutOfRange, "position %d of %d", current, n)
	}
	next := current
	switch dir {
	case Next:
		next++
	case Previous:
		next--
	default:
		return 0, errorf(ErrOutOfRange, "unknown direction %d", dir)
	}
	if next < 1 || next > n {
		return 0, errorf(ErrOutOfRange, "%s from %d of %d", dir, current, n)
	}
	return next, nil
}

// Submit scores the attempt and completes it. A completed attempt is never
// re-scored; a second Submit returns ErrAttemptCompleted.
func (s *Service) Submit(ctx context.Context, attemptID string) (Attempt, error) {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return Attempt{}, err
	}
	if a.Completed {
		return Attempt{}, ErrAttemptCompleted
	}
	graded, err := s.gradeAttempt(ctx, a)
	if err != nil {
		return Attempt{}, err
	}
	earned := 0.0
	for _, g := range graded {
		earned += g.credit
	}
	score := grading.FormatScore(earned, len(graded))

	done, err := s.store.CompleteAttempt(ctx, a.ID, score, s.now().Unix())
	if err != nil {
		return Attempt{}, err
	}
	s.emit(ctx, EventAttemptSubmitted, done.ID, map[string]any{
		"student_id": done.StudentID,
		"quiz_id":    done.QuizID,
		"score":      done.Score,
	})
	return done, nil
}

// GetResult is only available once the attempt is completed.
func (s *Service) GetResult(ctx context.Context, attemptID string) (Result, error) {
	a, err := s.store.GetAttempt(ctx, attemptID)
	if err != nil {
		return Result{}, err
	}
	if !a.Completed {
		return Result{}, ErrAttemptInProgress
	}
	qz, err := s.store.GetQuiz(ctx, a.QuizID)
	if err != nil {
		return Result{}, err
	}
	graded, err := s.gradeAttempt(ctx, a)
	if err != nil {
		return Result{}, err
	}
	out := Result{
		AttemptID: a.ID,
		QuizID:    qz.ID,
		QuizName:  qz.Name,
		Score:     a.Score,
		Completed: a.Completed,
		Questions: make([]QuestionResult, 0, len(graded)),
	}
	for _, g := range graded {
		out.Questions = append(out.Questions, QuestionResult{
			QuestionID: g.q.ID,
			Position:   g.r.Position,
			Text:       g.q.Text,
			Tag:        g.q.Tag,
			Selected:   g.r.Selected,
			Answers:    g.q.Answers,
			Credit:     g.credit,
			Options:    markOptions(g.q, g.r.Selected),
		})
	}
	return out, nil
}

type gradedResponse struct {
	q      Question
	r      Response
	credit float64
}

// gradeAttempt joins every response to its question and grades it.
func (s *Service) gradeAttempt(ctx context.Context, a Attempt) ([]gradedResponse, error) {
	resps, err := s.store.AttemptResponses(ctx, a.ID)
	if err != nil {
		return nil, err
	}
	qs, err := s.store.QuizQuestions(ctx, a.QuizID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]Question, len(qs))
	for _, q := range qs {
		byID[q.ID] = q
	}
	out := make([]gradedResponse, 0, len(resps))
	for _, r := range resps {
		q, ok := byID[r.QuestionID]
		if !ok {
			return nil, errorf(ErrQuestionNotFound, "%s", r.QuestionID)
		}
		key := q.Answers.Letters()
		res, err := s.grader.Grade(ctx, grading.Q{Type: grading.TypeFor(key), Points: 1, AnswerKey: key}, r.Selected.Letters())
		if err != nil {
			return nil, err
		}
		out = append(out, gradedResponse{q: q, r: r, credit: res.AutoPoints})
	}
	return out, nil
}

func markOptions(q Question, sel Selection) []OptionResult {
	opts := q.Options()
	out := make([]OptionResult, 0, len(opts))
	for _, o := range opts {
		l := o.Letter[0]
		correct, picked := q.Answers.Has(l), sel.Has(l)
		m := MarkNone
		switch {
		case correct && picked:
			m = MarkCorrectSelected
		case correct:
			m = MarkCorrectMissed
		case picked:
			m = MarkIncorrectSelected
		}
		out = append(out, OptionResult{Letter: o.Letter, Text: o.Text, Mark: m})
	}
	return out
}

func (s *Service) emit(ctx context.Context, typ, key string, payload any) {
	if s.events == nil {
		return
	}
	if err := s.events.Emit(ctx, typ, key, payload); err != nil {
		log.Printf("event %s %s: %v", typ, key, err)
	}
}
