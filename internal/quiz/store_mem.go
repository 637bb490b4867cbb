package quiz

import (
	"context"
	"sort"
	"sync"
)

type memoryStore struct {
	mu        sync.RWMutex
	seq       int64
	questions map[string]Question
	quizzes   map[string]Quiz
	links     map[string][]string // quizID -> question ids, link order
	students  map[string]Student
	usernames map[string]string // username -> student id
	attempts  map[string]Attempt
	byPair    map[[2]string]string // (student, quiz) -> attempt id
	responses map[string][]Response
}

// NewMemoryStore returns a Store kept entirely in process memory.
func NewMemoryStore() Store {
	return &memoryStore{
		questions: map[string]Question{},
		quizzes:   map[string]Quiz{},
		links:     map[string][]string{},
		students:  map[string]Student{},
		usernames: map[string]string{},
		attempts:  map[string]Attempt{},
		byPair:    map[[2]string]string{},
		responses: map[string][]Response{},
	}
}

func (m *memoryStore) ImportQuestions(_ context.Context, qs []Question, mode ImportMode) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if mode == ImportReplace {
		if len(m.links) > 0 {
			return ErrBankInUse
		}
		m.questions = map[string]Question{}
	}
	for _, q := range qs {
		m.seq++
		q.Seq = m.seq
		m.questions[q.ID] = q
	}
	return nil
}

func (m *memoryStore) SelectQuestions(_ context.Context, ids []string) ([]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Question{}
	if len(ids) == 0 {
		for _, q := range m.questions {
			out = append(out, q)
		}
	} else {
		for _, id := range ids {
			if q, ok := m.questions[id]; ok {
				out = append(out, q)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Seq < out[j].Seq })
	return out, nil
}

func (m *memoryStore) GetQuestion(_ context.Context, id string) (Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	q, ok := m.questions[id]
	if !ok {
		return Question{}, ErrQuestionNotFound
	}
	return q, nil
}

func (m *memoryStore) UpdateQuestion(_ context.Context, q Question) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	old, ok := m.questions[q.ID]
	if !ok {
		return ErrQuestionNotFound
	}
	if !old.SameKey(q) && m.linkedLocked(q.ID) {
		return ErrBankInUse
	}
	q.Seq = old.Seq
	m.questions[q.ID] = q
	return nil
}

func (m *memoryStore) linkedLocked(questionID string) bool {
	for _, ids := range m.links {
		for _, id := range ids {
			if id == questionID {
				return true
			}
		}
	}
	return false
}

func (m *memoryStore) CreateQuiz(_ context.Context, qz Quiz, questionIDs []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, id := range questionIDs {
		if _, ok := m.questions[id]; !ok {
			return ErrQuestionNotFound
		}
	}
	qz.QuestionCount = len(questionIDs)
	m.quizzes[qz.ID] = qz
	m.links[qz.ID] = append([]string(nil), questionIDs...)
	return nil
}

func (m *memoryStore) GetQuiz(_ context.Context, id string) (Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	qz, ok := m.quizzes[id]
	if !ok {
		return Quiz{}, ErrQuizNotFound
	}
	return qz, nil
}

func (m *memoryStore) ListQuizzes(_ context.Context) ([]Quiz, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Quiz, 0, len(m.quizzes))
	for _, qz := range m.quizzes {
		out = append(out, qz)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt != out[j].CreatedAt {
			return out[i].CreatedAt > out[j].CreatedAt
		}
		return out[i].Name < out[j].Name
	})
	return out, nil
}

func (m *memoryStore) QuizQuestions(_ context.Context, quizID string) ([]Question, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.quizzes[quizID]; !ok {
		return nil, ErrQuizNotFound
	}
	ids := m.links[quizID]
	out := make([]Question, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.questions[id])
	}
	return out, nil
}

func (m *memoryStore) UpsertStudent(_ context.Context, s Student) (Student, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if id, ok := m.usernames[s.Username]; ok {
		return m.students[id], nil
	}
	m.students[s.ID] = s
	m.usernames[s.Username] = s.ID
	return s, nil
}

func (m *memoryStore) GetStudent(_ context.Context, id string) (Student, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.students[id]
	if !ok {
		return Student{}, ErrStudentNotFound
	}
	return s, nil
}

func (m *memoryStore) StartAttempt(_ context.Context, a Attempt, responses []Response) (Attempt, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := [2]string{a.StudentID, a.QuizID}
	if id, ok := m.byPair[key]; ok {
		return m.attempts[id], false, nil
	}
	m.attempts[a.ID] = a
	m.byPair[key] = a.ID
	m.responses[a.ID] = append([]Response(nil), responses...)
	return a, true, nil
}

func (m *memoryStore) GetAttempt(_ context.Context, id string) (Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	a, ok := m.attempts[id]
	if !ok {
		return Attempt{}, ErrAttemptNotFound
	}
	return a, nil
}

func (m *memoryStore) ListAttempts(_ context.Context, opts AttemptListOpts) ([]Attempt, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Attempt{}
	for _, a := range m.attempts {
		if opts.StudentID != "" && a.StudentID != opts.StudentID {
			continue
		}
		if opts.QuizID != "" && a.QuizID != opts.QuizID {
			continue
		}
		if opts.Completed != nil && a.Completed != *opts.Completed {
			continue
		}
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].StartedAt != out[j].StartedAt {
			return out[i].StartedAt > out[j].StartedAt
		}
		return out[i].ID < out[j].ID
	})
	if opts.Offset >= len(out) {
		return []Attempt{}, nil
	}
	out = out[opts.Offset:]
	if opts.Limit > 0 && len(out) > opts.Limit {
		out = out[:opts.Limit]
	}
	return out, nil
}

func (m *memoryStore) AttemptResponses(_ context.Context, attemptID string) ([]Response, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if _, ok := m.attempts[attemptID]; !ok {
		return nil, ErrAttemptNotFound
	}
	return append([]Response(nil), m.responses[attemptID]...), nil
}

func (m *memoryStore) SaveResponse(_ context.Context, attemptID, questionID string, sel Selection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[attemptID]
	if !ok {
		return ErrAttemptNotFound
	}
	if a.Completed {
		return ErrAttemptCompleted
	}
	rs := m.responses[attemptID]
	for i := range rs {
		if rs[i].QuestionID == questionID {
			rs[i].Selected = sel
			return nil
		}
	}
	return ErrQuestionNotInAttempt
}

func (m *memoryStore) CompleteAttempt(_ context.Context, attemptID, score string, submittedAt int64) (Attempt, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.attempts[attemptID]
	if !ok {
		return Attempt{}, ErrAttemptNotFound
	}
	if a.Completed {
		return Attempt{}, ErrAttemptCompleted
	}
	a.Completed = true
	a.Score = score
	a.SubmittedAt = submittedAt
	m.attempts[attemptID] = a
	return a, nil
}
