package quiz

import "context"

// Store is the persistence boundary. Implementations must make each method
// atomic: a failed call leaves no partial rows behind.
type Store interface {
	// Question bank
	ImportQuestions(ctx context.Context, qs []Question, mode ImportMode) error
	SelectQuestions(ctx context.Context, ids []string) ([]Question, error) // empty ids: all, storage order
	GetQuestion(ctx context.Context, id string) (Question, error)
	UpdateQuestion(ctx context.Context, q Question) error

	// Quiz catalog
	CreateQuiz(ctx context.Context, qz Quiz, questionIDs []string) error
	GetQuiz(ctx context.Context, id string) (Quiz, error)
	ListQuizzes(ctx context.Context) ([]Quiz, error)
	QuizQuestions(ctx context.Context, quizID string) ([]Question, error) // link order

	// Students
	UpsertStudent(ctx context.Context, s Student) (Student, error) // returns the stored row for s.Username
	GetStudent(ctx context.Context, id string) (Student, error)

	// Attempts. StartAttempt returns the existing attempt for (StudentID, QuizID)
	// when there is one; created reports whether a new attempt was written.
	StartAttempt(ctx context.Context, a Attempt, responses []Response) (got Attempt, created bool, err error)
	GetAttempt(ctx context.Context, id string) (Attempt, error)
	ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error)
	AttemptResponses(ctx context.Context, attemptID string) ([]Response, error) // position order
	SaveResponse(ctx context.Context, attemptID, questionID string, sel Selection) error
	CompleteAttempt(ctx context.Context, attemptID, score string, submittedAt int64) (Attempt, error)
}
