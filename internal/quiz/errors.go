package quiz

import (
	"errors"
	"fmt"
)

var (
	ErrQuizNotFound         = errors.New("quiz not found")
	ErrQuestionNotFound     = errors.New("question not found")
	ErrAttemptNotFound      = errors.New("attempt not found")
	ErrStudentNotFound      = errors.New("student not found")
	ErrQuestionNotInAttempt = errors.New("question is not part of this attempt")

	ErrOutOfRange       = errors.New("position out of range")
	ErrEmptyQuestionSet = errors.New("quiz needs at least one question")
	ErrInvalidQuizName  = errors.New("quiz name required")
	ErrInvalidUsername  = errors.New("invalid username")
	ErrInvalidSelection = errors.New("invalid selection")
	ErrInvalidQuestion  = errors.New("invalid question")

	ErrAttemptCompleted  = errors.New("attempt already completed")
	ErrAttemptInProgress = errors.New("attempt not completed yet")

	ErrInvalidImportFormat = errors.New("invalid import format")
	ErrBankInUse           = errors.New("question bank is referenced by quizzes")
)

func errorf(base error, format string, args ...any) error {
	return fmt.Errorf("%w: %s", base, fmt.Sprintf(format, args...))
}

// IsNotFound reports whether err belongs to the not-found family.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrQuizNotFound) ||
		errors.Is(err, ErrQuestionNotFound) ||
		errors.Is(err, ErrAttemptNotFound) ||
		errors.Is(err, ErrStudentNotFound) ||
		errors.Is(err, ErrQuestionNotInAttempt)
}
