package auth

import "context"

type ctxKey string

const (
	ctxKeySub      ctxKey = "sub"
	ctxKeyUsername ctxKey = "username"
)

func WithSubject(ctx context.Context, sub string) context.Context {
	return context.WithValue(ctx, ctxKeySub, sub)
}

// SubjectFromContext is the authenticated principal: the student id for
// students, "instructor:<username>" for instructors.
func SubjectFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(ctxKeySub).(string); ok {
		return s
	}
	return ""
}

func WithUsername(ctx context.Context, username string) context.Context {
	return context.WithValue(ctx, ctxKeyUsername, username)
}

func UsernameFromContext(ctx context.Context) string {
	if s, ok := ctx.Value(ctxKeyUsername).(string); ok {
		return s
	}
	return ""
}
