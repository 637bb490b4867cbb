package quiz_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

func openSQLite(t *testing.T) *quiz.SQLStore {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", name)
	conn, err := db.Open(context.Background(), db.DriverSQLite, dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	t.Cleanup(func() { _ = conn.Close() })
	return quiz.NewSQLStore(conn)
}

func TestServiceSQLStore(t *testing.T) {
	exerciseStore(t, openSQLite(t))
}

func TestSQLStoreReplaceImport(t *testing.T) {
	ctx := context.Background()
	svc := newService(openSQLite(t), nil)
	if _, err := svc.Import(ctx, bankRows, quiz.ImportAppend, quiz.ImportOptions{}); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Import(ctx, bankRows[1:], quiz.ImportReplace, quiz.ImportOptions{}); err != nil {
		t.Fatal(err)
	}
	qs, err := svc.Select(ctx, nil)
	if err != nil {
		t.Fatal(err)
	}
	if len(qs) != 2 || qs[0].Text != bankRows[1].Question {
		t.Fatalf("bank after replace = %+v", qs)
	}
	if qs[0].Seq >= qs[1].Seq {
		t.Fatalf("seq not increasing: %d, %d", qs[0].Seq, qs[1].Seq)
	}
}

func TestSQLStoreStartAttemptKeepsExisting(t *testing.T) {
	ctx := context.Background()
	store := openSQLite(t)
	svc := newService(store, nil)
	qz, qs := seed(t, svc)
	st, err := svc.LoginOrRegister(ctx, "kim")
	if err != nil {
		t.Fatal(err)
	}
	first, err := svc.StartOrResume(ctx, st.ID, qz.ID)
	if err != nil {
		t.Fatal(err)
	}

	// a second writer with a fresh id must get the stored attempt back
	dup := quiz.Attempt{ID: "other", StudentID: st.ID, QuizID: qz.ID, StartedAt: 1}
	got, created, err := store.StartAttempt(ctx, dup, []quiz.Response{{ID: "r-x", QuestionID: qs[0].ID, Position: 1}})
	if err != nil {
		t.Fatal(err)
	}
	if created || got.ID != first.ID {
		t.Fatalf("StartAttempt = %+v created=%v, want existing %s", got, created, first.ID)
	}
	resps, err := store.AttemptResponses(ctx, first.ID)
	if err != nil || len(resps) != 2 {
		t.Fatalf("responses = %d, %v", len(resps), err)
	}
}
