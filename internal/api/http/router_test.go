package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"golang.org/x/crypto/bcrypt"

	api "github.com/mind-engage/mindengage-quiz/internal/api/http"
	auth "github.com/mind-engage/mindengage-quiz/internal/auth/middleware"
	"github.com/mind-engage/mindengage-quiz/internal/db"
	"github.com/mind-engage/mindengage-quiz/internal/quiz"
	"github.com/mind-engage/mindengage-quiz/internal/storage"
	syncx "github.com/mind-engage/mindengage-quiz/internal/sync"
)

const bankCSV = "Question,A,B,C,D,Answers,Tag\n" +
	"Capital of France?,Paris,Rome,Oslo,Bern,A,geo\n" +
	"Pick the even numbers,1,2,3,4,\"B,D\",math\n"

type client struct {
	t     *testing.T
	base  string
	token string
}

func (c client) do(method, path string, body any) (int, []byte, http.Header) {
	c.t.Helper()
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			c.t.Fatal(err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.base+path, rd)
	if err != nil {
		c.t.Fatal(err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return c.send(req)
}

func (c client) send(req *http.Request) (int, []byte, http.Header) {
	c.t.Helper()
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		c.t.Fatal(err)
	}
	defer resp.Body.Close()
	b, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, b, resp.Header
}

func (c client) upload(path, filename, content string) (int, []byte) {
	c.t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		c.t.Fatal(err)
	}
	_, _ = io.WriteString(fw, content)
	_ = mw.Close()
	req, _ := http.NewRequest(http.MethodPost, c.base+path, &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+c.token)
	code, body, _ := c.send(req)
	return code, body
}

func decode(t *testing.T, b []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(b, v); err != nil {
		t.Fatalf("decode %s: %v", b, err)
	}
}

func newServer(t *testing.T) string {
	t.Helper()
	ctx := context.Background()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared&_pragma=foreign_keys(1)", t.Name())
	conn, err := db.Open(ctx, db.DriverSQLite, dsn)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = conn.Close() })

	events := syncx.NewEventRepo(conn, "test")
	svc := quiz.NewService(quiz.NewSQLStore(conn), quiz.WithEvents(events))
	bs, err := storage.NewFSStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte("teach"), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}

	r := chi.NewRouter()
	api.NewRouter(r, api.Deps{
		Service: svc,
		Auth:    auth.NewAuthService("test-secret", time.Hour),
		Blobs:   bs,
		Events:  events,
		Import: api.ImportSettings{
			Mode:           quiz.ImportAppend,
			DefaultAnswer:  "A",
			MaxUploadBytes: 1 << 20,
		},
		InstructorUser:     "prof",
		InstructorPassHash: string(hash),
		Ready:              func() error { return conn.PingContext(ctx) },
	})
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv.URL
}

func login(t *testing.T, base, path string, body any) client {
	t.Helper()
	c := client{t: t, base: base}
	code, b, _ := c.do(http.MethodPost, path, body)
	if code != http.StatusOK {
		t.Fatalf("login %s: %d %s", path, code, b)
	}
	var out struct {
		AccessToken string `json:"access_token"`
	}
	decode(t, b, &out)
	c.token = out.AccessToken
	return c
}

func TestQuizFlow(t *testing.T) {
	base := newServer(t)
	anon := client{t: t, base: base}
	if code, _, _ := anon.do(http.MethodGet, "/quizzes", nil); code != http.StatusUnauthorized {
		t.Fatalf("anonymous: %d", code)
	}
	if code, _, _ := anon.do(http.MethodGet, "/healthz", nil); code != http.StatusOK {
		t.Fatalf("healthz: %d", code)
	}
	if code, _, _ := anon.do(http.MethodGet, "/readyz", nil); code != http.StatusOK {
		t.Fatalf("readyz: %d", code)
	}

	prof := login(t, base, "/auth/instructor/login", map[string]string{"username": "prof", "password": "teach"})

	// import the bank
	code, b := prof.upload("/questions/import", "bank.csv", bankCSV)
	if code != http.StatusOK {
		t.Fatalf("import: %d %s", code, b)
	}
	var imp struct {
		Imported int    `json:"imported"`
		Archive  string `json:"archive"`
	}
	decode(t, b, &imp)
	if imp.Imported != 2 || imp.Archive == "" {
		t.Fatalf("import = %+v", imp)
	}
	if code, b := prof.upload("/questions/import", "bank.txt", bankCSV); code != http.StatusBadRequest {
		t.Fatalf("txt import: %d %s", code, b)
	}
	code, b, _ = prof.do(http.MethodGet, "/uploads/"+imp.Archive, nil)
	if code != http.StatusOK || string(b) != bankCSV {
		t.Fatalf("archived upload: %d %q", code, b)
	}

	code, b, _ = prof.do(http.MethodGet, "/questions", nil)
	if code != http.StatusOK {
		t.Fatalf("list questions: %d", code)
	}
	var qs []quiz.Question
	decode(t, b, &qs)
	if len(qs) != 2 || qs[1].Answers != "BD" {
		t.Fatalf("questions = %+v", qs)
	}

	// build the quiz
	code, b, _ = prof.do(http.MethodPost, "/quizzes", quiz.Draft{Name: "Mixed", QuestionIDs: []string{qs[0].ID, qs[1].ID}})
	if code != http.StatusCreated {
		t.Fatalf("create quiz: %d %s", code, b)
	}
	var qz quiz.Quiz
	decode(t, b, &qz)
	if code, _, _ := prof.do(http.MethodPost, "/quizzes", quiz.Draft{Name: "Empty"}); code != http.StatusBadRequest {
		t.Fatalf("empty quiz: %d", code)
	}

	// student takes it
	alice := login(t, base, "/auth/login", map[string]string{"username": "alice"})
	if code, _ := alice.upload("/questions/import", "bank.csv", bankCSV); code != http.StatusForbidden {
		t.Fatalf("student import: %d", code)
	}

	start := func(c client) quiz.Attempt {
		code, b, _ := c.do(http.MethodPost, "/quizzes/"+qz.ID+"/attempts", nil)
		if code != http.StatusOK {
			t.Fatalf("start: %d %s", code, b)
		}
		var out struct {
			Attempt quiz.Attempt `json:"attempt"`
			Total   int          `json:"total"`
		}
		decode(t, b, &out)
		if out.Total != 2 {
			t.Fatalf("total = %d", out.Total)
		}
		return out.Attempt
	}
	a := start(alice)
	if again := start(alice); again.ID != a.ID {
		t.Fatalf("resume gave %s, want %s", again.ID, a.ID)
	}

	code, b, _ = alice.do(http.MethodGet, "/attempts/"+a.ID+"/questions/1", nil)
	if code != http.StatusOK {
		t.Fatalf("view: %d %s", code, b)
	}
	if strings.Contains(string(b), `"answers"`) {
		t.Fatalf("answer key leaked: %s", b)
	}

	// answer q1 wrong while moving on
	code, b, _ = alice.do(http.MethodPost, "/attempts/"+a.ID+"/navigate", map[string]any{
		"position": 1, "direction": "next", "question_id": qs[0].ID, "selected": []string{"b"},
	})
	if code != http.StatusOK {
		t.Fatalf("navigate: %d %s", code, b)
	}
	var view quiz.AttemptQuestion
	decode(t, b, &view)
	if view.Position != 2 || !view.IsLast || !view.Question.Multi {
		t.Fatalf("view = %+v", view)
	}
	if code, _, _ := alice.do(http.MethodPost, "/attempts/"+a.ID+"/navigate", map[string]any{"position": 2, "direction": "next"}); code != http.StatusBadRequest {
		t.Fatalf("next from last: %d", code)
	}
	if code, _, _ := alice.do(http.MethodPut, "/attempts/"+a.ID+"/responses/"+qs[0].ID, map[string]any{"selected": []string{"E"}}); code != http.StatusBadRequest {
		t.Fatalf("bad letter: %d", code)
	}
	if code, _, _ := alice.do(http.MethodGet, "/attempts/"+a.ID+"/result", nil); code != http.StatusConflict {
		t.Fatalf("result before submit: %d", code)
	}

	// half of q2, submitted together
	code, b, _ = alice.do(http.MethodPost, "/attempts/"+a.ID+"/submit", map[string]any{
		"question_id": qs[1].ID, "selected": []string{"B"},
	})
	if code != http.StatusOK {
		t.Fatalf("submit: %d %s", code, b)
	}
	var done quiz.Attempt
	decode(t, b, &done)
	if !done.Completed || done.Score != "0.5/2" {
		t.Fatalf("submitted = %+v", done)
	}
	if code, _, _ := alice.do(http.MethodPost, "/attempts/"+a.ID+"/submit", nil); code != http.StatusConflict {
		t.Fatalf("double submit: %d", code)
	}
	if code, _, _ := alice.do(http.MethodPut, "/attempts/"+a.ID+"/responses/"+qs[0].ID, map[string]any{"selected": []string{"A"}}); code != http.StatusConflict {
		t.Fatalf("record after submit: %d", code)
	}

	code, b, _ = alice.do(http.MethodGet, "/attempts/"+a.ID+"/result", nil)
	if code != http.StatusOK {
		t.Fatalf("result: %d %s", code, b)
	}
	var res quiz.Result
	decode(t, b, &res)
	if res.Score != "0.5/2" || len(res.Questions) != 2 || res.Questions[0].Options[0].Mark != quiz.MarkCorrectMissed {
		t.Fatalf("result = %+v", res)
	}

	// other students cannot see or touch alice's attempt
	bob := login(t, base, "/auth/login", map[string]string{"username": "bob"})
	if code, _, _ := bob.do(http.MethodGet, "/attempts/"+a.ID+"/result", nil); code != http.StatusForbidden {
		t.Fatalf("bob reads alice: %d", code)
	}
	if code, _, _ := bob.do(http.MethodGet, "/attempts/"+a.ID+"/questions/1", nil); code != http.StatusForbidden {
		t.Fatalf("bob views alice: %d", code)
	}
	code, b, _ = bob.do(http.MethodGet, "/attempts?student_id=whoever", nil)
	var bobs []quiz.Attempt
	decode(t, b, &bobs)
	if code != http.StatusOK || len(bobs) != 0 {
		t.Fatalf("bob's list: %d %s", code, b)
	}

	// instructor reporting
	code, b, _ = prof.do(http.MethodGet, "/attempts?quiz_id="+qz.ID+"&completed=true", nil)
	var all []quiz.Attempt
	decode(t, b, &all)
	if code != http.StatusOK || len(all) != 1 || all[0].ID != a.ID {
		t.Fatalf("instructor list: %d %s", code, b)
	}
	if code, _, _ := prof.do(http.MethodGet, "/attempts/"+a.ID+"/result", nil); code != http.StatusOK {
		t.Fatalf("instructor result: %d", code)
	}
	if code, _, _ := prof.do(http.MethodPost, "/quizzes/"+qz.ID+"/attempts", nil); code != http.StatusForbidden {
		t.Fatalf("instructor start: %d", code)
	}

	code, b, _ = prof.do(http.MethodGet, "/quizzes/"+qz.ID, nil)
	var detail struct {
		Quiz        quiz.Quiz `json:"quiz"`
		QuestionIDs []string  `json:"question_ids"`
	}
	decode(t, b, &detail)
	if code != http.StatusOK || len(detail.QuestionIDs) != 2 || detail.QuestionIDs[0] != qs[0].ID {
		t.Fatalf("quiz detail: %d %s", code, b)
	}
	if code, _, _ := prof.do(http.MethodGet, "/quizzes/missing", nil); code != http.StatusNotFound {
		t.Fatalf("missing quiz: %d", code)
	}

	// replacing a bank that quizzes use is refused
	if code, _ := prof.upload("/questions/import?mode=replace", "bank.csv", bankCSV); code != http.StatusConflict {
		t.Fatalf("replace in use: %d", code)
	}

	// exports
	code, b, _ = prof.do(http.MethodGet, "/questions/export?format=csv", nil)
	if code != http.StatusOK || !strings.HasPrefix(string(b), "Question,A,B,C,D,Answers,Tag") {
		t.Fatalf("csv export: %d %s", code, b)
	}
	code, _, hdr := prof.do(http.MethodGet, "/questions/export", nil)
	if code != http.StatusOK || !strings.Contains(hdr.Get("Content-Type"), "spreadsheetml") {
		t.Fatalf("xlsx export: %d %v", code, hdr)
	}
	code, _, hdr = prof.do(http.MethodGet, "/quizzes/"+qz.ID+"/export", nil)
	if code != http.StatusOK || hdr.Get("Content-Type") != "application/zip" {
		t.Fatalf("qti export: %d %v", code, hdr)
	}

	// question edit
	code, b, _ = prof.do(http.MethodPut, "/questions/"+qs[0].ID, map[string]string{
		"question": "Capital of Italy?", "a": "Paris", "b": "Rome", "c": "Oslo", "d": "Bern", "answers": "B",
	})
	if code != http.StatusConflict {
		t.Fatalf("answer key edit on linked question: %d %s", code, b)
	}
	code, b, _ = prof.do(http.MethodPut, "/questions/"+qs[0].ID, map[string]string{
		"question": "Capital city of France?", "a": "Paris", "b": "Rome", "c": "Oslo", "d": "Bern", "answers": "A", "tag": "europe",
	})
	if code != http.StatusOK {
		t.Fatalf("update: %d %s", code, b)
	}
	var edited quiz.Question
	decode(t, b, &edited)
	if edited.Text != "Capital city of France?" || edited.Tag != "europe" || edited.Answers != "A" {
		t.Fatalf("edited = %+v", edited)
	}

	// event feed
	code, b, _ = prof.do(http.MethodGet, "/events?after=0", nil)
	if code != http.StatusOK {
		t.Fatalf("events: %d %s", code, b)
	}
	var evs []syncx.Event
	decode(t, b, &evs)
	seen := map[string]bool{}
	for _, e := range evs {
		seen[e.Type] = true
	}
	for _, typ := range []string{quiz.EventQuestionsImported, quiz.EventQuizCreated, quiz.EventAttemptStarted, quiz.EventAttemptSubmitted} {
		if !seen[typ] {
			t.Errorf("event %s missing from %s", typ, b)
		}
	}
	if code, _, _ := alice.do(http.MethodGet, "/events", nil); code != http.StatusForbidden {
		t.Fatalf("student events: %d", code)
	}
}

func TestImportDefaultsAnswer(t *testing.T) {
	base := newServer(t)
	prof := login(t, base, "/auth/instructor/login", map[string]string{"username": "prof", "password": "teach"})

	csv := "question , a , b , c , d\nNo key given,x,y,,\n"
	code, b := prof.upload("/questions/import", "nokey.csv", csv)
	if code != http.StatusOK {
		t.Fatalf("import: %d %s", code, b)
	}
	_, b, _ = prof.do(http.MethodGet, "/questions", nil)
	var qs []quiz.Question
	decode(t, b, &qs)
	if len(qs) != 1 || qs[0].Answers != "A" {
		t.Fatalf("questions = %+v", qs)
	}

	if code, b := prof.upload("/questions/import", "bad.csv", "question,a,b\nx,1,2\n"); code != http.StatusBadRequest {
		t.Fatalf("missing columns: %d %s", code, b)
	}
	if code, _ := prof.upload("/questions/import?mode=merge", "bank.csv", bankCSV); code != http.StatusBadRequest {
		t.Fatalf("bad mode: %d", code)
	}
}

func TestImportArchivesEachUpload(t *testing.T) {
	base := newServer(t)
	prof := login(t, base, "/auth/instructor/login", map[string]string{"username": "prof", "password": "teach"})

	bodies := []string{bankCSV, "Question,A,B,C,D,Answers\nSecond upload?,yes,no,,,A\n"}
	keys := map[string]string{}
	for _, body := range bodies {
		code, b := prof.upload("/questions/import", "bank.csv", body)
		if code != http.StatusOK {
			t.Fatalf("import: %d %s", code, b)
		}
		var imp struct {
			Archive string `json:"archive"`
		}
		decode(t, b, &imp)
		if _, dup := keys[imp.Archive]; dup || imp.Archive == "" {
			t.Fatalf("archive key %q reused", imp.Archive)
		}
		keys[imp.Archive] = body
	}
	for key, body := range keys {
		code, b, _ := prof.do(http.MethodGet, "/uploads/"+key, nil)
		if code != http.StatusOK || string(b) != body {
			t.Fatalf("archive %s: %d %q", key, code, b)
		}
	}
}
