package quiz

import (
	"context"
	"database/sql"
	"errors"
	"strconv"
	"strings"
)

// SQLStore implements Store on database/sql. Queries use $N placeholders,
// which both the pgx and modernc sqlite drivers accept.
type SQLStore struct {
	db *sql.DB
}

func NewSQLStore(db *sql.DB) *SQLStore {
	return &SQLStore{db: db}
}

type queryer interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type rowScanner interface {
	Scan(dest ...any) error
}

func (s *SQLStore) withTx(ctx context.Context, fn func(tx *sql.Tx) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		} else {
			err = tx.Commit()
		}
	}()
	return fn(tx)
}

// ---- questions ----

const questionCols = `id, seq, question, a, b, c, d, answers, tag`

func scanQuestion(r rowScanner) (Question, error) {
	var q Question
	var answers string
	if err := r.Scan(&q.ID, &q.Seq, &q.Text, &q.A, &q.B, &q.C, &q.D, &answers, &q.Tag); err != nil {
		return Question{}, err
	}
	q.Answers = Selection(answers)
	return q, nil
}

func (s *SQLStore) ImportQuestions(ctx context.Context, qs []Question, mode ImportMode) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if mode == ImportReplace {
			var one int
			err := tx.QueryRowContext(ctx, `SELECT 1 FROM quiz_questions LIMIT 1`).Scan(&one)
			if err == nil {
				return ErrBankInUse
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return err
			}
			if _, err := tx.ExecContext(ctx, `DELETE FROM questions`); err != nil {
				return err
			}
		}
		var seq int64
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM questions`).Scan(&seq); err != nil {
			return err
		}
		for _, q := range qs {
			seq++
			_, err := tx.ExecContext(ctx,
				`INSERT INTO questions (`+questionCols+`) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
				q.ID, seq, q.Text, q.A, q.B, q.C, q.D, q.Answers.String(), q.Tag)
			if err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *SQLStore) SelectQuestions(ctx context.Context, ids []string) ([]Question, error) {
	query := `SELECT ` + questionCols + ` FROM questions`
	args := make([]any, 0, len(ids))
	if len(ids) > 0 {
		for _, id := range ids {
			args = append(args, id)
		}
		query += ` WHERE id IN (` + placeholders(1, len(ids)) + `)`
	}
	query += ` ORDER BY seq`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

func (s *SQLStore) GetQuestion(ctx context.Context, id string) (Question, error) {
	q, err := scanQuestion(s.db.QueryRowContext(ctx, `SELECT `+questionCols+` FROM questions WHERE id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Question{}, ErrQuestionNotFound
	}
	return q, err
}

func (s *SQLStore) UpdateQuestion(ctx context.Context, q Question) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		old, err := scanQuestion(tx.QueryRowContext(ctx, `SELECT `+questionCols+` FROM questions WHERE id=$1`, q.ID))
		if errors.Is(err, sql.ErrNoRows) {
			return ErrQuestionNotFound
		}
		if err != nil {
			return err
		}
		if !old.SameKey(q) {
			var one int
			err := tx.QueryRowContext(ctx, `SELECT 1 FROM quiz_questions WHERE question_id=$1 LIMIT 1`, q.ID).Scan(&one)
			if err == nil {
				return ErrBankInUse
			}
			if !errors.Is(err, sql.ErrNoRows) {
				return err
			}
		}
		_, err = tx.ExecContext(ctx,
			`UPDATE questions SET question=$1, a=$2, b=$3, c=$4, d=$5, answers=$6, tag=$7 WHERE id=$8`,
			q.Text, q.A, q.B, q.C, q.D, q.Answers.String(), q.Tag, q.ID)
		return err
	})
}

// ---- quizzes ----

func (s *SQLStore) CreateQuiz(ctx context.Context, qz Quiz, questionIDs []string) error {
	return s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `INSERT INTO quizzes (id, name, created_at) VALUES ($1,$2,$3)`,
			qz.ID, qz.Name, qz.CreatedAt); err != nil {
			return err
		}
		for i, qid := range questionIDs {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO quiz_questions (quiz_id, question_id, position) VALUES ($1,$2,$3)`,
				qz.ID, qid, i+1); err != nil {
				return err
			}
		}
		return nil
	})
}

const quizSelect = `SELECT q.id, q.name, q.created_at,
  (SELECT COUNT(*) FROM quiz_questions qq WHERE qq.quiz_id = q.id)
  FROM quizzes q`

func scanQuiz(r rowScanner) (Quiz, error) {
	var qz Quiz
	err := r.Scan(&qz.ID, &qz.Name, &qz.CreatedAt, &qz.QuestionCount)
	return qz, err
}

func (s *SQLStore) GetQuiz(ctx context.Context, id string) (Quiz, error) {
	qz, err := scanQuiz(s.db.QueryRowContext(ctx, quizSelect+` WHERE q.id=$1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return Quiz{}, ErrQuizNotFound
	}
	return qz, err
}

func (s *SQLStore) ListQuizzes(ctx context.Context) ([]Quiz, error) {
	rows, err := s.db.QueryContext(ctx, quizSelect+` ORDER BY q.created_at DESC, q.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Quiz{}
	for rows.Next() {
		qz, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, qz)
	}
	return out, rows.Err()
}

func (s *SQLStore) QuizQuestions(ctx context.Context, quizID string) ([]Question, error) {
	var one int
	if err := s.db.QueryRowContext(ctx, `SELECT 1 FROM quizzes WHERE id=$1`, quizID).Scan(&one); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrQuizNotFound
		}
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT q.id, q.seq, q.question, q.a, q.b, q.c, q.d, q.answers, q.tag
		   FROM quiz_questions qq
		   JOIN questions q ON q.id = qq.question_id
		  WHERE qq.quiz_id = $1
		  ORDER BY qq.position`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Question{}
	for rows.Next() {
		q, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// ---- students ----

func (s *SQLStore) UpsertStudent(ctx context.Context, st Student) (Student, error) {
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO students (student_id, username, created_at) VALUES ($1,$2,$3)
		 ON CONFLICT (username) DO NOTHING`,
		st.ID, st.Username, st.CreatedAt); err != nil {
		return Student{}, err
	}
	var out Student
	err := s.db.QueryRowContext(ctx,
		`SELECT student_id, username, created_at FROM students WHERE username=$1`, st.Username).
		Scan(&out.ID, &out.Username, &out.CreatedAt)
	return out, err
}

func (s *SQLStore) GetStudent(ctx context.Context, id string) (Student, error) {
	var out Student
	err := s.db.QueryRowContext(ctx,
		`SELECT student_id, username, created_at FROM students WHERE student_id=$1`, id).
		Scan(&out.ID, &out.Username, &out.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Student{}, ErrStudentNotFound
	}
	return out, err
}

// ---- attempts ----

const attemptCols = `id, student_id, quiz_id, completed, score, started_at, submitted_at`

func scanAttempt(r rowScanner) (Attempt, error) {
	var a Attempt
	var score sql.NullString
	var submitted sql.NullInt64
	if err := r.Scan(&a.ID, &a.StudentID, &a.QuizID, &a.Completed, &score, &a.StartedAt, &submitted); err != nil {
		return Attempt{}, err
	}
	a.Score = score.String
	a.SubmittedAt = submitted.Int64
	return a, nil
}

func getAttemptWhere(ctx context.Context, q queryer, where string, args ...any) (Attempt, error) {
	a, err := scanAttempt(q.QueryRowContext(ctx, `SELECT `+attemptCols+` FROM student_quiz_result WHERE `+where, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return Attempt{}, ErrAttemptNotFound
	}
	return a, err
}

// StartAttempt relies on UNIQUE(student_id, quiz_id): a concurrent creator
// loses the insert and reads back the winner's row.
func (s *SQLStore) StartAttempt(ctx context.Context, a Attempt, responses []Response) (got Attempt, created bool, err error) {
	err = s.withTx(ctx, func(tx *sql.Tx) error {
		existing, err := getAttemptWhere(ctx, tx, `student_id=$1 AND quiz_id=$2`, a.StudentID, a.QuizID)
		if err == nil {
			got = existing
			return nil
		}
		if !errors.Is(err, ErrAttemptNotFound) {
			return err
		}

		res, err := tx.ExecContext(ctx,
			`INSERT INTO student_quiz_result (id, student_id, quiz_id, completed, score, started_at)
			 VALUES ($1,$2,$3,$4,NULL,$5)
			 ON CONFLICT (student_id, quiz_id) DO NOTHING`,
			a.ID, a.StudentID, a.QuizID, false, a.StartedAt)
		if err != nil {
			return err
		}
		if n, _ := res.RowsAffected(); n == 0 {
			got, err = getAttemptWhere(ctx, tx, `student_id=$1 AND quiz_id=$2`, a.StudentID, a.QuizID)
			return err
		}
		for _, r := range responses {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO student_quiz_response (id, student_quiz_id, question_id, position, selected_option)
				 VALUES ($1,$2,$3,$4,$5)`,
				r.ID, a.ID, r.QuestionID, r.Position, r.Selected.String()); err != nil {
				return err
			}
		}
		got, created = a, true
		return nil
	})
	if err != nil {
		return Attempt{}, false, err
	}
	return got, created, nil
}

func (s *SQLStore) GetAttempt(ctx context.Context, id string) (Attempt, error) {
	return getAttemptWhere(ctx, s.db, `id=$1`, id)
}

func (s *SQLStore) ListAttempts(ctx context.Context, opts AttemptListOpts) ([]Attempt, error) {
	var where []string
	var args []any
	add := func(cond string, v any) {
		args = append(args, v)
		where = append(where, cond+"$"+strconv.Itoa(len(args)))
	}
	if opts.StudentID != "" {
		add("student_id=", opts.StudentID)
	}
	if opts.QuizID != "" {
		add("quiz_id=", opts.QuizID)
	}
	if opts.Completed != nil {
		add("completed=", *opts.Completed)
	}
	query := `SELECT ` + attemptCols + ` FROM student_quiz_result`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	args = append(args, opts.Limit, opts.Offset)
	query += ` ORDER BY started_at DESC, id LIMIT $` + strconv.Itoa(len(args)-1) + ` OFFSET $` + strconv.Itoa(len(args))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Attempt{}
	for rows.Next() {
		a, err := scanAttempt(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

func (s *SQLStore) AttemptResponses(ctx context.Context, attemptID string) ([]Response, error) {
	if _, err := s.GetAttempt(ctx, attemptID); err != nil {
		return nil, err
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, student_quiz_id, question_id, position, selected_option
		   FROM student_quiz_response
		  WHERE student_quiz_id=$1
		  ORDER BY position`, attemptID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []Response{}
	for rows.Next() {
		var r Response
		var sel string
		if err := rows.Scan(&r.ID, &r.AttemptID, &r.QuestionID, &r.Position, &sel); err != nil {
			return nil, err
		}
		r.Selected = Selection(sel)
		out = append(out, r)
	}
	return out, rows.Err()
}

// SaveResponse only touches rows of attempts that are still open.
func (s *SQLStore) SaveResponse(ctx context.Context, attemptID, questionID string, sel Selection) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE student_quiz_response SET selected_option=$1
		  WHERE student_quiz_id=$2 AND question_id=$3
		    AND EXISTS (SELECT 1 FROM student_quiz_result r WHERE r.id=$2 AND r.completed=$4)`,
		sel.String(), attemptID, questionID, false)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}
	a, err := s.GetAttempt(ctx, attemptID)
	if err != nil {
		return err
	}
	if a.Completed {
		return ErrAttemptCompleted
	}
	return ErrQuestionNotInAttempt
}

func (s *SQLStore) CompleteAttempt(ctx context.Context, attemptID, score string, submittedAt int64) (Attempt, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE student_quiz_result SET completed=$1, score=$2, submitted_at=$3
		  WHERE id=$4 AND completed=$5`,
		true, score, submittedAt, attemptID, false)
	if err != nil {
		return Attempt{}, err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		a, err := s.GetAttempt(ctx, attemptID)
		if err != nil {
			return Attempt{}, err
		}
		if a.Completed {
			return Attempt{}, ErrAttemptCompleted
		}
		return Attempt{}, errors.New("attempt update failed")
	}
	return s.GetAttempt(ctx, attemptID)
}

func placeholders(start, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = "$" + strconv.Itoa(start+i)
	}
	return strings.Join(parts, ",")
}
