package quiz

import "strings"

// Letters lists the option slots a question can offer, in display order.
const Letters = "ABCD"

type Question struct {
	ID      string    `json:"id"`
	Text    string    `json:"question"`
	A       string    `json:"a"`
	B       string    `json:"b"`
	C       string    `json:"c"`
	D       string    `json:"d"`
	Answers Selection `json:"answers"`
	Tag     string    `json:"tag"`
	Seq     int64     `json:"-"` // storage order
}

// SameKey reports whether q and o have identical options and answers.
func (q Question) SameKey(o Question) bool {
	return q.A == o.A && q.B == o.B && q.C == o.C && q.D == o.D && q.Answers == o.Answers
}

// Option returns the text for letter A-D, or "" for anything else.
func (q Question) Option(letter byte) string {
	switch letter {
	case 'A':
		return q.A
	case 'B':
		return q.B
	case 'C':
		return q.C
	case 'D':
		return q.D
	}
	return ""
}

// Options returns the non-empty options in letter order.
func (q Question) Options() []Option {
	out := make([]Option, 0, len(Letters))
	for i := 0; i < len(Letters); i++ {
		if txt := q.Option(Letters[i]); txt != "" {
			out = append(out, Option{Letter: string(Letters[i]), Text: txt})
		}
	}
	return out
}

// Accepts reports an error when sel names an option this question does not offer.
func (q Question) Accepts(sel Selection) error {
	for i := 0; i < len(sel); i++ {
		if q.Option(sel[i]) == "" {
			return errorf(ErrInvalidSelection, "option %c is empty", sel[i])
		}
	}
	return nil
}

// Validate checks the invariants every stored question must hold.
func (q Question) Validate() error {
	if strings.TrimSpace(q.Text) == "" {
		return errorf(ErrInvalidQuestion, "question text is empty")
	}
	if q.Answers.Len() == 0 {
		return errorf(ErrInvalidQuestion, "no correct answer")
	}
	if err := q.Accepts(q.Answers); err != nil {
		return errorf(ErrInvalidQuestion, "answer %s references an empty option", q.Answers)
	}
	return nil
}

// Public strips the answer key for delivery to students.
func (q Question) Public() PublicQuestion {
	return PublicQuestion{ID: q.ID, Text: q.Text, Tag: q.Tag, Options: q.Options(), Multi: q.Answers.Len() > 1}
}

type Option struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
}

type PublicQuestion struct {
	ID      string   `json:"id"`
	Text    string   `json:"question"`
	Tag     string   `json:"tag,omitempty"`
	Options []Option `json:"options"`
	Multi   bool     `json:"multi"` // more than one option is correct
}

type Quiz struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	QuestionCount int    `json:"question_count"`
	CreatedAt     int64  `json:"created_at,omitempty"`
}

type Student struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	CreatedAt int64  `json:"created_at,omitempty"`
}

type Attempt struct {
	ID          string `json:"id"`
	StudentID   string `json:"student_id"`
	QuizID      string `json:"quiz_id"`
	Completed   bool   `json:"completed"`
	Score       string `json:"score,omitempty"` // "<value>/<n>" once completed
	StartedAt   int64  `json:"started_at"`
	SubmittedAt int64  `json:"submitted_at,omitempty"`
}

type Response struct {
	ID         string    `json:"id"`
	AttemptID  string    `json:"attempt_id"`
	QuestionID string    `json:"question_id"`
	Position   int       `json:"position"`
	Selected   Selection `json:"selected"`
}

// AttemptQuestion is what a student sees at one position of an attempt.
type AttemptQuestion struct {
	AttemptID string         `json:"attempt_id"`
	Position  int            `json:"position"`
	Total     int            `json:"total"`
	IsLast    bool           `json:"is_last"`
	Question  PublicQuestion `json:"question"`
	Selected  Selection      `json:"selected"`
}

// Mark classifies one option in a graded result.
type Mark string

const (
	MarkCorrectSelected   Mark = "correct_selected"
	MarkCorrectMissed     Mark = "correct_missed"
	MarkIncorrectSelected Mark = "incorrect_selected"
	MarkNone              Mark = "none"
)

type OptionResult struct {
	Letter string `json:"letter"`
	Text   string `json:"text"`
	Mark   Mark   `json:"mark"`
}

type QuestionResult struct {
	QuestionID string         `json:"question_id"`
	Position   int            `json:"position"`
	Text       string         `json:"question"`
	Tag        string         `json:"tag,omitempty"`
	Selected   Selection      `json:"selected"`
	Answers    Selection      `json:"answers"`
	Credit     float64        `json:"credit"`
	Options    []OptionResult `json:"options"`
}

type Result struct {
	AttemptID string           `json:"attempt_id"`
	QuizID    string           `json:"quiz_id"`
	QuizName  string           `json:"quiz_name"`
	Score     string           `json:"score"`
	Completed bool             `json:"completed"`
	Questions []QuestionResult `json:"questions"`
}

type AttemptListOpts struct {
	StudentID string
	QuizID    string
	Completed *bool
	Limit     int
	Offset    int
}

// ImportRow is one spreadsheet row after header normalisation.
type ImportRow struct {
	Question string
	A        string
	B        string
	C        string
	D        string
	Answers  string
	Tag      string
}

type ImportMode string

const (
	ImportAppend  ImportMode = "append"
	ImportReplace ImportMode = "replace"
)

func ParseImportMode(s string) (ImportMode, error) {
	switch ImportMode(strings.ToLower(strings.TrimSpace(s))) {
	case ImportAppend:
		return ImportAppend, nil
	case ImportReplace:
		return ImportReplace, nil
	}
	return "", errorf(ErrInvalidImportFormat, "unknown import mode %q", s)
}

type Direction int

const (
	Next Direction = iota + 1
	Previous
)

func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "next":
		return Next, nil
	case "previous", "prev":
		return Previous, nil
	}
	return 0, errorf(ErrOutOfRange, "unknown direction %q", s)
}

func (d Direction) String() string {
	switch d {
	case Next:
		return "next"
	case Previous:
		return "previous"
	}
	return "unknown"
}
