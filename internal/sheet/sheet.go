// Package sheet converts between question spreadsheets (xlsx, csv) and the
// question bank.
package sheet

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

// Header is the column order written on export.
var Header = []string{"Question", "A", "B", "C", "D", "Answers", "Tag"}

var required = []string{"question", "a", "b", "c", "d"}

// Supported reports whether filename has an importable extension.
func Supported(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".csv":
		return true
	}
	return false
}

// Parse reads the first sheet of an xlsx workbook, or a csv file, into rows.
func Parse(filename string, data []byte) ([]quiz.ImportRow, error) {
	var (
		records [][]string
		err     error
	)
	switch ext := strings.ToLower(filepath.Ext(filename)); ext {
	case ".xlsx":
		records, err = readXLSX(data)
	case ".csv":
		records, err = readCSV(data)
	default:
		return nil, fmt.Errorf("%w: unsupported file type %q", quiz.ErrInvalidImportFormat, ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", quiz.ErrInvalidImportFormat, err)
	}
	return mapRows(records)
}

// NormalizeHeader trims a column name, joins inner whitespace with "_" and
// lowercases it: " Correct  Answers " -> "correct_answers".
func NormalizeHeader(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), "_"))
}

func readXLSX(data []byte) ([][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("workbook has no sheets")
	}
	return f.GetRows(sheets[0])
}

func readCSV(data []byte) ([][]string, error) {
	cr := csv.NewReader(bytes.NewReader(data))
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1
	var out [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func mapRows(records [][]string) ([]quiz.ImportRow, error) {
	if len(records) == 0 {
		return nil, fmt.Errorf("%w: empty sheet", quiz.ErrInvalidImportFormat)
	}
	idx := map[string]int{}
	for i, h := range records[0] {
		// spreadsheet tools prefix csv exports with a UTF-8 BOM
		idx[NormalizeHeader(strings.TrimPrefix(h, "\ufeff"))] = i
	}
	for _, k := range required {
		if _, ok := idx[k]; !ok {
			return nil, fmt.Errorf("%w: missing column %q", quiz.ErrInvalidImportFormat, k)
		}
	}
	cell := func(rec []string, col string) string {
		i, ok := idx[col]
		if !ok || i >= len(rec) {
			return ""
		}
		return rec[i]
	}

	out := make([]quiz.ImportRow, 0, len(records)-1)
	for _, rec := range records[1:] {
		if blank(rec) {
			continue
		}
		out = append(out, quiz.ImportRow{
			Question: cell(rec, "question"),
			A:        cell(rec, "a"),
			B:        cell(rec, "b"),
			C:        cell(rec, "c"),
			D:        cell(rec, "d"),
			Answers:  cell(rec, "answers"),
			Tag:      cell(rec, "tag"),
		})
	}
	return out, nil
}

func blank(rec []string) bool {
	for _, c := range rec {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// Records renders questions as export rows, header first.
func Records(qs []quiz.Question) [][]string {
	out := make([][]string, 0, len(qs)+1)
	out = append(out, append([]string(nil), Header...))
	for _, q := range qs {
		out = append(out, []string{q.Text, q.A, q.B, q.C, q.D, q.Answers.String(), q.Tag})
	}
	return out
}

// WriteXLSX serialises questions into a single-sheet workbook.
func WriteXLSX(qs []quiz.Question) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	const name = "Questions"
	if err := f.SetSheetName(f.GetSheetName(0), name); err != nil {
		return nil, err
	}
	for i, rec := range Records(qs) {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return nil, err
		}
		row := make([]interface{}, len(rec))
		for j, v := range rec {
			row[j] = v
		}
		if err := f.SetSheetRow(name, cell, &row); err != nil {
			return nil, err
		}
	}
	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// WriteCSV serialises questions as csv with the export header.
func WriteCSV(w io.Writer, qs []quiz.Question) error {
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(Records(qs)); err != nil {
		return err
	}
	return cw.Error()
}
