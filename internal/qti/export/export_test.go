package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"io"
	"strings"
	"testing"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

func readZip(t *testing.T, data []byte) map[string][]byte {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatal(err)
	}
	out := map[string][]byte{}
	for _, f := range zr.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatal(err)
		}
		b, _ := io.ReadAll(rc)
		rc.Close()
		out[f.Name] = b
	}
	return out
}

func TestBuildPackage(t *testing.T) {
	qz := quiz.Quiz{ID: "qz1", Name: "Week <1>"}
	qs := []quiz.Question{
		{ID: "1a", Text: "2 < 3?", A: "yes", B: "no", Answers: "A", Tag: "math"},
		{ID: "2b", Text: "Primes", A: "2", B: "4", C: "3", D: "9", Answers: "AC"},
	}
	data, err := BuildPackage(qz, qs)
	if err != nil {
		t.Fatal(err)
	}
	files := readZip(t, data)
	for _, name := range []string{"imsmanifest.xml", "assessment.xml", "item-1a.xml", "item-2b.xml"} {
		if _, ok := files[name]; !ok {
			t.Fatalf("missing %s in %v", name, files)
		}
	}

	var single assessmentItem
	if err := xml.Unmarshal(files["item-1a.xml"], &single); err != nil {
		t.Fatal(err)
	}
	if single.Response.Cardinality != "single" || single.Body.Choice.MaxChoices != 1 {
		t.Fatalf("single item = %+v", single)
	}
	if single.Body.Prompt != "2 < 3?" || len(single.Body.Choice.Choices) != 2 {
		t.Fatalf("single body = %+v", single.Body)
	}
	if single.Label != "math" {
		t.Fatalf("label = %q", single.Label)
	}

	var multi assessmentItem
	if err := xml.Unmarshal(files["item-2b.xml"], &multi); err != nil {
		t.Fatal(err)
	}
	if multi.Response.Cardinality != "multiple" || strings.Join(multi.Response.Correct, "") != "AC" {
		t.Fatalf("multi response = %+v", multi.Response)
	}

	var test assessmentTest
	if err := xml.Unmarshal(files["assessment.xml"], &test); err != nil {
		t.Fatal(err)
	}
	items := test.Part.Section.Items
	if test.Title != "Week <1>" || len(items) != 2 || items[0].Identifier != "item-1a" || items[1].Identifier != "item-2b" {
		t.Fatalf("test = %+v", test)
	}

	var mf imsManifest
	if err := xml.Unmarshal(files["imsmanifest.xml"], &mf); err != nil {
		t.Fatal(err)
	}
	if len(mf.Resources) != 3 || len(mf.Resources[2].Deps) != 2 {
		t.Fatalf("manifest = %+v", mf)
	}
}
