package export

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"

	"github.com/mind-engage/mindengage-quiz/internal/quiz"
)

const (
	nsQTI      = "http://www.imsglobal.org/xsd/imsqti_v2p1"
	nsCP       = "http://www.imsglobal.org/xsd/imscp_v1p1"
	typeItem   = "imsqti_item_xmlv2p1"
	typeTest   = "imsqti_test_xmlv2p1"
	testHref   = "assessment.xml"
	respIdent  = "RESPONSE"
	multiLimit = 0 // maxChoices=0 means unlimited
)

// BuildPackage writes a QTI 2.1 content package: one choiceInteraction item
// per question, an assessmentTest keeping link order, and imsmanifest.xml.
func BuildPackage(qz quiz.Quiz, questions []quiz.Question) ([]byte, error) {
	buf := new(bytes.Buffer)
	zw := zip.NewWriter(buf)

	mf := imsManifest{Xmlns: nsCP, Identifier: "manifest-" + qz.ID}
	test := assessmentTest{
		Xmlns:      nsQTI,
		Identifier: "test-" + qz.ID,
		Title:      qz.Name,
		Part: testPart{
			Identifier:     "part-1",
			NavigationMode: "linear",
			SubmissionMode: "simultaneous",
			Section:        assessmentSection{Identifier: "section-1", Title: qz.Name, Visible: true},
		},
	}
	testRes := imsResource{Identifier: test.Identifier, Type: typeTest, Href: testHref, Files: []imsFile{{Href: testHref}}}

	for i, q := range questions {
		ident := ItemIdentifier(q.ID)
		href := ident + ".xml"
		if err := writeXML(zw, href, buildItem(ident, i+1, q)); err != nil {
			return nil, err
		}
		mf.Resources = append(mf.Resources, imsResource{
			Identifier: ident,
			Type:       typeItem,
			Href:       href,
			Files:      []imsFile{{Href: href}},
		})
		test.Part.Section.Items = append(test.Part.Section.Items, itemRef{Identifier: ident, Href: href})
		testRes.Deps = append(testRes.Deps, imsDependency{IdentifierRef: ident})
	}
	if err := writeXML(zw, testHref, test); err != nil {
		return nil, err
	}
	mf.Resources = append(mf.Resources, testRes)
	if err := writeXML(zw, "imsmanifest.xml", mf); err != nil {
		return nil, err
	}
	if err := zw.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// ItemIdentifier turns a question id into a valid QTI identifier (ids may
// start with a digit, identifiers may not).
func ItemIdentifier(questionID string) string { return "item-" + questionID }

func writeXML(zw *zip.Writer, name string, v any) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return enc.Flush()
}

func buildItem(ident string, position int, q quiz.Question) assessmentItem {
	card, max := "single", 1
	if q.Answers.Len() > 1 {
		card, max = "multiple", multiLimit
	}
	item := assessmentItem{
		Xmlns:      nsQTI,
		Identifier: ident,
		Title:      fmt.Sprintf("Question %d", position),
		Response: responseDeclaration{
			Identifier:  respIdent,
			Cardinality: card,
			BaseType:    "identifier",
			Correct:     q.Answers.Letters(),
		},
		Body: itemBody{
			Prompt: q.Text,
			Choice: choiceInteraction{ResponseIdentifier: respIdent, MaxChoices: max},
		},
	}
	if q.Tag != "" {
		item.Label = q.Tag
	}
	for _, o := range q.Options() {
		item.Body.Choice.Choices = append(item.Body.Choice.Choices, simpleChoice{Identifier: o.Letter, Text: o.Text})
	}
	return item
}

// --- manifest ---

type imsManifest struct {
	XMLName    xml.Name      `xml:"manifest"`
	Xmlns      string        `xml:"xmlns,attr,omitempty"`
	Identifier string        `xml:"identifier,attr"`
	Resources  []imsResource `xml:"resources>resource"`
}
type imsResource struct {
	Identifier string          `xml:"identifier,attr"`
	Type       string          `xml:"type,attr"`
	Href       string          `xml:"href,attr"`
	Files      []imsFile       `xml:"file"`
	Deps       []imsDependency `xml:"dependency"`
}
type imsFile struct {
	Href string `xml:"href,attr"`
}
type imsDependency struct {
	IdentifierRef string `xml:"identifierref,attr"`
}

// --- items ---

type assessmentItem struct {
	XMLName    xml.Name            `xml:"assessmentItem"`
	Xmlns      string              `xml:"xmlns,attr"`
	Identifier string              `xml:"identifier,attr"`
	Title      string              `xml:"title,attr"`
	Label      string              `xml:"label,attr,omitempty"`
	Response   responseDeclaration `xml:"responseDeclaration"`
	Body       itemBody            `xml:"itemBody"`
}
type responseDeclaration struct {
	Identifier  string   `xml:"identifier,attr"`
	Cardinality string   `xml:"cardinality,attr"`
	BaseType    string   `xml:"baseType,attr"`
	Correct     []string `xml:"correctResponse>value"`
}
type itemBody struct {
	Prompt string            `xml:"p"`
	Choice choiceInteraction `xml:"choiceInteraction"`
}
type choiceInteraction struct {
	ResponseIdentifier string         `xml:"responseIdentifier,attr"`
	Shuffle            bool           `xml:"shuffle,attr"`
	MaxChoices         int            `xml:"maxChoices,attr"`
	Choices            []simpleChoice `xml:"simpleChoice"`
}
type simpleChoice struct {
	Identifier string `xml:"identifier,attr"`
	Text       string `xml:",chardata"`
}

// --- test ---

type assessmentTest struct {
	XMLName    xml.Name `xml:"assessmentTest"`
	Xmlns      string   `xml:"xmlns,attr"`
	Identifier string   `xml:"identifier,attr"`
	Title      string   `xml:"title,attr"`
	Part       testPart `xml:"testPart"`
}
type testPart struct {
	Identifier     string            `xml:"identifier,attr"`
	NavigationMode string            `xml:"navigationMode,attr"`
	SubmissionMode string            `xml:"submissionMode,attr"`
	Section        assessmentSection `xml:"assessmentSection"`
}
type assessmentSection struct {
	Identifier string    `xml:"identifier,attr"`
	Title      string    `xml:"title,attr"`
	Visible    bool      `xml:"visible,attr"`
	Items      []itemRef `xml:"assessmentItemRef"`
}
type itemRef struct {
	Identifier string `xml:"identifier,attr"`
	Href       string `xml:"href,attr"`
}
