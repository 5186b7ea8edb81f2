package fixture

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"gopkg.in/yaml.v3"

	"github.com/stemsi/exstem-quiz/internal/grading"
)

func TestLoadExam(t *testing.T) {
	exam, err := LoadExam("testdata/algebra.yaml")
	if err != nil {
		t.Fatalf("LoadExam: %v", err)
	}

	if exam.Title != "Algebra Basics" || exam.DurationSeconds != 900 {
		t.Fatalf("unexpected header: %+v", exam)
	}
	if got := exam.Threshold(60); got != 70 {
		t.Fatalf("expected threshold 70, got %v", got)
	}

	qs := exam.NormalizedQuestions()
	if len(qs) != 3 {
		t.Fatalf("expected 3 questions, got %d", len(qs))
	}

	if qs[0].ID != "1" || qs[0].CorrectAnswer != "4" || qs[0].Format != grading.FormatFillInBlank {
		t.Errorf("question 1 decoded wrong: %+v", qs[0])
	}

	labels := strings.Join(qs[1].Options.Labels(), ",")
	if labels != "D,A,C" {
		t.Errorf("option order not preserved: %s", labels)
	}
	if qs[1].Format != grading.FormatMultipleChoice || qs[1].Prompt != "Which of these is prime?" {
		t.Errorf("question 2 decoded wrong: %+v", qs[1])
	}

	if qs[2].ID != "q3" || qs[2].CorrectAnswer != "2.50" {
		t.Errorf("question 3 decoded wrong: %+v", qs[2])
	}
}

func TestGradeFixtures(t *testing.T) {
	exam, err := LoadExam("testdata/algebra.yaml")
	if err != nil {
		t.Fatalf("LoadExam: %v", err)
	}
	sub, err := LoadSubmission("testdata/algebra-answers.yaml")
	if err != nil {
		t.Fatalf("LoadSubmission: %v", err)
	}

	if sub.UserID != "alice" || sub.TimeTaken != 312 {
		t.Fatalf("unexpected submission header: %+v", sub)
	}
	if got := strings.Join(sub.AnswerList(), "|"); got != "4|7|2.50" {
		t.Fatalf("unexpected answers %q", got)
	}

	report := grading.Grade(exam.NormalizedQuestions(), sub.AnswerList(), exam.Threshold(60))
	if report.Verdict.CorrectCount != 3 || !report.Verdict.Passed {
		t.Fatalf("expected a full pass, got %+v", report.Verdict)
	}
}

func TestCreateRequest(t *testing.T) {
	tests := []struct {
		name        string
		doc         string
		wantPercent *float64
		wantMarks   *float64
	}{
		{name: "percentage", doc: "title: T\npassing_percentage: 55\nquestions: []", wantPercent: ptr(55)},
		{name: "marks only", doc: "title: T\npassing_marks: '40'\nquestions: []", wantMarks: ptr(40)},
		{name: "neither", doc: "title: T\nquestions: []"},
		{name: "unusable", doc: "title: T\npassing_percentage: lots\nquestions: []"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var e Exam
			if err := Decode(strings.NewReader(tc.doc), &e); err != nil {
				t.Fatalf("Decode: %v", err)
			}
			req := e.CreateRequest()
			if !equalPtr(req.PassingPercentage, tc.wantPercent) || !equalPtr(req.PassingMarks, tc.wantMarks) {
				t.Fatalf("got percentage=%v marks=%v", req.PassingPercentage, req.PassingMarks)
			}
		})
	}
}

func TestToJSON(t *testing.T) {
	tests := []struct {
		name string
		doc  string
		want string
	}{
		{name: "ordered mapping", doc: "b: 1\na: 2", want: `{"b":1,"a":2}`},
		{name: "scalars", doc: "[yes, true, null, ~, 1.50, 0x1F, hello]", want: `["yes",true,null,null,1.50,31,"hello"]`},
		{name: "alias", doc: "base: &b {x: 1}\ncopy: *b", want: `{"base":{"x":1},"copy":{"x":1}}`},
		{name: "quoted number stays string", doc: `v: "7"`, want: `{"v":"7"}`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var n yaml.Node
			if err := yaml.Unmarshal([]byte(tc.doc), &n); err != nil {
				t.Fatalf("yaml: %v", err)
			}
			got, err := ToJSON(&n)
			if err != nil {
				t.Fatalf("ToJSON: %v", err)
			}
			if string(got) != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}

func TestToJSONAliasExpansionLimit(t *testing.T) {
	var doc strings.Builder
	doc.WriteString("a0: &a0 [x, x, x, x, x, x, x, x, x, x]\n")
	for i := 1; i < 9; i++ {
		fmt.Fprintf(&doc, "a%d: &a%d [", i, i)
		for j := 0; j < 10; j++ {
			if j > 0 {
				doc.WriteString(", ")
			}
			fmt.Fprintf(&doc, "*a%d", i-1)
		}
		doc.WriteString("]\n")
	}

	var n yaml.Node
	if err := yaml.Unmarshal([]byte(doc.String()), &n); err != nil {
		t.Fatalf("yaml: %v", err)
	}
	if _, err := ToJSON(&n); !errors.Is(err, ErrTooManyNodes) {
		t.Fatalf("expected ErrTooManyNodes, got %v", err)
	}

	var e Exam
	if err := Decode(strings.NewReader(doc.String()), &e); !errors.Is(err, ErrTooManyNodes) {
		t.Fatalf("Decode: expected ErrTooManyNodes, got %v", err)
	}
}

func TestDecodeEmpty(t *testing.T) {
	var e Exam
	if err := Decode(strings.NewReader(""), &e); !errors.Is(err, ErrEmptyDocument) {
		t.Fatalf("expected ErrEmptyDocument, got %v", err)
	}
}

func TestLoadExamErrors(t *testing.T) {
	if _, err := LoadExam("testdata/missing.yaml"); err == nil {
		t.Fatal("expected error for missing file")
	}

	path := filepath.Join(t.TempDir(), "empty.yaml")
	if err := os.WriteFile(path, []byte("title: Nothing here\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadExam(path); err == nil || !strings.Contains(err.Error(), "no questions") {
		t.Fatalf("expected no questions error, got %v", err)
	}
}

func ptr(f float64) *float64 { return &f }

func equalPtr(a, b *float64) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}
