package grading

import (
	"math"
	"reflect"
	"testing"
)

func capitals() Options {
	return Options{{Label: "A", Text: "Paris"}, {Label: "B", Text: "Rome"}}
}

func TestGrade_MultipleChoice(t *testing.T) {
	tests := []struct {
		name     string
		q        Question
		answer   string
		correct  bool
		resolved string
	}{
		{name: "label resolves to text", q: Question{Format: FormatMultipleChoice, Options: capitals(), CorrectAnswer: "A"}, answer: "Paris", correct: true, resolved: "Paris"},
		{name: "label itself is wrong", q: Question{Format: FormatMultipleChoice, Options: capitals(), CorrectAnswer: "A"}, answer: "A", correct: false, resolved: "Paris"},
		{name: "other option wrong", q: Question{Format: FormatMultipleChoice, Options: capitals(), CorrectAnswer: "A"}, answer: "Rome", correct: false, resolved: "Paris"},
		{name: "answer trimmed", q: Question{Format: FormatMultipleChoice, Options: capitals(), CorrectAnswer: "B"}, answer: "  Rome ", correct: true, resolved: "Rome"},
		{name: "case sensitive", q: Question{Format: FormatMultipleChoice, Options: capitals(), CorrectAnswer: "A"}, answer: "paris", correct: false, resolved: "Paris"},
		{name: "legacy correctOption label", q: Question{Format: FormatMultipleChoice, Options: capitals(), CorrectAnswer: "Rome?", CorrectOption: "B"}, answer: "Rome", correct: true, resolved: "Rome"},
		{name: "correctAnswer label wins over correctOption", q: Question{Format: FormatMultipleChoice, Options: capitals(), CorrectAnswer: "A", CorrectOption: "B"}, answer: "Paris", correct: true, resolved: "Paris"},
		{name: "literal option text", q: Question{Format: FormatMultipleChoice, Options: capitals(), CorrectAnswer: "Rome"}, answer: "Rome", correct: true, resolved: "Rome"},
		{name: "missing options direct compare", q: Question{Format: FormatMultipleChoice, CorrectAnswer: "42"}, answer: "42", correct: true, resolved: "42"},
		{name: "missing options legacy alias", q: Question{Format: FormatMultipleChoice, CorrectOption: "42"}, answer: "42", correct: true, resolved: "42"},
		{name: "blank answer", q: Question{Format: FormatMultipleChoice, Options: capitals(), CorrectAnswer: "A"}, answer: "", correct: false, resolved: "Paris"},
		{name: "unresolvable key", q: Question{Format: FormatMultipleChoice, Options: capitals()}, answer: "Paris", correct: false, resolved: ""},
		{name: "blank against blank", q: Question{Format: FormatMultipleChoice}, answer: "  ", correct: false, resolved: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Grade([]Question{tc.q}, []string{tc.answer}, 60)
			r := got.Results[0]
			if r.IsCorrect != tc.correct {
				t.Fatalf("expected is_correct=%v, got=%v", tc.correct, r.IsCorrect)
			}
			if r.CorrectAnswer != tc.resolved {
				t.Fatalf("expected correct_answer=%q, got=%q", tc.resolved, r.CorrectAnswer)
			}
		})
	}
}

func TestGrade_FillInBlank(t *testing.T) {
	tests := []struct {
		name    string
		key     string
		alias   string
		answer  string
		correct bool
	}{
		{name: "exact", key: "Paris", answer: "Paris", correct: true},
		{name: "case and space insensitive", key: " Paris", answer: "paris  ", correct: true},
		{name: "wrong", key: "Paris", answer: "Rome", correct: false},
		{name: "blank answer", key: "Paris", answer: "", correct: false},
		{name: "blank against blank", key: "   ", answer: " ", correct: false},
		{name: "legacy alias", alias: "Paris", answer: "PARIS", correct: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			q := Question{Format: FormatFillInBlank, CorrectAnswer: tc.key, CorrectOption: tc.alias}
			got := Grade([]Question{q}, []string{tc.answer}, 60)
			if got.Results[0].IsCorrect != tc.correct {
				t.Fatalf("expected is_correct=%v, got=%v", tc.correct, got.Results[0].IsCorrect)
			}
		})
	}
}

func TestGrade_ImageBased(t *testing.T) {
	withOptions := Question{Format: FormatImageBased, Options: capitals(), CorrectAnswer: "B", ImageURL: "/uploads/map.png"}
	got := Grade([]Question{withOptions}, []string{"Rome"}, 60)
	if !got.Results[0].IsCorrect {
		t.Fatal("expected image question with options to grade as multiple choice")
	}
	if got.Results[0].ImageURL != "/uploads/map.png" {
		t.Fatalf("expected image url carried through, got %q", got.Results[0].ImageURL)
	}

	// Without options the comparison is the lenient free-text one.
	textual := Question{Format: FormatImageBased, CorrectAnswer: "Eiffel Tower"}
	got = Grade([]Question{textual}, []string{"eiffel tower"}, 60)
	if !got.Results[0].IsCorrect {
		t.Fatal("expected image question without options to grade as fill in the blank")
	}
}

func TestGrade_MisalignedAnswers(t *testing.T) {
	questions := []Question{
		{ID: "1", Format: FormatFillInBlank, CorrectAnswer: "a"},
		{ID: "2", Format: FormatFillInBlank, CorrectAnswer: "b"},
		{ID: "3", Format: FormatFillInBlank, CorrectAnswer: "c"},
	}

	got := Grade(questions, []string{"a"}, 60)
	if len(got.Results) != 3 {
		t.Fatalf("expected 3 results, got %d", len(got.Results))
	}
	for _, r := range got.Results[1:] {
		if r.IsCorrect || r.UserAnswer != "" {
			t.Fatalf("expected missing answer graded blank and wrong, got %+v", r)
		}
	}

	got = Grade(questions[:1], []string{"a", "b", "c"}, 60)
	if got.Verdict.TotalCount != 1 || got.Verdict.CorrectCount != 1 {
		t.Fatalf("expected extra answers ignored, got %+v", got.Verdict)
	}
}

func TestGrade_EndToEnd(t *testing.T) {
	questions := NormalizeAll([]RawQuestion{
		{ID: "q1", Type: "MultipleChoice", Options: Options{{Label: "A", Text: "4"}, {Label: "B", Text: "5"}}, CorrectAnswer: "A"},
		{ID: "q2", Type: "FillInBlank", CorrectAnswer: "Paris"},
	})

	got := Grade(questions, []string{"4", "paris"}, 60)

	if !got.Results[0].IsCorrect || !got.Results[1].IsCorrect {
		t.Fatalf("expected both correct, got %+v", got.Results)
	}
	want := Verdict{CorrectCount: 2, TotalCount: 2, Percentage: 100, Passed: true}
	if got.Verdict != want {
		t.Fatalf("expected verdict %+v, got %+v", want, got.Verdict)
	}
}

func TestGrade_Deterministic(t *testing.T) {
	questions := []Question{
		{ID: "1", Format: FormatMultipleChoice, Options: capitals(), CorrectAnswer: "A"},
		{ID: "2", Format: FormatFillInBlank, CorrectAnswer: "x"},
	}
	answers := []string{"Paris", "y"}

	first := Grade(questions, answers, 50)
	second := Grade(questions, answers, 50)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected identical reports, got %+v and %+v", first, second)
	}
}

func TestVerdict(t *testing.T) {
	tests := []struct {
		name      string
		correct   int
		total     int
		threshold float64
		pct       int
		passed    bool
	}{
		{name: "zero questions", correct: 0, total: 0, threshold: 60, pct: 0, passed: false},
		{name: "zero questions zero threshold", correct: 0, total: 0, threshold: 0, pct: 0, passed: true},
		{name: "exact threshold passes", correct: 3, total: 5, threshold: 60, pct: 60, passed: true},
		{name: "below threshold", correct: 1, total: 2, threshold: 60, pct: 50, passed: false},
		{name: "round half up", correct: 1, total: 8, threshold: 60, pct: 13, passed: false},
		{name: "round down", correct: 1, total: 3, threshold: 30, pct: 33, passed: true},
		{name: "two thirds", correct: 2, total: 3, threshold: 67, pct: 67, passed: true},
		{name: "full marks", correct: 7, total: 7, threshold: 100, pct: 100, passed: true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			v := NewVerdict(tc.correct, tc.total, tc.threshold)
			if v.Percentage != tc.pct {
				t.Fatalf("expected percentage=%d, got=%d", tc.pct, v.Percentage)
			}
			if v.Passed != tc.passed {
				t.Fatalf("expected passed=%v, got=%v", tc.passed, v.Passed)
			}
			if v.Passed != (float64(v.Percentage) >= tc.threshold) {
				t.Fatal("passed disagrees with percentage >= threshold")
			}
		})
	}
}

func TestPercentageBounds(t *testing.T) {
	for total := 0; total <= 25; total++ {
		for correct := 0; correct <= total; correct++ {
			p := Percentage(correct, total)
			if p < 0 || p > 100 {
				t.Fatalf("percentage(%d, %d) = %d out of bounds", correct, total, p)
			}
		}
	}
}

func TestGrade_ThresholdFallback(t *testing.T) {
	questions := []Question{{Format: FormatFillInBlank, CorrectAnswer: "a"}, {Format: FormatFillInBlank, CorrectAnswer: "b"}}

	got := Grade(questions, []string{"a", ""}, math.NaN())
	if got.Verdict.Passed {
		t.Fatal("expected 50% to fail against the default threshold")
	}

	got = Grade(questions, []string{"a", ""}, 50)
	if !got.Verdict.Passed {
		t.Fatal("expected 50% to pass a threshold of 50")
	}
	if got.Verdict.WrongCount() != 1 || got.Verdict.Label() != "Pass" {
		t.Fatalf("unexpected verdict helpers: wrong=%d label=%s", got.Verdict.WrongCount(), got.Verdict.Label())
	}
}
