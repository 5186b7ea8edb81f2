// Package grading scores a submitted answer sheet against an exam's questions.
//
// Grading never fails: malformed questions are graded as wrong and missing
// answers count as blank, so a result can always be shown to the student.
package grading

import (
	"math"
	"strings"
)

// Result is the graded outcome of a single question.
type Result struct {
	ID            string  `json:"id"`
	Prompt        string  `json:"prompt"`
	UserAnswer    string  `json:"user_answer"`
	CorrectAnswer string  `json:"correct_answer"`
	IsCorrect     bool    `json:"is_correct"`
	Format        Format  `json:"format"`
	Options       Options `json:"options,omitempty"`
	ImageURL      string  `json:"image_url,omitempty"`
}

// Verdict is the aggregate score of a graded exam.
type Verdict struct {
	CorrectCount int  `json:"correct_count"`
	TotalCount   int  `json:"total_count"`
	Percentage   int  `json:"percentage"`
	Passed       bool `json:"passed"`
}

// WrongCount returns the number of questions not answered correctly.
func (v Verdict) WrongCount() int {
	return v.TotalCount - v.CorrectCount
}

// Label returns "Pass" or "Fail".
func (v Verdict) Label() string {
	if v.Passed {
		return "Pass"
	}
	return "Fail"
}

// Report bundles the per-question results with the verdict.
type Report struct {
	Results []Result `json:"results"`
	Verdict Verdict  `json:"verdict"`
}

// Grade scores answers against questions. answers is index-aligned with
// questions; missing entries are treated as blank. A negative or NaN
// threshold falls back to DefaultPassingThreshold.
func Grade(questions []Question, answers []string, passingThreshold float64) Report {
	results := make([]Result, len(questions))
	correct := 0

	for i, q := range questions {
		var answer string
		if i < len(answers) {
			answer = answers[i]
		}

		results[i] = gradeQuestion(q, answer)
		if results[i].IsCorrect {
			correct++
		}
	}

	return Report{
		Results: results,
		Verdict: NewVerdict(correct, len(questions), ResolveThreshold(passingThreshold, DefaultPassingThreshold)),
	}
}

// NewVerdict derives percentage and pass/fail from raw counts.
func NewVerdict(correct, total int, threshold float64) Verdict {
	pct := Percentage(correct, total)
	return Verdict{
		CorrectCount: correct,
		TotalCount:   total,
		Percentage:   pct,
		Passed:       float64(pct) >= threshold,
	}
}

// Percentage rounds correct/total to a whole percent, half up. Zero questions
// score 0.
func Percentage(correct, total int) int {
	if total <= 0 {
		return 0
	}
	pct := int(math.Floor(float64(correct)*100/float64(total) + 0.5))
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	}
	return pct
}

func gradeQuestion(q Question, answer string) Result {
	user := strings.TrimSpace(answer)
	res := Result{
		ID:         q.ID,
		Prompt:     q.Prompt,
		UserAnswer: user,
		Format:     q.Format,
		Options:    q.Options,
		ImageURL:   q.ImageURL,
	}

	if effectiveFormat(q) == FormatMultipleChoice {
		expected := resolveChoice(q)
		res.CorrectAnswer = expected
		res.IsCorrect = user != "" && user == strings.TrimSpace(expected)
		return res
	}

	expected := firstNonEmpty(q.CorrectAnswer, q.CorrectOption)
	res.CorrectAnswer = expected
	res.IsCorrect = matchText(user, expected)
	return res
}

// effectiveFormat collapses image questions onto the format they grade as.
func effectiveFormat(q Question) Format {
	switch q.Format {
	case FormatFillInBlank:
		return FormatFillInBlank
	case FormatImageBased:
		if len(q.Options) > 0 {
			return FormatMultipleChoice
		}
		return FormatFillInBlank
	default:
		return FormatMultipleChoice
	}
}

// resolveChoice returns the option text the student must have picked. The
// correct answer is looked up as a label first, then the legacy correctOption
// label, and finally taken literally.
func resolveChoice(q Question) string {
	if len(q.Options) > 0 {
		if text, ok := q.Options.Lookup(q.CorrectAnswer); ok {
			return text
		}
		if text, ok := q.Options.Lookup(q.CorrectOption); ok {
			return text
		}
	}
	return firstNonEmpty(q.CorrectAnswer, q.CorrectOption)
}

// matchText compares free-text answers case-insensitively. A blank answer
// never matches, even against a blank key.
func matchText(user, expected string) bool {
	u := normalizeText(user)
	if u == "" {
		return false
	}
	return u == normalizeText(expected)
}

func normalizeText(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
