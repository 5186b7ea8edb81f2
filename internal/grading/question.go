package grading

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"
)

// Format enumerates the supported answer formats.
type Format string

const (
	FormatMultipleChoice Format = "multiple_choice"
	FormatFillInBlank    Format = "fill_in_blank"
	FormatImageBased     Format = "image_based"
)

// formatAliases covers both explicit type values and the legacy answerType strings.
// Keys are lowercased with spaces, underscores and hyphens removed.
var formatAliases = map[string]Format{
	"multiplechoice": FormatMultipleChoice,
	"mcq":            FormatMultipleChoice,
	"options":        FormatMultipleChoice,
	"choice":         FormatMultipleChoice,
	"fillinblank":    FormatFillInBlank,
	"fillintheblank": FormatFillInBlank,
	"freetext":       FormatFillInBlank,
	"text":           FormatFillInBlank,
	"shortanswer":    FormatFillInBlank,
	"imagebased":     FormatImageBased,
	"image":          FormatImageBased,
}

// ParseFormat resolves a format name in any of the spellings seen in stored exams.
func ParseFormat(s string) (Format, bool) {
	key := strings.Map(func(r rune) rune {
		switch r {
		case ' ', '_', '-':
			return -1
		}
		return r
	}, strings.ToLower(strings.TrimSpace(s)))

	f, ok := formatAliases[key]
	return f, ok
}

// Question is the canonical question shape the grader works on.
type Question struct {
	ID            string  `json:"id"`
	Prompt        string  `json:"prompt"`
	Format        Format  `json:"format"`
	Options       Options `json:"options,omitempty"`
	CorrectAnswer string  `json:"correct_answer"`
	CorrectOption string  `json:"correct_option,omitempty"`
	ImageURL      string  `json:"image_url,omitempty"`
}

// Scalar is a JSON value that may arrive as a string, a number or a boolean.
// Objects, arrays and null decode to the empty string.
type Scalar string

// UnmarshalJSON implements json.Unmarshaler.
func (s *Scalar) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v interface{}
	if err := dec.Decode(&v); err != nil {
		*s = ""
		return nil
	}

	switch t := v.(type) {
	case string:
		*s = Scalar(t)
	case json.Number:
		*s = Scalar(t.String())
	case bool:
		*s = Scalar(strconv.FormatBool(t))
	default:
		*s = ""
	}
	return nil
}

// RawQuestion is a question as exams in the wild store it: several historical
// field names for the same value, ids and answers that may be numbers.
type RawQuestion struct {
	ID            Scalar  `json:"id"`
	Question      string  `json:"question,omitempty"`
	QuestionText  string  `json:"questionText,omitempty"`
	Prompt        string  `json:"prompt,omitempty"`
	Type          string  `json:"type,omitempty"`
	AnswerType    string  `json:"answerType,omitempty"`
	Options       Options `json:"options,omitempty"`
	CorrectAnswer Scalar  `json:"correctAnswer,omitempty"`
	Answer        Scalar  `json:"answer,omitempty"`
	CorrectOption Scalar  `json:"correctOption,omitempty"`
	Image         string  `json:"image,omitempty"`
	ImageURL      string  `json:"imageUrl,omitempty"`
}

// Normalize maps a raw question onto the canonical Question. The format comes
// from the explicit type first, then the legacy answerType, then defaults to
// multiple choice.
func Normalize(raw RawQuestion) Question {
	return Question{
		ID:            strings.TrimSpace(string(raw.ID)),
		Prompt:        firstNonEmpty(raw.Question, raw.QuestionText, raw.Prompt),
		Format:        resolveFormat(raw.Type, raw.AnswerType),
		Options:       raw.Options,
		CorrectAnswer: firstNonEmpty(string(raw.CorrectAnswer), string(raw.Answer)),
		CorrectOption: string(raw.CorrectOption),
		ImageURL:      firstNonEmpty(raw.ImageURL, raw.Image),
	}
}

// NormalizeAll normalizes every raw question, keeping order.
func NormalizeAll(raws []RawQuestion) []Question {
	out := make([]Question, len(raws))
	for i, r := range raws {
		out[i] = Normalize(r)
	}
	return out
}

func resolveFormat(explicit, legacy string) Format {
	if f, ok := ParseFormat(explicit); ok {
		return f
	}
	if f, ok := ParseFormat(legacy); ok {
		return f
	}
	return FormatMultipleChoice
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
