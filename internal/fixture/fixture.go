// Package fixture loads exams and answer sheets authored as YAML files.
//
// YAML documents are converted node by node into JSON before decoding so
// that mapping order survives; option order in a question is the order the
// author wrote it in. Question fields use the same JSON names the HTTP API
// accepts, so a fixture can be posted to the admin API unchanged.
package fixture

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/stemsi/exstem-quiz/internal/grading"
	"github.com/stemsi/exstem-quiz/internal/model"
)

var (
	ErrEmptyDocument = errors.New("fixture: empty document")
	ErrTooManyNodes  = errors.New("fixture: document expands past the node limit")
)

// maxNodes caps a document after alias expansion. Every alias is written out
// in full, so nested anchors can otherwise grow a small file exponentially.
const maxNodes = 100_000

// Exam is an exam definition as written in a fixture file.
type Exam struct {
	Title             string                `json:"title"`
	DurationSeconds   int                   `json:"duration_seconds"`
	PassingMarks      json.RawMessage       `json:"passing_marks,omitempty"`
	PassingPercentage json.RawMessage       `json:"passing_percentage,omitempty"`
	Questions         []grading.RawQuestion `json:"questions"`
}

// Threshold resolves the exam's pass mark; passing_percentage wins over
// passing_marks, and fallback applies when neither is usable.
func (e *Exam) Threshold(fallback float64) float64 {
	if len(e.PassingPercentage) > 0 {
		return grading.ParseThreshold(e.PassingPercentage, fallback)
	}
	return grading.ParseThreshold(e.PassingMarks, fallback)
}

// NormalizedQuestions returns the questions in canonical form.
func (e *Exam) NormalizedQuestions() []grading.Question {
	return grading.NormalizeAll(e.Questions)
}

// CreateRequest converts the fixture into the admin API's create payload.
func (e *Exam) CreateRequest() *model.CreateExamRequest {
	req := &model.CreateExamRequest{
		Title:           e.Title,
		DurationSeconds: e.DurationSeconds,
		Questions:       e.Questions,
	}
	if t, ok := explicitThreshold(e.PassingPercentage); ok {
		req.PassingPercentage = &t
	} else if t, ok := explicitThreshold(e.PassingMarks); ok {
		req.PassingMarks = &t
	}
	return req
}

func explicitThreshold(raw json.RawMessage) (float64, bool) {
	t := grading.ParseThreshold(raw, -1)
	return t, t >= 0
}

// Submission is one student's answers to an exam.
type Submission struct {
	UserID    string           `json:"user_id"`
	TimeTaken int              `json:"time_taken"`
	Answers   []grading.Scalar `json:"answers"`
}

// AnswerList returns the answers as plain strings, index-aligned with the
// exam's questions.
func (s *Submission) AnswerList() []string {
	out := make([]string, len(s.Answers))
	for i, a := range s.Answers {
		out[i] = string(a)
	}
	return out
}

// LoadExam reads an exam fixture from path.
func LoadExam(path string) (*Exam, error) {
	var e Exam
	if err := decodeFile(path, &e); err != nil {
		return nil, err
	}
	if len(e.Questions) == 0 {
		return nil, fmt.Errorf("fixture %s: exam has no questions", path)
	}
	return &e, nil
}

// LoadSubmission reads an answers fixture from path.
func LoadSubmission(path string) (*Submission, error) {
	var s Submission
	if err := decodeFile(path, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

func decodeFile(path string, v interface{}) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open fixture: %w", err)
	}
	defer f.Close()

	if err := Decode(f, v); err != nil {
		return fmt.Errorf("fixture %s: %w", path, err)
	}
	return nil
}

// Decode reads a single YAML document from r into v using v's JSON tags.
func Decode(r io.Reader, v interface{}) error {
	var doc yaml.Node
	if err := yaml.NewDecoder(r).Decode(&doc); err != nil {
		if errors.Is(err, io.EOF) {
			return ErrEmptyDocument
		}
		return fmt.Errorf("parse yaml: %w", err)
	}

	data, err := ToJSON(&doc)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode: %w", err)
	}
	return nil
}

// ToJSON renders a YAML node tree as JSON, keeping mapping key order.
func ToJSON(n *yaml.Node) ([]byte, error) {
	w := &jsonWriter{budget: maxNodes}
	if err := w.node(n); err != nil {
		return nil, err
	}
	return w.buf.Bytes(), nil
}

type jsonWriter struct {
	buf    bytes.Buffer
	budget int
}

func (w *jsonWriter) node(n *yaml.Node) error {
	if w.budget--; w.budget < 0 {
		return fmt.Errorf("%w (%d)", ErrTooManyNodes, maxNodes)
	}

	switch n.Kind {
	case yaml.DocumentNode:
		if len(n.Content) == 0 {
			return ErrEmptyDocument
		}
		return w.node(n.Content[0])

	case yaml.AliasNode:
		return w.node(n.Alias)

	case yaml.MappingNode:
		w.buf.WriteByte('{')
		for i := 0; i+1 < len(n.Content); i += 2 {
			if i > 0 {
				w.buf.WriteByte(',')
			}
			key, err := json.Marshal(n.Content[i].Value)
			if err != nil {
				return err
			}
			w.buf.Write(key)
			w.buf.WriteByte(':')
			if err := w.node(n.Content[i+1]); err != nil {
				return err
			}
		}
		w.buf.WriteByte('}')
		return nil

	case yaml.SequenceNode:
		w.buf.WriteByte('[')
		for i, item := range n.Content {
			if i > 0 {
				w.buf.WriteByte(',')
			}
			if err := w.node(item); err != nil {
				return err
			}
		}
		w.buf.WriteByte(']')
		return nil

	case yaml.ScalarNode:
		return writeScalar(&w.buf, n)
	}
	return fmt.Errorf("line %d: unsupported yaml node", n.Line)
}

// writeScalar resolves tagged scalars (numbers, booleans, null) to their JSON
// forms; everything else is written as a string.
func writeScalar(buf *bytes.Buffer, n *yaml.Node) error {
	switch n.ShortTag() {
	case "!!null":
		buf.WriteString("null")
		return nil
	case "!!int", "!!float":
		// Keep the literal so "2.50" stays "2.50" for fill-in answers.
		if json.Valid([]byte(n.Value)) {
			buf.WriteString(n.Value)
			return nil
		}
		fallthrough
	case "!!bool":
		var v interface{}
		if err := n.Decode(&v); err != nil {
			return fmt.Errorf("line %d: %w", n.Line, err)
		}
		data, err := json.Marshal(v)
		if err != nil {
			// .inf and .nan have no JSON form.
			data, _ = json.Marshal(n.Value)
		}
		buf.Write(data)
		return nil
	}

	data, err := json.Marshal(n.Value)
	if err != nil {
		return err
	}
	buf.Write(data)
	return nil
}
