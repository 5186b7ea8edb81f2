package grading

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Option is a single answer choice shown to the student.
type Option struct {
	Label string `json:"label"`
	Text  string `json:"text"`
}

// Options is an ordered label → text mapping. Order matters for display only.
type Options []Option

// Lookup returns the text of the option with the given label.
func (o Options) Lookup(label string) (string, bool) {
	if label == "" {
		return "", false
	}
	for _, opt := range o {
		if opt.Label == label {
			return opt.Text, true
		}
	}
	return "", false
}

// Labels returns the option labels in display order.
func (o Options) Labels() []string {
	labels := make([]string, len(o))
	for i, opt := range o {
		labels[i] = opt.Label
	}
	return labels
}

// UnmarshalJSON accepts an object ({"A": "Paris"}, key order kept), an array of
// {label, text} objects, or an array of plain strings labelled A, B, C...
// Anything else decodes to nil options instead of failing.
func (o *Options) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		*o = nil
		return nil
	}

	switch data[0] {
	case '{':
		*o = decodeObjectOptions(data)
	case '[':
		*o = decodeArrayOptions(data)
	default:
		*o = nil
	}
	return nil
}

// MarshalJSON writes the options back as a JSON object in display order.
func (o Options) MarshalJSON() ([]byte, error) {
	if o == nil {
		return []byte("null"), nil
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, opt := range o {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(opt.Label)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(opt.Text)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func decodeObjectOptions(data []byte) Options {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	if _, err := dec.Token(); err != nil {
		return nil
	}

	opts := Options{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil
		}
		label, ok := tok.(string)
		if !ok {
			return nil
		}

		var v interface{}
		if err := dec.Decode(&v); err != nil {
			return nil
		}
		opts = append(opts, Option{Label: label, Text: optionText(v)})
	}
	return opts
}

func decodeArrayOptions(data []byte) Options {
	var items []json.RawMessage
	if err := json.Unmarshal(data, &items); err != nil {
		return nil
	}

	opts := make(Options, 0, len(items))
	for i, item := range items {
		dec := json.NewDecoder(bytes.NewReader(item))
		dec.UseNumber()

		var v interface{}
		if err := dec.Decode(&v); err != nil {
			continue
		}

		switch t := v.(type) {
		case map[string]interface{}:
			label := optionText(firstPresent(t, "label", "key", "id"))
			if label == "" {
				label = indexLabel(i)
			}
			opts = append(opts, Option{Label: label, Text: optionText(firstPresent(t, "text", "value", "option"))})
		case string, json.Number, bool:
			opts = append(opts, Option{Label: indexLabel(i), Text: optionText(t)})
		}
	}
	return opts
}

func firstPresent(m map[string]interface{}, keys ...string) interface{} {
	for _, k := range keys {
		if v, ok := m[k]; ok {
			return v
		}
	}
	return nil
}

func optionText(v interface{}) string {
	switch t := v.(type) {
	case string:
		return t
	case json.Number:
		return t.String()
	case bool:
		return strconv.FormatBool(t)
	case map[string]interface{}:
		return optionText(firstPresent(t, "text", "value"))
	default:
		return ""
	}
}

// indexLabel maps 0 → "A", 25 → "Z", then falls back to 1-based numbers.
func indexLabel(i int) string {
	if i < 26 {
		return string(rune('A' + i))
	}
	return strconv.Itoa(i + 1)
}
