package markup

import (
	"fmt"
	"strings"
)

// Kind identifies the type of a Segment.
type Kind uint8

const (
	KindText Kind = iota
	KindInlineMath
	KindBlockMath
	KindBold
	KindLineBreak
)

var kindNames = [...]string{
	KindText:       "text",
	KindInlineMath: "inline_math",
	KindBlockMath:  "block_math",
	KindBold:       "bold",
	KindLineBreak:  "line_break",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return fmt.Sprintf("kind(%d)", k)
}

// MarshalText implements encoding.TextMarshaler.
func (k Kind) MarshalText() ([]byte, error) {
	if int(k) >= len(kindNames) {
		return nil, fmt.Errorf("unknown segment kind %d", k)
	}
	return []byte(kindNames[k]), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *Kind) UnmarshalText(b []byte) error {
	for i, name := range kindNames {
		if name == string(b) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown segment kind %q", b)
}

// Segment is one typed piece of tokenized markup. Text holds the literal
// content or the math expression; Children is only set on bold segments.
type Segment struct {
	Kind     Kind      `json:"kind"`
	Text     string    `json:"text,omitempty"`
	Children []Segment `json:"children,omitempty"`
}

func Text(s string) Segment       { return Segment{Kind: KindText, Text: s} }
func InlineMath(s string) Segment { return Segment{Kind: KindInlineMath, Text: s} }
func BlockMath(s string) Segment  { return Segment{Kind: KindBlockMath, Text: s} }
func LineBreak() Segment          { return Segment{Kind: KindLineBreak} }

func Bold(children ...Segment) Segment {
	return Segment{Kind: KindBold, Children: children}
}

// PlainText flattens segments back into their literal content: math
// expressions without delimiters, bold without asterisks, line breaks as \n.
func PlainText(segs []Segment) string {
	var b strings.Builder
	writePlain(&b, segs)
	return b.String()
}

func writePlain(b *strings.Builder, segs []Segment) {
	for _, s := range segs {
		switch s.Kind {
		case KindBold:
			writePlain(b, s.Children)
		case KindLineBreak:
			b.WriteByte('\n')
		default:
			b.WriteString(s.Text)
		}
	}
}
