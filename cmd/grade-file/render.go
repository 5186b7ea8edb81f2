package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/stemsi/exstem-quiz/internal/markup"
	"github.com/stemsi/exstem-quiz/internal/model"
)

const promptWidth = 60

var (
	colorHeader  = lipgloss.Color("33")
	colorCorrect = lipgloss.Color("42")
	colorWrong   = lipgloss.Color("196")
	colorMuted   = lipgloss.Color("242")
)

// renderReport renders a graded report as a per-question listing followed
// by the verdict line.
func renderReport(title, userID string, r model.ReportResult, noColor bool) string {
	var b strings.Builder

	header := title
	if userID != "" {
		header += " | " + userID
	}
	b.WriteString(stylize(header, noColor, colorHeader))
	b.WriteByte('\n')

	for i, d := range r.Details {
		mark, color := "✓", colorCorrect
		if !d.IsCorrect {
			mark, color = "✗", colorWrong
		}

		line := fmt.Sprintf("%s %2d. %s", mark, i+1, promptLine(d.Prompt))
		b.WriteString(stylize(line, noColor, color))
		b.WriteByte('\n')

		answer := d.UserAnswer
		if answer == "" {
			answer = "(blank)"
		}
		detail := "      answer: " + answer
		if !d.IsCorrect {
			detail += " | expected: " + d.CorrectAnswer
		}
		b.WriteString(stylize(detail, noColor, colorMuted))
		b.WriteByte('\n')
	}

	summary := fmt.Sprintf("%s: %d/%d correct (%d%%, pass mark %s%%)",
		r.Verdict, r.CorrectAnswers, r.TotalQuestions, r.Percentage,
		strconv.FormatFloat(r.Threshold, 'f', -1, 64))
	verdictColor := colorCorrect
	if !r.Passed {
		verdictColor = colorWrong
	}
	if noColor {
		b.WriteString(summary)
	} else {
		b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(verdictColor).Render(summary))
	}
	b.WriteByte('\n')

	return b.String()
}

// promptLine flattens markup to one line and truncates it for the listing.
func promptLine(prompt string) string {
	text := strings.Join(strings.Fields(markup.PlainText(markup.Tokenize(prompt))), " ")
	if r := []rune(text); len(r) > promptWidth {
		return string(r[:promptWidth-1]) + "…"
	}
	return text
}

// stylize applies optional color styling.
func stylize(text string, noColor bool, color lipgloss.Color) string {
	if noColor {
		return text
	}
	return lipgloss.NewStyle().Foreground(color).Render(text)
}
