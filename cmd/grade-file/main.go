package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/stemsi/exstem-quiz/internal/config"
	"github.com/stemsi/exstem-quiz/internal/fixture"
	"github.com/stemsi/exstem-quiz/internal/grading"
	"github.com/stemsi/exstem-quiz/internal/logger"
	"github.com/stemsi/exstem-quiz/internal/model"
)

// grade-file grades an answers file against an exam file without touching
// the database. It exits 1 when the submission fails the exam.
//
//	grade-file -exam exams/algebra.yaml -answers alice.yaml
func main() {
	examPath := flag.String("exam", "", "Exam fixture (YAML)")
	answersPath := flag.String("answers", "", "Answers fixture (YAML)")
	asJSON := flag.Bool("json", false, "Print the report as JSON")
	noColor := flag.Bool("no-color", false, "Disable colored output")
	flag.Parse()

	cfg := config.Load()
	log := logger.SetupWriter(cfg.LogLevel, "pretty", os.Stderr)

	if *examPath == "" || *answersPath == "" {
		fmt.Fprintln(os.Stderr, "Usage: grade-file -exam <exam.yaml> -answers <answers.yaml>")
		flag.PrintDefaults()
		os.Exit(2)
	}

	exam, err := fixture.LoadExam(*examPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load exam")
	}
	sub, err := fixture.LoadSubmission(*answersPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load answers")
	}

	questions := exam.NormalizedQuestions()
	answers := sub.AnswerList()
	if len(answers) > len(questions) {
		log.Warn().
			Int("answers", len(answers)).
			Int("questions", len(questions)).
			Msg("Extra answers are ignored")
	}

	threshold := exam.Threshold(cfg.DefaultPassingThreshold)
	graded := grading.Grade(questions, answers, threshold)
	result := model.NewReportResult(graded, threshold, sub.TimeTaken)

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			log.Fatal().Err(err).Msg("Failed to encode report")
		}
	} else {
		fmt.Print(renderReport(exam.Title, sub.UserID, result, *noColor))
	}

	if !graded.Verdict.Passed {
		os.Exit(1)
	}
}
