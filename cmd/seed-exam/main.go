package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"

	"github.com/stemsi/exstem-quiz/internal/config"
	"github.com/stemsi/exstem-quiz/internal/database"
	"github.com/stemsi/exstem-quiz/internal/fixture"
	"github.com/stemsi/exstem-quiz/internal/logger"
	"github.com/stemsi/exstem-quiz/internal/repository"
	"github.com/stemsi/exstem-quiz/internal/service"
	"github.com/stemsi/exstem-quiz/internal/validator"
)

// seed-exam loads exam definitions from YAML files into the database.
//
//	seed-exam [-publish] exams/algebra.yaml exams/geometry.yaml
func main() {
	publish := flag.Bool("publish", false, "Publish each exam and warm its cache after creating it")
	dryRun := flag.Bool("dry-run", false, "Validate the files without writing anything")
	flag.Usage = func() {
		fmt.Fprintln(os.Stderr, "Usage: seed-exam [flags] <exam.yaml>...")
		flag.PrintDefaults()
	}
	flag.Parse()

	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	cfg := config.Load()
	log := logger.SetupWriter(cfg.LogLevel, "pretty", os.Stderr)
	validator.Setup()

	exams := make([]*fixture.Exam, 0, flag.NArg())
	for _, path := range flag.Args() {
		exam, err := fixture.LoadExam(path)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to load fixture")
		}
		if fields := validator.Struct(exam.CreateRequest()); fields != nil {
			log.Fatal().Str("file", path).Interface("fields", fields).Msg("Invalid exam")
		}
		exams = append(exams, exam)
	}

	if *dryRun {
		log.Info().Int("exams", len(exams)).Msg("All fixtures valid")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	var examCache service.ExamCache
	if *publish {
		rdb, err := database.NewRedisClient(ctx, cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to Redis")
		}
		defer rdb.Close()
		examCache = repository.NewExamCacheRepository(rdb)
	}

	examService := service.NewExamService(
		repository.NewExamRepository(pool),
		repository.NewQuestionRepository(pool),
		examCache,
		cfg.DefaultPassingThreshold,
		zerolog.Nop(),
	)

	for i, fx := range exams {
		exam, err := examService.Create(ctx, fx.CreateRequest())
		if err != nil {
			log.Fatal().Err(err).Str("file", flag.Arg(i)).Msg("Failed to create exam")
		}

		if *publish {
			if err := examService.Publish(ctx, exam.ID); err != nil {
				log.Fatal().Err(err).Str("exam_id", exam.ID.String()).Msg("Failed to publish exam")
			}
		}

		log.Info().
			Str("file", flag.Arg(i)).
			Str("exam_id", exam.ID.String()).
			Int("questions", exam.QuestionCount).
			Bool("published", *publish).
			Msg("Exam seeded")
	}
}
