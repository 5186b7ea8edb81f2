package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/stemsi/exstem-quiz/internal/model"
	"github.com/stemsi/exstem-quiz/internal/response"
)

// ErrReportNotFound is returned when a report id is unknown. Reports are
// written asynchronously, so a fresh id may not be readable yet.
var ErrReportNotFound = errors.New("report not found")

// ReportStore is the report persistence the service needs.
type ReportStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*model.Report, error)
	ListByExam(ctx context.Context, examID uuid.UUID, limit, offset int) ([]model.ReportSummary, int, error)
	ListByUser(ctx context.Context, userID string) ([]model.ReportSummary, error)
	StatsByExam(ctx context.Context, examID uuid.UUID) (*model.ExamStats, error)
}

// ReportService reads persisted reports.
type ReportService struct {
	reportRepo ReportStore
}

// NewReportService creates a new ReportService.
func NewReportService(reportRepo ReportStore) *ReportService {
	return &ReportService{reportRepo: reportRepo}
}

// Get returns one report with its per-question details.
func (s *ReportService) Get(ctx context.Context, id uuid.UUID) (*model.Report, error) {
	rep, err := s.reportRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrReportNotFound
		}
		return nil, fmt.Errorf("get report: %w", err)
	}
	return rep, nil
}

// ListByExam returns a page of report summaries for an exam.
func (s *ReportService) ListByExam(ctx context.Context, examID uuid.UUID, q model.ListReportsQuery) ([]model.ReportSummary, *response.Pagination, error) {
	page, perPage := normalizePage(q.Page, q.PerPage)

	reports, total, err := s.reportRepo.ListByExam(ctx, examID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, nil, fmt.Errorf("list reports: %w", err)
	}
	if reports == nil {
		reports = []model.ReportSummary{}
	}
	return reports, response.NewPagination(page, perPage, total), nil
}

// ListByUser returns every report summary of a user.
func (s *ReportService) ListByUser(ctx context.Context, userID string) ([]model.ReportSummary, error) {
	reports, err := s.reportRepo.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	if reports == nil {
		reports = []model.ReportSummary{}
	}
	return reports, nil
}

// Stats aggregates the reports of an exam.
func (s *ReportService) Stats(ctx context.Context, examID uuid.UUID) (*model.ExamStats, error) {
	stats, err := s.reportRepo.StatsByExam(ctx, examID)
	if err != nil {
		return nil, fmt.Errorf("exam stats: %w", err)
	}
	return stats, nil
}
