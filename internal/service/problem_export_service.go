package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/amirulmuuminin/tahfidz-exam-api/internal/models"
	"github.com/amirulmuuminin/tahfidz-exam-api/pkg/export"
	appErrors "github.com/amirulmuuminin/tahfidz-exam-api/pkg/errors"
)

type problemDetector interface {
	Detect(ctx context.Context, fromKey, toKey string) ([]models.ProblemReport, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type pdfRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ProblemExport is a rendered problem report ready for download.
type ProblemExport struct {
	Content     []byte
	ContentType string
	Filename    string
}

// ProblemExportService renders detector output as downloadable documents.
// Everything stays in memory: reports are small and streamed straight out.
type ProblemExportService struct {
	detector problemDetector
	csv      csvRenderer
	pdf      pdfRenderer
	logger   *zap.Logger
}

// NewProblemExportService constructs the export service.
func NewProblemExportService(detector problemDetector, csv csvRenderer, pdf pdfRenderer, logger *zap.Logger) *ProblemExportService {
	if csv == nil {
		csv = export.NewCSVExporter()
	}
	if pdf == nil {
		pdf = export.NewPDFExporter()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProblemExportService{detector: detector, csv: csv, pdf: pdf, logger: logger}
}

// Render runs a scan over the window and renders it in the requested format
// ("csv" or "pdf").
func (s *ProblemExportService) Render(ctx context.Context, fromKey, toKey, format string) (*ProblemExport, error) {
	problems, err := s.detector.Detect(ctx, fromKey, toKey)
	if err != nil {
		return nil, err
	}

	dataset := buildProblemDataset(problems)
	stamp := time.Now().UTC().Format("20060102-150405")

	switch strings.ToLower(format) {
	case "csv":
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv report")
		}
		return &ProblemExport{
			Content:     content,
			ContentType: "text/csv",
			Filename:    fmt.Sprintf("problem-report-%s.csv", stamp),
		}, nil
	case "pdf":
		content, err := s.pdf.Render(dataset, "Scheduling Problem Report")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf report")
		}
		return &ProblemExport{
			Content:     content,
			ContentType: "application/pdf",
			Filename:    fmt.Sprintf("problem-report-%s.pdf", stamp),
		}, nil
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format")
	}
}

func buildProblemDataset(problems []models.ProblemReport) export.Dataset {
	dataset := export.Dataset{
		Headers: []string{"date", "period", "examiner", "kind", "bookings", "max_allowed", "students"},
	}
	for _, p := range problems {
		examiner := p.ExaminerName
		if examiner == "" {
			examiner = p.ExaminerID
		}
		students := make([]string, 0, len(p.Students))
		for _, ref := range p.Students {
			students = append(students, ref.StudentID)
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"date":        p.DateKey,
			"period":      p.Period,
			"examiner":    examiner,
			"kind":        string(p.Kind),
			"bookings":    strconv.Itoa(p.BookingCount),
			"max_allowed": strconv.Itoa(p.MaxAllowed),
			"students":    strings.Join(students, " "),
		})
	}
	return dataset
}
