package service

import (
	"bytes"
	"context"
	"time"

	"github.com/flexprice/staffdesk/internal/domain/employee"
	ierr "github.com/flexprice/staffdesk/internal/errors"
	"github.com/flexprice/staffdesk/internal/logger"
	"github.com/flexprice/staffdesk/internal/types"
	"github.com/gocarina/gocsv"
	"github.com/samber/lo"
)

// EmployeeCSV is one row of the CSV export. Column order follows the
// spreadsheet header.
type EmployeeCSV struct {
	ID           string `csv:"id"`
	Name         string `csv:"name"`
	Email        string `csv:"email"`
	Phone        string `csv:"phone"`
	Department   string `csv:"department"`
	Position     string `csv:"position"`
	ProfileImage string `csv:"profile_image"`
	Status       int    `csv:"status"`
	CreatedAt    string `csv:"created_at"`
	UpdatedAt    string `csv:"updated_at"`
}

func toCSV(e *employee.Employee) *EmployeeCSV {
	return &EmployeeCSV{
		ID:           e.ID,
		Name:         e.Name,
		Email:        e.Email,
		Phone:        e.Phone,
		Department:   e.Department,
		Position:     e.Position,
		ProfileImage: e.ProfileImage,
		Status:       int(e.Status),
		CreatedAt:    csvTime(e.CreatedAt),
		UpdatedAt:    csvTime(e.UpdatedAt),
	}
}

func csvTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// SheetExporter writes records to the spreadsheet export tab
type SheetExporter interface {
	Export(ctx context.Context, records []*employee.Employee) (int, error)
}

// ExportService renders a coordinator's record set
type ExportService struct {
	backends Backends
	logger   *logger.Logger
}

func NewExportService(backends Backends, log *logger.Logger) *ExportService {
	return &ExportService{backends: backends, logger: log}
}

// ExportCSV renders records as CSV with a header row. An empty set still
// produces the header.
func (s *ExportService) ExportCSV(records []*employee.Employee) ([]byte, error) {
	rows := lo.Map(lo.Compact(records), func(e *employee.Employee, _ int) *EmployeeCSV {
		return toCSV(e)
	})

	var buf bytes.Buffer
	if err := gocsv.Marshal(rows, &buf); err != nil {
		return nil, ierr.WithError(err).
			WithHint("Failed to marshal employees to CSV").
			Mark(ierr.ErrInternal)
	}

	s.logger.Debugw("exported employees to csv", "rows", len(rows), "csv_size_bytes", buf.Len())
	return buf.Bytes(), nil
}

// WriteBack sends records to the export tab of the spreadsheet backend. The
// records may be a filtered view or come from another backend.
func (s *ExportService) WriteBack(ctx context.Context, records []*employee.Employee) (int, error) {
	repo, err := s.backends.Get(ctx, types.BackendSheet)
	if err != nil {
		return 0, err
	}

	exporter, ok := repo.(SheetExporter)
	if !ok {
		return 0, ierr.NewError("sheet backend does not support export").
			WithHint("The spreadsheet backend cannot accept exported rows").
			Mark(ierr.ErrInvalidOperation)
	}

	n, err := exporter.Export(ctx, lo.Compact(records))
	if err != nil {
		return 0, err
	}

	s.logger.Infow("wrote employees back to sheet", "rows", n)
	return n, nil
}
