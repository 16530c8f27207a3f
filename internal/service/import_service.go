package service

import (
	"context"
	"errors"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/parking-permit-api/internal/models"
	"github.com/noah-isme/parking-permit-api/pkg/export"
	appErrors "github.com/noah-isme/parking-permit-api/pkg/errors"
)

var importColumns = []string{"name", "email", "grade"}

type rosterAdder interface {
	Add(ctx context.Context, req AddStudentRequest) (*models.Student, error)
}

// ImportRowError reports a spreadsheet row that could not be added.
type ImportRowError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

// ImportResult summarises a bulk roster import.
type ImportResult struct {
	Imported int              `json:"imported"`
	Skipped  int              `json:"skipped"`
	Students []models.Student `json:"students"`
	Errors   []ImportRowError `json:"errors"`
}

// ImportService adds students in bulk from an Excel workbook.
type ImportService struct {
	roster rosterAdder
	logger *zap.Logger
}

// NewImportService constructs an ImportService.
func NewImportService(roster rosterAdder, logger *zap.Logger) *ImportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ImportService{roster: roster, logger: logger}
}

// Template renders an importable workbook holding the header row and one example student.
func (s *ImportService) Template() (*ExportFile, error) {
	body, err := export.WriteRows([][]string{
		importColumns,
		{"Jordan Lee", "jordan.lee@school.edu", "11"},
	})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render import template")
	}
	return &ExportFile{
		Filename:    "roster-import-template.xlsx",
		ContentType: exportContentTypes[ExportXLSX],
		Body:        body,
	}, nil
}

// Import reads the first sheet of the workbook. Row 1 must name the name, email and grade columns
// in any order; blank rows are skipped and invalid rows are reported without aborting the import.
func (s *ImportService) Import(ctx context.Context, r io.Reader) (*ImportResult, error) {
	rows, err := export.ReadRows(r)
	if err != nil {
		if errors.Is(err, export.ErrEmptyWorkbook) {
			return nil, appErrors.Clone(appErrors.ErrValidation, "workbook has no sheets")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "file is not a readable xlsx workbook")
	}
	if len(rows) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "workbook is empty")
	}
	columns, err := headerIndex(rows[0])
	if err != nil {
		return nil, err
	}

	result := &ImportResult{Students: []models.Student{}, Errors: []ImportRowError{}}
	for i, row := range rows[1:] {
		rowNumber := i + 2
		if blank(row) {
			result.Skipped++
			continue
		}
		req := AddStudentRequest{
			Name:  cell(row, columns["name"]),
			Email: cell(row, columns["email"]),
			Grade: cell(row, columns["grade"]),
		}
		student, err := s.roster.Add(ctx, req)
		if err != nil {
			result.Errors = append(result.Errors, ImportRowError{Row: rowNumber, Message: appErrors.FromError(err).Message})
			continue
		}
		result.Students = append(result.Students, *student)
		result.Imported++
	}

	s.logger.Info("roster import finished",
		zap.Int("imported", result.Imported),
		zap.Int("skipped", result.Skipped),
		zap.Int("failed", len(result.Errors)),
	)
	return result, nil
}

func headerIndex(header []string) (map[string]int, error) {
	index := make(map[string]int, len(importColumns))
	for i, name := range header {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	var missing []string
	for _, column := range importColumns {
		if _, ok := index[column]; !ok {
			missing = append(missing, column)
		}
	}
	if len(missing) > 0 {
		return nil, appErrors.WithDetails(
			appErrors.Clone(appErrors.ErrValidation, "workbook header is missing required columns"),
			map[string]interface{}{"missing": missing},
		)
	}
	return index, nil
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}

func blank(row []string) bool {
	for _, v := range row {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
