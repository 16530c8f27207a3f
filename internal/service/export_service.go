package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/parking-permit-api/internal/models"
	"github.com/noah-isme/parking-permit-api/pkg/export"
	appErrors "github.com/noah-isme/parking-permit-api/pkg/errors"
)

// ExportFormat names a supported download format.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportPDF  ExportFormat = "pdf"
	ExportXLSX ExportFormat = "xlsx"
)

var exportContentTypes = map[ExportFormat]string{
	ExportCSV:  "text/csv",
	ExportPDF:  "application/pdf",
	ExportXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

// ParseExportFormat validates a client supplied format, defaulting to CSV.
func ParseExportFormat(raw string) (ExportFormat, error) {
	format := ExportFormat(strings.ToLower(strings.TrimSpace(raw)))
	if format == "" {
		return ExportCSV, nil
	}
	if _, ok := exportContentTypes[format]; !ok {
		return "", appErrors.Clone(appErrors.ErrValidation, "unsupported export format "+raw)
	}
	return format, nil
}

type rosterLister interface {
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, int, error)
}

type spotLister interface {
	List(ctx context.Context, filter models.SpotFilter) ([]models.ParkingSpot, error)
}

type csvRenderer interface {
	Render(data export.Dataset) ([]byte, error)
}

type titledRenderer interface {
	Render(data export.Dataset, title string) ([]byte, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}

// ExportService renders the roster and the lot into downloadable files.
type ExportService struct {
	roster rosterLister
	spots  spotLister
	csv    csvRenderer
	pdf    titledRenderer
	xlsx   titledRenderer
	logger *zap.Logger
	now    func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(roster rosterLister, spots spotLister, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		roster: roster,
		spots:  spots,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		xlsx:   export.NewXLSXExporter(),
		logger: logger,
		now:    time.Now,
	}
}

var rosterHeaders = []string{"ID", "Name", "Email", "Grade", "Status", "Forms", "Vehicle", "Plate", "Parking Spot"}

// Roster renders every student in roster order.
func (s *ExportService) Roster(ctx context.Context, format ExportFormat) (*ExportFile, error) {
	dataset := export.Dataset{Headers: rosterHeaders}
	for page := 1; ; page++ {
		students, total, err := s.roster.List(ctx, models.StudentFilter{Page: page, PageSize: 100})
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load roster")
		}
		for _, student := range students {
			dataset.Rows = append(dataset.Rows, rosterRow(student))
		}
		if len(students) == 0 || len(dataset.Rows) >= total {
			break
		}
	}
	return s.render(dataset, format, "Parking Permit Roster", "roster")
}

var lotHeaders = []string{"Spot", "Zone", "Block", "Handicapped", "Occupied", "Student"}

// Lot renders the spot catalog with current occupants.
func (s *ExportService) Lot(ctx context.Context, format ExportFormat) (*ExportFile, error) {
	spots, err := s.spots.List(ctx, models.SpotFilter{})
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load spots")
	}
	dataset := export.Dataset{Headers: lotHeaders, Rows: make([]map[string]string, 0, len(spots))}
	for _, spot := range spots {
		occupant := ""
		if spot.Student != nil {
			occupant = *spot.Student
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Spot":        spot.ID,
			"Zone":        string(spot.Zone),
			"Block":       spot.Block,
			"Handicapped": yesNo(spot.Handicapped),
			"Occupied":    yesNo(spot.Occupied),
			"Student":     occupant,
		})
	}
	return s.render(dataset, format, "Lot Occupancy", "lot")
}

func (s *ExportService) render(dataset export.Dataset, format ExportFormat, title, stem string) (*ExportFile, error) {
	var (
		body []byte
		err  error
	)
	switch format {
	case ExportCSV:
		body, err = s.csv.Render(dataset)
	case ExportPDF:
		body, err = s.pdf.Render(dataset, title)
	case ExportXLSX:
		body, err = s.xlsx.Render(dataset, title)
	default:
		return nil, appErrors.Clone(appErrors.ErrValidation, "unsupported export format "+string(format))
	}
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	s.logger.Info("export rendered", zap.String("dataset", stem), zap.String("format", string(format)), zap.Int("rows", len(dataset.Rows)))
	return &ExportFile{
		Filename:    fmt.Sprintf("%s-%s.%s", stem, s.now().UTC().Format("20060102-150405"), format),
		ContentType: exportContentTypes[format],
		Body:        body,
	}, nil
}

func rosterRow(student models.Student) map[string]string {
	row := map[string]string{
		"ID":     student.ID,
		"Name":   student.Name,
		"Email":  student.Email,
		"Grade":  student.Grade,
		"Status": string(student.Status),
		"Forms":  strconv.Itoa(student.Forms.UploadedCount()) + "/" + strconv.Itoa(len(models.FormKeys)),
	}
	if v := student.VehicleInfo; v != nil {
		row["Vehicle"] = fmt.Sprintf("%s %s %s (%s)", v.Year, v.Make, v.Model, v.Color)
		row["Plate"] = v.Plate
	}
	if student.ParkingSpot != nil {
		row["Parking Spot"] = *student.ParkingSpot
	}
	return row
}

func yesNo(v bool) string {
	if v {
		return "yes"
	}
	return "no"
}
