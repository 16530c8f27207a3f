package handler

import (
	"context"
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/parking-permit-api/internal/service"
	appErrors "github.com/noah-isme/parking-permit-api/pkg/errors"
	"github.com/noah-isme/parking-permit-api/pkg/response"
)

const multipartOverhead = 64 << 10

type exportService interface {
	Roster(ctx context.Context, format service.ExportFormat) (*service.ExportFile, error)
	Lot(ctx context.Context, format service.ExportFormat) (*service.ExportFile, error)
}

type importService interface {
	Import(ctx context.Context, r io.Reader) (*service.ImportResult, error)
	Template() (*service.ExportFile, error)
}

// ExportHandler serves roster and lot downloads and bulk roster imports.
type ExportHandler struct {
	exports       exportService
	imports       importService
	maxUploadSize int64
}

// NewExportHandler constructs ExportHandler. maxUploadSize bounds import files in bytes.
func NewExportHandler(exports exportService, imports importService, maxUploadSize int64) *ExportHandler {
	if maxUploadSize <= 0 {
		maxUploadSize = 2 << 20
	}
	return &ExportHandler{exports: exports, imports: imports, maxUploadSize: maxUploadSize}
}

// Roster godoc
// @Summary Export the roster
// @Tags Students
// @Produce octet-stream
// @Param format query string false "csv (default), pdf or xlsx"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /students/export [get]
func (h *ExportHandler) Roster(c *gin.Context) {
	h.download(c, h.exports.Roster)
}

// Lot godoc
// @Summary Export lot occupancy
// @Tags Lot
// @Produce octet-stream
// @Param format query string false "csv (default), pdf or xlsx"
// @Success 200 {file} file
// @Failure 400 {object} response.Envelope
// @Router /lot/export [get]
func (h *ExportHandler) Lot(c *gin.Context) {
	h.download(c, h.exports.Lot)
}

func (h *ExportHandler) download(c *gin.Context, render func(context.Context, service.ExportFormat) (*service.ExportFile, error)) {
	format, err := service.ParseExportFormat(c.Query("format"))
	if err != nil {
		response.Error(c, err)
		return
	}
	file, err := render(c.Request.Context(), format)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

// ImportTemplate godoc
// @Summary Download a roster import template
// @Description Workbook with the name, email and grade header and one example row.
// @Tags Students
// @Produce octet-stream
// @Success 200 {file} file
// @Router /students/import/template [get]
func (h *ExportHandler) ImportTemplate(c *gin.Context) {
	file, err := h.imports.Template()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Body)
}

// Import godoc
// @Summary Import students from an Excel workbook
// @Description Row 1 names the name, email and grade columns. Invalid rows are reported, valid rows are added.
// @Tags Students
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "xlsx workbook"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 413 {object} response.Envelope
// @Router /students/import [post]
func (h *ExportHandler) Import(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadSize+multipartOverhead)
	header, err := c.FormFile("file")
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, appErrors.Clone(appErrors.ErrTooLarge, "import file exceeds the upload limit"))
			return
		}
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "multipart field file is required"))
		return
	}
	if header.Size > h.maxUploadSize {
		response.Error(c, appErrors.Clone(appErrors.ErrTooLarge, "import file exceeds the upload limit"))
		return
	}
	if !strings.EqualFold(filepath.Ext(header.Filename), ".xlsx") {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "only .xlsx workbooks can be imported"))
		return
	}

	file, err := header.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to read upload"))
		return
	}
	defer file.Close()

	result, err := h.imports.Import(c.Request.Context(), file)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
