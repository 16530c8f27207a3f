package handler

import (
	"context"
	"iter"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/parking-permit-api/internal/models"
	"github.com/noah-isme/parking-permit-api/internal/service"
	appErrors "github.com/noah-isme/parking-permit-api/pkg/errors"
	"github.com/noah-isme/parking-permit-api/pkg/response"
)

type rosterService interface {
	Forms() []models.FormDescriptor
	Add(ctx context.Context, req service.AddStudentRequest) (*models.Student, error)
	Get(ctx context.Context, id string) (*models.Student, error)
	List(ctx context.Context, filter models.StudentFilter) ([]models.Student, *models.Pagination, error)
	ListByStatus(ctx context.Context, status models.StudentStatus) iter.Seq[models.Student]
	Eligible(ctx context.Context) ([]models.Student, error)
	RecordUpload(ctx context.Context, studentID string, key models.FormKey) (*models.Student, error)
	RegisterVehicle(ctx context.Context, studentID string, req service.RegisterVehicleRequest) (*models.Student, error)
}

// StudentHandler exposes roster endpoints.
type StudentHandler struct {
	students rosterService
}

// NewStudentHandler constructs StudentHandler.
func NewStudentHandler(students rosterService) *StudentHandler {
	return &StudentHandler{students: students}
}

// Forms godoc
// @Summary List tracked permit documents
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /forms [get]
func (h *StudentHandler) Forms(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.students.Forms(), nil)
}

// List godoc
// @Summary List students
// @Description Without page or limit, a status filter returns every matching student in roster order.
// @Tags Students
// @Produce json
// @Param status query string false "not-started, in-progress, ready or assigned"
// @Param search query string false "Search by name or email"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students [get]
func (h *StudentHandler) List(c *gin.Context) {
	status := models.StudentStatus(strings.TrimSpace(c.Query("status")))
	search := strings.TrimSpace(c.Query("search"))
	_, paged := c.GetQuery("page")
	_, limited := c.GetQuery("limit")

	if status != "" && search == "" && !paged && !limited {
		if !status.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "unknown status "+string(status)))
			return
		}
		students := []models.Student{}
		for student := range h.students.ListByStatus(c.Request.Context(), status) {
			students = append(students, student)
		}
		response.JSON(c, http.StatusOK, students, nil)
		return
	}

	filter := models.StudentFilter{Status: status, Search: search}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	students, pagination, err := h.students.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, students, pagination)
}

// Create godoc
// @Summary Add a student to the roster
// @Tags Students
// @Accept json
// @Produce json
// @Param payload body service.AddStudentRequest true "Student payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students [post]
func (h *StudentHandler) Create(c *gin.Context) {
	var req service.AddStudentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
		return
	}
	student, err := h.students.Add(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, student)
}

// Eligible godoc
// @Summary Eligibility pool
// @Description Ready students with a vehicle on file and no spot.
// @Tags Students
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /students/eligible [get]
func (h *StudentHandler) Eligible(c *gin.Context) {
	pool, err := h.students.Eligible(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pool, nil)
}

// Get godoc
// @Summary Get student detail
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /students/{id} [get]
func (h *StudentHandler) Get(c *gin.Context) {
	student, err := h.students.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// UploadForm godoc
// @Summary Record a document upload
// @Description Marks the document as uploaded and re-derives the student's status. Repeating an upload is a no-op.
// @Tags Students
// @Produce json
// @Param id path string true "Student ID"
// @Param formKey path string true "driverLicense, insurance, vehicleRegistration or parentPermission"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students/{id}/forms/{formKey} [post]
func (h *StudentHandler) UploadForm(c *gin.Context) {
	student, err := h.students.RecordUpload(c.Request.Context(), c.Param("id"), models.FormKey(c.Param("formKey")))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}

// RegisterVehicle godoc
// @Summary Put a vehicle on file
// @Tags Students
// @Accept json
// @Produce json
// @Param id path string true "Student ID"
// @Param payload body service.RegisterVehicleRequest true "Vehicle payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /students/{id}/vehicle [put]
func (h *StudentHandler) RegisterVehicle(c *gin.Context) {
	var req service.RegisterVehicleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid payload"))
		return
	}
	student, err := h.students.RegisterVehicle(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, student, nil)
}
