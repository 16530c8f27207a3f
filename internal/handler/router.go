package handler

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/parking-permit-api/internal/middleware"
)

// Handlers bundles every HTTP handler the API serves.
type Handlers struct {
	Students  *StudentHandler
	Lot       *LotHandler
	Dashboard *DashboardHandler
	Exports   *ExportHandler
	Activity  *ActivityHandler
	Metrics   *MetricsHandler
}

// RouterOptions tunes route registration.
type RouterOptions struct {
	APIPrefix      string
	MetricsEnabled bool
	Logger         *zap.Logger
}

// Register mounts probes, metrics and the versioned API on r.
func Register(r *gin.Engine, h Handlers, opts RouterOptions) {
	if opts.APIPrefix == "" {
		opts.APIPrefix = "/api/v1"
	}
	audit := func(action string) gin.HandlerFunc { return middleware.Audit(opts.Logger, action) }

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	if opts.MetricsEnabled {
		r.GET("/metrics", h.Metrics.Prometheus)
	}

	api := r.Group(opts.APIPrefix)
	api.Use(middleware.WithResponseMeta())

	api.GET("/forms", h.Students.Forms)

	students := api.Group("/students")
	students.GET("", h.Students.List)
	students.POST("", audit("student.add"), h.Students.Create)
	students.GET("/eligible", h.Students.Eligible)
	students.GET("/export", h.Exports.Roster)
	students.POST("/import", audit("student.import"), h.Exports.Import)
	students.GET("/import/template", h.Exports.ImportTemplate)
	students.GET("/:id", h.Students.Get)
	students.POST("/:id/forms/:formKey", audit("form.upload"), h.Students.UploadForm)
	students.PUT("/:id/vehicle", audit("vehicle.register"), h.Students.RegisterVehicle)

	lot := api.Group("/lot")
	lot.GET("/spots", h.Lot.ListSpots)
	lot.GET("/spots/:id", h.Lot.Inspect)
	lot.POST("/spots/:id/assignment", audit("spot.assign"), h.Lot.Assign)
	lot.GET("/export", h.Exports.Lot)

	api.GET("/dashboard", h.Dashboard.Summary)
	api.GET("/activity", h.Activity.List)
}
