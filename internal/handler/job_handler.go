// internal/handler/job_handler.go
package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"label-service/internal/model"
	"label-service/internal/service"
	"label-service/internal/utils"
)

// JobHandler handles print job HTTP requests
type JobHandler struct {
	printService *service.PrintService
	logger       *utils.ServiceLogger
}

// NewJobHandler creates a new job handler
func NewJobHandler(printService *service.PrintService, logger *zap.Logger) *JobHandler {
	return &JobHandler{
		printService: printService,
		logger:       utils.NewServiceLogger(logger, "job-handler"),
	}
}

// RegisterRoutes registers job-related routes
func (h *JobHandler) RegisterRoutes(router *gin.RouterGroup) {
	jobs := router.Group("/jobs")
	{
		jobs.GET("", h.ListJobs)
		jobs.GET("/:id", h.GetJob)
	}
}

// GetJob retrieves a print job by ID
// @Summary Get print job details
// @Description Get print job details and outcome by job ID
// @Tags Jobs
// @Produce json
// @Param id path string true "Job ID"
// @Success 200 {object} utils.APIResponse{data=model.PrintJob} "Job retrieved successfully"
// @Failure 400 {object} utils.APIResponse "Invalid job ID"
// @Failure 404 {object} utils.APIResponse "Job not found"
// @Router /jobs/{id} [get]
func (h *JobHandler) GetJob(c *gin.Context) {
	idStr := c.Param("id")
	id, err := uuid.Parse(idStr)
	if err != nil {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid job ID", err)
		return
	}

	job, err := h.printService.GetJob(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get print job", zap.Error(err))
		utils.ErrorResponse(c, http.StatusNotFound, "Print job not found", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Job retrieved successfully", job)
}

// ListJobs lists print jobs with filtering
// @Summary List print jobs
// @Description Get list of print jobs with filtering and pagination
// @Tags Jobs
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param per_page query int false "Items per page" default(20)
// @Param status query string false "Filter by status" Enums(PENDING, PROCESSING, SUCCESS, FAILED)
// @Param host query string false "Filter by printer host"
// @Param start_date query string false "Start date filter (RFC3339)"
// @Param end_date query string false "End date filter (RFC3339)"
// @Success 200 {object} utils.APIResponse{data=object{jobs=[]model.PrintJob,pagination=service.PaginationResult}} "Jobs retrieved successfully"
// @Failure 500 {object} utils.APIResponse "Internal server error"
// @Router /jobs [get]
func (h *JobHandler) ListJobs(c *gin.Context) {
	filter := &service.JobFilter{
		Page:      1,
		PerPage:   20,
		SortBy:    "created_at",
		SortOrder: "desc",
	}

	// Parse pagination
	if page := c.Query("page"); page != "" {
		if p, err := strconv.Atoi(page); err == nil && p > 0 {
			filter.Page = p
		}
	}
	if perPage := c.Query("per_page"); perPage != "" {
		if pp, err := strconv.Atoi(perPage); err == nil && pp > 0 && pp <= 100 {
			filter.PerPage = pp
		}
	}

	// Parse filters
	if status := c.Query("status"); status != "" {
		s := model.JobStatus(status)
		filter.Status = &s
	}
	if host := c.Query("host"); host != "" {
		filter.Host = &host
	}
	if startDate := c.Query("start_date"); startDate != "" {
		if date, err := time.Parse(time.RFC3339, startDate); err == nil {
			filter.StartDate = &date
		}
	}
	if endDate := c.Query("end_date"); endDate != "" {
		if date, err := time.Parse(time.RFC3339, endDate); err == nil {
			filter.EndDate = &date
		}
	}

	jobs, pagination, err := h.printService.ListJobs(c.Request.Context(), filter)
	if err != nil {
		h.logger.Error("Failed to list print jobs", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list jobs", err)
		return
	}

	response := gin.H{
		"jobs":       jobs,
		"pagination": pagination,
	}

	utils.SuccessResponse(c, http.StatusOK, "Jobs retrieved successfully", response)
}
