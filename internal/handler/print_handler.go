// internal/handler/print_handler.go
package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"label-service/internal/driver/sato"
	"label-service/internal/sbpl"
	"label-service/internal/service"
	"label-service/internal/utils"
)

// PrintHandler handles print-related HTTP requests
type PrintHandler struct {
	printService *service.PrintService
	logger       *utils.ServiceLogger
}

// NewPrintHandler creates a new print handler
func NewPrintHandler(printService *service.PrintService, logger *zap.Logger) *PrintHandler {
	return &PrintHandler{
		printService: printService,
		logger:       utils.NewServiceLogger(logger, "print-handler"),
	}
}

// RegisterRoutes registers print-related routes
func (h *PrintHandler) RegisterRoutes(router *gin.RouterGroup) {
	print := router.Group("/print")
	{
		print.POST("", h.Print)
		print.POST("/preview", h.Preview)
	}

	router.GET("/fonts", h.ListFonts)
}

// Print executes a print job
// @Summary Print a descriptor
// @Description Translate a descriptor document and print it over a full printer session
// @Tags Print
// @Accept json
// @Produce json
// @Param request body []interface{} true "Descriptor document"
// @Success 200 {object} utils.APIResponse{data=service.PrintResponse} "Print job completed"
// @Failure 400 {object} utils.APIResponse "Invalid request body"
// @Failure 422 {object} utils.APIResponse "Descriptor rejected"
// @Failure 502 {object} utils.APIResponse "Printer unreachable"
// @Router /print [post]
func (h *PrintHandler) Print(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil || len(raw) == 0 {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	response, err := h.printService.Print(c.Request.Context(), raw)
	if err != nil {
		h.logger.Error("Print job failed", zap.Error(err))
		status, message := printErrorStatus(err)
		utils.ErrorResponse(c, status, message, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Print job completed", response)
}

// Preview renders a descriptor without printing
// @Summary Preview a descriptor
// @Description Translate a descriptor document and return the rendered packet as hex, without device I/O
// @Tags Print
// @Accept json
// @Produce json
// @Param request body []interface{} true "Descriptor document"
// @Success 200 {object} utils.APIResponse{data=service.PreviewResponse} "Packet rendered"
// @Failure 400 {object} utils.APIResponse "Invalid request body"
// @Failure 422 {object} utils.APIResponse "Descriptor rejected"
// @Router /print/preview [post]
func (h *PrintHandler) Preview(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil || len(raw) == 0 {
		utils.ErrorResponse(c, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	response, err := h.printService.Preview(c.Request.Context(), raw)
	if err != nil {
		h.logger.Error("Preview failed", zap.Error(err))
		status, message := printErrorStatus(err)
		utils.ErrorResponse(c, status, message, err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Packet rendered", response)
}

// ListFonts lists available fonts
// @Summary List fonts
// @Description Get available fonts and supported printer frame tables
// @Tags Print
// @Produce json
// @Success 200 {object} utils.APIResponse{data=service.FontListResponse} "Fonts retrieved successfully"
// @Router /fonts [get]
func (h *PrintHandler) ListFonts(c *gin.Context) {
	response, err := h.printService.ListFonts()
	if err != nil {
		h.logger.Error("Failed to list fonts", zap.Error(err))
		utils.ErrorResponse(c, http.StatusInternalServerError, "Failed to list fonts", err)
		return
	}

	utils.SuccessResponse(c, http.StatusOK, "Fonts retrieved successfully", response)
}

// printErrorStatus maps translation and session failures to HTTP status
// codes. Descriptor problems are the client's fault; session problems
// mean the printer could not be driven.
func printErrorStatus(err error) (int, string) {
	var resourceErr *sbpl.ResourceError
	if errors.As(err, &resourceErr) {
		return http.StatusRequestEntityTooLarge, "Rendered packet exceeds size limit"
	}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) {
		return http.StatusBadRequest, "Malformed descriptor document"
	}

	var encodingErr *sbpl.EncodingError
	var scopeErr *sbpl.ScopeUsageError
	var glyphErr *sbpl.GlyphError
	if errors.As(err, &encodingErr) || errors.As(err, &scopeErr) || errors.As(err, &glyphErr) {
		return http.StatusUnprocessableEntity, "Descriptor rejected"
	}

	var stateErr *sato.StateError
	if errors.As(err, &stateErr) {
		return http.StatusInternalServerError, "Print session failed"
	}

	return http.StatusBadGateway, "Printer unreachable"
}
