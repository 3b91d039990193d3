package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/amirulmuuminin/tahfidz-exam-api/internal/dto"
	"github.com/amirulmuuminin/tahfidz-exam-api/internal/service"
	appErrors "github.com/amirulmuuminin/tahfidz-exam-api/pkg/errors"
	"github.com/amirulmuuminin/tahfidz-exam-api/pkg/response"
)

// ProblemHandler exposes the scheduling problem detector.
type ProblemHandler struct {
	problems *service.ProblemService
	exports  *service.ProblemExportService
}

// NewProblemHandler constructs ProblemHandler.
func NewProblemHandler(problems *service.ProblemService, exports *service.ProblemExportService) *ProblemHandler {
	return &ProblemHandler{problems: problems, exports: exports}
}

// List godoc
// @Summary List detected scheduling problems
// @Tags Problems
// @Produce json
// @Param from query string false "Window start (YYYY-MM-DD)"
// @Param to query string false "Window end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /problems [get]
func (h *ProblemHandler) List(c *gin.Context) {
	h.scan(c)
}

// Scan godoc
// @Summary Run a problem scan over a date window
// @Tags Problems
// @Produce json
// @Param from query string false "Window start (YYYY-MM-DD)"
// @Param to query string false "Window end (YYYY-MM-DD)"
// @Success 200 {object} response.Envelope
// @Router /problems/scan [post]
func (h *ProblemHandler) Scan(c *gin.Context) {
	h.scan(c)
}

func (h *ProblemHandler) scan(c *gin.Context) {
	var query dto.ProblemScanQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid scan window"))
		return
	}
	from := strings.TrimSpace(query.FromDateKey)
	to := strings.TrimSpace(query.ToDateKey)

	problems, err := h.problems.Detect(c.Request.Context(), from, to)
	if err != nil {
		response.Error(c, err)
		return
	}

	counts := map[string]int{}
	for _, p := range problems {
		counts[string(p.Kind)]++
	}
	if from == "" || to == "" {
		defFrom, defTo := h.problems.DefaultRange()
		if from == "" {
			from = defFrom
		}
		if to == "" {
			to = defTo
		}
	}
	response.JSON(c, http.StatusOK, dto.ProblemScanResponse{
		Problems: problems,
		Counts:   counts,
		From:     from,
		To:       to,
	}, nil)
}

// Export godoc
// @Summary Download the problem report as CSV or PDF
// @Tags Problems
// @Produce text/csv
// @Produce application/pdf
// @Param format query string true "csv or pdf"
// @Param from query string false "Window start (YYYY-MM-DD)"
// @Param to query string false "Window end (YYYY-MM-DD)"
// @Success 200 {file} file
// @Router /problems/export [get]
func (h *ProblemHandler) Export(c *gin.Context) {
	from := strings.TrimSpace(c.Query("from"))
	to := strings.TrimSpace(c.Query("to"))
	format := c.DefaultQuery("format", "csv")

	report, err := h.exports.Render(c.Request.Context(), from, to, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+report.Filename+`"`)
	c.Data(http.StatusOK, report.ContentType, report.Content)
}
