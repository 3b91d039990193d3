package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/amirulmuuminin/tahfidz-exam-api/internal/dto"
	"github.com/amirulmuuminin/tahfidz-exam-api/internal/models"
	"github.com/amirulmuuminin/tahfidz-exam-api/internal/service"
	"github.com/amirulmuuminin/tahfidz-exam-api/pkg/response"
)

// SlotHandler exposes the nearest-slot search.
type SlotHandler struct {
	search *service.SlotSearchService
}

// NewSlotHandler constructs SlotHandler.
func NewSlotHandler(search *service.SlotSearchService) *SlotHandler {
	return &SlotHandler{search: search}
}

// Nearest godoc
// @Summary Find the nearest open exam slots for a class
// @Tags Slots
// @Produce json
// @Param classId query string true "Class ID"
// @Param examKind query string true "Exam kind (non-5juz or 5juz)"
// @Param juzPortion query string false "Portion for single exams (full or half)"
// @Param examinerId query string false "Restrict to one examiner"
// @Success 200 {object} response.Envelope
// @Router /slots/nearest [get]
func (h *SlotHandler) Nearest(c *gin.Context) {
	query := dto.NearestSlotsQuery{
		ClassID:    strings.TrimSpace(c.Query("classId")),
		ExamKind:   models.ExamKind(c.DefaultQuery("examKind", string(models.ExamKindSingle))),
		JuzPortion: c.DefaultQuery("juzPortion", "full"),
		ExaminerID: strings.TrimSpace(c.Query("examinerId")),
	}

	result, err := h.search.NearestSlots(c.Request.Context(), query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
