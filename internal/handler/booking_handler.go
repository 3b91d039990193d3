package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/amirulmuuminin/tahfidz-exam-api/internal/dto"
	"github.com/amirulmuuminin/tahfidz-exam-api/internal/models"
	"github.com/amirulmuuminin/tahfidz-exam-api/internal/service"
	appErrors "github.com/amirulmuuminin/tahfidz-exam-api/pkg/errors"
	"github.com/amirulmuuminin/tahfidz-exam-api/pkg/response"
)

// BookingHandler exposes booking endpoints.
type BookingHandler struct {
	bookings *service.BookingService
}

// NewBookingHandler constructs BookingHandler.
func NewBookingHandler(bookings *service.BookingService) *BookingHandler {
	return &BookingHandler{bookings: bookings}
}

// List godoc
// @Summary List bookings
// @Tags Bookings
// @Produce json
// @Param classId query string false "Filter by class"
// @Param studentId query string false "Filter by student"
// @Param examinerId query string false "Filter by examiner"
// @Param date query string false "Filter by date (YYYY-MM-DD)"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /bookings [get]
func (h *BookingHandler) List(c *gin.Context) {
	var filter models.BookingFilter
	filter.ClassID = c.Query("classId")
	filter.StudentID = c.Query("studentId")
	filter.ExaminerID = c.Query("examinerId")
	filter.DateKey = strings.TrimSpace(c.Query("date"))
	filter.Status = c.Query("status")
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	bookings, pagination, err := h.bookings.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, bookings, pagination)
}

// Get godoc
// @Summary Get booking detail
// @Tags Bookings
// @Produce json
// @Param id path string true "Booking ID"
// @Success 200 {object} response.Envelope
// @Router /bookings/{id} [get]
func (h *BookingHandler) Get(c *gin.Context) {
	booking, err := h.bookings.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

// Create godoc
// @Summary Book a single exam slot
// @Tags Bookings
// @Accept json
// @Produce json
// @Param payload body dto.CreateBookingRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bookings [post]
func (h *BookingHandler) Create(c *gin.Context) {
	var req dto.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	booking, err := h.bookings.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.BookingResponse{Booking: *booking})
}

// CreateMultiPart godoc
// @Summary Book a 5-juz exam across five slots atomically
// @Tags Bookings
// @Accept json
// @Produce json
// @Param payload body dto.CreateMultiPartBookingRequest true "Multi-part payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bookings/multi-part [post]
func (h *BookingHandler) CreateMultiPart(c *gin.Context) {
	var req dto.CreateMultiPartBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	bookings, groupID, err := h.bookings.CreateMultiPart(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, dto.MultiPartBookingResponse{GroupID: groupID, Bookings: bookings})
}

// Complete godoc
// @Summary Record the score of a finished exam
// @Tags Bookings
// @Accept json
// @Produce json
// @Param id path string true "Booking ID"
// @Param payload body dto.CompleteBookingRequest true "Completion payload"
// @Success 200 {object} response.Envelope
// @Router /bookings/{id}/complete [patch]
func (h *BookingHandler) Complete(c *gin.Context) {
	var req dto.CompleteBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	if err := h.bookings.Complete(c.Request.Context(), c.Param("id"), req); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"completed": true}, nil)
}

// Delete godoc
// @Summary Cancel a booking (a multi-part booking cancels as a group)
// @Tags Bookings
// @Param id path string true "Booking ID"
// @Success 204
// @Router /bookings/{id} [delete]
func (h *BookingHandler) Delete(c *gin.Context) {
	if err := h.bookings.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
