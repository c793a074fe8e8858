package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-timetable-api/internal/service"
	appErrors "github.com/noah-isme/school-timetable-api/pkg/errors"
	"github.com/noah-isme/school-timetable-api/pkg/response"
)

// AvailabilityHandler manages teacher availability endpoints.
type AvailabilityHandler struct {
	service *service.AvailabilityService
}

// NewAvailabilityHandler constructs handler.
func NewAvailabilityHandler(svc *service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: svc}
}

// ListByTeacher godoc
// @Summary List a teacher's availability
// @Tags Availability
// @Produce json
// @Param teacherID path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /teachers/{teacherID}/availability [get]
func (h *AvailabilityHandler) ListByTeacher(c *gin.Context) {
	availabilities, err := h.service.ListByTeacher(c.Request.Context(), c.Param("teacherID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, availabilities, nil)
}

// Set godoc
// @Summary Set availability for a time slot
// @Description Upsert the teacher's availability for one slot. A reason is required when marking unavailable.
// @Tags Availability
// @Accept json
// @Produce json
// @Param teacherID path string true "Teacher ID"
// @Param payload body service.SetAvailabilityRequest true "Availability payload"
// @Success 200 {object} response.Envelope
// @Router /teachers/{teacherID}/availability [put]
func (h *AvailabilityHandler) Set(c *gin.Context) {
	var req service.SetAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	availability, err := h.service.Set(c.Request.Context(), c.Param("teacherID"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, availability, nil)
}
