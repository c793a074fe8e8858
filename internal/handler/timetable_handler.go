package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-timetable-api/internal/models"
	"github.com/noah-isme/school-timetable-api/internal/service"
	appErrors "github.com/noah-isme/school-timetable-api/pkg/errors"
	"github.com/noah-isme/school-timetable-api/pkg/response"
)

// TimetableHandler serves the weekly timetable projections and exports.
type TimetableHandler struct {
	timetables *service.TimetableService
	exports    *service.ExportService
}

// NewTimetableHandler constructs handler.
func NewTimetableHandler(timetables *service.TimetableService, exports *service.ExportService) *TimetableHandler {
	return &TimetableHandler{timetables: timetables, exports: exports}
}

// Term godoc
// @Summary Full timetable for a term
// @Tags Timetables
// @Produce json
// @Param termID path string true "Term ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/terms/{termID} [get]
func (h *TimetableHandler) Term(c *gin.Context) {
	timetable, err := h.timetables.ForTerm(c.Request.Context(), c.Param("termID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, timetable, nil)
}

// Teacher godoc
// @Summary Teacher timetable for a term
// @Tags Timetables
// @Produce json
// @Param termID path string true "Term ID"
// @Param teacherID path string true "Teacher ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/terms/{termID}/teachers/{teacherID} [get]
func (h *TimetableHandler) Teacher(c *gin.Context) {
	timetable, err := h.timetables.ForTeacher(c.Request.Context(), c.Param("termID"), c.Param("teacherID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, timetable, nil)
}

// ClassGroup godoc
// @Summary Class group timetable for a term
// @Tags Timetables
// @Produce json
// @Param termID path string true "Term ID"
// @Param classGroupID path string true "Class group ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/terms/{termID}/class-groups/{classGroupID} [get]
func (h *TimetableHandler) ClassGroup(c *gin.Context) {
	timetable, err := h.timetables.ForClassGroup(c.Request.Context(), c.Param("termID"), c.Param("classGroupID"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, timetable, nil)
}

// Mine godoc
// @Summary Own timetable for a term
// @Description Resolves the scope from the caller's role: teachers get their
// lessons, students their class group's, admins the full term.
// @Tags Timetables
// @Produce json
// @Param termID path string true "Term ID"
// @Success 200 {object} response.Envelope
// @Router /timetables/terms/{termID}/me [get]
func (h *TimetableHandler) Mine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	termID := c.Param("termID")
	var (
		timetable *models.WeeklyTimetable
		err       error
	)
	switch {
	case claims.Role == models.RoleTeacher && claims.TeacherID != "":
		timetable, err = h.timetables.ForTeacher(c.Request.Context(), termID, claims.TeacherID)
	case claims.Role == models.RoleStudent && claims.ClassGroupID != "":
		timetable, err = h.timetables.ForClassGroup(c.Request.Context(), termID, claims.ClassGroupID)
	case claims.Role == models.RoleAdmin:
		timetable, err = h.timetables.ForTerm(c.Request.Context(), termID)
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "no timetable scope linked to this account"))
		return
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, timetable, nil)
}

// Export godoc
// @Summary Export a timetable
// @Description Renders a timetable to CSV or PDF and returns a signed download token.
// @Tags Timetables
// @Accept json
// @Produce json
// @Param payload body service.ExportRequest true "Export payload"
// @Success 201 {object} response.Envelope
// @Router /timetables/export [post]
func (h *TimetableHandler) Export(c *gin.Context) {
	var req service.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.exports.Export(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, result)
}

// Download godoc
// @Summary Download an exported timetable
// @Description Streams the file referenced by a signed token. No auth header required.
// @Tags Timetables
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200
// @Failure 401 {object} response.Envelope
// @Router /timetables/export/download [get]
func (h *TimetableHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token query parameter required"))
		return
	}

	file, name, err := h.exports.OpenDownload(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer file.Close()

	c.FileAttachment(file.Name(), name)
}
