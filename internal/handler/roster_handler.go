package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hostel-leave-api/internal/models"
	"github.com/noah-isme/hostel-leave-api/internal/service"
	appErrors "github.com/noah-isme/hostel-leave-api/pkg/errors"
	"github.com/noah-isme/hostel-leave-api/pkg/response"
)

// RosterHandler exposes the live hostel roster.
type RosterHandler struct {
	service *service.RosterService
}

// NewRosterHandler creates a new handler.
func NewRosterHandler(svc *service.RosterService) *RosterHandler {
	return &RosterHandler{service: svc}
}

// Get godoc
// @Summary Hostel roster
// @Description Projects each student's in/out status for a day
// @Tags Roster
// @Produce json
// @Param date query string false "Roster day (YYYY-MM-DD, defaults to today)"
// @Param status query string false "Filter: all or on_leave" Enums(all, on_leave)
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /students/status [get]
func (h *RosterHandler) Get(c *gin.Context) {
	day := models.NewDate(time.Now())
	if raw := c.Query("date"); raw != "" {
		parsed, err := models.ParseDate(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD"))
			return
		}
		day = parsed
	}

	filter := service.RosterFilterAll
	switch c.Query("status") {
	case "", string(service.RosterFilterAll):
	case string(service.RosterFilterOnLeave):
		filter = service.RosterFilterOnLeave
	default:
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "status must be all or on_leave"))
		return
	}

	entries, err := h.service.Project(c.Request.Context(), day, filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, entries, nil, map[string]interface{}{"date": day.String()})
}
