package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hostel-leave-api/internal/models"
	"github.com/noah-isme/hostel-leave-api/internal/service"
	appErrors "github.com/noah-isme/hostel-leave-api/pkg/errors"
	"github.com/noah-isme/hostel-leave-api/pkg/response"
)

// AllowListHandler manages allow-list administration endpoints.
type AllowListHandler struct {
	service *service.AllowListService
}

// NewAllowListHandler creates a new handler.
func NewAllowListHandler(svc *service.AllowListService) *AllowListHandler {
	return &AllowListHandler{service: svc}
}

// Add godoc
// @Summary Add an allow-list entry
// @Tags AllowList
// @Accept json
// @Produce json
// @Param payload body service.AddAllowListEntryRequest true "Entry payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /allowlist [post]
func (h *AllowListHandler) Add(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.AddAllowListEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid allow-list payload"))
		return
	}

	user, err := h.service.Add(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, user)
}

// Remove godoc
// @Summary Remove an allow-list entry
// @Description Deactivates the entry; historic requests keep their references
// @Tags AllowList
// @Produce json
// @Param id path string true "Entry ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /allowlist/{id} [delete]
func (h *AllowListHandler) Remove(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.Remove(c.Request.Context(), claims, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.NoContent(c)
}

// List godoc
// @Summary List allow-list entries
// @Tags AllowList
// @Produce json
// @Param role query string false "Filter by role" Enums(student, staff, admin)
// @Param search query string false "Match against email, name or roll number"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /allowlist [get]
func (h *AllowListHandler) List(c *gin.Context) {
	filter := models.AllowListFilter{
		Search: c.Query("search"),
	}
	if raw := c.Query("role"); raw != "" {
		role := models.Role(raw)
		if !role.Valid() {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "role must be one of student, staff, admin"))
			return
		}
		filter.Role = &role
	}
	if raw := c.Query("page"); raw != "" {
		if page, err := strconv.Atoi(raw); err == nil {
			filter.Page = page
		}
	}
	if raw := c.Query("page_size"); raw != "" {
		if size, err := strconv.Atoi(raw); err == nil {
			filter.PageSize = size
		}
	}

	users, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, users, pagination)
}

// Import godoc
// @Summary Bulk import allow-list entries
// @Description Accepts a CSV upload; invalid rows are skipped and reported
// @Tags AllowList
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "CSV file"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /allowlist/import [post]
func (h *AllowListHandler) Import(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "CSV file upload is required"))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "failed to open upload"))
		return
	}
	defer file.Close()

	result, err := h.service.BulkImport(c.Request.Context(), claims, file)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, result, nil)
}
