package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/hostel-leave-api/internal/models"
	"github.com/noah-isme/hostel-leave-api/internal/service"
	appErrors "github.com/noah-isme/hostel-leave-api/pkg/errors"
	"github.com/noah-isme/hostel-leave-api/pkg/export"
	"github.com/noah-isme/hostel-leave-api/pkg/response"
)

// LeaveHandler exposes the leave request lifecycle endpoints.
type LeaveHandler struct {
	service *service.LeaveService
	slips   *export.SlipRenderer
}

// NewLeaveHandler creates a new handler.
func NewLeaveHandler(svc *service.LeaveService, slips *export.SlipRenderer) *LeaveHandler {
	return &LeaveHandler{service: svc, slips: slips}
}

// Submit godoc
// @Summary Submit a leave request
// @Description Create a new pending leave request for the calling student
// @Tags Leave
// @Accept json
// @Produce json
// @Param payload body service.SubmitLeaveRequest true "Submission payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /requests [post]
func (h *LeaveHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.SubmitLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid leave request payload"))
		return
	}

	record, err := h.service.Submit(c.Request.Context(), claims, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, record)
}

// ListOwn godoc
// @Summary List own requests
// @Description Returns the calling student's requests, newest first
// @Tags Leave
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 401 {object} response.Envelope
// @Router /requests/my [get]
func (h *LeaveHandler) ListOwn(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	requests, err := h.service.ListOwn(c.Request.Context(), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, requests, nil)
}

// ListPending godoc
// @Summary List pending requests
// @Description Returns the admin review queue, oldest first
// @Tags Leave
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /requests/pending [get]
func (h *LeaveHandler) ListPending(c *gin.Context) {
	requests, err := h.service.ListPending(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, requests, nil)
}

// Approve godoc
// @Summary Approve a pending request
// @Description Transition a pending request to approved and mint a pass reference
// @Tags Leave
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body service.ApproveLeaveRequest true "Approval payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /requests/{id}/approve [post]
func (h *LeaveHandler) Approve(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.ApproveLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "approver name is required"))
		return
	}

	record, err := h.service.Approve(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, record, nil)
}

// Reject godoc
// @Summary Reject a pending request
// @Description Transition a pending request to rejected with a mandatory reason
// @Tags Leave
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body service.RejectLeaveRequest true "Rejection payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /requests/{id}/reject [post]
func (h *LeaveHandler) Reject(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req service.RejectLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "rejection reason is required"))
		return
	}

	record, err := h.service.Reject(c.Request.Context(), claims, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, record, nil)
}

// GetSlip godoc
// @Summary Get slip data
// @Description Returns the full request including the student snapshot
// @Tags Leave
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /requests/{id}/slip [get]
func (h *LeaveHandler) GetSlip(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	record, err := h.service.GetSlip(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	response.JSON(c, http.StatusOK, record, nil)
}

// GetSlipPDF godoc
// @Summary Download slip as PDF
// @Description Renders the printable out-pass for an approved request
// @Tags Leave
// @Produce application/pdf
// @Param id path string true "Request ID"
// @Success 200 {file} binary
// @Failure 403 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /requests/{id}/slip.pdf [get]
func (h *LeaveHandler) GetSlipPDF(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	record, err := h.service.GetSlip(c.Request.Context(), claims, c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}

	payload, err := h.slips.Render(slipDataFrom(record))
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render slip"))
		return
	}

	filename := fmt.Sprintf("out-pass-%s.pdf", record.ID)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/pdf", payload)
}

func slipDataFrom(record *models.LeaveRequest) export.SlipData {
	data := export.SlipData{
		RequestID:    record.ID,
		StudentName:  record.Snapshot.Name,
		RollNo:       record.Snapshot.RollNo,
		Department:   record.Snapshot.Department,
		Year:         record.Snapshot.Year,
		HostelName:   record.Snapshot.HostelName,
		RoomNo:       record.Snapshot.RoomNo,
		ParentMobile: record.Snapshot.ParentMobile,
		PlaceOfVisit: record.PlaceOfVisit,
		Reason:       record.Reason,
		FromDate:     record.StartDate.String(),
		ToDate:       record.EndDate.String(),
	}
	if record.SystemID != nil {
		data.SystemID = *record.SystemID
	}
	if record.ApprovedBy != nil {
		data.ApprovedBy = *record.ApprovedBy
	}
	if record.ApprovalTimestamp != nil {
		data.ApprovedOn = record.ApprovalTimestamp.Format("2006-01-02 15:04")
	}
	return data
}
