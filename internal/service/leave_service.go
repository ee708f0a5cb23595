package service

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/hostel-leave-api/internal/models"
	appErrors "github.com/noah-isme/hostel-leave-api/pkg/errors"
)

type leaveRepository interface {
	Create(ctx context.Context, req *models.LeaveRequest) error
	FindByID(ctx context.Context, id string) (*models.LeaveRequest, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.LeaveRequest, error)
	ListPending(ctx context.Context) ([]models.LeaveRequest, error)
	Approve(ctx context.Context, id, approvedBy, systemID string, ts time.Time) (int64, error)
	Reject(ctx context.Context, id, reason string) (int64, error)
}

type profileSource interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type decisionRecorder interface {
	ObserveLeaveDecision(outcome string)
}

// SubmitLeaveRequest is the student-facing submission payload. Dates arrive
// as YYYY-MM-DD strings and are validated before anything is persisted.
type SubmitLeaveRequest struct {
	Reason       string `json:"reason" validate:"required"`
	PlaceOfVisit string `json:"place_of_visit" validate:"required"`
	StartDate    string `json:"start_date" validate:"required"`
	EndDate      string `json:"end_date" validate:"required"`
}

// ApproveLeaveRequest carries the signatory for an approval.
type ApproveLeaveRequest struct {
	ApprovedBy string `json:"approved_by" validate:"required"`
}

// RejectLeaveRequest carries the mandatory rejection reason. Rejecting
// without a reason is refused here, not just in the UI.
type RejectLeaveRequest struct {
	RejectionReason string `json:"rejection_reason" validate:"required"`
}

// LeaveService enforces the request state machine: pending at creation, at
// most one terminal transition, decision fields mutually exclusive.
type LeaveService struct {
	repo      leaveRepository
	profiles  profileSource
	audit     auditStore
	metrics   decisionRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewLeaveService constructs a LeaveService instance.
func NewLeaveService(repo leaveRepository, profiles profileSource, audit auditStore, metrics decisionRecorder, validate *validator.Validate, logger *zap.Logger) *LeaveService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	return &LeaveService{repo: repo, profiles: profiles, audit: audit, metrics: metrics, validator: validate, logger: logger}
}

// Submit creates a new pending request for the calling student. The
// student's profile is read exactly once, here, to build the snapshot; it is
// never re-read for an existing request.
func (s *LeaveService) Submit(ctx context.Context, actor *models.JWTClaims, req SubmitLeaveRequest) (*models.LeaveRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid leave request payload")
	}

	startDate, err := models.ParseDate(req.StartDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid start date")
	}
	endDate, err := models.ParseDate(req.EndDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid end date")
	}
	if endDate.Before(startDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "end date must not be before start date")
	}

	profile, err := s.profiles.FindByID(ctx, actor.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotAllowListed, "profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
	}

	record := &models.LeaveRequest{
		StudentID: profile.ID,
		Snapshot: models.StudentSnapshot{
			Name:         profile.FullName,
			RollNo:       profile.RollNo,
			Department:   profile.Department,
			Year:         profile.Year,
			HostelName:   profile.HostelName,
			RoomNo:       profile.RoomNo,
			ParentMobile: profile.ParentMobile,
			PlaceOfVisit: req.PlaceOfVisit,
		},
		Reason:       req.Reason,
		PlaceOfVisit: req.PlaceOfVisit,
		StartDate:    startDate,
		EndDate:      endDate,
		Status:       models.LeavePending,
	}

	if err := s.repo.Create(ctx, record); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create leave request")
	}

	s.recordAudit(ctx, actor.UserID, models.AuditActionSubmitRequest, record.ID,
		fmt.Sprintf(`{"start":%q,"end":%q}`, startDate, endDate))

	return record, nil
}

// ListOwn returns the student's requests, newest first.
func (s *LeaveService) ListOwn(ctx context.Context, studentID string) ([]models.LeaveRequest, error) {
	requests, err := s.repo.ListByStudent(ctx, studentID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	return requests, nil
}

// ListPending returns the admin review queue, oldest first.
func (s *LeaveService) ListPending(ctx context.Context) ([]models.LeaveRequest, error) {
	requests, err := s.repo.ListPending(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending requests")
	}
	return requests, nil
}

// Approve transitions a pending request to approved. The transition is a
// conditional update: if another decision already landed, this one observes
// zero affected rows and fails with FINALIZED, leaving the earlier decision
// untouched.
func (s *LeaveService) Approve(ctx context.Context, actor *models.JWTClaims, id string, req ApproveLeaveRequest) (*models.LeaveRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "approver name is required")
	}

	systemID, err := newSystemID()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to generate slip reference")
	}

	affected, err := s.repo.Approve(ctx, id, req.ApprovedBy, systemID, time.Now().UTC())
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to approve request")
	}
	if affected == 0 {
		return nil, s.transitionConflict(ctx, id)
	}

	s.observeDecision("approved")
	s.recordAudit(ctx, actor.UserID, models.AuditActionApproveRequest, id,
		fmt.Sprintf(`{"approved_by":%q,"system_id":%q}`, req.ApprovedBy, systemID))

	return s.reload(ctx, id)
}

// Reject transitions a pending request to rejected, with the same
// conditional shape as Approve.
func (s *LeaveService) Reject(ctx context.Context, actor *models.JWTClaims, id string, req RejectLeaveRequest) (*models.LeaveRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "rejection reason is required")
	}

	affected, err := s.repo.Reject(ctx, id, req.RejectionReason)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reject request")
	}
	if affected == 0 {
		return nil, s.transitionConflict(ctx, id)
	}

	s.observeDecision("rejected")
	s.recordAudit(ctx, actor.UserID, models.AuditActionRejectRequest, id,
		fmt.Sprintf(`{"rejection_reason":%q}`, req.RejectionReason))

	return s.reload(ctx, id)
}

// GetSlip returns the full request including the snapshot. Admins may
// preview any request regardless of status; the owning student only once it
// is approved; everyone else is refused.
func (s *LeaveService) GetSlip(ctx context.Context, actor *models.JWTClaims, id string) (*models.LeaveRequest, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "leave request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}

	if actor.Role == models.RoleAdmin {
		return record, nil
	}
	if actor.Role != models.RoleStudent || record.StudentID != actor.UserID {
		return nil, appErrors.ErrForbidden
	}
	if record.Status != models.LeaveApproved {
		return nil, appErrors.Clone(appErrors.ErrNotApproved, "slip is available once the request is approved")
	}
	return record, nil
}

func (s *LeaveService) reload(ctx context.Context, id string) (*models.LeaveRequest, error) {
	record, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload request")
	}
	return record, nil
}

// transitionConflict disambiguates a zero-row conditional update: either the
// id is unknown or the request already reached a terminal state.
func (s *LeaveService) transitionConflict(ctx context.Context, id string) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "leave request not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	return appErrors.Clone(appErrors.ErrFinalized, "request has already been decided")
}

func (s *LeaveService) observeDecision(outcome string) {
	if s.metrics != nil {
		s.metrics.ObserveLeaveDecision(outcome)
	}
}

func (s *LeaveService) recordAudit(ctx context.Context, actorID, action, resourceID, values string) {
	if s.audit == nil {
		return
	}
	entry := &models.AuditLog{
		ActorID:    &actorID,
		Action:     action,
		Resource:   "leave_request",
		ResourceID: &resourceID,
		NewValues:  []byte(values),
	}
	if err := s.audit.Create(ctx, entry); err != nil {
		s.logger.Warn("failed to record audit log", zap.String("action", action), zap.Error(err))
	}
}

func newSystemID() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
