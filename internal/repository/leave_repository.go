package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/hostel-leave-api/internal/models"
)

const leaveColumns = `id, student_id, snapshot, reason, place_of_visit, start_date, end_date, status, approved_by, approval_timestamp, system_id, rejection_reason, created_at`

// LeaveRepository provides database access for leave requests. Rows are
// inserted and transitioned but never deleted.
type LeaveRepository struct {
	db *sqlx.DB
}

// NewLeaveRepository creates a new instance of LeaveRepository.
func NewLeaveRepository(db *sqlx.DB) *LeaveRepository {
	return &LeaveRepository{db: db}
}

// Create inserts a new pending request.
func (r *LeaveRepository) Create(ctx context.Context, req *models.LeaveRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO leave_requests (id, student_id, snapshot, reason, place_of_visit, start_date, end_date, status, created_at) VALUES (:id, :student_id, :snapshot, :reason, :place_of_visit, :start_date, :end_date, :status, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create leave request: %w", err)
	}
	return nil
}

// FindByID returns a request by identifier.
func (r *LeaveRepository) FindByID(ctx context.Context, id string) (*models.LeaveRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM leave_requests WHERE id = $1 LIMIT 1`, leaveColumns)
	var req models.LeaveRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find leave request by id: %w", err)
	}
	return &req, nil
}

// ListByStudent returns a student's requests, newest first.
func (r *LeaveRepository) ListByStudent(ctx context.Context, studentID string) ([]models.LeaveRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM leave_requests WHERE student_id = $1 ORDER BY created_at DESC`, leaveColumns)
	var requests []models.LeaveRequest
	if err := r.db.SelectContext(ctx, &requests, query, studentID); err != nil {
		return nil, fmt.Errorf("list requests by student: %w", err)
	}
	return requests, nil
}

// ListPending returns pending requests oldest first, so the review queue is
// fair to early submitters.
func (r *LeaveRepository) ListPending(ctx context.Context) ([]models.LeaveRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM leave_requests WHERE status = $1 ORDER BY created_at ASC`, leaveColumns)
	var requests []models.LeaveRequest
	if err := r.db.SelectContext(ctx, &requests, query, models.LeavePending); err != nil {
		return nil, fmt.Errorf("list pending requests: %w", err)
	}
	return requests, nil
}

// Approve performs the terminal transition to approved as a single
// conditional update keyed on the pending status. Zero rows affected means
// the request was missing or already finalized; two racing decisions can
// never both succeed.
func (r *LeaveRepository) Approve(ctx context.Context, id, approvedBy, systemID string, ts time.Time) (int64, error) {
	const query = `UPDATE leave_requests SET status = $2, approved_by = $3, approval_timestamp = $4, system_id = $5, rejection_reason = NULL WHERE id = $1 AND status = $6`
	res, err := r.db.ExecContext(ctx, query, id, models.LeaveApproved, approvedBy, ts, systemID, models.LeavePending)
	if err != nil {
		return 0, fmt.Errorf("approve leave request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("approve leave request rows: %w", err)
	}
	return affected, nil
}

// Reject performs the terminal transition to rejected with the same
// conditional shape as Approve.
func (r *LeaveRepository) Reject(ctx context.Context, id, reason string) (int64, error) {
	const query = `UPDATE leave_requests SET status = $2, rejection_reason = $3 WHERE id = $1 AND status = $4`
	res, err := r.db.ExecContext(ctx, query, id, models.LeaveRejected, reason, models.LeavePending)
	if err != nil {
		return 0, fmt.Errorf("reject leave request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("reject leave request rows: %w", err)
	}
	return affected, nil
}

// ListApprovedOn returns approved requests whose date range covers the given
// day. Feeds the roster projection.
func (r *LeaveRepository) ListApprovedOn(ctx context.Context, day models.Date) ([]models.LeaveRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM leave_requests WHERE status = $1 AND start_date <= $2 AND end_date >= $2 ORDER BY created_at ASC`, leaveColumns)
	var requests []models.LeaveRequest
	if err := r.db.SelectContext(ctx, &requests, query, models.LeaveApproved, day); err != nil {
		return nil, fmt.Errorf("list approved requests on day: %w", err)
	}
	return requests, nil
}

// ListOverlappingRange returns every request whose leave window intersects
// [from, to], regardless of status. Feeds the leave-register export.
func (r *LeaveRepository) ListOverlappingRange(ctx context.Context, from, to models.Date) ([]models.LeaveRequest, error) {
	query := fmt.Sprintf(`SELECT %s FROM leave_requests WHERE start_date <= $2 AND end_date >= $1 ORDER BY start_date ASC, created_at ASC`, leaveColumns)
	var requests []models.LeaveRequest
	if err := r.db.SelectContext(ctx, &requests, query, from, to); err != nil {
		return nil, fmt.Errorf("list requests in range: %w", err)
	}
	return requests, nil
}
