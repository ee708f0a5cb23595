package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/hostel-leave-api/internal/models"
)

var leaveCols = []string{"id", "student_id", "snapshot", "reason", "place_of_visit", "start_date", "end_date", "status", "approved_by", "approval_timestamp", "system_id", "rejection_reason", "created_at"}

func leaveRow(status models.LeaveStatus) *sqlmock.Rows {
	snapshot := []byte(`{"name":"Priya Sharma","roll_no":"21CS042"}`)
	return sqlmock.NewRows(leaveCols).
		AddRow("r1", "u1", snapshot, "Sister's wedding", "Jaipur",
			time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC),
			time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC),
			string(status), nil, nil, nil, nil, time.Now())
}

func TestCreateLeaveRequest(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLeaveRepository(db)

	mock.ExpectExec("INSERT INTO leave_requests").WillReturnResult(sqlmock.NewResult(1, 1))

	start, _ := models.ParseDate("2026-09-10")
	end, _ := models.ParseDate("2026-09-14")
	req := &models.LeaveRequest{
		StudentID: "u1",
		Snapshot:  models.StudentSnapshot{Name: "Priya Sharma", RollNo: "21CS042"},
		Reason:    "Sister's wedding", PlaceOfVisit: "Jaipur",
		StartDate: start, EndDate: end, Status: models.LeavePending,
	}
	err := repo.Create(context.Background(), req)
	require.NoError(t, err)
	assert.NotEmpty(t, req.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindLeaveRequestByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLeaveRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+leaveColumns+" FROM leave_requests WHERE id = $1 LIMIT 1")).
		WithArgs("r1").
		WillReturnRows(leaveRow(models.LeavePending))

	req, err := repo.FindByID(context.Background(), "r1")
	require.NoError(t, err)
	assert.Equal(t, "u1", req.StudentID)
	assert.Equal(t, "Priya Sharma", req.Snapshot.Name)
	assert.Equal(t, "2026-09-10", req.StartDate.String())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindLeaveRequestNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLeaveRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+leaveColumns+" FROM leave_requests WHERE id = $1 LIMIT 1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.FindByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveTransitionsPendingRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLeaveRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE leave_requests SET status = $2, approved_by = $3, approval_timestamp = $4, system_id = $5, rejection_reason = NULL WHERE id = $1 AND status = $6")).
		WithArgs("r1", string(models.LeaveApproved), "Warden Rao", sqlmock.AnyArg(), "a1b2c3d4", string(models.LeavePending)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	affected, err := repo.Approve(context.Background(), "r1", "Warden Rao", "a1b2c3d4", time.Now().UTC())
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestApproveFinalizedRowAffectsNothing(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLeaveRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE leave_requests SET status = $2, approved_by = $3, approval_timestamp = $4, system_id = $5, rejection_reason = NULL WHERE id = $1 AND status = $6")).
		WithArgs("r1", string(models.LeaveApproved), "Warden Rao", sqlmock.AnyArg(), "a1b2c3d4", string(models.LeavePending)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	affected, err := repo.Approve(context.Background(), "r1", "Warden Rao", "a1b2c3d4", time.Now().UTC())
	require.NoError(t, err)
	assert.Zero(t, affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRejectTransitionsPendingRow(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLeaveRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE leave_requests SET status = $2, rejection_reason = $3 WHERE id = $1 AND status = $4")).
		WithArgs("r1", string(models.LeaveRejected), "exams next week", string(models.LeavePending)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	affected, err := repo.Reject(context.Background(), "r1", "exams next week")
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListPendingOldestFirst(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLeaveRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+leaveColumns+" FROM leave_requests WHERE status = $1 ORDER BY created_at ASC")).
		WithArgs(string(models.LeavePending)).
		WillReturnRows(leaveRow(models.LeavePending))

	requests, err := repo.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, models.LeavePending, requests[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListByStudentNewestFirst(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLeaveRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+leaveColumns+" FROM leave_requests WHERE student_id = $1 ORDER BY created_at DESC")).
		WithArgs("u1").
		WillReturnRows(leaveRow(models.LeaveApproved))

	requests, err := repo.ListByStudent(context.Background(), "u1")
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListApprovedOnCoversDay(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLeaveRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+leaveColumns+" FROM leave_requests WHERE status = $1 AND start_date <= $2 AND end_date >= $2 ORDER BY created_at ASC")).
		WithArgs(string(models.LeaveApproved), sqlmock.AnyArg()).
		WillReturnRows(leaveRow(models.LeaveApproved))

	day, _ := models.ParseDate("2026-09-12")
	requests, err := repo.ListApprovedOn(context.Background(), day)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListOverlappingRange(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewLeaveRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT "+leaveColumns+" FROM leave_requests WHERE start_date <= $2 AND end_date >= $1 ORDER BY start_date ASC, created_at ASC")).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnRows(leaveRow(models.LeaveRejected))

	from, _ := models.ParseDate("2026-09-01")
	to, _ := models.ParseDate("2026-09-30")
	requests, err := repo.ListOverlappingRange(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, requests, 1)
	assert.Equal(t, models.LeaveRejected, requests[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
