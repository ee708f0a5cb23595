package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/noah-isme/hostel-leave-api/internal/models"
	appErrors "github.com/noah-isme/hostel-leave-api/pkg/errors"
)

type rosterStudentSource interface {
	ListActiveStudents(ctx context.Context) ([]models.User, error)
}

type rosterLeaveSource interface {
	ListApprovedOn(ctx context.Context, day models.Date) ([]models.LeaveRequest, error)
}

// RosterFilter narrows the projected view.
type RosterFilter string

const (
	RosterFilterAll     RosterFilter = "all"
	RosterFilterOnLeave RosterFilter = "on_leave"
)

// RosterService projects each student's in/out status for a day from
// approved requests. The projection is recomputed on every call; staleness
// is bounded only by request latency.
type RosterService struct {
	students rosterStudentSource
	leaves   rosterLeaveSource
	logger   *zap.Logger
}

// NewRosterService constructs a RosterService instance.
func NewRosterService(students rosterStudentSource, leaves rosterLeaveSource, logger *zap.Logger) *RosterService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RosterService{students: students, leaves: leaves, logger: logger}
}

// Project returns the roster for the given day. A student is on leave iff
// an approved request covers the day; when several overlap, the oldest wins.
func (s *RosterService) Project(ctx context.Context, day models.Date, filter RosterFilter) ([]models.RosterEntry, error) {
	students, err := s.students.ListActiveStudents(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list students")
	}

	approved, err := s.leaves.ListApprovedOn(ctx, day)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list approved requests")
	}

	// First approved match per student; the query orders by created_at.
	active := make(map[string]*models.LeaveRequest, len(approved))
	for i := range approved {
		req := &approved[i]
		if _, seen := active[req.StudentID]; !seen {
			active[req.StudentID] = req
		}
	}

	entries := make([]models.RosterEntry, 0, len(students))
	for _, student := range students {
		entry := models.RosterEntry{
			StudentID:  student.ID,
			Name:       student.FullName,
			RollNo:     student.RollNo,
			HostelName: student.HostelName,
			RoomNo:     student.RoomNo,
			Status:     models.RosterInHostel,
		}
		if leave, ok := active[student.ID]; ok {
			entry.Status = models.RosterOnLeave
			entry.ActiveLeave = &models.ActiveLeave{
				RequestID:    leave.ID,
				From:         leave.StartDate,
				To:           leave.EndDate,
				PlaceOfVisit: leave.PlaceOfVisit,
			}
		}
		if filter == RosterFilterOnLeave && entry.Status != models.RosterOnLeave {
			continue
		}
		entries = append(entries, entry)
	}

	return entries, nil
}
