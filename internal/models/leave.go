package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// LeaveStatus tracks a request through its lifecycle. A request starts
// pending and transitions at most once to approved or rejected.
type LeaveStatus string

const (
	LeavePending  LeaveStatus = "pending"
	LeaveApproved LeaveStatus = "approved"
	LeaveRejected LeaveStatus = "rejected"
)

// Terminal reports whether no further transition is permitted.
func (s LeaveStatus) Terminal() bool {
	return s == LeaveApproved || s == LeaveRejected
}

// Date is a calendar day without a time component, serialised as YYYY-MM-DD
// in JSON and stored in a DATE column.
type Date struct {
	time.Time
}

const dateLayout = "2006-01-02"

// NewDate truncates t to its calendar day in UTC.
func NewDate(t time.Time) Date {
	return Date{time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(raw string) (Date, error) {
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", raw)
	}
	return Date{t}, nil
}

// String renders the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(dateLayout)
}

// Before reports whether d falls on an earlier day than other.
func (d Date) Before(other Date) bool {
	return d.Time.Before(other.Time)
}

// After reports whether d falls on a later day than other.
func (d Date) After(other Date) bool {
	return d.Time.After(other.Time)
}

// MarshalJSON implements json.Marshaler.
func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.String())
}

// UnmarshalJSON implements json.Unmarshaler.
func (d *Date) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed, err := ParseDate(strings.TrimSpace(raw))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Value implements driver.Valuer.
func (d Date) Value() (driver.Value, error) {
	return d.Time, nil
}

// Scan implements sql.Scanner.
func (d *Date) Scan(src interface{}) error {
	switch v := src.(type) {
	case time.Time:
		*d = NewDate(v)
		return nil
	case []byte:
		parsed, err := ParseDate(string(v))
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	case string:
		parsed, err := ParseDate(v)
		if err != nil {
			return err
		}
		*d = parsed
		return nil
	default:
		return fmt.Errorf("cannot scan %T into Date", src)
	}
}

// StudentSnapshot is the immutable copy of the student's profile captured at
// submission. It is the only source for slip and listing displays; later
// profile edits never flow into an existing request.
type StudentSnapshot struct {
	Name         string `json:"name"`
	RollNo       string `json:"roll_no"`
	Department   string `json:"department"`
	Year         string `json:"year"`
	HostelName   string `json:"hostel_name"`
	RoomNo       string `json:"room_no"`
	ParentMobile string `json:"parent_mobile"`
	PlaceOfVisit string `json:"place_of_visit"`
}

// Value implements driver.Valuer for the jsonb snapshot column.
func (s StudentSnapshot) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner for the jsonb snapshot column.
func (s *StudentSnapshot) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, s)
	case string:
		return json.Unmarshal([]byte(v), s)
	default:
		return fmt.Errorf("cannot scan %T into StudentSnapshot", src)
	}
}

// LeaveRequest is the central entity. Rows are never deleted; approved and
// rejected requests remain as the audit trail.
type LeaveRequest struct {
	ID                string          `db:"id" json:"id"`
	StudentID         string          `db:"student_id" json:"student_id"`
	Snapshot          StudentSnapshot `db:"snapshot" json:"snapshot"`
	Reason            string          `db:"reason" json:"reason"`
	PlaceOfVisit      string          `db:"place_of_visit" json:"place_of_visit"`
	StartDate         Date            `db:"start_date" json:"start_date"`
	EndDate           Date            `db:"end_date" json:"end_date"`
	Status            LeaveStatus     `db:"status" json:"status"`
	ApprovedBy        *string         `db:"approved_by" json:"approved_by,omitempty"`
	ApprovalTimestamp *time.Time      `db:"approval_timestamp" json:"approval_timestamp,omitempty"`
	SystemID          *string         `db:"system_id" json:"system_id,omitempty"`
	RejectionReason   *string         `db:"rejection_reason" json:"rejection_reason,omitempty"`
	CreatedAt         time.Time       `db:"created_at" json:"created_at"`
}
