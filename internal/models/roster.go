package models

// RosterStatus is a student's in/out state for a given day.
type RosterStatus string

const (
	RosterInHostel RosterStatus = "IN_HOSTEL"
	RosterOnLeave  RosterStatus = "ON_LEAVE"
)

// ActiveLeave summarises the approved request that puts a student on leave.
type ActiveLeave struct {
	RequestID    string `json:"request_id"`
	From         Date   `json:"from"`
	To           Date   `json:"to"`
	PlaceOfVisit string `json:"place_of_visit"`
}

// RosterEntry is a derived row of the staff roster view. It is never stored:
// the roster is recomputed from approved requests on every call.
type RosterEntry struct {
	StudentID   string       `json:"student_id"`
	Name        string       `json:"name"`
	RollNo      string       `json:"roll_no"`
	HostelName  string       `json:"hostel_name"`
	RoomNo      string       `json:"room_no"`
	Status      RosterStatus `json:"status"`
	ActiveLeave *ActiveLeave `json:"active_leave,omitempty"`
}
