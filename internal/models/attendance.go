package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendanceStatusPresent AttendanceStatus = "PRESENT"
	AttendanceStatusAbsent  AttendanceStatus = "ABSENT"
	AttendanceStatusLate    AttendanceStatus = "LATE"
	AttendanceStatusLeave   AttendanceStatus = "LEAVE"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendanceStatusPresent, AttendanceStatusAbsent, AttendanceStatusLate, AttendanceStatusLeave:
		return true
	default:
		return false
	}
}

// Attended reports whether the status counts toward attendance percentage.
func (s AttendanceStatus) Attended() bool {
	return s == AttendanceStatusPresent || s == AttendanceStatusLate
}

// Attendance is one student's mark for one day.
type Attendance struct {
	ID        string           `db:"id" json:"id"`
	SchoolID  string           `db:"school_id" json:"school_id"`
	StudentID string           `db:"student_id" json:"student_id"`
	ClassID   string           `db:"class_id" json:"class_id"`
	Date      time.Time        `db:"date" json:"date"`
	Status    AttendanceStatus `db:"status" json:"status"`
	Remarks   string           `db:"remarks" json:"remarks"`
	MarkedBy  *string          `db:"marked_by" json:"marked_by,omitempty"`
	CreatedAt time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt time.Time        `db:"updated_at" json:"updated_at"`
}

// AttendanceSheetRow is a class roster line joined with the day's mark, if any.
type AttendanceSheetRow struct {
	StudentID    string            `db:"student_id" json:"student_id"`
	AdmissionNo  string            `db:"admission_no" json:"admission_no"`
	RollNo       string            `db:"roll_no" json:"roll_no"`
	StudentName  string            `db:"student_name" json:"student_name"`
	AttendanceID *string           `db:"attendance_id" json:"attendance_id,omitempty"`
	Status       *AttendanceStatus `db:"status" json:"status,omitempty"`
	Remarks      *string           `db:"remarks" json:"remarks,omitempty"`
}

// AttendanceCounts are raw per-status counts.
type AttendanceCounts struct {
	Present int `db:"present" json:"present"`
	Absent  int `db:"absent" json:"absent"`
	Late    int `db:"late" json:"late"`
	Leave   int `db:"leave" json:"leave"`
}

// Marked counts every marked day.
func (c AttendanceCounts) Marked() int {
	return c.Present + c.Absent + c.Late + c.Leave
}

// AttendanceSummary is a student's attendance over a period.
type AttendanceSummary struct {
	StudentID string    `json:"student_id"`
	From      time.Time `json:"from"`
	To        time.Time `json:"to"`
	AttendanceCounts
	Total   int     `json:"total"`
	Percent float64 `json:"percent"`
}

// AttendanceReportRow is one student's monthly line.
type AttendanceReportRow struct {
	StudentID   string `db:"student_id" json:"student_id"`
	StudentName string `db:"student_name" json:"student_name"`
	RollNo      string `db:"roll_no" json:"roll_no"`
	AttendanceCounts
	Total   int     `db:"-" json:"total"`
	Percent float64 `db:"-" json:"percent"`
}
