package models

import "time"

// Class is a grade/section grouping of students for one academic year.
type Class struct {
	ID             string    `db:"id" json:"id"`
	SchoolID       string    `db:"school_id" json:"school_id"`
	AcademicYearID *string   `db:"academic_year_id" json:"academic_year_id,omitempty"`
	ClassTeacherID *string   `db:"class_teacher_id" json:"class_teacher_id,omitempty"`
	Name           string    `db:"name" json:"name"`
	Section        string    `db:"section" json:"section"`
	Capacity       int       `db:"capacity" json:"capacity"`
	CreatedAt      time.Time `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time `db:"updated_at" json:"updated_at"`
}

// DisplayName renders "Name-Section" or just the name.
func (c Class) DisplayName() string {
	if c.Section == "" {
		return c.Name
	}
	return c.Name + "-" + c.Section
}

// ClassDetail adds the class teacher and head count.
type ClassDetail struct {
	Class
	ClassTeacherName *string `db:"class_teacher_name" json:"class_teacher_name,omitempty"`
	StudentCount     int     `db:"student_count" json:"student_count"`
}

type ClassFilter struct {
	SchoolID       string
	AcademicYearID string
	Search         string
	Page           int
	PageSize       int
	SortBy         string
	SortOrder      string
}
