package models

import "time"

// AcademicYear is a school's teaching year. At most one per school is current.
type AcademicYear struct {
	ID        string    `db:"id" json:"id"`
	SchoolID  string    `db:"school_id" json:"school_id"`
	Name      string    `db:"name" json:"name"`
	StartDate time.Time `db:"start_date" json:"start_date"`
	EndDate   time.Time `db:"end_date" json:"end_date"`
	IsCurrent bool      `db:"is_current" json:"is_current"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

type PromotionOutcome string

const (
	PromotionOutcomePromoted  PromotionOutcome = "PROMOTED"
	PromotionOutcomeGraduated PromotionOutcome = "GRADUATED"
)

// StudentPromotion is the history row written for each promoted student.
type StudentPromotion struct {
	ID                 string           `db:"id" json:"id"`
	SchoolID           string           `db:"school_id" json:"school_id"`
	StudentID          string           `db:"student_id" json:"student_id"`
	FromClassID        *string          `db:"from_class_id" json:"from_class_id,omitempty"`
	ToClassID          *string          `db:"to_class_id" json:"to_class_id,omitempty"`
	FromAcademicYearID *string          `db:"from_academic_year_id" json:"from_academic_year_id,omitempty"`
	ToAcademicYearID   *string          `db:"to_academic_year_id" json:"to_academic_year_id,omitempty"`
	Outcome            PromotionOutcome `db:"outcome" json:"outcome"`
	PromotedBy         *string          `db:"promoted_by" json:"promoted_by,omitempty"`
	CreatedAt          time.Time        `db:"created_at" json:"created_at"`
}

// PromotionPlan is what the repository executes in one transaction.
type PromotionPlan struct {
	SchoolID         string
	FromClassID      string
	ToClassID        *string
	ToAcademicYearID *string
	StudentIDs       []string
	Graduate         bool
	PromotedBy       *string
}

// PromotionResult reports what a promotion changed.
type PromotionResult struct {
	Promoted   int      `json:"promoted"`
	Graduated  int      `json:"graduated"`
	Skipped    int      `json:"skipped"`
	StudentIDs []string `json:"student_ids"`
}
