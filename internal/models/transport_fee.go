package models

import "time"

// TransportFee is the bus fee configured for one pickup location of a school.
type TransportFee struct {
	ID           string    `db:"id" json:"id"`
	SchoolID     string    `db:"school_id" json:"school_id"`
	LocationName string    `db:"location_name" json:"location_name"`
	MonthlyFee   float64   `db:"monthly_fee" json:"monthly_fee"`
	AnnualFee    float64   `db:"annual_fee" json:"annual_fee"`
	Description  string    `db:"description" json:"description"`
	IsActive     bool      `db:"is_active" json:"is_active"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

type TransportFeeFilter struct {
	SchoolID string
	Active   *bool
	Search   string
}
