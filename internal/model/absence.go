package model

import "time"

// Absence is one synced time-off period. Dates are inclusive YYYY-MM-DD strings.
type Absence struct {
	ID           int64  `gorm:"primaryKey"`
	ExternalID   int64  `gorm:"index"`
	EmployeeID   int64  `gorm:"index;not null"`
	StartDate    string `gorm:"size:10;not null;index"`
	EndDate      string `gorm:"size:10;not null;index"`
	Category     string `gorm:"size:64"`
	TypeName     string `gorm:"size:128"`
	HalfDayStart bool   `gorm:"not null;default:false"`
	HalfDayEnd   bool   `gorm:"not null;default:false"`
	CreatedAt    time.Time
}
