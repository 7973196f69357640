package model

import (
	"time"
)

// AvailabilityOpen holds the last observed status of an employee (hot table).
type AvailabilityOpen struct {
	EmployeeID int64     `gorm:"primaryKey"`
	ObservedAt time.Time `gorm:"not null"`
	Status     string    `gorm:"size:32;not null"`
	Label      string    `gorm:"size:256;not null"`
}

// AvailabilityHistory is a closed status period of an employee (cold table).
type AvailabilityHistory struct {
	ID          int64     `gorm:"autoIncrement"`
	EmployeeID  int64     `gorm:"not null;index;primaryKey"`
	ObservedAt  time.Time `gorm:"not null;index;primaryKey"` // Time the status' END was observed
	Status      string    `gorm:"size:32;not null"`
	Label       string    `gorm:"size:256;not null"`
	PeriodStart time.Time `gorm:"not null"`
	PeriodEnd   time.Time `gorm:"not null"`
}
