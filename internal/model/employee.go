package model

import "time"

// WeekSchedule stores scheduled working minutes per weekday.
type WeekSchedule struct {
	Sunday    int `gorm:"not null;default:0"`
	Monday    int `gorm:"not null;default:0"`
	Tuesday   int `gorm:"not null;default:0"`
	Wednesday int `gorm:"not null;default:0"`
	Thursday  int `gorm:"not null;default:0"`
	Friday    int `gorm:"not null;default:0"`
	Saturday  int `gorm:"not null;default:0"`
}

// Employee is the last synced snapshot of an upstream employee.
type Employee struct {
	ID            int64        `gorm:"primaryKey"` // Upstream ID
	FirstName     string       `gorm:"size:128;not null"`
	LastName      string       `gorm:"size:128;not null"`
	PreferredName string       `gorm:"size:256"`
	Email         string       `gorm:"size:256"`
	Position      string       `gorm:"size:256"`
	Department    string       `gorm:"size:256"`
	Status        string       `gorm:"size:32;not null;index"`
	SupervisorID  *int64       `gorm:"index"`
	HasSchedule   bool         `gorm:"not null;default:false"`
	Schedule      WeekSchedule `gorm:"embedded;embeddedPrefix:schedule_"`
	HolidayState  string       `gorm:"size:64"`
	SortOrder     int          `gorm:"not null;default:0"` // Position in the upstream listing
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
