package model

// PublicHoliday is a cached public holiday. Counties is a comma separated list of region codes.
type PublicHoliday struct {
	Date     string `gorm:"primaryKey;size:10"`
	Name     string `gorm:"primaryKey;size:256"`
	Global   bool   `gorm:"not null"`
	Counties string `gorm:"size:512"`
}
