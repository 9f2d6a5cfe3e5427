package models

import "gorm.io/gorm"

type Challenge struct {
	gorm.Model
	Title        string        `gorm:"not null" json:"title"`
	Description  string        `gorm:"not null" json:"description"`
	WeekNumber   int           `gorm:"not null" json:"weekNumber"`
	BatchNumber  int           `gorm:"not null" json:"batchNumber"`
	Certificates []Certificate `gorm:"foreignKey:ChallengeID" json:"-"`
}
