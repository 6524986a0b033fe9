package models

import (
	"time"

	"gorm.io/gorm"
)

// CheckIn is one entry in a switch's append-only check-in log. Rows are never
// mutated; they are only removed by the owning switch's cascade delete.
type CheckIn struct {
	gorm.Model

	SwitchID  uint      `gorm:"not null;index"`
	Timestamp time.Time `gorm:"not null"`

	// Relationships
	Switch Switch `gorm:"foreignKey:SwitchID;constraint:OnUpdate:Cascade,OnDelete:CASCADE" json:"-"`
}
