package models

import (
	"time"

	"gorm.io/gorm"
)

type SwitchStatus string

const (
	SwitchStatusActive    SwitchStatus = "active"
	SwitchStatusTriggered SwitchStatus = "triggered"
)

// Switch is a dead man's switch: if its owner fails to check in within
// InactivityDurationDays of LastCheckin, the associated Action fires.
type Switch struct {
	gorm.Model

	UserID                 uint         `gorm:"not null;index"`
	Title                  string       `gorm:"not null"`
	Message                string       `gorm:"not null"`
	InactivityDurationDays int          `gorm:"not null"` // whole days, >= 1
	LastCheckin            time.Time    `gorm:"not null"`
	NextTriggerAt          time.Time    `gorm:"not null;index:idx_switches_status_next_trigger"`
	Status                 SwitchStatus `gorm:"not null;default:'active';index:idx_switches_status_next_trigger"`
	ActionID               uint         `gorm:"not null"`

	// Relationships
	User     User      `gorm:"foreignKey:UserID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	Action   Action    `gorm:"foreignKey:ActionID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
	CheckIns []CheckIn `gorm:"foreignKey:SwitchID;constraint:OnUpdate:Cascade,OnDelete:CASCADE"`
}

// InactivityDuration returns the configured window as a time.Duration.
func (s *Switch) InactivityDuration() time.Duration {
	return time.Duration(s.InactivityDurationDays) * 24 * time.Hour
}

// NextTriggerTime is the instant the switch becomes due: LastCheckin plus the
// inactivity window. NextTriggerAt persists this value so the sweep can filter
// due switches in a single indexed query; RecomputeNextTrigger keeps them in
// sync.
func (s *Switch) NextTriggerTime() time.Time {
	return s.LastCheckin.Add(s.InactivityDuration())
}

// RecomputeNextTrigger refreshes the persisted NextTriggerAt column. Must be
// called whenever LastCheckin or InactivityDurationDays changes.
func (s *Switch) RecomputeNextTrigger() {
	s.NextTriggerAt = s.NextTriggerTime()
}

// IsDue reports whether the switch should trigger at the given instant. The
// boundary is inclusive: a switch is due at exactly LastCheckin + duration.
// Triggered switches are never due again.
func (s *Switch) IsDue(now time.Time) bool {
	return s.Status == SwitchStatusActive && !now.Before(s.NextTriggerTime())
}
