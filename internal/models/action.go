package models

import "gorm.io/gorm"

type ActionType string

const (
	ActionTypeEmail   ActionType = "email"
	ActionTypeWebhook ActionType = "webhook"
)

// ActionTypes lists every supported action type; creation validates against
// this set so dispatch can switch over it exhaustively.
var ActionTypes = []ActionType{ActionTypeEmail, ActionTypeWebhook}

// Action is the notification sink fired when its owning switch triggers.
// Target is an email address or a webhook URL depending on Type. Each action
// belongs to exactly one switch and is deleted with it.
type Action struct {
	gorm.Model

	Type        ActionType `gorm:"not null"`
	Target      string     `gorm:"not null"`
	Description string
}
