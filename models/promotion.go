package models

import (
	"time"
)

// Promotion is broadcast to subscribed users while active and within its dates.
type Promotion struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	Title       string     `gorm:"not null" json:"title"`
	Description string     `json:"description"`
	IsActive    bool       `gorm:"default:true" json:"is_active"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// ActiveAt reports whether the promotion should run at t.
func (p Promotion) ActiveAt(t time.Time) bool {
	if !p.IsActive {
		return false
	}
	if p.StartDate != nil && t.Before(*p.StartDate) {
		return false
	}
	if p.EndDate != nil && t.After(*p.EndDate) {
		return false
	}
	return true
}
