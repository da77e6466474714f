package models

import "time"

type Address struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"not null;index" json:"user_id"`
	AddressLine string    `gorm:"not null" json:"address_line"`
	City        string    `gorm:"not null" json:"city"`
	PostalCode  string    `json:"postal_code"`
	Country     string    `gorm:"not null" json:"country"`
	CreatedAt   time.Time `json:"created_at"`
}

// String renders the address on one line, skipping empty parts.
func (a Address) String() string {
	s := a.AddressLine + ", " + a.City
	if a.PostalCode != "" {
		s += ", " + a.PostalCode
	}
	return s + ", " + a.Country
}
