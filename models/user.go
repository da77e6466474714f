package models

import (
	"time"
)

type Role string

const (
	RoleUser      Role = "user"
	RoleAdmin     Role = "admin"
	RoleSuperuser Role = "superuser"
)

var roleRanks = map[Role]int{
	RoleUser:      1,
	RoleAdmin:     2,
	RoleSuperuser: 3,
}

// Rank orders roles by privilege. Unknown roles rank below every known one.
func (r Role) Rank() int {
	return roleRanks[r]
}

// ParseRole returns the role named by s and whether it is known.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	_, ok := roleRanks[r]
	return r, ok
}

type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	TelegramID   int64     `gorm:"uniqueIndex;not null" json:"telegram_id"`
	FullName     string    `gorm:"not null" json:"full_name"`
	Email        *string   `json:"email,omitempty"`
	Phone        string    `json:"phone"`
	IsSubscribed bool      `gorm:"default:true" json:"is_subscribed"`
	Role         Role      `gorm:"type:varchar(20);default:user" json:"role"`
	Addresses    []Address `gorm:"foreignKey:UserID" json:"addresses,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role.Rank() >= RoleAdmin.Rank()
}
