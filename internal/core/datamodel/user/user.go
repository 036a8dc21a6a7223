package user

import (
	"time"
)

const (
	RoleCustomer = "customer"
	RoleProvider = "provider"
)

type User struct {
	ID                 int64     `json:"id" gorm:"primaryKey"`
	Email              string    `json:"email" gorm:"column:email;not null;uniqueIndex"`
	FullName           string    `json:"full_name" gorm:"column:full_name"`
	PasswordHash       string    `json:"-" gorm:"column:password_hash;not null"`
	Role               string    `json:"role" gorm:"column:role;not null"`
	ProcessorAccountID *string   `json:"-" gorm:"column:processor_account_id"`
	IsActive           bool      `json:"is_active" gorm:"column:is_active;default:true"`
	CreatedAt          time.Time `json:"created_at" gorm:"column:created_at;default:now()"`
	UpdatedAt          time.Time `json:"updated_at" gorm:"column:updated_at;default:now()"`
}

func (User) TableName() string {
	return "users"
}
