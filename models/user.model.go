package models

import "gorm.io/gorm"

// Role is the closed set of account roles. Workflow transitions are
// authorized by identity (issuer/recipient id on the certificate), the
// role only gates issuer-only routes and scopes certificate listings.
type Role string

const (
	RoleIssuer  Role = "Issuer"
	RoleTrainee Role = "Trainee"
)

func (r Role) Valid() bool {
	return r == RoleIssuer || r == RoleTrainee
}

type User struct {
	gorm.Model
	Username       string `gorm:"unique;not null" json:"username"`
	Password       string `gorm:"not null" json:"-"`
	Role           Role   `gorm:"not null" json:"role"`
	AccountAddress string `gorm:"not null" json:"accountAddress"`
	Email          string `gorm:"default:''" json:"email"`
}
