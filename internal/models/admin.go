package models

import "time"

// Admin is an operator account identified by its unique name.
type Admin struct {
	Name         string    `db:"name" json:"name"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Role         Role      `db:"role" json:"role"`
	CreatedAt    time.Time `db:"created_at" json:"createdAt"`
}
