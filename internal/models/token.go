package models

import "github.com/golang-jwt/jwt/v5"

// TokenClaims is the JWT payload issued to admins and students.
type TokenClaims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}
