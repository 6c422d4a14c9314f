package models

import "github.com/golang-jwt/jwt/v5"

// JWTClaims is the access token payload for registrar staff and teachers.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// HasRole reports whether the caller holds one of roles.
func (c *JWTClaims) HasRole(roles ...UserRole) bool {
	if c == nil {
		return false
	}
	for _, r := range roles {
		if c.Role == r {
			return true
		}
	}
	return false
}

// Owns reports whether id is the caller's own user ID.
func (c *JWTClaims) Owns(id string) bool {
	return c != nil && id != "" && c.UserID == id
}
