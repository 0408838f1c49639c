package models

import "github.com/golang-jwt/jwt/v5"

// Roles recognised on CRM tokens.
const (
	RoleAdmin = "admin"
	RoleStaff = "staff"
)

// JWTClaims are the claims carried on CRM access tokens. Token issuance is
// owned by the identity service; this API only validates.
type JWTClaims struct {
	UserID         string `json:"uid"`
	OrganizationID string `json:"org"`
	Role           string `json:"role"`
	jwt.RegisteredClaims
}
