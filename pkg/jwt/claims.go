package jwt

import "github.com/golang-jwt/jwt/v5"

// CallerClaims identifies an API caller. Subject is the caller's address.
type CallerClaims struct {
	jwt.RegisteredClaims
	Role string `json:"role"`
}

type Role string

const (
	RolePlayer   Role = "player"
	RoleOperator Role = "operator"
)
