package model

import "github.com/golang-jwt/jwt/v5"

// Token kinds, stored in the claims so one kind cannot pass for the other.
const (
	TokenKindInstructor = "instructor"
	TokenKindMember     = "member"
)

// InstructorClaims are JWT claims for instructor tokens.
type InstructorClaims struct {
	Kind   string `json:"kind"`
	UserID string `json:"userId"`
	jwt.RegisteredClaims
}

// MemberClaims are JWT claims for session-scoped member tokens minted on join.
type MemberClaims struct {
	Kind      string `json:"kind"`
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	jwt.RegisteredClaims
}

// LoginRequest is the request body for instructor login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginResponse is returned after successful login.
type LoginResponse struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
}
