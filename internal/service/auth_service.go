package service

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"classboard/internal/model"
)

var (
	ErrInvalidCredentials = errors.New("invalid username or password")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// AuthService issues and verifies principal tokens. Credential storage is an
// external concern; instructor credentials come from configuration.
type AuthService struct {
	instructorUsername string
	instructorPassword string
	jwtSecret          []byte
}

func NewAuthService(username, password, secret string) *AuthService {
	return &AuthService{
		instructorUsername: username,
		instructorPassword: password,
		jwtSecret:          []byte(secret),
	}
}

// Login validates instructor credentials and returns a token. The user id is
// derived from the username so ownership survives re-login.
func (s *AuthService) Login(username, password string) (*model.LoginResponse, error) {
	if username != s.instructorUsername || password != s.instructorPassword {
		return nil, ErrInvalidCredentials
	}

	userID := "instr_" + username

	claims := &model.InstructorClaims{
		Kind:   model.TokenKindInstructor,
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(12 * time.Hour)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return nil, err
	}

	return &model.LoginResponse{Token: tokenString, UserID: userID}, nil
}

// ValidateInstructorToken validates an instructor JWT and returns claims.
func (s *AuthService) ValidateInstructorToken(tokenString string) (*model.InstructorClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.InstructorClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.InstructorClaims)
	if !ok || !token.Valid || claims.Kind != model.TokenKindInstructor || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// IssueMemberToken creates a session-scoped token for a joining student.
func (s *AuthService) IssueMemberToken(sessionID, userID string) (string, error) {
	claims := &model.MemberClaims{
		Kind:      model.TokenKindMember,
		SessionID: sessionID,
		UserID:    userID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(24 * time.Hour)),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.jwtSecret)
}

// ValidateMemberToken validates a member JWT and returns claims.
func (s *AuthService) ValidateMemberToken(tokenString string) (*model.MemberClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &model.MemberClaims{}, func(token *jwt.Token) (interface{}, error) {
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*model.MemberClaims)
	if !ok || !token.Valid || claims.Kind != model.TokenKindMember || claims.UserID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Identity resolves any valid token (member or instructor) to a user id.
// Roles are never taken from the token; the membership directory decides.
func (s *AuthService) Identity(tokenString string) (string, error) {
	if claims, err := s.ValidateMemberToken(tokenString); err == nil {
		return claims.UserID, nil
	}
	if claims, err := s.ValidateInstructorToken(tokenString); err == nil {
		return claims.UserID, nil
	}
	return "", ErrInvalidToken
}
