package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidToken is returned when an invite token fails validation.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken is returned when an invite token has expired.
	ErrExpiredToken = errors.New("token has expired")
)

const inviteTokenTTL = 7 * 24 * time.Hour

// InviteClaims carries a household invitation inside a signed token, so
// an invite link works without a pending row in the database.
type InviteClaims struct {
	HouseholdID int64  `json:"household_id"`
	Email       string `json:"email"`
	Role        string `json:"role"`
	jwt.RegisteredClaims
}

// InviteManager signs and validates household invitation tokens.
type InviteManager struct {
	secret []byte
}

func NewInviteManager(secret string) *InviteManager {
	return &InviteManager{secret: []byte(secret)}
}

// GenerateInvite creates a signed token inviting email into the household.
func (m *InviteManager) GenerateInvite(householdID int64, email, role string) (string, error) {
	now := time.Now()
	claims := InviteClaims{
		HouseholdID: householdID,
		Email:       email,
		Role:        role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "choreboard",
			Subject:   email,
			ExpiresAt: jwt.NewNumericDate(now.Add(inviteTokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(m.secret)
}

// ValidateInvite validates the token and returns its claims if valid.
func (m *InviteManager) ValidateInvite(tokenString string) (*InviteClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &InviteClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return m.secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	claims, ok := token.Claims.(*InviteClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}
