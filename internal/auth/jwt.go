package auth

import (
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"showdesk/internal/models"
)

type JWTService struct {
	secret         []byte
	accessTokenTTL time.Duration
}

type Claims struct {
	StaffID string `json:"staffId"`
	jwt.RegisteredClaims
}

type IssuedToken struct {
	AccessToken string    `json:"accessToken"`
	ExpiresAt   time.Time `json:"expiresAt"`
}

func NewJWTService(secret string, accessTTL time.Duration) *JWTService {
	return &JWTService{
		secret:         []byte(secret),
		accessTokenTTL: accessTTL,
	}
}

// IssueAccessToken signs a token for the staff member. Tokens live for a
// whole show day; there is no refresh flow.
func (s *JWTService) IssueAccessToken(staff *models.StaffMember) (*IssuedToken, error) {
	expiry := time.Now().Add(s.accessTokenTTL)
	claims := Claims{
		StaffID: staff.ID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiry),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			Subject:   staff.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("signing access token: %w", err)
	}

	return &IssuedToken{AccessToken: signed, ExpiresAt: expiry}, nil
}

func (s *JWTService) ValidateAccessToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("parsing token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token claims")
	}

	return claims, nil
}
