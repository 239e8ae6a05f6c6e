package auth

import (
	"fmt"
	"time"

	"github.com/Abraxas-365/courier/pkg/kernel"
	"github.com/golang-jwt/jwt/v5"
)

const audience = "courier-admin"

// JWTService implements TokenService with HS256 tokens.
type JWTService struct {
	secretKey      []byte
	accessTokenTTL time.Duration
	issuer         string
	now            func() time.Time
}

func NewJWTService(secretKey string, accessTokenTTL time.Duration, issuer string) *JWTService {
	if accessTokenTTL == 0 {
		accessTokenTTL = time.Hour
	}
	if issuer == "" {
		issuer = "courier"
	}
	return &JWTService{
		secretKey:      []byte(secretKey),
		accessTokenTTL: accessTokenTTL,
		issuer:         issuer,
		now:            time.Now,
	}
}

type JWTClaims struct {
	Email  string   `json:"email"`
	Scopes []string `json:"scopes"`
	jwt.RegisteredClaims
}

func (j *JWTService) GenerateAccessToken(userID kernel.UserID, email string, scopes []string) (string, error) {
	now := j.now()
	if scopes == nil {
		scopes = []string{}
	}

	claims := JWTClaims{
		Email:  email,
		Scopes: scopes,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    j.issuer,
			Subject:   userID.String(),
			Audience:  []string{audience},
			ExpiresAt: jwt.NewNumericDate(now.Add(j.accessTokenTTL)),
			NotBefore: jwt.NewNumericDate(now),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(j.secretKey)
	if err != nil {
		return "", ErrTokenGenerationFailed().WithDetail("error", err.Error())
	}
	return signed, nil
}

func (j *JWTService) ValidateAccessToken(tokenString string) (*TokenClaims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &JWTClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.secretKey, nil
	},
		jwt.WithIssuer(j.issuer),
		jwt.WithAudience(audience),
		jwt.WithTimeFunc(j.now),
	)
	if err != nil {
		return nil, ErrTokenValidationFailed().WithDetail("error", err.Error())
	}

	claims, ok := token.Claims.(*JWTClaims)
	if !ok || !token.Valid {
		return nil, ErrTokenValidationFailed().WithDetail("error", "invalid claims")
	}
	if claims.Subject == "" {
		return nil, ErrTokenValidationFailed().WithDetail("error", "missing subject")
	}

	return &TokenClaims{
		UserID:    kernel.UserID(claims.Subject),
		Email:     claims.Email,
		Scopes:    claims.Scopes,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

var _ TokenService = (*JWTService)(nil)
