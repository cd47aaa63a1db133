package services

import (
	"errors"
	"fmt"
	"os"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/yungbote/ideaforge-backend/internal/platform/apierr"
)

// TokenVerifier extracts the authenticated user id from a bearer token.
// Token issuance lives elsewhere; this service only verifies.
type TokenVerifier interface {
	Verify(tokenString string) (uuid.UUID, error)
}

type jwtVerifier struct {
	secret []byte
}

func NewJWTVerifier() (TokenVerifier, error) {
	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, errors.New("missing JWT_SECRET")
	}
	return &jwtVerifier{secret: []byte(secret)}, nil
}

func NewJWTVerifierWithSecret(secret string) TokenVerifier {
	return &jwtVerifier{secret: []byte(secret)}
}

func (v *jwtVerifier) Verify(tokenString string) (uuid.UUID, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, apierr.Unauthorized(errors.New("invalid token"))
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, apierr.Unauthorized(errors.New("invalid token claims"))
	}
	sub, err := claims.GetSubject()
	if err != nil || sub == "" {
		return uuid.Nil, apierr.Unauthorized(errors.New("token missing subject"))
	}
	userID, err := uuid.Parse(sub)
	if err != nil {
		return uuid.Nil, apierr.Unauthorized(errors.New("token subject is not a user id"))
	}
	return userID, nil
}
