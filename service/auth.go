package service

import (
	"crypto/subtle"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// The control API is single-operator: one shared password exchanged for a
// short-lived bearer token.

func (s *Service) Login(password string) (string, error) {
	if s.operatorPassword == "" {
		return "", errors.New("operator password not configured")
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(s.operatorPassword)) != 1 {
		return "", errors.New("invalid password")
	}
	return s.CreateJWT()
}

func (s *Service) CreateJWT() (string, error) {
	claims := jwt.MapClaims{
		"sub": "operator",
		"exp": time.Now().Add(24 * time.Hour).Unix(),
		"iat": time.Now().Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signedToken, err := token.SignedString(s.JWTSecret)
	if err != nil {
		return "", err
	}

	return signedToken, nil
}

func (s *Service) VerifyJWT(tokenString string) (time.Time, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		return s.JWTSecret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return time.Time{}, err
	}

	if !token.Valid {
		return time.Time{}, errors.New("invalid token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return time.Time{}, errors.New("invalid token claims")
	}

	sub, ok := claims["sub"].(string)
	if !ok || sub != "operator" {
		return time.Time{}, errors.New("missing subject claim")
	}

	expFloat, ok := claims["exp"].(float64)
	if !ok {
		return time.Time{}, errors.New("missing exp claim")
	}
	expiry := time.Unix(int64(expFloat), 0)

	return expiry, nil
}

func (s *Service) AuthenticateToken(token string) error {
	if len(token) == 0 {
		return errors.New("token not provided")
	}

	_, err := s.VerifyJWT(token)
	return err
}
