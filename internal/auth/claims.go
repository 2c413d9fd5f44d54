package auth

import (
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Claims decodes the payload of a JWT access token without verifying its
// signature. It is for display only. Opaque tokens yield nil.
func Claims(accessToken string) jwt.MapClaims {
	if strings.Count(accessToken, ".") != 2 {
		return nil
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return nil
	}
	return claims
}

// Subject returns the "sub" claim of a JWT access token, or "".
func Subject(accessToken string) string {
	claims := Claims(accessToken)
	if claims == nil {
		return ""
	}
	subject, err := claims.GetSubject()
	if err != nil {
		return ""
	}
	return subject
}
