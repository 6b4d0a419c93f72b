package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// operatorClaims is the JWT payload for an authenticated operator. Unlike
// the prior per-user accounts, sessions here aren't owned by a
// registered user — a bearer token just proves the caller is allowed to
// mutate a session, so the claim set is minimal.
type operatorClaims struct {
	Subject string `json:"sub"`
	jwt.RegisteredClaims
}

// IssueToken signs a bearer token for subject, valid for ttl. Exposed for
// an operator CLI / bootstrap script to mint tokens out of band; this
// package has no login endpoint since there is no user store.
func IssueToken(secret, subject string, ttl time.Duration) (string, error) {
	claims := operatorClaims{
		Subject: subject,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

func parseToken(tokenStr, secret string) (string, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &operatorClaims{}, func(token *jwt.Token) (interface{}, error) {
		return []byte(secret), nil
	})
	if err != nil {
		return "", err
	}
	if claims, ok := token.Claims.(*operatorClaims); ok && token.Valid {
		return claims.Subject, nil
	}
	return "", errors.New("invalid token claims")
}

// AuthMiddleware enforces bearer auth on mutating session endpoints. If
// secret is empty, auth is disabled entirely (local/dev mode).
func AuthMiddleware(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			c.Next()
			return
		}
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "MISSING_TOKEN", "error": "missing Authorization header"})
			return
		}
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "INVALID_AUTH_HEADER", "error": "invalid Authorization header"})
			return
		}

		subject, err := parseToken(parts[1], secret)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "INVALID_TOKEN", "error": "invalid or expired token"})
			return
		}

		c.Set("operator", subject)
		c.Next()
	}
}
