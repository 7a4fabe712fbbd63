package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
)

// Context keys set by JWTAuth.
const (
	ContextUserID = "user_id"
	ContextRole   = "role"
)

var errTokenType = errors.New("invalid token type")

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// injects the token's subject and role claims into the request context.  The
// secret must match the one used when issuing tokens.  Handlers read the
// caller through UserID and c.Get("role").
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := parseAccess(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(ContextUserID, claims["sub"])
			c.Set(ContextRole, claims["role"])
			return next(c)
		}
	}
}

// OptionalJWTAuth sets the caller like JWTAuth when a valid bearer token is
// present and otherwise lets the request through anonymously.
func OptionalJWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			auth := c.Request().Header.Get("Authorization")
			if strings.HasPrefix(auth, "Bearer ") {
				if claims, err := parseAccess(secret, strings.TrimPrefix(auth, "Bearer ")); err == nil {
					c.Set(ContextUserID, claims["sub"])
					c.Set(ContextRole, claims["role"])
				}
			}
			return next(c)
		}
	}
}

// parseAccess verifies an HS256 access token and returns its claims.
func parseAccess(secret, raw string) (jwt.MapClaims, error) {
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, echo.ErrUnauthorized
		}
		return []byte(secret), nil
	})
	if err != nil {
		return nil, err
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return nil, jwt.ErrTokenInvalidClaims
	}
	if typ, _ := claims["typ"].(string); typ != "" && typ != "access" {
		return nil, errTokenType
	}
	return claims, nil
}
