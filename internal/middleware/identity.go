package middleware

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// UserID returns the authenticated user's id as stored by JWTAuth.  The
// subject claim arrives as float64 when decoded from JSON, or as a string
// when a client signed it that way.
func UserID(c echo.Context) (uint64, bool) {
	switch v := c.Get(ContextUserID).(type) {
	case float64:
		if v <= 0 {
			return 0, false
		}
		return uint64(v), true
	case string:
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil || id == 0 {
			return 0, false
		}
		return id, true
	case uint64:
		return v, v > 0
	}
	return 0, false
}

// subject renders the caller for rate limit keys; unauthenticated requests
// share the "anon" bucket.
func subject(c echo.Context) string {
	if id, ok := UserID(c); ok {
		return strconv.FormatUint(id, 10)
	}
	return "anon"
}
