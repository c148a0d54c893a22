package middleware

// identity.go holds the actor lookup shared by the rate limiter and the
// request logger.  JWTAuth stores the subject as uint64; anonymous visitors
// of the public browse routes are reported as "anon".

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

func actorKey(c echo.Context) string {
    if id, ok := c.Get("user_id").(uint64); ok && id > 0 {
        return strconv.FormatUint(id, 10)
    }
    return "anon"
}
