package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming

    "github.com/golang-jwt/jwt/v5" // JWT library for parsing and validating tokens
    "github.com/labstack/echo/v4"  // Echo framework used for defining middleware and handlers
)

// JWTAuth returns an Echo middleware that validates a Bearer access token and
// injects the actor into the request context.  The subject claim is stored
// as a uint64 under "user_id" and the role claim as a string under "role",
// so handlers never deal with raw JSON number types.  Requests without a
// valid token are answered with 401.
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            uid, role, ok, msg := parseBearer(c, secret)
            if !ok {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": msg})
            }
            c.Set("user_id", uid)
            c.Set("role", role)
            return next(c)
        }
    }
}

// parseBearer reads and verifies the Authorization header.  On failure msg
// carries the client-facing reason.
func parseBearer(c echo.Context, secret string) (uid uint64, role string, ok bool, msg string) {
    auth := c.Request().Header.Get("Authorization")
    if !strings.HasPrefix(auth, "Bearer ") {
        return 0, "", false, "missing bearer token"
    }
    raw := strings.TrimPrefix(auth, "Bearer ")

    // Only HMAC signatures are accepted; anything else is treated as forged.
    tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, echo.ErrUnauthorized
        }
        return []byte(secret), nil
    })
    if err != nil || !tok.Valid {
        return 0, "", false, "invalid token"
    }

    claims, ok := tok.Claims.(jwt.MapClaims)
    if !ok {
        return 0, "", false, "invalid claims"
    }
    // encoding/json decodes numbers as float64
    sub, ok := claims["sub"].(float64)
    if !ok || sub <= 0 {
        return 0, "", false, "invalid claims"
    }
    role, _ = claims["role"].(string)
    return uint64(sub), role, true, ""
}
