package middleware

import (
    "time"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"
)

// RequestLogger writes one structured line per request.  5xx responses are
// logged at error level, 4xx at warn, the rest at info.
func RequestLogger(log *logrus.Entry) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        return func(c echo.Context) error {
            start := time.Now()
            err := next(c)
            if err != nil {
                // let echo's error handler set the final status before we read it
                c.Error(err)
            }

            req := c.Request()
            status := c.Response().Status
            entry := log.WithFields(logrus.Fields{
                "method":     req.Method,
                "path":       req.URL.Path,
                "route":      c.Path(),
                "status":     status,
                "latency_ms": time.Since(start).Milliseconds(),
                "ip":         c.RealIP(),
                "actor":      actorKey(c),
                "request_id": c.Response().Header().Get(echo.HeaderXRequestID),
            })
            switch {
            case status >= 500:
                if err != nil {
                    entry = entry.WithError(err)
                }
                entry.Error("request")
            case status >= 400:
                entry.Warn("request")
            default:
                entry.Info("request")
            }
            return nil
        }
    }
}
