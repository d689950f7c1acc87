package echoapi

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/trezcool/kosakata/core/user"
)

// roleMiddleware only lets through users holding one of roles.
func roleMiddleware(roles ...user.Role) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(ctx echo.Context) error {
			claims, err := getContextClaims(ctx)
			if err != nil {
				return err
			}
			for _, role := range roles {
				if claims.Role == role {
					return next(ctx)
				}
			}
			return errHttpForbidden
		}
	}
}

var (
	adminMiddleware    = roleMiddleware(user.RoleAdmin)
	studentMiddleware  = roleMiddleware(user.RoleStudent)
	reviewerMiddleware = roleMiddleware(user.RoleTeacher, user.RoleAdmin)
)

// metricsMiddleware records request count and latency per route.
func metricsMiddleware(next echo.HandlerFunc) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		start := time.Now()
		err := next(ctx)

		status := strconv.Itoa(ctx.Response().Status)
		if err != nil {
			// the error handler has not written the response yet
			status = "error"
			if herr, ok := err.(*echo.HTTPError); ok {
				status = strconv.Itoa(herr.Code)
			}
		}
		route := ctx.Path()
		if route == "" {
			route = "unmatched"
		}
		httpRequestDuration.
			WithLabelValues(ctx.Request().Method, route, status).
			Observe(time.Since(start).Seconds())
		return err
	}
}
