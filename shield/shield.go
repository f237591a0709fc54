// Package shield provides reusable HTTP security middleware for the signing
// desk API. It consolidates security headers, rate limiting, body limits,
// request tracing, maintenance mode, and HEAD method handling into a single
// importable package.
//
// Usage:
//
//	r := chi.NewRouter()
//	r.Use(shield.SecurityHeaders(shield.DefaultHeaders()))
//	r.Use(shield.MaxFormBody(64 * 1024))
//	r.Use(shield.TraceID)
//	r.Use(shield.NewRateLimiter(db).Middleware)
//	r.Use(shield.HeadToGet)
//
// Or apply the default stack in one call:
//
//	stack, mm, rl := shield.DefaultStack(db)
//	mm.StartReloader(done)
//	rl.StartReloader(done)
//	for _, mw := range stack {
//	    r.Use(mw)
//	}
package shield

import (
	"database/sql"
	"net/http"
)

type contextKey string

// LoggerKey is the context key for the per-request structured logger.
const LoggerKey contextKey = "shield_logger"

// DefaultStack returns the standard middleware stack for the service.
// Middleware is ordered: Maintenance → HeadToGet → SecurityHeaders →
// MaxFormBody → TraceID → RateLimiter. The returned handles allow callers
// to set a custom maintenance page and call StartReloader on both.
// Health checks (/health) bypass maintenance and rate limiting.
func DefaultStack(db *sql.DB) ([]func(http.Handler) http.Handler, *MaintenanceMode, *RateLimiter) {
	rl := NewRateLimiter(db, "/health")
	mm := NewMaintenanceMode(db, "/health")
	return []func(http.Handler) http.Handler{
		mm.Middleware,
		HeadToGet,
		SecurityHeaders(DefaultHeaders()),
		MaxFormBody(64 * 1024),
		TraceID,
		rl.Middleware,
	}, mm, rl
}
