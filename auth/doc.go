// Package auth authenticates HTTP callers of the cache API with bearer
// JWTs signed by a shared HMAC secret.
//
// Authentication is opt-in. When enabled, Middleware rejects requests
// without a valid token, and RequireRole restricts destructive routes to
// callers carrying a role claim.
package auth
