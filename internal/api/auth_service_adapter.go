package api

import (
	"time"

	"github.com/soaringjerry/teacheval/internal/middleware"
	"github.com/soaringjerry/teacheval/internal/services"
)

// NewAuthService builds the admin login service on top of the router's token
// issuer so tokens it signs are accepted by middleware.RequireAuth.
func NewAuthService(tokens *middleware.Tokens, username, password string, ttl time.Duration) (*services.AuthService, error) {
	return services.NewAuthService(username, password, tokens.Sign, ttl)
}
