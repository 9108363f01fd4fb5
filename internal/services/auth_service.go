package services

import (
	"crypto/subtle"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
)

// TokenSigner issues the admin token for subject. ttl 0 means no expiry.
type TokenSigner func(subject string, ttl time.Duration) (string, error)

// AuthService is the admin login gate: one username and password from
// configuration. There is no lockout and no account store; it keeps casual
// visitors out of the dashboard and is not a security boundary.
type AuthService struct {
	username  string
	passHash  []byte
	signToken TokenSigner
	tokenTTL  time.Duration
	now       func() time.Time
}

type AuthResult struct {
	Token     string     `json:"token"`
	Username  string     `json:"username"`
	ExpiresAt *time.Time `json:"expiresAt,omitempty"`
}

// NewAuthService hashes the configured password once so requests compare
// against a bcrypt hash.
func NewAuthService(username, password string, signer TokenSigner, ttl time.Duration) (*AuthService, error) {
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, NewInvalidError("admin username/password required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	return &AuthService{
		username:  username,
		passHash:  hash,
		signToken: signer,
		tokenTTL:  ttl,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *AuthService) Login(username, password string) (*AuthResult, error) {
	username = strings.TrimSpace(username)
	if username == "" || strings.TrimSpace(password) == "" {
		return nil, NewInvalidError("username/password required")
	}
	userOK := subtle.ConstantTimeCompare([]byte(username), []byte(s.username)) == 1
	passErr := bcrypt.CompareHashAndPassword(s.passHash, []byte(password))
	if !userOK || passErr != nil {
		return nil, NewUnauthorizedError("invalid credentials")
	}
	if s.signToken == nil {
		return nil, NewInvalidError("token signer not configured")
	}
	token, err := s.signToken(s.username, s.tokenTTL)
	if err != nil {
		return nil, err
	}
	res := &AuthResult{Token: token, Username: s.username}
	if s.tokenTTL > 0 {
		exp := s.now().Add(s.tokenTTL)
		res.ExpiresAt = &exp
	}
	return res, nil
}

func (s *AuthService) TokenTTL() time.Duration {
	return s.tokenTTL
}
