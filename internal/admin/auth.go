package admin

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenService issues and verifies the admin plane's bearer tokens.
type TokenService struct {
	secret []byte
	method jwt.SigningMethod
	ttl    time.Duration
	now    func() time.Time
}

// TokenOption adjusts token service construction.
type TokenOption func(*TokenService)

// WithTokenTTL overrides the configured token lifetime, mainly for tests
// that need sub-minute expiries.
func WithTokenTTL(d time.Duration) TokenOption {
	return func(s *TokenService) {
		if d > 0 {
			s.ttl = d
		}
	}
}

// NewTokenService builds a token service from config. Only HMAC signing
// methods are accepted: the secret is symmetric.
func NewTokenService(cfg Config, opts ...TokenOption) (*TokenService, error) {
	if cfg.JWTSecret == "" {
		return nil, ErrMissingSigningKey
	}
	method := jwt.GetSigningMethod(cfg.JWTAlgorithm)
	if method == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, cfg.JWTAlgorithm)
	}
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedAlgorithm, cfg.JWTAlgorithm)
	}

	ttl := cfg.TokenTTL()
	if ttl <= 0 {
		ttl = time.Hour
	}
	s := &TokenService{
		secret: []byte(cfg.JWTSecret),
		method: method,
		ttl:    ttl,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Issue signs a token for subject. Returns the token and its expiry.
func (s *TokenService) Issue(subject string) (string, time.Time, error) {
	now := s.now()
	expiresAt := now.Add(s.ttl)

	token := jwt.NewWithClaims(s.method, jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	})
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign token: %w", err)
	}
	return signed, expiresAt, nil
}

// Verify parses and validates a token, pinning the signing method so an
// attacker cannot downgrade the algorithm.
func (s *TokenService) Verify(tokenString string) (*jwt.RegisteredClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		if t.Method.Alg() != s.method.Alg() {
			return nil, ErrInvalidToken
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	return claims, nil
}

// credentialsMatch compares submitted credentials against the configured
// pair. Hashing both sides first keeps the comparison constant-time without
// leaking lengths.
func credentialsMatch(cfg Config, username, password string) bool {
	userWant := sha256.Sum256([]byte(cfg.Username))
	userGot := sha256.Sum256([]byte(username))
	passWant := sha256.Sum256([]byte(cfg.Password))
	passGot := sha256.Sum256([]byte(password))

	userOK := subtle.ConstantTimeCompare(userWant[:], userGot[:]) == 1
	passOK := subtle.ConstantTimeCompare(passWant[:], passGot[:]) == 1
	return userOK && passOK
}

type tokenRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
}

// issueToken is POST /auth/token: exchange admin credentials for a bearer
// token.
func (h *Handler) issueToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if !credentialsMatch(h.cfg, req.Username, req.Password) {
		respondError(w, http.StatusUnauthorized, "Incorrect username or password")
		return
	}

	token, expiresAt, err := h.tokens.Issue(req.Username)
	if err != nil {
		h.log.Error("token issue failed", "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	respondJSON(w, http.StatusOK, tokenResponse{
		AccessToken: token,
		TokenType:   "bearer",
		ExpiresIn:   int64(time.Until(expiresAt).Seconds()),
	})
}

// requireAuth guards every admin route except the token exchange.
func (h *Handler) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			respondError(w, http.StatusUnauthorized, "Not authenticated")
			return
		}
		if _, err := h.tokens.Verify(token); err != nil {
			respondError(w, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		next.ServeHTTP(w, r)
	})
}
