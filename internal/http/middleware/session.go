package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type contextKey string

const sessionClaimsKey contextKey = "sessionClaims"

const (
	defaultCookieName = "auth_token"
	defaultSessionTTL = 7 * 24 * time.Hour
)

// SessionClaims are carried in the signed session token.
type SessionClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// SessionConfig configures cookie sessions.
type SessionConfig struct {
	Secret     string
	CookieName string
	TTL        time.Duration
	Domain     string
	Secure     bool
}

// Sessions issues and verifies HMAC-signed JWT session cookies.
type Sessions struct {
	secret     []byte
	cookieName string
	ttl        time.Duration
	domain     string
	secure     bool
	now        func() time.Time
}

func NewSessions(cfg SessionConfig) *Sessions {
	if strings.TrimSpace(cfg.Secret) == "" {
		panic("middleware: session secret is required")
	}
	if cfg.CookieName == "" {
		cfg.CookieName = defaultCookieName
	}
	if cfg.TTL <= 0 {
		cfg.TTL = defaultSessionTTL
	}
	return &Sessions{
		secret:     []byte(cfg.Secret),
		cookieName: cfg.CookieName,
		ttl:        cfg.TTL,
		domain:     cfg.Domain,
		secure:     cfg.Secure,
		now:        time.Now,
	}
}

// Issue signs a token for the user and sets it as an HttpOnly cookie.
func (s *Sessions) Issue(w http.ResponseWriter, userID, email string) (string, error) {
	now := s.now()
	claims := SessionClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    signed,
		Path:     "/",
		Domain:   s.domain,
		Expires:  now.Add(s.ttl),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: s.sameSite(),
	})
	return signed, nil
}

// Clear expires the session cookie.
func (s *Sessions) Clear(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.cookieName,
		Value:    "",
		Path:     "/",
		Domain:   s.domain,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   s.secure,
		SameSite: s.sameSite(),
	})
}

// Require rejects requests without a valid session and stores the claims in the context.
// The token is read from the session cookie, falling back to a bearer header.
func (s *Sessions) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokenString := s.tokenFromRequest(r)
		if tokenString == "" {
			writeUnauthorized(w, "Token not received")
			return
		}
		claims, err := s.Verify(tokenString)
		if err != nil {
			writeUnauthorized(w, "Token expired or invalid")
			return
		}
		ctx := context.WithValue(r.Context(), sessionClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Verify parses and validates a signed session token.
func (s *Sessions) Verify(tokenString string) (*SessionClaims, error) {
	claims := &SessionClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return s.secret, nil
	}, jwt.WithTimeFunc(s.now))
	if err != nil {
		return nil, err
	}
	if !token.Valid || claims.Subject == "" {
		return nil, errors.New("middleware: invalid session token")
	}
	return claims, nil
}

func (s *Sessions) tokenFromRequest(r *http.Request) string {
	if cookie, err := r.Cookie(s.cookieName); err == nil && strings.TrimSpace(cookie.Value) != "" {
		return strings.TrimSpace(cookie.Value)
	}
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	}
	return ""
}

// Cross-site frontends need SameSite=None, which browsers only accept on secure cookies.
func (s *Sessions) sameSite() http.SameSite {
	if s.secure {
		return http.SameSiteNoneMode
	}
	return http.SameSiteLaxMode
}

// SessionFromContext returns the verified session claims if present.
func SessionFromContext(ctx context.Context) (*SessionClaims, bool) {
	claims, ok := ctx.Value(sessionClaimsKey).(*SessionClaims)
	return claims, ok
}

// UserIDFromContext returns the authenticated user id if present.
func UserIDFromContext(ctx context.Context) (string, bool) {
	claims, ok := SessionFromContext(ctx)
	if !ok || claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}

// WithSession stores claims in ctx. Handlers under test use it to skip token signing.
func WithSession(ctx context.Context, userID, email string) context.Context {
	claims := &SessionClaims{Email: email, RegisteredClaims: jwt.RegisteredClaims{Subject: userID}}
	return context.WithValue(ctx, sessionClaimsKey, claims)
}

func writeUnauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	_ = json.NewEncoder(w).Encode(map[string]string{"message": message})
}
