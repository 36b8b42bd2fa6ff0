package console

import (
	"crypto/rand"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionAuth gates the console API. Operators log in with the
// configured admin token and receive a short-lived signed session token.
// When no admin token is configured, authentication is disabled and the
// middleware passes everything through.
type SessionAuth struct {
	adminToken string
	secret     []byte
	ttl        time.Duration
}

// NewSessionAuth creates the session authenticator. An empty secret is
// replaced with a random one, which invalidates sessions on restart.
func NewSessionAuth(adminToken, secret string, ttl time.Duration) *SessionAuth {
	key := []byte(secret)
	if len(key) == 0 {
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			panic("console: failed to generate session secret: " + err.Error())
		}
	}
	if adminToken != "" {
		slog.Info("Console authentication enabled")
	} else {
		slog.Info("Console authentication disabled (no admin token configured)")
	}
	return &SessionAuth{
		adminToken: adminToken,
		secret:     key,
		ttl:        ttl,
	}
}

// Enabled reports whether login is required.
func (a *SessionAuth) Enabled() bool { return a.adminToken != "" }

// Login checks the supplied admin token and issues a session token.
func (a *SessionAuth) Login(token string) (string, time.Time, bool) {
	if !a.Enabled() {
		return "", time.Time{}, false
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(a.adminToken)) != 1 {
		return "", time.Time{}, false
	}

	expiresAt := time.Now().Add(a.ttl)
	claims := jwt.MapClaims{
		"sub": "console-admin",
		"iat": time.Now().Unix(),
		"exp": expiresAt.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(a.secret)
	if err != nil {
		slog.Error("Failed to sign session token", "error", err)
		return "", time.Time{}, false
	}
	return signed, expiresAt, true
}

// Verify validates a session token.
func (a *SessionAuth) Verify(tokenString string) bool {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	return err == nil && token.Valid
}

// Middleware enforces a valid session on every request. The token comes
// from the Authorization header, or from the "session" query parameter
// for websocket upgrades where custom headers are unavailable.
func (a *SessionAuth) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !a.Enabled() {
			next.ServeHTTP(w, r)
			return
		}

		token := bearerToken(r)
		if token == "" {
			token = r.URL.Query().Get("session")
		}
		if token == "" || !a.Verify(token) {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"error": "authentication required"}`))
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if strings.HasPrefix(auth, "Bearer ") {
		return strings.TrimPrefix(auth, "Bearer ")
	}
	return ""
}
