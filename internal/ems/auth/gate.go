// Package auth implements the single-administrator access gate: credential
// checks, signed session tokens and the HTTP middleware that guards the
// protected routes.
package auth

import (
	"crypto/subtle"
	"errors"
	"net/http"
	"strings"
	"time"

	e "github.com/gartstein/ems/internal/ems/errors"
	"golang.org/x/crypto/bcrypt"
)

const (
	CookieName         = "auth_token"
	DefaultSessionDays = 7
	DefaultIssuer      = "ems"
)

// Credentials identify the single administrator. When PasswordHash is set
// it is a bcrypt hash and Password is ignored.
type Credentials struct {
	Email        string
	Password     string
	PasswordHash string
}

type Config struct {
	Secret       string
	Issuer       string
	SessionDays  int
	SecureCookie bool
}

// Identity is the authenticated principal.
type Identity struct {
	Email     string    `json:"email"`
	ExpiresAt time.Time `json:"-"`
}

type Gate struct {
	creds  Credentials
	secret []byte
	issuer string
	ttl    time.Duration
	secure bool
	now    func() time.Time
}

func NewGate(creds Credentials, cfg Config) (*Gate, error) {
	if strings.TrimSpace(creds.Email) == "" {
		return nil, errors.New("admin email is required")
	}
	if creds.Password == "" && creds.PasswordHash == "" {
		return nil, errors.New("admin password or password hash is required")
	}
	if cfg.Secret == "" {
		return nil, errors.New("jwt secret is required")
	}
	if cfg.SessionDays <= 0 {
		cfg.SessionDays = DefaultSessionDays
	}
	if cfg.Issuer == "" {
		cfg.Issuer = DefaultIssuer
	}
	creds.Email = strings.ToLower(strings.TrimSpace(creds.Email))
	return &Gate{
		creds:  creds,
		secret: []byte(cfg.Secret),
		issuer: cfg.Issuer,
		ttl:    time.Duration(cfg.SessionDays) * 24 * time.Hour,
		secure: cfg.SecureCookie,
		now:    time.Now,
	}, nil
}

// Login checks the credentials and issues a session token. Which of the
// two credentials was wrong is never revealed.
func (g *Gate) Login(email, password string) (string, *Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return "", nil, e.Invalid("email", "Email and password are required")
	}

	emailOK := subtle.ConstantTimeCompare([]byte(email), []byte(g.creds.Email)) == 1
	if !g.passwordMatches(password) || !emailOK {
		return "", nil, e.ErrUnauthorized
	}

	token, expiresAt, err := issueToken(g.creds.Email, g.issuer, g.secret, g.now(), g.ttl)
	if err != nil {
		return "", nil, err
	}
	return token, &Identity{Email: g.creds.Email, ExpiresAt: expiresAt}, nil
}

func (g *Gate) passwordMatches(password string) bool {
	if g.creds.PasswordHash != "" {
		return bcrypt.CompareHashAndPassword([]byte(g.creds.PasswordHash), []byte(password)) == nil
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(g.creds.Password)) == 1
}

// Verify validates a session token and returns the administrator identity.
// Every failure is reported as ErrUnauthorized.
func (g *Gate) Verify(token string) (*Identity, error) {
	if token == "" {
		return nil, e.ErrUnauthorized
	}
	claims, err := validateToken(token, g.issuer, g.secret, g.now)
	if err != nil {
		return nil, e.ErrUnauthorized
	}
	if !strings.EqualFold(claims.Subject, g.creds.Email) {
		return nil, e.ErrUnauthorized
	}
	identity := &Identity{Email: claims.Subject}
	if claims.ExpiresAt != nil {
		identity.ExpiresAt = claims.ExpiresAt.Time
	}
	return identity, nil
}

// SessionCookie wraps token in the session cookie.
func (g *Gate) SessionCookie(token string) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(g.ttl / time.Second),
		Expires:  g.now().Add(g.ttl),
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// ClearCookie expires the session cookie. Logout is stateless; issued
// tokens stay valid until they expire.
func (g *Gate) ClearCookie() *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteLaxMode,
	}
}
