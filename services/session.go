// ABOUTME: Cookie codec for the session and registration cookie families
// ABOUTME: Reads tokens from requests and writes HttpOnly cookies to responses

package services

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/travis-wayne/fastlearners-frontend-sub005/models"
)

const (
	AuthTokenCookie   = "auth_token"
	AuthUserCookie    = "auth_user"
	AuthExpiresCookie = "auth_expires"
	RegTokenCookie    = "reg_token"
	RegExpiresCookie  = "reg_expires"

	SessionTTL  = 7 * 24 * time.Hour
	RegTokenTTL = 15 * time.Minute
)

// Session is the parsed main session cookie family.
// User is nil when the snapshot cookie is missing or unreadable.
type Session struct {
	Token     string
	User      *models.User
	ExpiresAt time.Time
}

// RegToken is the parsed registration cookie family.
type RegToken struct {
	Token     string
	ExpiresAt time.Time
}

// TokenSource names which cookie family supplied a bearer token.
type TokenSource string

const (
	TokenSourceNone         TokenSource = ""
	TokenSourceSession      TokenSource = "session"
	TokenSourceRegistration TokenSource = "registration"
)

// CookieCodec reads and writes auth cookies.
type CookieCodec struct {
	Secure   bool
	SameSite http.SameSite
	Now      func() time.Time
}

// NewCookieCodec builds a codec with SameSite=Strict in production and Lax otherwise.
func NewCookieCodec(secure, production bool) *CookieCodec {
	sameSite := http.SameSiteLaxMode
	if production {
		sameSite = http.SameSiteStrictMode
	}
	return &CookieCodec{Secure: secure, SameSite: sameSite, Now: time.Now}
}

func (c *CookieCodec) now() time.Time {
	if c.Now == nil {
		return time.Now()
	}
	return c.Now()
}

// cookie builds a cookie that expires at expires and lives for ttl.
// Callers derive both from a single clock read.
func (c *CookieCodec) cookie(name, value string, expires time.Time, ttl time.Duration) *http.Cookie {
	maxAge := int(ttl / time.Second)
	if maxAge <= 0 {
		maxAge = -1
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	}
}

func (c *CookieCodec) expired(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: c.SameSite,
	}
}

// SetSession writes the session cookies with a fixed 7-day expiry.
func (c *CookieCodec) SetSession(w http.ResponseWriter, token string, user *models.User) Session {
	expiresAt := c.now().Add(SessionTTL)
	http.SetCookie(w, c.cookie(AuthTokenCookie, token, expiresAt, SessionTTL))
	if user != nil {
		if encoded, err := encodeUser(user); err == nil {
			http.SetCookie(w, c.cookie(AuthUserCookie, encoded, expiresAt, SessionTTL))
		}
	}
	http.SetCookie(w, c.cookie(AuthExpiresCookie, strconv.FormatInt(expiresAt.UnixMilli(), 10), expiresAt, SessionTTL))
	return Session{Token: token, User: user, ExpiresAt: expiresAt}
}

// RefreshUser rewrites the user snapshot without moving the session expiry.
func (c *CookieCodec) RefreshUser(w http.ResponseWriter, s Session, user *models.User) {
	encoded, err := encodeUser(user)
	if err != nil {
		return
	}
	http.SetCookie(w, c.cookie(AuthUserCookie, encoded, s.ExpiresAt, s.ExpiresAt.Sub(c.now())))
}

// ParseSession returns the session when token and expiry are present and unexpired.
func (c *CookieCodec) ParseSession(r *http.Request) (Session, bool) {
	token := cookieValue(r, AuthTokenCookie)
	expiresAt, ok := parseEpochMillis(cookieValue(r, AuthExpiresCookie))
	if token == "" || !ok || !c.now().Before(expiresAt) {
		return Session{}, false
	}
	s := Session{Token: token, ExpiresAt: expiresAt}
	if raw := cookieValue(r, AuthUserCookie); raw != "" {
		s.User, _ = decodeUser(raw)
	}
	return s, true
}

// ClearSession expires every session cookie.
func (c *CookieCodec) ClearSession(w http.ResponseWriter) {
	for _, name := range []string{AuthTokenCookie, AuthUserCookie, AuthExpiresCookie} {
		http.SetCookie(w, c.expired(name))
	}
}

// SetRegToken writes the registration cookies with a 15-minute TTL.
func (c *CookieCodec) SetRegToken(w http.ResponseWriter, token string) RegToken {
	expiresAt := c.now().Add(RegTokenTTL)
	http.SetCookie(w, c.cookie(RegTokenCookie, token, expiresAt, RegTokenTTL))
	http.SetCookie(w, c.cookie(RegExpiresCookie, strconv.FormatInt(expiresAt.UnixMilli(), 10), expiresAt, RegTokenTTL))
	return RegToken{Token: token, ExpiresAt: expiresAt}
}

// ParseRegToken returns the registration token while its TTL has not elapsed.
func (c *CookieCodec) ParseRegToken(r *http.Request) (RegToken, bool) {
	token := cookieValue(r, RegTokenCookie)
	expiresAt, ok := parseEpochMillis(cookieValue(r, RegExpiresCookie))
	if token == "" || !ok || !c.now().Before(expiresAt) {
		return RegToken{}, false
	}
	return RegToken{Token: token, ExpiresAt: expiresAt}, true
}

// ClearRegToken expires the registration cookies.
func (c *CookieCodec) ClearRegToken(w http.ResponseWriter) {
	http.SetCookie(w, c.expired(RegTokenCookie))
	http.SetCookie(w, c.expired(RegExpiresCookie))
}

// ResolveToken picks the authoritative bearer token for a request.
// The session token always wins; the registration token is considered only when allowReg is set.
func (c *CookieCodec) ResolveToken(r *http.Request, allowReg bool) (string, TokenSource) {
	if s, ok := c.ParseSession(r); ok {
		return s.Token, TokenSourceSession
	}
	if allowReg {
		if reg, ok := c.ParseRegToken(r); ok {
			return reg.Token, TokenSourceRegistration
		}
	}
	return "", TokenSourceNone
}

func cookieValue(r *http.Request, name string) string {
	ck, err := r.Cookie(name)
	if err != nil {
		return ""
	}
	return ck.Value
}

func parseEpochMillis(v string) (time.Time, bool) {
	if v == "" {
		return time.Time{}, false
	}
	ms, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return time.Time{}, false
	}
	return time.UnixMilli(ms), true
}

// net/http drops cookie values containing quotes, so the JSON is base64url encoded.
func encodeUser(u *models.User) (string, error) {
	data, err := json.Marshal(u)
	if err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(data), nil
}

func decodeUser(v string) (*models.User, error) {
	data, err := base64.RawURLEncoding.DecodeString(v)
	if err != nil {
		return nil, err
	}
	var u models.User
	if err := json.Unmarshal(data, &u); err != nil {
		return nil, err
	}
	return &u, nil
}
