// Package cookie stores the refresh token in a signed, http-only cookie.
package cookie

import (
	"net/http"
	"time"

	"github.com/gorilla/securecookie"
)

// RefreshTokenName is the cookie that carries the refresh token.
const RefreshTokenName = "refreshToken"

// Codec signs and verifies the refresh token cookie.
type Codec struct {
	sc     *securecookie.SecureCookie
	secure bool
	ttl    time.Duration
	now    func() time.Time
}

// NewCodec creates a Codec. Cookies older than ttl fail verification.
func NewCodec(secret string, secure bool, ttl time.Duration) *Codec {
	sc := securecookie.New([]byte(secret), nil)
	sc.MaxAge(int(ttl / time.Second))
	sc.SetSerializer(securecookie.JSONEncoder{})

	return &Codec{
		sc:     sc,
		secure: secure,
		ttl:    ttl,
		now:    time.Now,
	}
}

// Set writes the signed refresh token cookie.
func (c *Codec) Set(w http.ResponseWriter, refreshToken string) error {
	encoded, err := c.sc.Encode(RefreshTokenName, refreshToken)
	if err != nil {
		return err
	}

	http.SetCookie(w, c.cookie(encoded, c.now().Add(c.ttl), int(c.ttl/time.Second)))
	return nil
}

// Read returns the refresh token when the request carries a cookie with a valid
// signature. A missing or tampered cookie reads as absent.
func (c *Codec) Read(r *http.Request) (string, bool) {
	raw, err := r.Cookie(RefreshTokenName)
	if err != nil || raw.Value == "" {
		return "", false
	}

	var token string
	if err := c.sc.Decode(RefreshTokenName, raw.Value, &token); err != nil || token == "" {
		return "", false
	}
	return token, true
}

// Clear expires the refresh token cookie.
func (c *Codec) Clear(w http.ResponseWriter) {
	http.SetCookie(w, c.cookie("", time.Unix(0, 0), -1))
}

func (c *Codec) cookie(value string, expires time.Time, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     RefreshTokenName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.secure,
		SameSite: http.SameSiteStrictMode,
	}
}
