package auth

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"boostify/internal/session"
)

// Cookies signs and writes the session cookie.
type Cookies struct {
	Key    string
	Issuer string
	TTL    time.Duration
	Secure bool
}

// Write issues a signed cookie pointing at sessionID.
func (c Cookies) Write(ctx *gin.Context, sessionID string) error {
	value, _, err := Issue(sessionID, c.Issuer, c.Key, c.TTL)
	if err != nil {
		return err
	}
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(session.CookieName, value, int(c.TTL.Seconds()), "/", "", c.Secure, true)
	return nil
}

// SessionID returns the session id from a valid cookie.
func (c Cookies) SessionID(ctx *gin.Context) (string, bool) {
	value, err := ctx.Cookie(session.CookieName)
	if err != nil || value == "" {
		return "", false
	}
	claims, err := Parse(value, c.Key, c.Issuer)
	if err != nil {
		return "", false
	}
	return claims.Subject, true
}

// ClearAll expires the session cookie and every legacy key.
func (c Cookies) ClearAll(ctx *gin.Context) {
	ctx.SetSameSite(http.SameSiteLaxMode)
	ctx.SetCookie(session.CookieName, "", -1, "/", "", c.Secure, true)
	c.ClearLegacy(ctx)
}

// ClearLegacy expires the legacy keys the browser still sends.
func (c Cookies) ClearLegacy(ctx *gin.Context) {
	for _, name := range session.LegacyCookies {
		if _, err := ctx.Cookie(name); err == nil {
			ctx.SetCookie(name, "", -1, "/", "", c.Secure, false)
		}
	}
}

// legacyRecord returns the first legacy cookie that holds a session record.
func legacyRecord(ctx *gin.Context) ([]byte, bool) {
	for _, name := range []string{"authData", "authToken"} {
		raw, err := ctx.Cookie(name)
		if err != nil || raw == "" {
			continue
		}
		return []byte(raw), true
	}
	return nil, false
}
