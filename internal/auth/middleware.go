package auth

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"boostify/internal/backend"
	"boostify/internal/metrics"
	"boostify/internal/session"
)

const (
	resolvedKey = "session"
	guardKey    = "guard"
)

// SignInPath is where unauthenticated visitors of protected pages are sent.
const SignInPath = "/SignIn"

// ProtectedPrefixes lists the path prefixes that require a session.
var ProtectedPrefixes = []string{"/HomePage", "/Profile", "/Recap", "/LiveReport"}

// Resolved is the authentication state of the current request.
type Resolved struct {
	Authenticated bool
	Session       session.Session
	Loading       bool
}

// IdentitySource confirms a token is still accepted by the backend.
type IdentitySource interface {
	WhoAmI(ctx context.Context, token string) (backend.Identity, error)
}

// Resolver loads the session for each request.
type Resolver struct {
	Store    session.Store
	Cookies  Cookies
	// Validate is nil when whoami validation is disabled.
	Validate IdentitySource
}

// Middleware resolves the session and stores a Resolved and a Guard in the
// gin context.
func (r *Resolver) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		sess, ok := r.load(c)
		if ok && r.Validate != nil {
			sess, ok = r.validate(c, sess)
		}

		res := Resolved{Authenticated: ok && sess.Authenticated()}
		if res.Authenticated {
			res.Session = sess
		}
		c.Set(resolvedKey, res)
		c.Set(guardKey, newGuard(c, r, res.Session))
		c.Next()
	}
}

func (r *Resolver) load(c *gin.Context) (session.Session, bool) {
	ctx := c.Request.Context()
	if id, ok := r.Cookies.SessionID(c); ok {
		sess, err := r.Store.Get(ctx, id)
		if err == nil {
			return sess, true
		}
		if errors.Is(err, session.ErrNotFound) {
			r.Cookies.ClearAll(c)
		} else {
			log.Printf("session load failed: %v", err)
		}
		return session.Session{}, false
	}
	return r.migrate(c)
}

// migrate turns a legacy cookie record into a canonical session.
func (r *Resolver) migrate(c *gin.Context) (session.Session, bool) {
	raw, ok := legacyRecord(c)
	if !ok {
		return session.Session{}, false
	}
	sess, err := session.Decode(raw)
	if err != nil {
		log.Printf("warning: dropping legacy session: %v", err)
		r.Cookies.ClearAll(c)
		return session.Session{}, false
	}
	if err := r.Store.Set(c.Request.Context(), sess); err != nil {
		log.Printf("legacy session save failed: %v", err)
		return session.Session{}, false
	}
	r.Cookies.ClearLegacy(c)
	if err := r.Cookies.Write(c, sess.ID); err != nil {
		log.Printf("session cookie issue failed: %v", err)
		return session.Session{}, false
	}
	metrics.SessionEvents.WithLabelValues("migrated").Inc()
	return sess, true
}

func (r *Resolver) validate(c *gin.Context, sess session.Session) (session.Session, bool) {
	ctx := c.Request.Context()
	who, err := r.Validate.WhoAmI(ctx, sess.Token)
	switch {
	case err == nil:
	case errors.Is(err, backend.ErrAuthExpired):
		r.end(c, sess.ID)
		return session.Session{}, false
	default:
		metrics.SessionEvents.WithLabelValues("validate_error").Inc()
		log.Printf("whoami failed, keeping session: %v", err)
		return sess, true
	}

	updated := sess
	updated.Identity.ID = who.ID
	updated.Identity.Name = who.Name
	updated.Identity.AssistantCode = who.AssistantCode
	if who.ImageURL != "" {
		updated.Identity.AvatarURL = who.ImageURL
	}
	if updated.Identity != sess.Identity {
		if err := r.Store.Set(ctx, updated); err != nil {
			log.Printf("session refresh failed: %v", err)
		}
	}
	return updated, true
}

// end clears a session after the backend rejected its token.
func (r *Resolver) end(c *gin.Context, id string) {
	if id != "" {
		if err := r.Store.Clear(c.Request.Context(), id); err != nil {
			log.Printf("session clear failed: %v", err)
		}
	}
	r.Cookies.ClearAll(c)
	metrics.SessionEvents.WithLabelValues("expired").Inc()
}

// FromContext returns the state resolved for this request.
func FromContext(c *gin.Context) Resolved {
	v, ok := c.Get(resolvedKey)
	if !ok {
		return Resolved{}
	}
	res, _ := v.(Resolved)
	return res
}

// RequireSession redirects unauthenticated requests for protected paths to
// the sign-in page.
func RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		if Protected(c.Request.URL.Path) && !FromContext(c).Authenticated {
			c.Redirect(http.StatusSeeOther, SignInPath)
			c.Abort()
			return
		}
		c.Next()
	}
}

// Protected reports whether path requires a session.
func Protected(path string) bool {
	for _, p := range ProtectedPrefixes {
		if path == p || strings.HasPrefix(path, p+"/") {
			return true
		}
	}
	return false
}
