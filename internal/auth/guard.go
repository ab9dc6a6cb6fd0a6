package auth

import (
	"errors"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"boostify/internal/backend"
	"boostify/internal/session"
)

// Guard applies the authorization-failure policy to every backend call made
// for one request. The first ErrAuthExpired clears the session and marks the
// request for a redirect to the sign-in page; later ones are no-ops.
type Guard struct {
	c        *gin.Context
	resolver *Resolver
	sess     session.Session

	once    sync.Once
	mu      sync.Mutex
	expired bool
}

func newGuard(c *gin.Context, r *Resolver, sess session.Session) *Guard {
	return &Guard{c: c, resolver: r, sess: sess}
}

// GuardFrom returns the guard the resolver attached to c.
func GuardFrom(c *gin.Context) *Guard {
	if v, ok := c.Get(guardKey); ok {
		if g, ok := v.(*Guard); ok {
			return g
		}
	}
	return &Guard{c: c}
}

// Token returns the backend bearer token of the session, if any.
func (g *Guard) Token() string { return g.sess.Token }

// Identity returns the identity stored in the session.
func (g *Guard) Identity() session.Identity { return g.sess.Identity }

// Session returns the session the guard was built for.
func (g *Guard) Session() session.Session { return g.sess }

// Observe passes err through unchanged after applying the 401 policy.
func (g *Guard) Observe(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, backend.ErrAuthExpired) || errors.Is(err, backend.ErrNoSession) {
		g.once.Do(func() {
			g.mu.Lock()
			g.expired = true
			g.mu.Unlock()
			if g.resolver != nil {
				g.resolver.end(g.c, g.sess.ID)
			}
		})
	}
	return err
}

// Expired reports whether a call in this request hit an authorization failure.
func (g *Guard) Expired() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.expired
}

// RedirectIfExpired sends the browser to the sign-in page when the session
// ended during this request and reports whether it did.
func (g *Guard) RedirectIfExpired() bool {
	if !g.Expired() {
		return false
	}
	g.c.Redirect(http.StatusSeeOther, SignInPath)
	g.c.Abort()
	return true
}
