package web

import (
	"net/http"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"

	"boostify/internal/auth"
	"boostify/internal/session"
)

const (
	darkModeCookie = "darkMode"
	darkModeMaxAge = 365 * 24 * 60 * 60
)

// Shell is the navigation state every page renders with.
type Shell struct {
	Authenticated bool
	Identity      session.Identity
	DarkMode      bool
	MenuOpen      bool
	ShowSignOut   bool
	Path          string
}

func shellFor(c *gin.Context) Shell {
	res := auth.FromContext(c)
	dark, _ := c.Cookie(darkModeCookie)
	return Shell{
		Authenticated: res.Authenticated,
		Identity:      res.Session.Identity,
		DarkMode:      dark == "true",
		MenuOpen:      c.Query("menu") == "open",
		Path:          c.Request.URL.Path,
	}
}

// BodyClass is the top-level style class of the page.
func (s Shell) BodyClass() string {
	if s.DarkMode {
		return "dark-mode"
	}
	return ""
}

// MenuToggleURL opens the menu when closed and closes it when open.
func (s Shell) MenuToggleURL() string {
	if s.MenuOpen {
		return s.Path
	}
	return s.Path + "?menu=open"
}

// Active reports whether path is the current page.
func (s Shell) Active(path string) bool {
	return s.Path == path
}

func (h *Handler) toggleTheme(c *gin.Context) {
	dark, _ := c.Cookie(darkModeCookie)
	next := "true"
	if dark == "true" {
		next = "false"
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(darkModeCookie, next, darkModeMaxAge, "/", "", h.Cookies.Secure, true)
	c.Redirect(http.StatusSeeOther, localPath(c.PostForm("next"), "/"))
}

// localPath returns raw when it is a same-origin path, fallback otherwise.
func localPath(raw, fallback string) string {
	if raw == "" || !strings.HasPrefix(raw, "/") || strings.HasPrefix(raw, "//") || strings.Contains(raw, "\\") {
		return fallback
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host != "" || u.Scheme != "" {
		return fallback
	}
	return raw
}
