package web

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"boostify/internal/attendance"
	"boostify/internal/auth"
	"boostify/internal/backend"
	"boostify/internal/listview"
	"boostify/internal/queue"
	"boostify/internal/session"
)

// Authenticator exchanges credentials for a backend token.
type Authenticator interface {
	Login(ctx context.Context, assistantCode, password string) (backend.LoginResult, error)
}

// Handler serves the server-rendered pages.
type Handler struct {
	Attendance *attendance.Service
	Backend    Authenticator
	Store      session.Store
	Cookies    auth.Cookies
	Resolver   *auth.Resolver
	// Logouts receives best-effort backend logout notifications; nil disables them.
	Logouts    queue.Queue
	// LoginLimit guards POST /SignIn; nil means unlimited.
	LoginLimit gin.HandlerFunc
}

// view is the data every template receives.
type view struct {
	Shell
	Title  string
	Error  string
	Notice string
	Pager  *Pager
	Data   any
}

// Pager holds the pagination controls of a list page.
type Pager struct {
	listview.PageState
	PrevURL string
	NextURL string
}

// Routes registers templates, static files and every page on r.
func (h *Handler) Routes(r *gin.Engine) error {
	tmpl, err := loadPages()
	if err != nil {
		return err
	}
	r.HTMLRender = tmpl
	r.StaticFS("/static", staticFiles())

	pagesGroup := r.Group("/", h.Resolver.Middleware(), auth.RequireSession())
	pagesGroup.GET("/", h.landing)

	signIn := []gin.HandlerFunc{h.signIn}
	if h.LoginLimit != nil {
		signIn = append([]gin.HandlerFunc{h.LoginLimit}, signIn...)
	}
	pagesGroup.GET(auth.SignInPath, h.signInForm)
	pagesGroup.POST(auth.SignInPath, signIn...)
	pagesGroup.GET("/SignOut", h.signOutConfirm)
	pagesGroup.POST("/SignOut", h.signOut)
	pagesGroup.POST("/theme", h.toggleTheme)

	pagesGroup.GET("/HomePage", h.home)
	pagesGroup.GET("/LiveReport", h.liveReport)
	pagesGroup.GET("/Recap", h.recap)
	pagesGroup.GET("/Profile", h.profile)
	pagesGroup.POST("/Profile/avatar", h.uploadAvatar)
	pagesGroup.POST("/Profile/avatar/delete", h.deleteAvatar)
	return nil
}

func (h *Handler) render(c *gin.Context, status int, name string, v view) {
	if v.Shell.Path == "" {
		v.Shell = shellFor(c)
	}
	c.HTML(status, name, v)
}

// LoginRejected renders the sign-in form with a rate-limit message.
func (h *Handler) LoginRejected(c *gin.Context) {
	h.render(c, http.StatusTooManyRequests, "signin", view{
		Title: "Sign In",
		Error: "Too many sign-in attempts. Please wait a minute and try again.",
	})
}
