package web

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"boostify/internal/auth"
	"boostify/internal/backend"
	"boostify/internal/metrics"
	"boostify/internal/queue"
	"boostify/internal/session"
)

type loginForm struct {
	AssistantCode string `form:"assistant_code" binding:"required"`
	Password      string `form:"password" binding:"required"`
}

func (h *Handler) landing(c *gin.Context) {
	h.render(c, http.StatusOK, "landing", view{Title: "Boostify"})
}

func (h *Handler) signInForm(c *gin.Context) {
	if auth.FromContext(c).Authenticated {
		c.Redirect(http.StatusSeeOther, "/HomePage")
		return
	}
	h.render(c, http.StatusOK, "signin", view{Title: "Sign In"})
}

func (h *Handler) signIn(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		h.render(c, http.StatusBadRequest, "signin", view{
			Title: "Sign In",
			Error: "Assistant code and password are required.",
			Data:  form,
		})
		return
	}

	res, err := h.Backend.Login(c.Request.Context(), form.AssistantCode, form.Password)
	if err != nil {
		form.Password = ""
		h.render(c, loginStatus(err), "signin", view{Title: "Sign In", Error: loginMessage(err), Data: form})
		return
	}

	sess := session.New(res.Token, session.Identity{
		ID:            res.Payload.ID,
		Name:          res.Payload.Name,
		AssistantCode: res.Payload.AssistantCode,
		AvatarURL:     res.Payload.ImageURL,
	})
	if err := h.Store.Set(c.Request.Context(), sess); err != nil {
		log.Printf("session save failed: %v", err)
		h.render(c, http.StatusInternalServerError, "signin", view{Title: "Sign In", Error: "Could not start a session. Please try again."})
		return
	}
	h.Cookies.ClearLegacy(c)
	if err := h.Cookies.Write(c, sess.ID); err != nil {
		log.Printf("session cookie issue failed: %v", err)
		h.render(c, http.StatusInternalServerError, "signin", view{Title: "Sign In", Error: "Could not start a session. Please try again."})
		return
	}
	metrics.SessionEvents.WithLabelValues("login").Inc()
	c.Redirect(http.StatusSeeOther, "/HomePage")
}

func loginStatus(err error) int {
	var se *backend.StatusError
	switch {
	case errors.Is(err, backend.ErrMissingCredentials):
		return http.StatusBadRequest
	case errors.As(err, &se) && se.Status < 500:
		return http.StatusUnauthorized
	default:
		return http.StatusBadGateway
	}
}

func loginMessage(err error) string {
	var se *backend.StatusError
	switch {
	case errors.Is(err, backend.ErrMissingCredentials):
		return "Assistant code and password are required."
	case errors.As(err, &se) && se.Status < 500:
		if se.Message != "" {
			return se.Message
		}
		return "Invalid credentials"
	default:
		log.Printf("login failed: %v", err)
		return "Unable to sign in right now. Please try again."
	}
}

func (h *Handler) signOutConfirm(c *gin.Context) {
	shell := shellFor(c)
	shell.ShowSignOut = true
	cancel := localPath(c.Query("from"), "/HomePage")
	if !shell.Authenticated {
		cancel = "/"
	}
	h.render(c, http.StatusOK, "signout", view{Shell: shell, Title: "Sign Out", Data: cancel})
}

// signOut clears local state first; the backend is told afterwards and its
// failure never blocks the local sign-out.
func (h *Handler) signOut(c *gin.Context) {
	sess := auth.GuardFrom(c).Session()
	if sess.ID != "" {
		if err := h.Store.Clear(c.Request.Context(), sess.ID); err != nil {
			log.Printf("session clear failed: %v", err)
		}
	}
	h.Cookies.ClearAll(c)
	if sess.Token != "" {
		queue.NotifyLogout(c.Request.Context(), h.Logouts, sess.Token)
		metrics.SessionEvents.WithLabelValues("logout").Inc()
	}
	c.Redirect(http.StatusSeeOther, "/")
}
