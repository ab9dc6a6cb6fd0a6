package web

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	"boostify/internal/auth"
	"boostify/internal/backend"
	"boostify/internal/listview"
)

const maxAvatarBytes = 10 << 20

const (
	errAttendance = "Failed to fetch attendance data"
	errRecap      = "Failed to fetch recap data"
	errProfile    = "Failed to fetch profile data"
)

func (h *Handler) home(c *gin.Context) {
	h.render(c, http.StatusOK, "home", view{Title: "Home"})
}

func (h *Handler) liveReport(c *gin.Context) {
	g := auth.GuardFrom(c)
	page := listview.ParsePage(c.Query("page"))
	date := c.Query("date")

	res, err := h.Attendance.LiveReport(c.Request.Context(), g, page, date)
	if g.RedirectIfExpired() {
		return
	}
	if err != nil {
		log.Printf("live report page %d failed: %v", page, err)
		h.render(c, http.StatusOK, "livereport", view{Title: "Live Report", Error: errAttendance})
		return
	}
	if res.Page.CurrentPage != page {
		c.Redirect(http.StatusSeeOther, pageURL(c.Request.URL.Path, res.Page.CurrentPage, date))
		return
	}
	h.render(c, http.StatusOK, "livereport", view{
		Title: "Live Report",
		Pager: pagerFor(c.Request.URL.Path, res.Page, date),
		Data:  res,
	})
}

func (h *Handler) recap(c *gin.Context) {
	g := auth.GuardFrom(c)
	page := listview.ParsePage(c.Query("page"))
	date := c.Query("date")

	res, err := h.Attendance.Recap(c.Request.Context(), g, page, date)
	if g.RedirectIfExpired() {
		return
	}
	if err != nil {
		log.Printf("recap page %d failed: %v", page, err)
		h.render(c, http.StatusOK, "recap", view{Title: "Recap", Error: errRecap})
		return
	}
	if res.Page.CurrentPage != page {
		c.Redirect(http.StatusSeeOther, pageURL(c.Request.URL.Path, res.Page.CurrentPage, date))
		return
	}
	h.render(c, http.StatusOK, "recap", view{
		Title: "Recap",
		Pager: pagerFor(c.Request.URL.Path, res.Page, date),
		Data:  res,
	})
}

func (h *Handler) profile(c *gin.Context) {
	h.renderProfile(c, http.StatusOK, "", profileNotice(c.Query("avatar")))
}

func (h *Handler) renderProfile(c *gin.Context, status int, uploadErr, notice string) {
	g := auth.GuardFrom(c)
	res, err := h.Attendance.Profile(c.Request.Context(), g)
	if g.RedirectIfExpired() {
		return
	}
	v := view{Title: "Profile", Notice: notice}
	switch {
	case err != nil:
		log.Printf("profile failed: %v", err)
		v.Error = errProfile
	case uploadErr != "":
		v.Error = uploadErr
		v.Data = res
	default:
		v.Data = res
	}
	h.render(c, status, "profile", v)
}

func profileNotice(code string) string {
	switch code {
	case "updated":
		return "Profile image updated."
	case "deleted":
		return "Profile image removed."
	default:
		return ""
	}
}

func (h *Handler) uploadAvatar(c *gin.Context) {
	g := auth.GuardFrom(c)
	fh, err := c.FormFile("image")
	if err != nil {
		h.renderProfile(c, http.StatusBadRequest, "Choose an image to upload.", "")
		return
	}
	if fh.Size > maxAvatarBytes {
		h.renderProfile(c, http.StatusRequestEntityTooLarge, "The image is too large.", "")
		return
	}
	f, err := fh.Open()
	if err != nil {
		h.renderProfile(c, http.StatusBadRequest, "Could not read the uploaded file.", "")
		return
	}
	data, err := io.ReadAll(io.LimitReader(f, maxAvatarBytes+1))
	f.Close()
	if err != nil {
		h.renderProfile(c, http.StatusBadRequest, "Could not read the uploaded file.", "")
		return
	}

	avatar, err := h.Attendance.UploadAvatar(c.Request.Context(), g, fh.Filename, data)
	if g.RedirectIfExpired() {
		return
	}
	if err != nil {
		if errors.Is(err, backend.ErrUnsupportedImage) {
			h.renderProfile(c, http.StatusUnsupportedMediaType, "Only JPEG, JPG, PNG and HEIC images are allowed.", "")
			return
		}
		log.Printf("avatar upload failed: %v", err)
		h.renderProfile(c, http.StatusBadGateway, "Failed to upload the image.", "")
		return
	}
	h.saveAvatar(c, g, avatar)
	c.Redirect(http.StatusSeeOther, "/Profile?avatar=updated")
}

func (h *Handler) deleteAvatar(c *gin.Context) {
	g := auth.GuardFrom(c)
	err := h.Attendance.DeleteAvatar(c.Request.Context(), g)
	if g.RedirectIfExpired() {
		return
	}
	if err != nil {
		log.Printf("avatar delete failed: %v", err)
		h.renderProfile(c, http.StatusBadGateway, "Failed to remove the image.", "")
		return
	}
	h.saveAvatar(c, g, "")
	c.Redirect(http.StatusSeeOther, "/Profile?avatar=deleted")
}

// saveAvatar keeps the stored identity in step with the backend.
func (h *Handler) saveAvatar(c *gin.Context, g *auth.Guard, avatar string) {
	sess := g.Session()
	if sess.ID == "" {
		return
	}
	sess.Identity.AvatarURL = avatar
	if err := h.Store.Set(c.Request.Context(), sess); err != nil {
		log.Printf("session avatar update failed: %v", err)
	}
}

func pageURL(path string, page int, date string) string {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	if date != "" {
		q.Set("date", date)
	}
	return fmt.Sprintf("%s?%s", path, q.Encode())
}

func pagerFor(path string, p listview.PageState, date string) *Pager {
	return &Pager{
		PageState: p,
		PrevURL:   pageURL(path, p.PrevPage(), date),
		NextURL:   pageURL(path, p.NextPage(), date),
	}
}
