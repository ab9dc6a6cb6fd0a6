package web

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"boostify/internal/attendance"
	"boostify/internal/auth"
	"boostify/internal/backend"
	"boostify/internal/queue"
	"boostify/internal/session"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// fakeBackend mimics the attendance API for one assistant, CIT.
type fakeBackend struct {
	mu          sync.Mutex
	hits        map[string]int
	whoamiAuth  []string
	logouts     []string
	loginCodes  []string
	expired     bool
	historyCode int
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{hits: map[string]int{}, historyCode: http.StatusNotFound}
}

func (f *fakeBackend) count(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.hits[path]
}

func (f *fakeBackend) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.hits[r.URL.Path]++
	expired := f.expired
	f.mu.Unlock()

	authz := r.Header.Get("Authorization")
	if r.URL.Path != backend.PathLogin && authz != "Bearer tok-cit" {
		w.WriteHeader(http.StatusUnauthorized)
		return
	}

	switch r.URL.Path {
	case backend.PathLogin:
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		f.mu.Lock()
		f.loginCodes = append(f.loginCodes, body["assistant_code"])
		f.mu.Unlock()
		if body["assistant_code"] != "CIT" || body["password"] != "validpass" {
			w.WriteHeader(http.StatusUnauthorized)
			w.Write([]byte(`{"message":"Invalid assistant code or password"}`))
			return
		}
		w.Write([]byte(`{"token":{"token":"tok-cit","payload":{"id":1,"name":"Citra","assisstant_code":"CIT"}}}`))
	case backend.PathWhoAmI:
		f.mu.Lock()
		f.whoamiAuth = append(f.whoamiAuth, authz)
		f.mu.Unlock()
		w.Write([]byte(`{"id":1,"name":"Citra","assisstant_code":"CIT"}`))
	case backend.PathAttendances:
		if expired {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		var rows []string
		for i := 0; i < 3; i++ {
			rows = append(rows, fmt.Sprintf(`{"id":%d,"assisstant_code":"A%d","name":"Assistant %d","time":"2024-08-15T09:0%d:00Z"}`, i, i, i, i))
		}
		fmt.Fprintf(w, `{"assistances":[%s],"total":15,"currentPage":%d,"totalPages":5}`, strings.Join(rows, ","), page)
	case backend.PathRecap:
		w.Write([]byte(`{"payload":[
			{"assisstant_code":"CIT","name":"Citra","totalAttendance":40},
			{"assisstant_code":"DAN","name":"Dani","totalAttendance":38},
			{"assisstant_code":"EKA","name":"Eka","totalAttendance":35},
			{"assisstant_code":"FAJ","name":"Fajar","totalAttendance":20}
		],"pagination":{"totalPages":2}}`))
	case backend.PathPersonalRec:
		f.mu.Lock()
		code := f.historyCode
		f.mu.Unlock()
		if code != http.StatusOK {
			w.WriteHeader(code)
			return
		}
		w.Write([]byte(`{"attendancesTime":[{"time":"13:07","rawTime":"2024-08-15T13:07:00Z"}]}`))
	case backend.PathUploadImage:
		w.Write([]byte(`{"image":"https://cdn.example/cit.png"}`))
	case backend.PathDeleteImage:
		w.WriteHeader(http.StatusNoContent)
	case backend.PathLogout:
		f.mu.Lock()
		f.logouts = append(f.logouts, authz)
		f.mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

type app struct {
	url     string
	client  *http.Client
	store   *session.MemoryStore
	backend *fakeBackend
	api     *backend.Client
	logouts *queue.InMemory
}

func newApp(t *testing.T) *app {
	t.Helper()
	fb := newFakeBackend()
	api := httptest.NewServer(fb)
	t.Cleanup(api.Close)

	client := backend.New(api.URL, 5*time.Second)
	store := session.NewMemoryStore(0)
	cookies := auth.Cookies{Key: "test-secret", Issuer: "boostify-test", TTL: time.Hour}
	logouts := queue.NewInMemory(8)
	h := &Handler{
		Attendance: attendance.NewService(client, time.UTC),
		Backend:    client,
		Store:      store,
		Cookies:    cookies,
		Resolver:   &auth.Resolver{Store: store, Cookies: cookies, Validate: client},
		Logouts:    logouts,
	}

	r := gin.New()
	require.NoError(t, h.Routes(r))
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	browser := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &app{
		url:     srv.URL,
		client:  browser,
		store:   store,
		backend: fb,
		api:     client,
		logouts: logouts,
	}
}

type page struct {
	status   int
	location string
	body     string
	cookies  []*http.Cookie
}

func (a *app) do(t *testing.T, req *http.Request) page {
	t.Helper()
	resp, err := a.client.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return page{status: resp.StatusCode, location: resp.Header.Get("Location"), body: string(body), cookies: resp.Cookies()}
}

func (a *app) get(t *testing.T, path string) page {
	t.Helper()
	req, err := http.NewRequest(http.MethodGet, a.url+path, nil)
	require.NoError(t, err)
	return a.do(t, req)
}

func (a *app) post(t *testing.T, path string, form url.Values) page {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, a.url+path, strings.NewReader(form.Encode()))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return a.do(t, req)
}

func (a *app) upload(t *testing.T, filename string, data []byte) page {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	part, err := w.CreateFormFile("image", filename)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	req, err := http.NewRequest(http.MethodPost, a.url+"/Profile/avatar", &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return a.do(t, req)
}

func (a *app) signIn(t *testing.T) {
	t.Helper()
	res := a.post(t, "/SignIn", url.Values{"assistant_code": {"cit"}, "password": {"validpass"}})
	require.Equal(t, http.StatusSeeOther, res.status, res.body)
	require.Equal(t, "/HomePage", res.location)
}

func (a *app) onlySession(t *testing.T) session.Session {
	t.Helper()
	require.Equal(t, 1, a.store.Len())
	for _, c := range a.client.Jar.Cookies(mustURL(t, a.url)) {
		if c.Name == session.CookieName {
			claims, err := auth.Parse(c.Value, "test-secret", "boostify-test")
			require.NoError(t, err)
			sess, err := a.store.Get(context.Background(), claims.Subject)
			require.NoError(t, err)
			return sess
		}
	}
	t.Fatal("no session cookie")
	return session.Session{}
}

func mustURL(t *testing.T, raw string) *url.URL {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	return u
}

func TestSignInThenWhoAmICarriesBearer(t *testing.T) {
	a := newApp(t)
	a.signIn(t)
	a.backend.mu.Lock()
	assert.Equal(t, []string{"CIT"}, a.backend.loginCodes)
	a.backend.mu.Unlock()

	sess := a.onlySession(t)
	assert.Equal(t, "tok-cit", sess.Token)
	assert.Equal(t, "Citra", sess.Identity.Name)

	home := a.get(t, "/HomePage")
	assert.Equal(t, http.StatusOK, home.status)
	assert.Contains(t, home.body, "Welcome, Citra")
	assert.Contains(t, home.body, "Sign Out")
	assert.NotContains(t, home.body, `class="signin-link"`)

	a.backend.mu.Lock()
	defer a.backend.mu.Unlock()
	require.NotEmpty(t, a.backend.whoamiAuth)
	assert.Equal(t, "Bearer tok-cit", a.backend.whoamiAuth[0])
}

func TestSignInRequiresBothFields(t *testing.T) {
	a := newApp(t)
	res := a.post(t, "/SignIn", url.Values{"assistant_code": {"CIT"}})
	assert.Equal(t, http.StatusBadRequest, res.status)
	assert.Contains(t, res.body, "Assistant code and password are required.")
	assert.Equal(t, 0, a.backend.count(backend.PathLogin))
	assert.Equal(t, 0, a.store.Len())
}

func TestSignInShowsBackendMessage(t *testing.T) {
	a := newApp(t)
	res := a.post(t, "/SignIn", url.Values{"assistant_code": {"CIT"}, "password": {"wrong"}})
	assert.Equal(t, http.StatusUnauthorized, res.status)
	assert.Contains(t, res.body, "Invalid assistant code or password")
	assert.Contains(t, res.body, `value="CIT"`)
	assert.Equal(t, 0, a.store.Len())
}

func TestSignInPageRedirectsWhenSignedIn(t *testing.T) {
	a := newApp(t)
	a.signIn(t)
	res := a.get(t, "/SignIn")
	assert.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, "/HomePage", res.location)
}

func TestProtectedPagesRedirectAnonymous(t *testing.T) {
	a := newApp(t)
	for _, p := range []string{"/HomePage", "/LiveReport", "/Recap", "/Profile"} {
		res := a.get(t, p)
		assert.Equal(t, http.StatusSeeOther, res.status, p)
		assert.Equal(t, "/SignIn", res.location, p)
	}

	landing := a.get(t, "/")
	assert.Equal(t, http.StatusOK, landing.status)
	assert.Contains(t, landing.body, `class="signin-link"`)
	assert.Equal(t, 0, a.backend.count(backend.PathAttendances))
}

func TestLiveReportPageTwoShowsBothControls(t *testing.T) {
	a := newApp(t)
	a.signIn(t)

	res := a.get(t, "/LiveReport?page=2")
	require.Equal(t, http.StatusOK, res.status)
	assert.Equal(t, 3, strings.Count(res.body, `class="record"`))
	assert.Contains(t, res.body, `class="pager-prev" href="/LiveReport?page=1"`)
	assert.Contains(t, res.body, `class="pager-next" href="/LiveReport?page=3"`)
	assert.Contains(t, res.body, "Page 2 of 5")
	assert.Contains(t, res.body, "Thursday, August 15, 2024")
	assert.NotContains(t, res.body, `role="alert"`)
}

func TestLiveReportFirstPageHidesPrev(t *testing.T) {
	a := newApp(t)
	a.signIn(t)

	res := a.get(t, "/LiveReport")
	require.Equal(t, http.StatusOK, res.status)
	assert.NotContains(t, res.body, `class="pager-prev"`)
	assert.Contains(t, res.body, `class="pager-next"`)
}

func TestLiveReportBeyondLastPageRedirects(t *testing.T) {
	a := newApp(t)
	a.signIn(t)

	res := a.get(t, "/LiveReport?page=9&date=2024-08-15")
	assert.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, "/LiveReport?date=2024-08-15&page=5", res.location)
}

func TestRecapRendersPodiumOnFirstPage(t *testing.T) {
	a := newApp(t)
	a.signIn(t)

	res := a.get(t, "/Recap")
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, `class="place place-center medal-gold"`)
	assert.Contains(t, res.body, `class="place place-left medal-silver"`)
	assert.Contains(t, res.body, `class="place place-right medal-bronze"`)
	assert.Equal(t, 1, strings.Count(res.body, `class="entry"`))

	second := a.get(t, "/Recap?page=2")
	require.Equal(t, http.StatusOK, second.status)
	assert.NotContains(t, second.body, `class="podium"`)
	assert.Equal(t, 4, strings.Count(second.body, `class="entry"`))
}

func TestProfileWithoutHistory(t *testing.T) {
	a := newApp(t)
	a.signIn(t)

	res := a.get(t, "/Profile")
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, "No attendance history available")
	assert.NotContains(t, res.body, `role="alert"`)
	assert.Contains(t, res.body, attendance.DefaultAvatar)
}

func TestProfileHistory(t *testing.T) {
	a := newApp(t)
	a.backend.mu.Lock()
	a.backend.historyCode = http.StatusOK
	a.backend.mu.Unlock()
	a.signIn(t)

	res := a.get(t, "/Profile")
	require.Equal(t, http.StatusOK, res.status)
	assert.Contains(t, res.body, "Thursday 15 August 2024")
	assert.Contains(t, res.body, "1:07 pm")
}

func TestExpiredTokenSignsOutOnce(t *testing.T) {
	a := newApp(t)
	a.signIn(t)
	a.backend.mu.Lock()
	a.backend.expired = true
	a.backend.mu.Unlock()

	res := a.get(t, "/LiveReport?page=2")
	assert.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, "/SignIn", res.location)
	assert.Equal(t, 0, a.store.Len())

	cleared := 0
	for _, c := range res.cookies {
		if c.Name == session.CookieName {
			cleared++
			assert.True(t, c.MaxAge < 0)
		}
	}
	assert.Equal(t, 1, cleared)

	after := a.get(t, "/HomePage")
	assert.Equal(t, http.StatusSeeOther, after.status)
	assert.Equal(t, "/SignIn", after.location)
}

func TestSignOutClearsSessionAndNotifiesBackend(t *testing.T) {
	a := newApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = queue.RunLogouts(ctx, a.logouts, a.api) }()

	a.signIn(t)

	confirm := a.get(t, "/SignOut?from=/Recap")
	require.Equal(t, http.StatusOK, confirm.status)
	assert.Contains(t, confirm.body, "Are you sure you want to sign out?")
	assert.Contains(t, confirm.body, `class="cancel" href="/Recap"`)

	res := a.post(t, "/SignOut", nil)
	assert.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, "/", res.location)
	assert.Equal(t, 0, a.store.Len())

	for _, p := range []string{"/HomePage", "/Profile"} {
		after := a.get(t, p)
		assert.Equal(t, http.StatusSeeOther, after.status, p)
		assert.Equal(t, "/SignIn", after.location, p)
	}

	assert.Eventually(t, func() bool {
		a.backend.mu.Lock()
		defer a.backend.mu.Unlock()
		return len(a.backend.logouts) == 1 && a.backend.logouts[0] == "Bearer tok-cit"
	}, 2*time.Second, 10*time.Millisecond)
}

func TestSignOutWithoutBackendConsumerStillSignsOut(t *testing.T) {
	a := newApp(t)
	a.signIn(t)

	res := a.post(t, "/SignOut", nil)
	assert.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, 0, a.store.Len())
	assert.Equal(t, 0, a.backend.count(backend.PathLogout))
}

func TestThemeToggle(t *testing.T) {
	a := newApp(t)

	res := a.post(t, "/theme", url.Values{"next": {"/SignIn"}})
	assert.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, "/SignIn", res.location)
	assert.Contains(t, a.get(t, "/").body, `<body class="dark-mode">`)

	res = a.post(t, "/theme", url.Values{"next": {"//evil.example"}})
	assert.Equal(t, "/", res.location)
	assert.Contains(t, a.get(t, "/").body, `<body class="">`)
}

func TestMenuToggle(t *testing.T) {
	a := newApp(t)
	closed := a.get(t, "/")
	assert.Contains(t, closed.body, `href="/?menu=open"`)

	open := a.get(t, "/?menu=open")
	assert.Contains(t, open.body, "nav nav-open")
}

var pngBytes = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00")

func TestAvatarRejectedBeforeNetwork(t *testing.T) {
	a := newApp(t)
	a.signIn(t)

	res := a.upload(t, "notes.txt", []byte("plain text, not an image"))
	assert.Equal(t, http.StatusUnsupportedMediaType, res.status)
	assert.Contains(t, res.body, "Only JPEG, JPG, PNG and HEIC images are allowed.")
	assert.Equal(t, 0, a.backend.count(backend.PathUploadImage))
}

func TestAvatarUploadAndDelete(t *testing.T) {
	a := newApp(t)
	a.signIn(t)

	res := a.upload(t, "me.png", pngBytes)
	assert.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, "/Profile?avatar=updated", res.location)
	assert.Equal(t, "https://cdn.example/cit.png", a.onlySession(t).Identity.AvatarURL)

	res = a.post(t, "/Profile/avatar/delete", nil)
	assert.Equal(t, http.StatusSeeOther, res.status)
	assert.Equal(t, "/Profile?avatar=deleted", res.location)
	assert.Empty(t, a.onlySession(t).Identity.AvatarURL)
	assert.Equal(t, 1, a.backend.count(backend.PathDeleteImage))
}

func TestLocalPath(t *testing.T) {
	cases := map[string]string{
		"":                      "/",
		"/Recap?page=2":         "/Recap?page=2",
		"//evil.example":        "/",
		"https://evil.example/": "/",
		"/\\evil.example":       "/",
		"relative":              "/",
	}
	for in, want := range cases {
		assert.Equal(t, want, localPath(in, "/"), in)
	}
}
