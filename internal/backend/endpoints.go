package backend

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"
)

const (
	PathLogin       = "/api/auth/login"
	PathLogout      = "/api/auth/logout"
	PathWhoAmI      = "/api/whoami"
	PathAttendances = "/api/attendances"
	PathRecap       = "/api/recap"
	PathPersonalRec = "/api/personalrec"
	PathUploadImage = "/api/uploadImage"
	PathDeleteImage = "/api/deleteImage"
)

// ErrMissingCredentials is returned by Login before any network call when a
// required field is empty.
var ErrMissingCredentials = errors.New("assistant code and password are required")

// Identity is the identity payload shared by login and whoami.
type Identity struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	AssistantCode string `json:"assisstant_code"`
	ImageURL      string `json:"image,omitempty"`
}

// LoginResult is the successful login response.
type LoginResult struct {
	Token   string
	Payload Identity
}

type loginResponse struct {
	Token struct {
		Token   string   `json:"token"`
		Payload Identity `json:"payload"`
	} `json:"token"`
	Message string `json:"message"`
}

// AttendanceRecord is one attendance log entry.
type AttendanceRecord struct {
	ID            int64     `json:"id"`
	AssistantCode string    `json:"assisstant_code"`
	Name          string    `json:"name"`
	Time          time.Time `json:"time"`
}

// AttendancePage is the /api/attendances response.
type AttendancePage struct {
	Assistances []AttendanceRecord `json:"assistances"`
	Total       int                `json:"total"`
	CurrentPage int                `json:"currentPage"`
	TotalPages  int                `json:"totalPages"`
}

// RecapEntry is one aggregated row of the recap view.
type RecapEntry struct {
	AssistantCode   string `json:"assisstant_code"`
	Name            string `json:"name"`
	TotalAttendance int    `json:"totalAttendance"`
}

// RecapPage is the /api/recap response.
type RecapPage struct {
	Payload    []RecapEntry `json:"payload"`
	Pagination struct {
		TotalPages int `json:"totalPages"`
	} `json:"pagination"`
}

// AttendanceTime is one entry of the personal attendance history.
type AttendanceTime struct {
	Time    string    `json:"time"`
	RawTime time.Time `json:"rawTime"`
}

type personalRecResponse struct {
	AttendancesTime []AttendanceTime `json:"attendancesTime"`
	Payload         *struct {
		AttendancesTime []AttendanceTime `json:"attendancesTime"`
	} `json:"payload"`
}

// Login exchanges credentials for a backend token.
func (c *Client) Login(ctx context.Context, assistantCode, password string) (LoginResult, error) {
	assistantCode = strings.ToUpper(strings.TrimSpace(assistantCode))
	if assistantCode == "" || password == "" {
		return LoginResult{}, ErrMissingCredentials
	}

	var out loginResponse
	err := c.Do(ctx, "", Request{
		Method: http.MethodPost,
		Path:   PathLogin,
		Body:   map[string]string{"assistant_code": assistantCode, "password": password},
		Public: true,
	}, &out)
	if err != nil {
		return LoginResult{}, err
	}
	if out.Token.Token == "" {
		msg := out.Message
		if msg == "" {
			msg = "Invalid credentials"
		}
		return LoginResult{}, &StatusError{Status: http.StatusUnauthorized, Message: msg}
	}
	return LoginResult{Token: out.Token.Token, Payload: out.Token.Payload}, nil
}

// Logout invalidates token server-side.
func (c *Client) Logout(ctx context.Context, token string) error {
	return c.Do(ctx, token, Request{Method: http.MethodPost, Path: PathLogout}, nil)
}

// WhoAmI returns the identity bound to token.
func (c *Client) WhoAmI(ctx context.Context, token string) (Identity, error) {
	var out Identity
	err := c.Do(ctx, token, Request{Method: http.MethodGet, Path: PathWhoAmI}, &out)
	return out, err
}

// Attendances returns one page of the attendance log.
func (c *Client) Attendances(ctx context.Context, token string, page int) (AttendancePage, error) {
	var out AttendancePage
	err := c.Do(ctx, token, Request{Method: http.MethodGet, Path: PathAttendances, Page: page}, &out)
	return out, err
}

// Recap returns one page of the attendance recap.
func (c *Client) Recap(ctx context.Context, token string, page int) (RecapPage, error) {
	var out RecapPage
	err := c.Do(ctx, token, Request{Method: http.MethodGet, Path: PathRecap, Page: page}, &out)
	return out, err
}

// PersonalRecord returns the caller's attendance history. A 404 means no
// history and yields an empty slice with no error.
func (c *Client) PersonalRecord(ctx context.Context, token string) ([]AttendanceTime, error) {
	var out personalRecResponse
	err := c.Do(ctx, token, Request{Method: http.MethodGet, Path: PathPersonalRec}, &out)
	if err != nil {
		if IsNotFound(err) {
			return []AttendanceTime{}, nil
		}
		return nil, err
	}
	history := out.AttendancesTime
	if len(history) == 0 && out.Payload != nil {
		history = out.Payload.AttendancesTime
	}
	if history == nil {
		history = []AttendanceTime{}
	}
	return history, nil
}
