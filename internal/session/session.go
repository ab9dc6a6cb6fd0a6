package session

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// CurrentVersion is the schema version written by Encode.
const CurrentVersion = 1

// CookieName is the single canonical browser key for a session.
const CookieName = "session"

// LegacyCookies lists keys earlier front-end revisions persisted. They are
// migrated when found and always removed on sign-out.
var LegacyCookies = []string{"authToken", "authData", "userName", "nextauth.message"}

var (
	// ErrNotFound is returned when no session exists for an id.
	ErrNotFound = errors.New("session not found")
	// ErrUnknownShape is returned when a persisted record matches no known schema.
	ErrUnknownShape = errors.New("unknown session record shape")
)

// Identity is the signed-in assistant as reported by the backend.
type Identity struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	AssistantCode string `json:"assistant_code"`
	AvatarURL     string `json:"avatar_url,omitempty"`
}

// Session is the persisted authentication state of one browser.
type Session struct {
	Version   int       `json:"v"`
	ID        string    `json:"id"`
	Identity  Identity  `json:"identity"`
	Token     string    `json:"token"`
	CreatedAt time.Time `json:"created_at"`
}

// New creates a session with a fresh id for a backend token.
func New(token string, identity Identity) Session {
	return Session{
		Version:   CurrentVersion,
		ID:        uuid.NewString(),
		Identity:  identity,
		Token:     token,
		CreatedAt: time.Now().UTC(),
	}
}

// Authenticated reports whether requests made for this session carry a bearer token.
func (s Session) Authenticated() bool {
	return s.Token != ""
}

// Encode serializes a session using the canonical schema.
func Encode(s Session) ([]byte, error) {
	s.Version = CurrentVersion
	return json.Marshal(s)
}

// legacyAuthData is the shape stored under "authData" by older revisions.
type legacyAuthData struct {
	Token *struct {
		Token   string `json:"token"`
		Payload struct {
			ID            int64  `json:"id"`
			Name          string `json:"name"`
			AssistantCode string `json:"assisstant_code"`
		} `json:"payload"`
	} `json:"token"`
}

// Decode parses a persisted record. Canonical records are returned as-is;
// legacy "authData" objects and raw "authToken" strings are migrated into a
// canonical session with a new id.
func Decode(raw []byte) (Session, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return Session{}, ErrUnknownShape
	}

	switch raw[0] {
	case '{':
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(raw, &probe); err != nil {
			return Session{}, fmt.Errorf("%w: %v", ErrUnknownShape, err)
		}
		if _, ok := probe["v"]; ok {
			return decodeVersioned(raw)
		}
		return decodeAuthData(raw)
	case '"':
		var token string
		if err := json.Unmarshal(raw, &token); err != nil {
			return Session{}, fmt.Errorf("%w: %v", ErrUnknownShape, err)
		}
		return fromRawToken(token)
	default:
		return fromRawToken(string(raw))
	}
}

func decodeVersioned(raw []byte) (Session, error) {
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrUnknownShape, err)
	}
	if s.Version != CurrentVersion {
		return Session{}, fmt.Errorf("%w: version %d", ErrUnknownShape, s.Version)
	}
	if s.ID == "" || s.Token == "" {
		return Session{}, fmt.Errorf("%w: missing id or token", ErrUnknownShape)
	}
	return s, nil
}

func decodeAuthData(raw []byte) (Session, error) {
	var legacy legacyAuthData
	if err := json.Unmarshal(raw, &legacy); err != nil {
		return Session{}, fmt.Errorf("%w: %v", ErrUnknownShape, err)
	}
	if legacy.Token == nil || legacy.Token.Token == "" {
		return Session{}, ErrUnknownShape
	}
	p := legacy.Token.Payload
	return New(legacy.Token.Token, Identity{
		ID:            p.ID,
		Name:          p.Name,
		AssistantCode: p.AssistantCode,
	}), nil
}

// fromRawToken accepts bare JWT-looking tokens only; anything with spaces or
// braces is not a token.
func fromRawToken(token string) (Session, error) {
	token = strings.TrimSpace(token)
	if token == "" || strings.ContainsAny(token, " {}[]\"") {
		return Session{}, ErrUnknownShape
	}
	return New(token, Identity{}), nil
}
