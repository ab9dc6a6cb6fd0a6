package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecodeCanonical(t *testing.T) {
	s := New("tok-123", Identity{ID: 7, Name: "Citra", AssistantCode: "CIT"})
	raw, err := Encode(s)
	require.NoError(t, err)

	got, err := Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)
	assert.Equal(t, "tok-123", got.Token)
	assert.Equal(t, "CIT", got.Identity.AssistantCode)
	assert.Equal(t, CurrentVersion, got.Version)
}

func TestDecodeLegacyShapes(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		token    string
		code     string
		identity bool
	}{
		{
			name:     "authData object",
			raw:      `{"token":{"token":"abc.def.ghi","payload":{"id":3,"name":"Citra","assisstant_code":"CIT"}}}`,
			token:    "abc.def.ghi",
			code:     "CIT",
			identity: true,
		},
		{
			name:  "authToken raw string",
			raw:   `abc.def.ghi`,
			token: "abc.def.ghi",
		},
		{
			name:  "authToken JSON quoted",
			raw:   `"abc.def.ghi"`,
			token: "abc.def.ghi",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := Decode([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.token, s.Token)
			assert.Equal(t, CurrentVersion, s.Version)
			assert.NotEmpty(t, s.ID)
			if tt.identity {
				assert.Equal(t, tt.code, s.Identity.AssistantCode)
				assert.Equal(t, int64(3), s.Identity.ID)
			}
		})
	}
}

func TestDecodeRejectsUnknownShapes(t *testing.T) {
	for _, raw := range []string{
		``,
		`{"foo":"bar"}`,
		`{"v":2,"id":"x","token":"y"}`,
		`{"v":1,"id":"","token":"y"}`,
		`{"token":{"token":""}}`,
		`[1,2,3]`,
		`not a token`,
	} {
		_, err := Decode([]byte(raw))
		assert.ErrorIs(t, err, ErrUnknownShape, "raw=%q", raw)
	}
}

func TestMemoryStoreLifecycle(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(0)

	_, err := store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)

	s := New("tok", Identity{Name: "Citra", AssistantCode: "CIT"})
	require.NoError(t, store.Set(ctx, s))

	got, err := store.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Equal(t, "tok", got.Token)

	require.NoError(t, store.Clear(ctx, s.ID))
	require.NoError(t, store.Clear(ctx, s.ID))
	_, err = store.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStoreExpiry(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore(time.Minute)
	now := time.Date(2024, 8, 15, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	s := New("tok", Identity{})
	require.NoError(t, store.Set(ctx, s))

	now = now.Add(2 * time.Minute)
	_, err := store.Get(ctx, s.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 0, store.Len())
}

func TestMemoryStoreRequiresID(t *testing.T) {
	err := NewMemoryStore(0).Set(context.Background(), Session{Token: "tok"})
	assert.Error(t, err)
}
