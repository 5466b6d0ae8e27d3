package cookie

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func roundTrip(t *testing.T, c *Codec, token string) *http.Cookie {
	t.Helper()

	rec := httptest.NewRecorder()
	require.NoError(t, c.Set(rec, token))

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	return cookies[0]
}

func TestCodec_SetAndRead(t *testing.T) {
	c := NewCodec(testSecret, true, 7*24*time.Hour)
	set := roundTrip(t, c, "refresh-value")

	assert.Equal(t, RefreshTokenName, set.Name)
	assert.True(t, set.HttpOnly)
	assert.True(t, set.Secure)
	assert.Equal(t, http.SameSiteStrictMode, set.SameSite)
	assert.Equal(t, 7*24*60*60, set.MaxAge)
	assert.NotContains(t, set.Value, "refresh-value")

	req := httptest.NewRequest(http.MethodPost, "/api/auth/refresh", nil)
	req.AddCookie(set)

	got, ok := c.Read(req)
	require.True(t, ok)
	assert.Equal(t, "refresh-value", got)
}

func TestCodec_Read_Rejected(t *testing.T) {
	c := NewCodec(testSecret, false, time.Hour)
	set := roundTrip(t, c, "refresh-value")

	tests := []struct {
		name   string
		cookie *http.Cookie
		codec  *Codec
	}{
		{name: "missing", cookie: nil, codec: c},
		{name: "unsigned value", cookie: &http.Cookie{Name: RefreshTokenName, Value: "refresh-value"}, codec: c},
		{name: "tampered", cookie: &http.Cookie{Name: RefreshTokenName, Value: set.Value + "x"}, codec: c},
		{name: "other secret", cookie: set, codec: NewCodec("fedcba9876543210fedcba9876543210", false, time.Hour)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodPost, "/", nil)
			if tt.cookie != nil {
				req.AddCookie(tt.cookie)
			}

			_, ok := tt.codec.Read(req)
			assert.False(t, ok)
		})
	}
}

func TestCodec_Clear(t *testing.T) {
	c := NewCodec(testSecret, false, time.Hour)

	rec := httptest.NewRecorder()
	c.Clear(rec)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, RefreshTokenName, cookies[0].Name)
	assert.Equal(t, "", cookies[0].Value)
	assert.Equal(t, -1, cookies[0].MaxAge)
}
