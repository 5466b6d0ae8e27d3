package apperror

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestError_HTTPStatus(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  *Error
		want int
	}{
		{name: "validation", err: NewValidation("bad"), want: http.StatusBadRequest},
		{name: "conflict", err: NewConflict("dup"), want: http.StatusConflict},
		{name: "not found", err: NewNotFound("missing"), want: http.StatusNotFound},
		{name: "forbidden", err: NewForbidden("no"), want: http.StatusForbidden},
		{name: "invalid token", err: NewInvalidToken(nil), want: http.StatusUnauthorized},
		{name: "missing token", err: NewMissingToken(), want: http.StatusUnauthorized},
		{name: "rate limited", err: NewRateLimited(time.Second), want: http.StatusTooManyRequests},
		{name: "upstream", err: NewUpstream(errors.New("dial tcp")), want: http.StatusBadGateway},
		{name: "internal", err: NewInternal("boom", nil), want: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.err.HTTPStatus())
		})
	}
}

func TestError_IsMatchesKind(t *testing.T) {
	wrapped := fmt.Errorf("login: %w", NewForbidden("password does not match"))

	assert.True(t, errors.Is(wrapped, &Error{Kind: KindForbidden}))
	assert.False(t, errors.Is(wrapped, &Error{Kind: KindNotFound}))
	assert.Equal(t, KindForbidden, KindOf(wrapped))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))
}

func TestError_RetryAfterSeconds(t *testing.T) {
	assert.Equal(t, 1, NewRateLimited(0).RetryAfterSeconds())
	assert.Equal(t, 2, NewRateLimited(1500*time.Millisecond).RetryAfterSeconds())
	assert.Equal(t, 300, NewRateLimited(5*time.Minute).RetryAfterSeconds())
}

func TestError_UnwrapAndMessage(t *testing.T) {
	cause := errors.New("signature is invalid")
	err := NewInvalidToken(cause)

	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "invalid access token: signature is invalid", err.Error())
	assert.Equal(t, "too many requests", NewRateLimited(time.Second).Error())
}
