package model

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dtroode/socialmesh/internal/apperror"
)

func TestRegisterInput_Validate_Normalizes(t *testing.T) {
	in := RegisterInput{Username: "  a  ", Email: " A@X.com ", Password: "secret"}

	out, err := in.Validate()
	require.NoError(t, err)
	assert.Equal(t, "a", out.Username)
	assert.Equal(t, "a@x.com", out.Email)
	assert.Equal(t, "secret", out.Password)
}

func TestRegisterInput_Validate_Errors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		in      RegisterInput
		wantMsg string
	}{
		{
			name:    "missing email",
			in:      RegisterInput{Username: "a", Password: "secret"},
			wantMsg: "email is required",
		},
		{
			name:    "malformed email",
			in:      RegisterInput{Username: "a", Email: "not-an-email", Password: "secret"},
			wantMsg: "email must be a valid address",
		},
		{
			name:    "email with display name",
			in:      RegisterInput{Username: "a", Email: "Alice <a@x.com>", Password: "secret"},
			wantMsg: "email must be a valid address",
		},
		{
			name:    "short password",
			in:      RegisterInput{Username: "a", Email: "a@x.com", Password: "ab"},
			wantMsg: "password must be at least 3 characters",
		},
		{
			name:    "long password",
			in:      RegisterInput{Username: "a", Email: "a@x.com", Password: strings.Repeat("p", 151)},
			wantMsg: "password must be at most 150 characters",
		},
		{
			name:    "long username",
			in:      RegisterInput{Username: strings.Repeat("u", 151), Email: "a@x.com", Password: "secret"},
			wantMsg: "username must be at most 150 characters",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := tt.in.Validate()
			require.Error(t, err)
			assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
			assert.Contains(t, err.Error(), tt.wantMsg)
		})
	}
}

func TestRegisterInput_Validate_CollectsAllProblems(t *testing.T) {
	_, err := RegisterInput{Email: "bad", Password: "x"}.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "email must be a valid address")
	assert.Contains(t, err.Error(), "password must be at least 3 characters")
}

func TestLoginInput_Validate(t *testing.T) {
	out, err := LoginInput{Email: "A@x.com", Password: "secret"}.Validate()
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", out.Email)

	_, err = LoginInput{Email: "a@x.com", Password: ""}.Validate()
	require.Error(t, err)
	assert.Equal(t, apperror.KindValidation, apperror.KindOf(err))
}
