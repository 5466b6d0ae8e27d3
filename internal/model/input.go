package model

import (
	"fmt"
	"net/mail"
	"strings"
	"unicode/utf8"

	"github.com/dtroode/socialmesh/internal/apperror"
)

const (
	maxFieldLength    = 150
	minPasswordLength = 3
)

// RegisterInput is the registration request body.
type RegisterInput struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginInput is the login request body.
type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Validate checks bounds and returns the normalized input: username trimmed, email trimmed and
// lower-cased. The password is never altered.
func (in RegisterInput) Validate() (RegisterInput, error) {
	out := RegisterInput{
		Username: strings.TrimSpace(in.Username),
		Email:    normalizeEmail(in.Email),
		Password: in.Password,
	}

	var problems []string
	if utf8.RuneCountInString(out.Username) > maxFieldLength {
		problems = append(problems, fmt.Sprintf("username must be at most %d characters", maxFieldLength))
	}
	problems = append(problems, emailProblems(out.Email)...)
	problems = append(problems, passwordProblems(out.Password)...)

	if len(problems) > 0 {
		return RegisterInput{}, apperror.NewValidation(strings.Join(problems, "; "))
	}
	return out, nil
}

// Validate checks bounds and returns the normalized input.
func (in LoginInput) Validate() (LoginInput, error) {
	out := LoginInput{
		Email:    normalizeEmail(in.Email),
		Password: in.Password,
	}

	var problems []string
	problems = append(problems, emailProblems(out.Email)...)
	problems = append(problems, passwordProblems(out.Password)...)

	if len(problems) > 0 {
		return LoginInput{}, apperror.NewValidation(strings.Join(problems, "; "))
	}
	return out, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func emailProblems(email string) []string {
	if email == "" {
		return []string{"email is required"}
	}
	var problems []string
	if utf8.RuneCountInString(email) > maxFieldLength {
		problems = append(problems, fmt.Sprintf("email must be at most %d characters", maxFieldLength))
	}
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email || !strings.Contains(email[strings.LastIndex(email, "@"):], ".") {
		problems = append(problems, "email must be a valid address")
	}
	return problems
}

func passwordProblems(password string) []string {
	n := utf8.RuneCountInString(password)
	switch {
	case n < minPasswordLength:
		return []string{fmt.Sprintf("password must be at least %d characters", minPasswordLength)}
	case n > maxFieldLength:
		return []string{fmt.Sprintf("password must be at most %d characters", maxFieldLength)}
	}
	return nil
}
