package models

import (
	"github.com/patric-chuzhbe/gobarber/internal/user"
)

// Persistent storage keys. A session is always stored as exactly this pair.
const (
	StorageKeyToken = "token"
	StorageKeyUser  = "user"
)

const (
	StorageTypeUnknown = iota
	StorageTypeFile
	StorageTypeMemory
)

// API endpoints, relative to the configured base URL.
const (
	EndpointSessions       = "sessions"
	EndpointUsers          = "users"
	EndpointUserAvatar     = "users/avatar"
	EndpointProfile        = "profile"
	EndpointPasswordForgot = "password/forgot"
	EndpointPasswordReset  = "password/reset"
)

// Session is the authenticated pair: the bearer token and the user it belongs to.
type Session struct {
	Token string    `json:"token"`
	User  user.User `json:"user"`
}

type Credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

type ResetPasswordRequest struct {
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
	Token                string `json:"token"`
}

type UpdateProfileRequest struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	OldPassword          string `json:"old_password,omitempty"`
	Password             string `json:"password,omitempty"`
	PasswordConfirmation string `json:"password_confirmation,omitempty"`
}

// APIError is the error body returned by the GoBarber API.
type APIError struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}
