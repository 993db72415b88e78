package pages

import (
	"context"
	"errors"
	"fmt"
	"net/url"

	"github.com/patric-chuzhbe/gobarber/internal/models"
	"github.com/patric-chuzhbe/gobarber/internal/schema"
)

// ErrMissingResetToken means the reset link carries no token query parameter.
var ErrMissingResetToken = errors.New("reset link has no token")

type ResetPasswordForm struct {
	Password             string `json:"password" validate:"required"`
	PasswordConfirmation string `json:"password_confirmation" validate:"eqfield=Password"`
}

var resetPasswordMessages = schema.Messages{
	"password.required":             "Senha obrigatória",
	"password_confirmation.eqfield": "Confirmação incorreta",
}

const (
	resetPasswordErrorTitle       = "Erro ao resetar senha"
	resetPasswordErrorDescription = "Ocorreu um erro ao resetar sua senha, tente novamente."
)

type ResetPassword struct {
	form
	api transport
}

func NewResetPassword(api transport, toasts notifier, optionsProto ...InitOption) *ResetPassword {
	return &ResetPassword{
		form: newForm(toasts, resetPasswordMessages, newOptions(optionsProto)),
		api:  api,
	}
}

// ResetToken extracts the token query parameter from a reset link. The link
// may be absolute or just the query part, e.g. "?token=abc".
func ResetToken(link string) (string, error) {
	parsed, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("in internal/pages/resetpassword.go/ResetToken(): error while `url.Parse()` calling: %w", err)
	}

	token := parsed.Query().Get("token")
	if token == "" {
		return "", ErrMissingResetToken
	}

	return token, nil
}

// Submit sets the new password for the account the reset link was issued to.
func (p *ResetPassword) Submit(ctx context.Context, link string, data ResetPasswordForm) Outcome {
	if !p.allow() {
		return throttled()
	}

	fieldErrors, err := p.validate(data)
	if err != nil {
		return p.fail("p.validate()", err, resetPasswordErrorTitle, resetPasswordErrorDescription)
	}
	if len(fieldErrors) > 0 {
		return invalid(fieldErrors)
	}

	token, err := ResetToken(link)
	if err != nil {
		return p.fail("ResetToken()", err, resetPasswordErrorTitle, resetPasswordErrorDescription)
	}

	err = p.api.PostAnonymous(ctx, models.EndpointPasswordReset, models.ResetPasswordRequest{
		Password:             data.Password,
		PasswordConfirmation: data.PasswordConfirmation,
		Token:                token,
	}, nil)
	if err != nil {
		return p.fail("p.api.PostAnonymous()", err, resetPasswordErrorTitle, resetPasswordErrorDescription)
	}

	outcome := cleared()
	outcome.Redirect = RouteSignIn

	return outcome
}
