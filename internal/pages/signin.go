package pages

import (
	"context"

	"github.com/patric-chuzhbe/gobarber/internal/authenticator"
	"github.com/patric-chuzhbe/gobarber/internal/models"
	"github.com/patric-chuzhbe/gobarber/internal/schema"
)

type SignInForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

var signInMessages = schema.Messages{
	"email.required":    "Email obrigatório",
	"email.email":       "Digite um e-mail válido",
	"password.required": "Senha obrigatória",
}

type SignIn struct {
	form
	auth authenticator.Authenticator
}

func NewSignIn(auth authenticator.Authenticator, toasts notifier, optionsProto ...InitOption) *SignIn {
	return &SignIn{
		form: newForm(toasts, signInMessages, newOptions(optionsProto)),
		auth: auth,
	}
}

// Submit signs the user in and sends them to the dashboard.
func (p *SignIn) Submit(ctx context.Context, data SignInForm) Outcome {
	if !p.allow() {
		return throttled()
	}

	data.Email = normalizeEmail(data.Email)

	fieldErrors, err := p.validate(data)
	if err != nil {
		return p.fail("p.validate()", err, signInErrorTitle, signInErrorDescription)
	}
	if len(fieldErrors) > 0 {
		return invalid(fieldErrors)
	}

	_, err = p.auth.SignIn(ctx, models.Credentials{
		Email:    data.Email,
		Password: data.Password,
	})
	if err != nil {
		return p.fail("p.auth.SignIn()", err, signInErrorTitle, signInErrorDescription)
	}

	outcome := cleared()
	outcome.Redirect = RouteDashboard

	return outcome
}

const (
	signInErrorTitle       = "Erro na Autenticação"
	signInErrorDescription = "Ocorreu um erro ao fazer login, confira as credenciais."
)
