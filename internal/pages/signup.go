package pages

import (
	"context"

	"github.com/patric-chuzhbe/gobarber/internal/models"
	"github.com/patric-chuzhbe/gobarber/internal/schema"
	"github.com/patric-chuzhbe/gobarber/internal/toast"
)

type SignUpForm struct {
	Name     string `json:"name" validate:"required"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"min=6"`
}

var signUpMessages = schema.Messages{
	"name.required":  "Nome obrigatório",
	"email.required": "Email obrigatório",
	"email.email":    "Digite um e-mail válido",
	"password.min":   "No mínimo {param} dígitos",
}

const (
	signUpSuccessTitle       = "Cadastro realizado!"
	signUpSuccessDescription = "Você já pode fazer seu login no GoBarber"
	signUpErrorTitle         = "Erro no cadastro"
	signUpErrorDescription   = "Ocorreu um erro ao fazer cadastro, tente novamente."
)

type SignUp struct {
	form
	api transport
}

func NewSignUp(api transport, toasts notifier, optionsProto ...InitOption) *SignUp {
	return &SignUp{
		form: newForm(toasts, signUpMessages, newOptions(optionsProto)),
		api:  api,
	}
}

// Submit creates the account and sends the user back to sign in.
func (p *SignUp) Submit(ctx context.Context, data SignUpForm) Outcome {
	if !p.allow() {
		return throttled()
	}

	data.Name = normalizeText(data.Name)
	data.Email = normalizeEmail(data.Email)

	fieldErrors, err := p.validate(data)
	if err != nil {
		return p.fail("p.validate()", err, signUpErrorTitle, signUpErrorDescription)
	}
	if len(fieldErrors) > 0 {
		return invalid(fieldErrors)
	}

	err = p.api.PostAnonymous(ctx, models.EndpointUsers, models.SignUpRequest{
		Name:     data.Name,
		Email:    data.Email,
		Password: data.Password,
	}, nil)
	if err != nil {
		return p.fail("p.api.PostAnonymous()", err, signUpErrorTitle, signUpErrorDescription)
	}

	p.toasts.Add(toast.KindSuccess, signUpSuccessTitle, signUpSuccessDescription)

	outcome := cleared()
	outcome.Redirect = RouteSignIn

	return outcome
}
