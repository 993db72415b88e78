package pages

import (
	"context"
	"sync/atomic"

	"github.com/patric-chuzhbe/gobarber/internal/models"
	"github.com/patric-chuzhbe/gobarber/internal/schema"
	"github.com/patric-chuzhbe/gobarber/internal/toast"
)

type ForgotPasswordForm struct {
	Email string `json:"email" validate:"required,email"`
}

var forgotPasswordMessages = schema.Messages{
	"email.required": "Email obrigatório",
	"email.email":    "Digite um e-mail válido",
}

const (
	forgotPasswordSuccessTitle       = "E-mail de recuperação enviado"
	forgotPasswordSuccessDescription = "Enviamos um e-mail para confirmar a recuperação de senha"
	forgotPasswordErrorTitle         = "Erro na recuperação de senha"
	forgotPasswordErrorDescription   = "Ocorreu um erro ao tentar realizar a recuperação de senha, tente novamente."
)

type ForgotPassword struct {
	form
	api      transport
	inFlight atomic.Int32
}

func NewForgotPassword(api transport, toasts notifier, optionsProto ...InitOption) *ForgotPassword {
	return &ForgotPassword{
		form: newForm(toasts, forgotPasswordMessages, newOptions(optionsProto)),
		api:  api,
	}
}

// Loading reports whether a submission is in progress.
func (p *ForgotPassword) Loading() bool {
	return p.inFlight.Load() > 0
}

// Submit asks the API to mail a password recovery link. The user stays on the page.
func (p *ForgotPassword) Submit(ctx context.Context, data ForgotPasswordForm) Outcome {
	if !p.allow() {
		return throttled()
	}

	p.inFlight.Add(1)
	defer p.inFlight.Add(-1)

	data.Email = normalizeEmail(data.Email)

	fieldErrors, err := p.validate(data)
	if err != nil {
		return p.fail("p.validate()", err, forgotPasswordErrorTitle, forgotPasswordErrorDescription)
	}
	if len(fieldErrors) > 0 {
		return invalid(fieldErrors)
	}

	err = p.api.PostAnonymous(ctx, models.EndpointPasswordForgot, models.ForgotPasswordRequest{
		Email: data.Email,
	}, nil)
	if err != nil {
		return p.fail("p.api.PostAnonymous()", err, forgotPasswordErrorTitle, forgotPasswordErrorDescription)
	}

	p.toasts.Add(toast.KindSuccess, forgotPasswordSuccessTitle, forgotPasswordSuccessDescription)

	return cleared()
}
