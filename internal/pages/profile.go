package pages

import (
	"context"
	"io"

	"golang.org/x/time/rate"

	"github.com/patric-chuzhbe/gobarber/internal/auth"
	"github.com/patric-chuzhbe/gobarber/internal/authenticator"
	"github.com/patric-chuzhbe/gobarber/internal/models"
	"github.com/patric-chuzhbe/gobarber/internal/schema"
	"github.com/patric-chuzhbe/gobarber/internal/toast"
	"github.com/patric-chuzhbe/gobarber/internal/user"
)

// AvatarField is the multipart field the API expects the avatar image in.
const AvatarField = "avatar"

// ProfileForm changes the password only when Password is filled, and then
// OldPassword has to be given as well.
type ProfileForm struct {
	Name                 string `json:"name" validate:"required"`
	Email                string `json:"email" validate:"required,email"`
	OldPassword          string `json:"old_password" validate:"required_with=Password"`
	Password             string `json:"password" validate:"omitempty,min=6"`
	PasswordConfirmation string `json:"password_confirmation" validate:"eqfield=Password"`
}

var profileMessages = schema.Messages{
	"name.required":                 "Nome obrigatório",
	"email.required":                "Email obrigatório",
	"email.email":                   "Digite um e-mail válido",
	"old_password.required_with":    "Informe a senha atual",
	"password.min":                  "No mínimo {param} dígitos",
	"password_confirmation.eqfield": "Confirmação incorreta",
}

const (
	profileSuccessTitle     = "Perfil atualizado!"
	profileErrorTitle       = "Erro na atualização"
	profileErrorDescription = "Ocorreu um erro ao atualizar perfil, tente novamente."
	avatarSuccessTitle      = "Avatar atualizado!"
	avatarErrorTitle        = "Erro ao atualizar avatar"
	avatarErrorDescription  = "Não foi possível enviar a imagem, tente novamente."
)

type Profile struct {
	form
	api           transport
	auth          authenticator.Authenticator
	avatarLimiter *rate.Limiter
}

func NewProfile(
	api transport,
	session authenticator.Authenticator,
	toasts notifier,
	optionsProto ...InitOption,
) *Profile {
	opts := newOptions(optionsProto)

	return &Profile{
		form:          newForm(toasts, profileMessages, opts),
		api:           api,
		auth:          session,
		avatarLimiter: newLimiter(opts.submitInterval),
	}
}

// InitialData fills the form from the signed in user.
func (p *Profile) InitialData() ProfileForm {
	usr, _ := p.auth.User()

	return ProfileForm{
		Name:  usr.Name,
		Email: usr.Email,
	}
}

// AvatarURL returns the avatar of the signed in user, empty when there is none.
func (p *Profile) AvatarURL() string {
	usr, _ := p.auth.User()
	return usr.AvatarURL
}

// Submit saves the profile and keeps the session user in sync with the answer.
func (p *Profile) Submit(ctx context.Context, data ProfileForm) Outcome {
	if !p.allow() {
		return throttled()
	}

	data.Name = normalizeText(data.Name)
	data.Email = normalizeEmail(data.Email)

	fieldErrors, err := p.validate(data)
	if err != nil {
		return p.fail("p.validate()", err, profileErrorTitle, profileErrorDescription)
	}
	if len(fieldErrors) > 0 {
		return invalid(fieldErrors)
	}

	if !p.auth.IsAuthenticated() {
		return p.fail("p.auth.IsAuthenticated()", auth.ErrInvalidState, profileErrorTitle, profileErrorDescription)
	}

	request := models.UpdateProfileRequest{
		Name:  data.Name,
		Email: data.Email,
	}
	if data.OldPassword != "" {
		request.OldPassword = data.OldPassword
		request.Password = data.Password
		request.PasswordConfirmation = data.PasswordConfirmation
	}

	var usr user.User
	if err := p.api.Put(ctx, models.EndpointProfile, request, &usr); err != nil {
		return p.fail("p.api.Put()", err, profileErrorTitle, profileErrorDescription)
	}
	if err := p.auth.UpdateUser(ctx, usr); err != nil {
		return p.fail("p.auth.UpdateUser()", err, profileErrorTitle, profileErrorDescription)
	}

	p.toasts.Add(toast.KindSuccess, profileSuccessTitle)

	outcome := cleared()
	outcome.Redirect = RouteDashboard

	return outcome
}

// ChangeAvatar uploads a new avatar image and stores the updated user.
func (p *Profile) ChangeAvatar(ctx context.Context, fileName string, content io.Reader) Outcome {
	if !allowed(p.avatarLimiter) {
		return throttled()
	}

	if !p.auth.IsAuthenticated() {
		return p.fail("p.auth.IsAuthenticated()", auth.ErrInvalidState, avatarErrorTitle, avatarErrorDescription)
	}

	var usr user.User
	if err := p.api.PatchMultipart(ctx, models.EndpointUserAvatar, AvatarField, fileName, content, &usr); err != nil {
		return p.fail("p.api.PatchMultipart()", err, avatarErrorTitle, avatarErrorDescription)
	}
	if err := p.auth.UpdateUser(ctx, usr); err != nil {
		return p.fail("p.auth.UpdateUser()", err, avatarErrorTitle, avatarErrorDescription)
	}

	p.toasts.Add(toast.KindSuccess, avatarSuccessTitle)

	return cleared()
}
