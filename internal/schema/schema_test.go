package schema

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/gobarber/internal/formerrors"
)

type signInForm struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

var signInMessages = Messages{
	"email.required":    "Email obrigatório",
	"email.email":       "Digite um e-mail válido",
	"password.required": "Senha obrigatória",
}

type address struct {
	City string `json:"city" validate:"notblank"`
}

type item struct {
	Name string `json:"name" validate:"min=3"`
}

type nestedForm struct {
	Name                 string  `json:"name" validate:"notblank"`
	Address              address `json:"address"`
	Items                []item  `json:"items" validate:"dive"`
	Password             string  `json:"password" validate:"omitempty,min=6"`
	PasswordConfirmation string  `json:"password_confirmation" validate:"eqfield=Password"`
	Internal             string  `json:"-" validate:"required"`
}

func TestValidateCollectsAllErrors(t *testing.T) {
	s := New(signInMessages)

	testCases := []struct {
		name string
		form signInForm
		want formerrors.Failure
	}{
		{
			name: "valid form",
			form: signInForm{Email: "john@example.com", Password: "123456"},
			want: nil,
		},
		{
			name: "empty email",
			form: signInForm{Email: "", Password: "x"},
			want: formerrors.Failure{
				{Path: "email", Message: "Email obrigatório"},
			},
		},
		{
			name: "everything wrong",
			form: signInForm{Email: "not-an-email"},
			want: formerrors.Failure{
				{Path: "email", Message: "Digite um e-mail válido"},
				{Path: "password", Message: "Senha obrigatória"},
			},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := s.Validate(tc.form)
			if tc.want == nil {
				require.NoError(t, err)
				return
			}

			var failure formerrors.Failure
			require.True(t, errors.As(err, &failure))
			assert.Equal(t, tc.want, failure)
		})
	}
}

func TestValidateNestedPathsAndDefaults(t *testing.T) {
	s := New(Messages{
		"name.notblank": "Nome obrigatório",
		"eqfield":       "Confirmação incorreta",
	})

	err := s.Validate(&nestedForm{
		Name:                 "   ",
		Items:                []item{{Name: "abc"}, {Name: "x"}},
		Password:             "123",
		PasswordConfirmation: "321",
		Internal:             "set",
	})

	var failure formerrors.Failure
	require.True(t, errors.As(err, &failure))

	assert.Equal(t, formerrors.FieldErrorMap{
		"name":                  "Nome obrigatório",
		"address.city":          "Campo obrigatório",
		"items[1].name":         "No mínimo 3 caracteres",
		"password":              "No mínimo 6 caracteres",
		"password_confirmation": "Confirmação incorreta",
	}, formerrors.Map(failure))
}

func TestValidateNonStruct(t *testing.T) {
	s := New(nil)

	err := s.Validate("not a struct")
	require.Error(t, err)

	var failure formerrors.Failure
	assert.False(t, errors.As(err, &failure))
}

func TestFieldPath(t *testing.T) {
	assert.Equal(t, "email", fieldPath("signInForm.email"))
	assert.Equal(t, "address.city", fieldPath("nestedForm.address.city"))
	assert.Equal(t, "plain", fieldPath("plain"))
}

func TestMessageFallbacks(t *testing.T) {
	s := New(Messages{"min": "Pelo menos {param}"})

	assert.Equal(t, "Pelo menos 6", s.message("password", "min", "6"))
	assert.Equal(t, "Digite um e-mail válido", s.message("email", "email", ""))
	assert.Equal(t, genericMessage, s.message("age", "gte", "18"))
}
