package authenticator

import (
	"context"

	"github.com/patric-chuzhbe/gobarber/internal/models"
	"github.com/patric-chuzhbe/gobarber/internal/user"
)

// Authenticator is what the pages and the terminal need from the session layer.
type Authenticator interface {
	SignIn(ctx context.Context, credentials models.Credentials) (*models.Session, error)
	SignOut(ctx context.Context) error
	UpdateUser(ctx context.Context, usr user.User) error
	User() (user.User, bool)
	IsAuthenticated() bool
}
