// Package user defines the user model shared by the session layer and the pages,
// in the shape the GoBarber API returns it.
package user

// User represents the authenticated GoBarber user.
type User struct {
	// ID is the unique identifier of the user, meaning a UUID issued by the API.
	ID string `json:"id"`

	Name  string `json:"name"`
	Email string `json:"email"`

	// AvatarURL is the absolute URL of the avatar image, empty when the user has none.
	AvatarURL string `json:"avatar_url"`
}

// IsZero reports whether the user carries no identity at all.
func (u User) IsZero() bool {
	return u == User{}
}
