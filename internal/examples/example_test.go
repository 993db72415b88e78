package examples

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"

	"github.com/go-chi/chi/v5"

	"github.com/patric-chuzhbe/gobarber/internal/api"
	"github.com/patric-chuzhbe/gobarber/internal/auth"
	"github.com/patric-chuzhbe/gobarber/internal/db/memorystorage"
	"github.com/patric-chuzhbe/gobarber/internal/formerrors"
	"github.com/patric-chuzhbe/gobarber/internal/models"
	"github.com/patric-chuzhbe/gobarber/internal/pages"
	"github.com/patric-chuzhbe/gobarber/internal/toast"
	"github.com/patric-chuzhbe/gobarber/internal/user"
)

type initOptions struct {
	rejectEverything bool
}

type initOption func(*initOptions)

func withRejectingAPI(value bool) initOption {
	return func(options *initOptions) {
		options.rejectEverything = value
	}
}

type client struct {
	server  *httptest.Server
	api     *api.Client
	storage *memorystorage.MemoryStorage
	session *auth.SessionManager
	toasts  *toast.Store
	calls   atomic.Int32
}

func (c *client) Close() {
	c.toasts.Close()
	c.server.Close()
}

func setupClient(optionsProto ...initOption) *client {
	options := &initOptions{}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	c := &client{}

	router := chi.NewRouter()
	router.Post("/sessions", func(w http.ResponseWriter, r *http.Request) {
		c.calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		if options.rejectEverything {
			w.WriteHeader(http.StatusUnauthorized)
			_ = json.NewEncoder(w).Encode(models.APIError{Status: "error", Message: "Incorrect email/password combination."})
			return
		}
		_ = json.NewEncoder(w).Encode(models.Session{
			Token: "token-1",
			User:  user.User{ID: "1", Name: "John Doe", Email: "john@example.com"},
		})
	})

	c.server = httptest.NewServer(router)
	c.api = api.New(c.server.URL)
	c.storage, _ = memorystorage.New()
	c.session = auth.New(c.api, c.storage)
	c.api.SetTokenSource(c.session.Token)
	c.api.OnUnauthorized(c.session.HandleUnauthorized)
	c.toasts = toast.New(toast.WithPolicy(toast.Policy{}))

	return c
}

// An invalid form is answered with field errors only: no notification and no request.
func Example_signInValidation() {
	c := setupClient()
	defer c.Close()

	page := pages.NewSignIn(c.session, c.toasts)
	outcome := page.Submit(context.Background(), pages.SignInForm{Email: "", Password: "x"})

	fmt.Println(outcome.FieldErrors)
	fmt.Println("notifications:", len(c.toasts.List()))
	fmt.Println("requests:", c.calls.Load())

	// Output:
	// map[email:Email obrigatório]
	// notifications: 0
	// requests: 0
}

// A session written by one run is picked up by the next one.
func Example_signInAndRestore() {
	c := setupClient()
	defer c.Close()

	page := pages.NewSignIn(c.session, c.toasts)
	outcome := page.Submit(context.Background(), pages.SignInForm{Email: "john@example.com", Password: "123456"})
	fmt.Println("redirect:", outcome.Redirect)

	nextRun := auth.New(c.api, c.storage)
	session, _ := nextRun.Restore(context.Background())
	fmt.Println(session.Token, session.User.Name)

	_ = nextRun.SignOut(context.Background())
	session, _ = auth.New(c.api, c.storage).Restore(context.Background())
	fmt.Println("after sign out:", session)

	// Output:
	// redirect: /dashboard
	// token-1 John Doe
	// after sign out: <nil>
}

// Rejected credentials become one error notification.
func Example_signInRejected() {
	c := setupClient(withRejectingAPI(true))
	defer c.Close()

	page := pages.NewSignIn(c.session, c.toasts)
	page.Submit(context.Background(), pages.SignInForm{Email: "john@example.com", Password: "wrong"})

	for _, notification := range c.toasts.List() {
		fmt.Printf("%s: %s\n", notification.Kind, notification.Title)
	}
	fmt.Println("signed in:", c.session.IsAuthenticated())

	// Output:
	// error: Erro na Autenticação
	// signed in: false
}

// The last message reported for a path wins.
func Example_mapFieldErrors() {
	fieldErrors := formerrors.Map(formerrors.Failure{
		{Path: "email", Message: "Email obrigatório"},
		{Path: "address.city", Message: "Campo obrigatório"},
		{Path: "email", Message: "Digite um e-mail válido"},
	})

	for _, path := range fieldErrors.Paths() {
		message, _ := fieldErrors.Get(path)
		fmt.Printf("%s: %s\n", path, message)
	}

	// Output:
	// address.city: Campo obrigatório
	// email: Digite um e-mail válido
}
