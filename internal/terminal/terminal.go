// Package terminal is a line-oriented front-end for the GoBarber screens. It
// reads commands, fills the forms from prompts and prints the notifications
// the screens produce.
package terminal

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/gobarber/internal/authenticator"
	"github.com/patric-chuzhbe/gobarber/internal/logger"
	"github.com/patric-chuzhbe/gobarber/internal/models"
	"github.com/patric-chuzhbe/gobarber/internal/pages"
	"github.com/patric-chuzhbe/gobarber/internal/toast"
	"github.com/patric-chuzhbe/gobarber/internal/user"
)

// openFile is a test seam for reading the avatar image.
var openFile = func(name string) (io.ReadCloser, error) {
	return os.Open(name)
}

// sessionWatcher is implemented by session managers that report transitions,
// including the ones made in the background.
type sessionWatcher interface {
	OnChange(listener func(*models.Session))
}

type board interface {
	List() []toast.Notification
	Remove(id string)
	Subscribe(listener toast.Listener) *toast.Subscription
}

// Screens are the page controllers the commands drive.
type Screens struct {
	SignIn         *pages.SignIn
	SignUp         *pages.SignUp
	ForgotPassword *pages.ForgotPassword
	ResetPassword  *pages.ResetPassword
	Profile        *pages.Profile
}

type Terminal struct {
	in         *bufio.Reader
	pending    chan lineResult
	passwordFD int

	outMu sync.Mutex
	out   io.Writer

	session authenticator.Authenticator
	toasts  board
	screens Screens

	watched     bool
	promptLabel atomic.Pointer[string]

	route string
	shown map[string]bool
}

func New(
	in io.Reader,
	out io.Writer,
	session authenticator.Authenticator,
	toasts board,
	screens Screens,
) *Terminal {
	t := &Terminal{
		in:         bufio.NewReader(in),
		passwordFD: terminalFD(in),
		out:        out,
		session:    session,
		toasts:     toasts,
		screens:    screens,
		route:      pages.RouteSignIn,
		shown:      map[string]bool{},
	}
	if watcher, ok := session.(sessionWatcher); ok {
		watcher.OnChange(t.sessionChanged)
		t.watched = true
	}
	t.setPrompt(session.User())

	return t
}

const helpText = `Commands:
  signin          sign in with e-mail and password
  signup          create an account
  forgot          request a password recovery e-mail
  reset <link>    set a new password from a recovery link
  profile         edit name, e-mail and password
  avatar <file>   upload a new avatar image
  whoami          show the signed in user
  signout         sign out
  toasts          list notifications
  dismiss <id>    dismiss a notification
  help            show this text
  exit            leave`

// Run reads commands until exit, end of input or ctx cancellation.
func (t *Terminal) Run(ctx context.Context) error {
	subscription := t.toasts.Subscribe(t.renderToasts)
	defer subscription.Unsubscribe()

	t.printf("GoBarber. Type \"help\" for the list of commands.\n")

	for {
		t.printf("%s> ", t.prompt())
		line, err := t.readLine(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				t.printf("\n")
				return nil
			}
			return err
		}

		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}

		command, args := fields[0], fields[1:]
		if command == "exit" || command == "quit" {
			t.printf("Bye!\n")
			return nil
		}

		if err := t.dispatch(ctx, command, args); err != nil {
			if errors.Is(err, io.EOF) || errors.Is(err, context.Canceled) {
				t.printf("\n")
				return nil
			}
			logger.Log.Errorln("Error calling the `t.dispatch()`", "command", command, zap.Error(err))
			t.printf("error: %v\n", err)
		}
	}
}

func (t *Terminal) dispatch(ctx context.Context, command string, args []string) error {
	switch command {
	case "help":
		t.printf("%s\n", helpText)
		return nil
	case "signin":
		return t.signIn(ctx)
	case "signup":
		return t.signUp(ctx)
	case "forgot":
		return t.forgotPassword(ctx)
	case "reset":
		if len(args) != 1 {
			t.printf("usage: reset <link>\n")
			return nil
		}
		return t.resetPassword(ctx, args[0])
	case "profile":
		return t.profile(ctx)
	case "avatar":
		if len(args) != 1 {
			t.printf("usage: avatar <file>\n")
			return nil
		}
		return t.avatar(ctx, args[0])
	case "whoami":
		t.whoami()
		return nil
	case "signout":
		return t.signOut(ctx)
	case "toasts":
		t.listToasts()
		return nil
	case "dismiss":
		if len(args) != 1 {
			t.printf("usage: dismiss <id>\n")
			return nil
		}
		t.toasts.Remove(args[0])
		return nil
	}

	t.printf("Unknown command: %s\n", command)

	return nil
}

func (t *Terminal) prompt() string {
	if !t.watched {
		t.setPrompt(t.session.User())
	}

	return *t.promptLabel.Load()
}

func (t *Terminal) sessionChanged(session *models.Session) {
	if session == nil {
		t.setPrompt(user.User{}, false)
		return
	}
	t.setPrompt(session.User, true)
}

func (t *Terminal) setPrompt(usr user.User, signedIn bool) {
	label := "gobarber"
	if signedIn {
		label = "gobarber (" + usr.Email + ")"
	}
	t.promptLabel.Store(&label)
}

func (t *Terminal) signIn(ctx context.Context) error {
	email, err := t.ask(ctx, "E-mail")
	if err != nil {
		return err
	}
	password, err := t.askPassword(ctx, "Senha")
	if err != nil {
		return err
	}

	t.render(t.screens.SignIn.Submit(ctx, pages.SignInForm{Email: email, Password: password}))

	return nil
}

func (t *Terminal) signUp(ctx context.Context) error {
	name, err := t.ask(ctx, "Nome")
	if err != nil {
		return err
	}
	email, err := t.ask(ctx, "E-mail")
	if err != nil {
		return err
	}
	password, err := t.askPassword(ctx, "Senha")
	if err != nil {
		return err
	}

	t.render(t.screens.SignUp.Submit(ctx, pages.SignUpForm{Name: name, Email: email, Password: password}))

	return nil
}

func (t *Terminal) forgotPassword(ctx context.Context) error {
	email, err := t.ask(ctx, "E-mail")
	if err != nil {
		return err
	}

	t.render(t.screens.ForgotPassword.Submit(ctx, pages.ForgotPasswordForm{Email: email}))

	return nil
}

func (t *Terminal) resetPassword(ctx context.Context, link string) error {
	password, err := t.askPassword(ctx, "Nova senha")
	if err != nil {
		return err
	}
	confirmation, err := t.askPassword(ctx, "Confirmação da senha")
	if err != nil {
		return err
	}

	t.render(t.screens.ResetPassword.Submit(ctx, link, pages.ResetPasswordForm{
		Password:             password,
		PasswordConfirmation: confirmation,
	}))

	return nil
}

func (t *Terminal) profile(ctx context.Context) error {
	if !t.requireSession() {
		return nil
	}

	initial := t.screens.Profile.InitialData()
	name, err := t.askWithDefault(ctx, "Nome", initial.Name)
	if err != nil {
		return err
	}
	email, err := t.askWithDefault(ctx, "E-mail", initial.Email)
	if err != nil {
		return err
	}
	oldPassword, err := t.askPassword(ctx, "Senha atual (vazio para manter)")
	if err != nil {
		return err
	}

	form := pages.ProfileForm{Name: name, Email: email, OldPassword: oldPassword}
	if oldPassword != "" {
		if form.Password, err = t.askPassword(ctx, "Nova senha"); err != nil {
			return err
		}
		if form.PasswordConfirmation, err = t.askPassword(ctx, "Confirmação da senha"); err != nil {
			return err
		}
	}

	t.render(t.screens.Profile.Submit(ctx, form))

	return nil
}

func (t *Terminal) avatar(ctx context.Context, fileName string) error {
	if !t.requireSession() {
		return nil
	}

	file, err := openFile(fileName)
	if err != nil {
		return fmt.Errorf("in internal/terminal/terminal.go/avatar(): error while `openFile()` calling: %w", err)
	}
	defer file.Close()

	t.render(t.screens.Profile.ChangeAvatar(ctx, filepath.Base(fileName), file))

	return nil
}

func (t *Terminal) whoami() {
	usr, ok := t.session.User()
	if !ok {
		t.printf("Not signed in.\n")
		return
	}

	t.printf("%s <%s>\n", usr.Name, usr.Email)
	if avatarURL := t.screens.Profile.AvatarURL(); avatarURL != "" {
		t.printf("avatar: %s\n", avatarURL)
	}
}

func (t *Terminal) signOut(ctx context.Context) error {
	if err := t.session.SignOut(ctx); err != nil {
		return err
	}
	t.route = pages.RouteSignIn
	t.printf("Signed out.\n")

	return nil
}

// requireSession keeps the authenticated-only screens out of reach without a session.
func (t *Terminal) requireSession() bool {
	if t.session.IsAuthenticated() {
		return true
	}
	t.route = pages.RouteSignIn
	t.printf("Sign in first.\n")

	return false
}

func (t *Terminal) listToasts() {
	list := t.toasts.List()
	if len(list) == 0 {
		t.printf("No notifications.\n")
		return
	}
	for _, notification := range list {
		t.printf("%s\n", formatToast(notification))
	}
}

// render prints the field errors in path order and follows the redirect.
func (t *Terminal) render(outcome pages.Outcome) {
	if outcome.Throttled {
		t.printf("Too many attempts, wait a moment.\n")
		return
	}

	for _, path := range outcome.FieldErrors.Paths() {
		message, _ := outcome.FieldErrors.Get(path)
		t.printf("  %s: %s\n", path, message)
	}

	if outcome.Redirect != "" && outcome.Redirect != t.route {
		t.route = outcome.Redirect
		t.printf("-> %s\n", outcome.Redirect)
	}
}

// renderToasts prints the notifications that were not printed before.
func (t *Terminal) renderToasts(list []toast.Notification) {
	t.outMu.Lock()
	defer t.outMu.Unlock()

	current := make(map[string]bool, len(list))
	for _, notification := range list {
		current[notification.ID] = true
		if t.shown[notification.ID] {
			continue
		}
		fmt.Fprintf(t.out, "\n%s\n", formatToast(notification))
	}
	t.shown = current
}

func formatToast(notification toast.Notification) string {
	line := fmt.Sprintf("[%s] %s", notification.Kind, notification.Title)
	if notification.Description != "" {
		line += ": " + notification.Description
	}

	return line + " (" + notification.ID + ")"
}

func (t *Terminal) printf(format string, args ...any) {
	t.outMu.Lock()
	defer t.outMu.Unlock()

	fmt.Fprintf(t.out, format, args...)
}
