// Package app wires the GoBarber client together: configuration, logging,
// session storage, the API client, the session manager, the notification store
// and the screens behind the terminal front-end.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/patric-chuzhbe/gobarber/internal/api"
	"github.com/patric-chuzhbe/gobarber/internal/auth"
	"github.com/patric-chuzhbe/gobarber/internal/config"
	"github.com/patric-chuzhbe/gobarber/internal/db/jsondb"
	"github.com/patric-chuzhbe/gobarber/internal/db/memorystorage"
	"github.com/patric-chuzhbe/gobarber/internal/db/storage"
	"github.com/patric-chuzhbe/gobarber/internal/logger"
	"github.com/patric-chuzhbe/gobarber/internal/models"
	"github.com/patric-chuzhbe/gobarber/internal/pages"
	"github.com/patric-chuzhbe/gobarber/internal/terminal"
	"github.com/patric-chuzhbe/gobarber/internal/toast"
)

// App owns every long-lived component of the client.
type App struct {
	cfg      *config.Config
	db       storage.Storage
	client   *api.Client
	session  *auth.SessionManager
	toasts   *toast.Store
	terminal *terminal.Terminal

	background sync.WaitGroup
}

type InitOption func(*initOptions)

type initOptions struct {
	configOptions []config.InitOption
	in            io.Reader
	out           io.Writer
}

// WithConfigOptions passes options through to config.New.
func WithConfigOptions(options ...config.InitOption) InitOption {
	return func(o *initOptions) {
		o.configOptions = append(o.configOptions, options...)
	}
}

// WithIO replaces stdin and stdout of the terminal front-end.
func WithIO(in io.Reader, out io.Writer) InitOption {
	return func(o *initOptions) {
		o.in = in
		o.out = out
	}
}

// New initializes a new instance of App by:
// - loading configuration
// - initializing logger
// - selecting and opening the session storage
// - restoring the session of the previous run
// - building the screens and the terminal
func New(optionsProto ...InitOption) (*App, error) {
	options := &initOptions{
		in:  os.Stdin,
		out: os.Stdout,
	}
	for _, protoOption := range optionsProto {
		protoOption(options)
	}

	var err error
	app := &App{}

	app.cfg, err = config.New(options.configOptions...)
	if err != nil {
		return nil, err
	}

	err = logger.Init(app.cfg.LogLevel)
	if err != nil {
		return nil, err
	}

	app.db, err = getStorageByType(app.cfg)
	if err != nil {
		return nil, err
	}

	app.client = api.New(
		app.cfg.APIBaseURL,
		api.WithTimeout(app.cfg.RequestTimeout),
		api.WithUserAgent(app.cfg.UserAgent),
	)
	app.session = auth.New(app.client, app.db)
	app.client.SetTokenSource(app.session.Token)
	app.client.OnUnauthorized(app.session.HandleUnauthorized)

	session, err := app.session.Restore(context.Background())
	if err != nil {
		return nil, errors.Join(err, app.db.Close())
	}
	if session != nil {
		logger.Log.Infoln("session restored", "email", session.User.Email)
	}

	app.toasts = toast.New(toast.WithPolicy(toast.Policy{
		toast.KindSuccess: app.cfg.ToastTimeout,
		toast.KindInfo:    app.cfg.ToastTimeout,
		toast.KindError:   app.cfg.ErrorToastTimeout,
	}))

	submitInterval := pages.WithSubmitInterval(app.cfg.SubmitInterval)
	app.terminal = terminal.New(options.in, options.out, app.session, app.toasts, terminal.Screens{
		SignIn:         pages.NewSignIn(app.session, app.toasts, submitInterval),
		SignUp:         pages.NewSignUp(app.client, app.toasts, submitInterval),
		ForgotPassword: pages.NewForgotPassword(app.client, app.toasts, submitInterval),
		ResetPassword:  pages.NewResetPassword(app.client, app.toasts, submitInterval),
		Profile:        pages.NewProfile(app.client, app.session, app.toasts, submitInterval),
	})

	return app, nil
}

// Run drives the terminal until the user leaves or a termination signal arrives.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if a.cfg.RevalidateOnRestore && a.session.IsAuthenticated() {
		a.background.Add(1)
		go func() {
			defer a.background.Done()
			a.revalidate(ctx)
		}()
	}

	err := a.terminal.Run(ctx)
	stop()
	a.background.Wait()

	return err
}

func (a *App) revalidate(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, a.cfg.RequestTimeout)
	defer cancel()

	err := a.session.Revalidate(ctx)
	switch {
	case err == nil:
		logger.Log.Debugln("restored session confirmed by the API")
	case errors.Is(err, auth.ErrAuthentication):
		a.toasts.Add(toast.KindInfo, "Sessão expirada", "Faça login novamente.")
	default:
		logger.Log.Infoln("Error calling the `a.session.Revalidate()`", zap.Error(err))
	}
}

// Close stops the notification timers, closes the storage and flushes the logger.
func (a *App) Close() {
	a.toasts.Close()

	if err := a.db.Close(); err != nil {
		logger.Log.Errorln("Error calling the `a.db.Close()`", zap.Error(err))
	}

	if err := logger.Sync(); err != nil {
		fmt.Println("Logger sync error:", err)
	}
}

func getAvailableStorageType(cfg *config.Config) int {
	switch cfg.StorageType {
	case config.StorageTypeFile:
		return models.StorageTypeFile
	case config.StorageTypeMemory:
		return models.StorageTypeMemory
	}

	return models.StorageTypeUnknown
}

func getStorageByType(cfg *config.Config) (storage.Storage, error) {
	switch getAvailableStorageType(cfg) {
	case models.StorageTypeUnknown:
		return nil, errors.New("unknown storage type")

	case models.StorageTypeFile:
		return jsondb.New(cfg.SessionFile)
	}

	return memorystorage.New()
}
