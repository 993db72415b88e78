// Package pages holds the controllers behind the GoBarber screens. Each
// controller validates a form, calls the session layer or the API and reports
// the result through the notification store.
package pages

import (
	"context"
	"errors"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/text/unicode/norm"
	"golang.org/x/time/rate"

	"github.com/patric-chuzhbe/gobarber/internal/formerrors"
	"github.com/patric-chuzhbe/gobarber/internal/logger"
	"github.com/patric-chuzhbe/gobarber/internal/schema"
	"github.com/patric-chuzhbe/gobarber/internal/toast"
)

// Routes the controllers redirect to.
const (
	RouteSignIn    = "/"
	RouteDashboard = "/dashboard"
)

// Outcome is what a submission hands back to the screen. FieldErrors is never
// nil; an empty map clears the errors shown next to the fields.
type Outcome struct {
	FieldErrors formerrors.FieldErrorMap
	Redirect    string
	Throttled   bool
}

type notifier interface {
	Add(kind toast.Kind, title string, description ...string) string
}

type transport interface {
	PostAnonymous(ctx context.Context, path string, body, out any) error
	Put(ctx context.Context, path string, body, out any) error
	PatchMultipart(ctx context.Context, path, field, fileName string, content io.Reader, out any) error
}

type InitOption func(*options)

type options struct {
	submitInterval time.Duration
}

// WithSubmitInterval sets the minimal time between two accepted submissions.
// Zero accepts every submission.
func WithSubmitInterval(interval time.Duration) InitOption {
	return func(o *options) {
		o.submitInterval = interval
	}
}

func newOptions(optionsProto []InitOption) options {
	result := options{}
	for _, option := range optionsProto {
		option(&result)
	}

	return result
}

// form is the part every controller shares: throttling, validation and the
// error toast.
type form struct {
	toasts  notifier
	schema  *schema.Schema
	limiter *rate.Limiter
}

func newForm(toasts notifier, messages schema.Messages, opts options) form {
	return form{
		toasts:  toasts,
		schema:  schema.New(messages),
		limiter: newLimiter(opts.submitInterval),
	}
}

func newLimiter(interval time.Duration) *rate.Limiter {
	if interval <= 0 {
		return nil
	}

	return rate.NewLimiter(rate.Every(interval), 1)
}

func allowed(limiter *rate.Limiter) bool {
	return limiter == nil || limiter.Allow()
}

func (f *form) allow() bool {
	return allowed(f.limiter)
}

// validate returns the field errors of value. A non-empty map means the
// submission stops here.
func (f *form) validate(value any) (formerrors.FieldErrorMap, error) {
	err := f.schema.Validate(value)
	if err == nil {
		return formerrors.Map(nil), nil
	}

	var failure formerrors.Failure
	if errors.As(err, &failure) {
		return formerrors.Map(failure), nil
	}

	return nil, err
}

func (f *form) fail(operation string, err error, title, description string) Outcome {
	logger.Log.Infoln("Error calling the `"+operation+"`", zap.Error(err))
	f.toasts.Add(toast.KindError, title, description)

	return cleared()
}

func cleared() Outcome {
	return Outcome{FieldErrors: formerrors.Map(nil)}
}

func throttled() Outcome {
	return Outcome{FieldErrors: formerrors.Map(nil), Throttled: true}
}

func invalid(fieldErrors formerrors.FieldErrorMap) Outcome {
	return Outcome{FieldErrors: fieldErrors}
}

func normalizeText(value string) string {
	return norm.NFC.String(strings.TrimSpace(value))
}

// normalizeEmail keeps the case as typed; the API matches addresses exactly.
func normalizeEmail(value string) string {
	return normalizeText(value)
}
