// Package waitlist implements the single-field email waitlist form.
package waitlist

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"

	"github.com/garnizeh/crackedclub/internal/toast"
)

// Submitter stores or forwards one waitlist email.
type Submitter interface {
	Join(ctx context.Context, email string) error
}

type SubmitterFunc func(ctx context.Context, email string) error

func (f SubmitterFunc) Join(ctx context.Context, email string) error { return f(ctx, email) }

type Notifier interface {
	Notify(n toast.Notification)
}

var (
	JoinedNotification = toast.Success("welcome to the club!", "we'll notify you when we launch.")
	FailedNotification = toast.Destructive("submission failed", "please try again later.")
)

type Result string

const (
	ResultJoined  Result = "joined"
	ResultInvalid Result = "invalid"
	ResultFailed  Result = "failed"
	ResultBusy    Result = "busy"
)

// ErrInvalidEmail is returned in the outcome of an invalid submit.
var ErrInvalidEmail = errors.New("please enter a valid email")

var validate = validator.New()

// Controller drives one waitlist form. The submitting flag disables the
// submit control and rejects re-entrant submits.
type Controller struct {
	mu         sync.Mutex
	email      string
	submitting bool
	submitter  Submitter
	notifier   Notifier
	logger     *slog.Logger
}

func NewController(s Submitter, n Notifier, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{submitter: s, notifier: n, logger: logger}
}

func (c *Controller) SetEmail(email string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.email = email
}

func (c *Controller) Email() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.email
}

func (c *Controller) Submitting() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.submitting
}

// Submit joins the waitlist with the current email.
func (c *Controller) Submit(ctx context.Context) (Result, error) {
	c.mu.Lock()
	if c.submitting {
		c.mu.Unlock()
		return ResultBusy, nil
	}
	email := strings.TrimSpace(c.email)
	if validate.Var(email, "required,email") != nil {
		c.mu.Unlock()
		return ResultInvalid, ErrInvalidEmail
	}
	c.submitting = true
	c.mu.Unlock()

	err := c.join(ctx, strings.ToLower(email))

	c.mu.Lock()
	c.submitting = false
	if err == nil {
		c.email = ""
	}
	c.mu.Unlock()

	if err != nil {
		c.logger.Error("waitlist join failed", slog.Any("err", err))
		c.notify(FailedNotification)
		return ResultFailed, err
	}
	c.notify(JoinedNotification)
	return ResultJoined, nil
}

func (c *Controller) join(ctx context.Context, email string) (err error) {
	if c.submitter == nil {
		return fmt.Errorf("waitlist: no submission channel")
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("waitlist: panic: %v", r)
		}
	}()
	return c.submitter.Join(ctx, email)
}

func (c *Controller) notify(n toast.Notification) {
	if c.notifier != nil {
		c.notifier.Notify(n)
	}
}
