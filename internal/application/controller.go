package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/garnizeh/crackedclub/internal/toast"
)

// Submitter hands a normalized payload to the submission channel.
type Submitter interface {
	Submit(ctx context.Context, p Payload) error
}

// SubmitterFunc adapts a function to Submitter.
type SubmitterFunc func(ctx context.Context, p Payload) error

func (f SubmitterFunc) Submit(ctx context.Context, p Payload) error { return f(ctx, p) }

// Notifier shows transient messages. Fire-and-forget.
type Notifier interface {
	Notify(n toast.Notification)
}

// SubmissionError wraps a failure of the submission channel.
type SubmissionError struct {
	Op  string
	Err error
}

func (e *SubmissionError) Error() string {
	if e.Op == "" {
		return "submission failed: " + e.Err.Error()
	}
	return fmt.Sprintf("submission failed: %s: %v", e.Op, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// Messages shown after a submit attempt.
var (
	SubmittedNotification = toast.Success("application submitted!", "we'll be in touch soon.")
	FailedNotification    = toast.Destructive("submission failed", "please try again later.")
)

type State int

const (
	StateIdle State = iota
	StateValidating
	StateSubmitting
)

func (s State) String() string {
	switch s {
	case StateValidating:
		return "validating"
	case StateSubmitting:
		return "submitting"
	default:
		return "idle"
	}
}

type Result string

const (
	ResultSubmitted Result = "submitted"
	ResultInvalid   Result = "invalid"
	ResultFailed    Result = "failed"
	ResultBusy      Result = "busy"
)

// Outcome is what one Submit call produced.
type Outcome struct {
	Result Result
	Errors ValidationErrors
	Err    error
}

// View is a consistent snapshot of the controller for rendering.
type View struct {
	Application        Application       `json:"values"`
	Open               bool              `json:"open"`
	Submitting         bool              `json:"submitting"`
	ShowDiscoveryOther bool              `json:"showDiscoveryOther"`
	Errors             map[string]string `json:"errors"`
}

// Controller owns the join dialog state for one visitor.
type Controller struct {
	mu        sync.Mutex
	rules     Rules
	submitter Submitter
	notifier  Notifier
	logger    *slog.Logger

	app   Application
	open  bool
	state State
	errs  ValidationErrors
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

func WithRules(r Rules) ControllerOption {
	return func(c *Controller) { c.rules = r }
}

func WithLogger(l *slog.Logger) ControllerOption {
	return func(c *Controller) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewController returns a controller with an empty application and a closed
// dialog. notifier may be nil.
func NewController(s Submitter, n Notifier, opts ...ControllerOption) *Controller {
	c := &Controller{
		rules:     DefaultRules(),
		submitter: s,
		notifier:  n,
		logger:    slog.Default(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Controller) Open() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = true
}

// Close hides the dialog and discards everything entered.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.open = false
	c.app = Application{}
	c.errs = nil
}

func (c *Controller) IsOpen() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.open
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// SetField updates one scalar field and clears its stale error.
func (c *Controller) SetField(name, value string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.app.Set(name, value); err != nil {
		return err
	}
	c.clearError(name)
	if name == FieldDiscovery && !c.app.ShowDiscoveryOther() {
		c.clearError(FieldDiscoveryOther)
	}
	return nil
}

// Toggle changes membership of tag in the reasons or interests set.
func (c *Controller) Toggle(field, tag string, desired bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.app.Toggle(field, tag, desired); err != nil {
		return err
	}
	c.clearError(field)
	return nil
}

// Replace swaps in a whole application, as a one-shot form post does.
// Repeated tags are collapsed.
func (c *Controller) Replace(a Application) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.app = a.Dedupe()
	c.errs = nil
}

func (c *Controller) Values() Application {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.app.Clone()
}

// ShowDiscoveryOther is derived from the current discovery value.
func (c *Controller) ShowDiscoveryOther() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.app.ShowDiscoveryOther()
}

// Errors returns the field errors of the last rejected submit.
func (c *Controller) Errors() ValidationErrors {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.errs)
}

func (c *Controller) View() View {
	c.mu.Lock()
	defer c.mu.Unlock()
	return View{
		Application:        c.app.Clone(),
		Open:               c.open,
		Submitting:         c.state != StateIdle,
		ShowDiscoveryOther: c.app.ShowDiscoveryOther(),
		Errors:             c.errs.ByField(),
	}
}

// Submit validates, normalizes and hands the payload to the submitter.
// Exactly one notification is sent when the submitter is reached; none for
// invalid or re-entrant attempts. Submitter failures never escape.
func (c *Controller) Submit(ctx context.Context) Outcome {
	c.mu.Lock()
	if c.state != StateIdle {
		c.mu.Unlock()
		return Outcome{Result: ResultBusy}
	}
	c.state = StateValidating
	snapshot := c.app.Clone()
	errs := ValidateWith(snapshot, c.rules)
	if len(errs) > 0 {
		c.errs = errs
		c.state = StateIdle
		c.mu.Unlock()
		return Outcome{Result: ResultInvalid, Errors: slices.Clone(errs)}
	}
	c.errs = nil
	payload := Normalize(snapshot)
	c.state = StateSubmitting
	c.mu.Unlock()

	err := c.submit(ctx, payload)

	c.mu.Lock()
	c.state = StateIdle
	if err != nil {
		c.mu.Unlock()
		c.logger.Error("application submission failed", slog.Any("err", err))
		c.notify(FailedNotification)
		return Outcome{Result: ResultFailed, Err: err}
	}
	c.app = Application{}
	c.open = false
	c.mu.Unlock()

	c.notify(SubmittedNotification)
	return Outcome{Result: ResultSubmitted}
}

func (c *Controller) submit(ctx context.Context, p Payload) (err error) {
	if c.submitter == nil {
		return &SubmissionError{Op: "submit", Err: errors.New("no submission channel")}
	}
	defer func() {
		if r := recover(); r != nil {
			err = &SubmissionError{Op: "submit", Err: fmt.Errorf("panic: %v", r)}
		}
	}()
	if err := c.submitter.Submit(ctx, p); err != nil {
		var se *SubmissionError
		if errors.As(err, &se) {
			return err
		}
		return &SubmissionError{Op: "submit", Err: err}
	}
	return nil
}

func (c *Controller) notify(n toast.Notification) {
	if c.notifier != nil {
		c.notifier.Notify(n)
	}
}

// clearError drops errors for field; callers hold c.mu.
func (c *Controller) clearError(field string) {
	if len(c.errs) == 0 {
		return
	}
	kept := make(ValidationErrors, 0, len(c.errs))
	for _, fe := range c.errs {
		if fe.Field != field {
			kept = append(kept, fe)
		}
	}
	c.errs = kept
}
