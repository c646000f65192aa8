package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/garnizeh/crackedclub/internal/metrics"
	"github.com/garnizeh/crackedclub/internal/toast"
	"github.com/garnizeh/crackedclub/internal/waitlist"
)

type WaitlistHandler struct {
	timeout time.Duration
	metrics *metrics.Metrics
}

func NewWaitlistHandler(timeout time.Duration, m *metrics.Metrics) *WaitlistHandler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &WaitlistHandler{timeout: timeout, metrics: m}
}

type waitlistRequest struct {
	Email string `json:"email"`
}

func (h *WaitlistHandler) Join(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req waitlistRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	res, err := h.submit(r, sess.Waitlist, req.Email)

	resp := submitResponse{Result: string(res), Notifications: sess.Toasts.Drain()}
	status := http.StatusCreated
	switch res {
	case waitlist.ResultInvalid:
		status = http.StatusUnprocessableEntity
		resp.Errors = map[string]string{"email": err.Error()}
	case waitlist.ResultBusy:
		status = http.StatusConflict
		resp.Error = http.StatusText(status)
		resp.Message = "a submission is already in progress"
	case waitlist.ResultFailed:
		status = http.StatusServiceUnavailable
		resp.Error = http.StatusText(status)
		resp.Message = waitlist.FailedNotification.Description
	}
	writeJSON(w, status, resp)
}

func (h *WaitlistHandler) submit(r *http.Request, c *waitlist.Controller, email string) (waitlist.Result, error) {
	ctx, cancel := submitContext(r, h.timeout)
	defer cancel()

	c.SetEmail(email)
	res, err := c.Submit(ctx)
	h.metrics.Submission("waitlist", string(res))
	if res == waitlist.ResultFailed {
		logger.Error("waitlist submit failed", slog.Any("err", err))
	}
	return res, err
}

// Notifications drains the pending notifications of the session.
func (h *WaitlistHandler) Notifications(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string][]toast.Notification{"notifications": sess.Toasts.Drain()})
}
