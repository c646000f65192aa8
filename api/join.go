package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/garnizeh/crackedclub/internal/application"
	"github.com/garnizeh/crackedclub/internal/metrics"
	"github.com/garnizeh/crackedclub/internal/session"
	"github.com/garnizeh/crackedclub/internal/submission"
	"github.com/garnizeh/crackedclub/internal/toast"
)

// JoinHandler exposes the per-session join dialog as JSON.
type JoinHandler struct {
	factory session.Factory
	timeout time.Duration
	metrics *metrics.Metrics
}

func NewJoinHandler(factory session.Factory, timeout time.Duration, m *metrics.Metrics) *JoinHandler {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &JoinHandler{factory: factory, timeout: timeout, metrics: m}
}

type fieldRequest struct {
	Value string `json:"value"`
}

type toggleRequest struct {
	Field   string `json:"field"`
	Tag     string `json:"tag"`
	Checked bool   `json:"checked"`
}

type submitResponse struct {
	Result        string               `json:"result"`
	Errors        map[string]string    `json:"errors,omitempty"`
	Error         string               `json:"error,omitempty"`
	Message       string               `json:"message,omitempty"`
	Notifications []toast.Notification `json:"notifications"`
}

func (h *JoinHandler) View(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, sess.Join.View())
}

func (h *JoinHandler) Open(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	sess.Join.Open()
	writeJSON(w, http.StatusOK, sess.Join.View())
}

func (h *JoinHandler) Close(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	sess.Join.Close()
	writeJSON(w, http.StatusOK, sess.Join.View())
}

func (h *JoinHandler) SetField(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req fieldRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := sess.Join.SetField(mux.Vars(r)["name"], req.Value); err != nil {
		writeControllerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Join.View())
}

func (h *JoinHandler) Toggle(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	var req toggleRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if err := sess.Join.Toggle(req.Field, req.Tag, req.Checked); err != nil {
		writeControllerError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sess.Join.View())
}

func (h *JoinHandler) Submit(w http.ResponseWriter, r *http.Request) {
	sess, ok := requireSession(w, r)
	if !ok {
		return
	}
	out := h.submit(r, sess.Join)
	h.respond(w, out, sess.Toasts.Drain())
}

// SubmitOnce runs a whole application through a throwaway controller.
func (h *JoinHandler) SubmitOnce(w http.ResponseWriter, r *http.Request) {
	var a application.Application
	if !decodeJSON(w, r, &a) {
		return
	}
	q := toast.NewQueue(toast.DefaultLimit)
	join, _ := h.factory(q)
	join.Replace(a)
	out := h.submit(r, join)
	h.respond(w, out, q.Drain())
}

// submit runs the controller on a context detached from the request so a
// disconnecting client cannot cancel an in-flight submission.
func (h *JoinHandler) submit(r *http.Request, c *application.Controller) application.Outcome {
	ctx, cancel := submitContext(r, h.timeout)
	defer cancel()
	out := c.Submit(ctx)
	h.metrics.Submission("join", string(out.Result))
	if out.Err != nil {
		logger.Error("join submit failed", slog.Any("err", out.Err), slog.String("remote", clientIP(r)))
	}
	return out
}

func (h *JoinHandler) respond(w http.ResponseWriter, out application.Outcome, notes []toast.Notification) {
	resp := submitResponse{Result: string(out.Result), Notifications: notes}
	status := http.StatusCreated
	switch out.Result {
	case application.ResultInvalid:
		status = http.StatusUnprocessableEntity
		resp.Errors = out.Errors.ByField()
	case application.ResultBusy:
		status = http.StatusConflict
		resp.Error = http.StatusText(status)
		resp.Message = "a submission is already in progress"
	case application.ResultFailed:
		status = http.StatusServiceUnavailable
		resp.Error = http.StatusText(status)
		resp.Message = application.FailedNotification.Description
	}
	writeJSON(w, status, resp)
}

func submitContext(r *http.Request, timeout time.Duration) (context.Context, context.CancelFunc) {
	ctx := context.WithoutCancel(r.Context())
	ctx = submission.WithClientIP(ctx, clientIP(r))
	return context.WithTimeout(ctx, timeout)
}

func requireSession(w http.ResponseWriter, r *http.Request) (*session.Session, bool) {
	sess, ok := SessionFrom(r.Context())
	if !ok {
		errorJSON(w, http.StatusInternalServerError, "no session")
		return nil, false
	}
	return sess, true
}

func writeControllerError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, application.ErrUnknownField):
		errorJSON(w, http.StatusNotFound, err.Error())
	case errors.Is(err, application.ErrUnknownTag):
		errorJSON(w, http.StatusUnprocessableEntity, err.Error())
	default:
		errorJSON(w, http.StatusInternalServerError, "unexpected error")
	}
}
