package api_test

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/garnizeh/crackedclub/internal/application"
	"github.com/garnizeh/crackedclub/internal/toast"
)

func TestJoin_OpenFieldsView(t *testing.T) {
	e := newEnv(t, nil, nil)

	var v application.View
	if code := e.do(t, http.MethodGet, "/v1/join", nil, &v); code != http.StatusOK {
		t.Fatalf("view: status %d", code)
	}
	if v.Open {
		t.Fatalf("dialog should start closed")
	}
	if e.do(t, http.MethodPost, "/v1/join/open", nil, &v); !v.Open {
		t.Fatalf("expected open dialog")
	}

	e.do(t, http.MethodPut, "/v1/join/fields/discovery", map[string]string{"value": "other"}, &v)
	if !v.ShowDiscoveryOther || v.Application.Discovery != application.DiscoveryOther {
		t.Fatalf("expected discoveryOther shown, got %+v", v)
	}

	if e.do(t, http.MethodPost, "/v1/join/close", nil, &v); v.Open || v.Application.Discovery != "" {
		t.Fatalf("close must reset the form, got %+v", v)
	}
	if e.store.Len() != 1 {
		t.Fatalf("expected one session reused across requests, got %d", e.store.Len())
	}
}

func TestJoin_FieldAndTagErrors(t *testing.T) {
	e := newEnv(t, nil, nil)

	if code := e.do(t, http.MethodPut, "/v1/join/fields/nickname", map[string]string{"value": "x"}, nil); code != http.StatusNotFound {
		t.Fatalf("unknown field: want 404 got %d", code)
	}
	if code := e.do(t, http.MethodPost, "/v1/join/toggle", map[string]any{"field": "reasons", "tag": "money", "checked": true}, nil); code != http.StatusUnprocessableEntity {
		t.Fatalf("unknown tag: want 422 got %d", code)
	}
	if code := e.do(t, http.MethodPut, "/v1/join/fields/email", map[string]any{"value": "a", "extra": 1}, nil); code != http.StatusBadRequest {
		t.Fatalf("unknown body field: want 400 got %d", code)
	}
}

func TestJoin_InterestCap(t *testing.T) {
	e := newEnv(t, nil, nil)

	var v application.View
	for _, tag := range []string{"coding", "robotics", "ai", "gamedev"} {
		e.do(t, http.MethodPost, "/v1/join/toggle", map[string]any{"field": "interests", "tag": tag, "checked": true}, &v)
	}
	if len(v.Application.Interests) != application.MaxInterests {
		t.Fatalf("expected interests capped at %d, got %v", application.MaxInterests, v.Application.Interests)
	}
}

func TestJoin_SubmitInvalid(t *testing.T) {
	var calls int
	e := newEnv(t, application.SubmitterFunc(func(ctx context.Context, p application.Payload) error {
		calls++
		return nil
	}), nil)

	e.do(t, http.MethodPost, "/v1/join/open", nil, nil)
	var body submitBody
	if code := e.do(t, http.MethodPost, "/v1/join/submit", nil, &body); code != http.StatusUnprocessableEntity {
		t.Fatalf("want 422 got %d", code)
	}
	if body.Result != "invalid" || body.Errors["email"] == "" || body.Errors["twitter"] == "" {
		t.Fatalf("expected field errors, got %+v", body)
	}
	if len(body.Notifications) != 0 || calls != 0 {
		t.Fatalf("invalid submit must not notify or reach the channel")
	}

	var v application.View
	e.do(t, http.MethodGet, "/v1/join", nil, &v)
	if !v.Open || v.Errors["email"] == "" {
		t.Fatalf("dialog should stay open with errors, got %+v", v)
	}
}

func TestJoin_SubmitSuccess(t *testing.T) {
	var got application.Payload
	e := newEnv(t, application.SubmitterFunc(func(ctx context.Context, p application.Payload) error {
		got = p
		return nil
	}), nil)

	e.do(t, http.MethodPost, "/v1/join/open", nil, nil)
	e.fill(t)

	var body submitBody
	if code := e.do(t, http.MethodPost, "/v1/join/submit", nil, &body); code != http.StatusCreated {
		t.Fatalf("want 201 got %d (%+v)", code, body)
	}
	if len(body.Notifications) != 1 || body.Notifications[0] != application.SubmittedNotification {
		t.Fatalf("expected one success notification, got %#v", body.Notifications)
	}
	if got.Twitter != "@ada" || got.Website == nil || *got.Website != "https://ada.dev" {
		t.Fatalf("payload not normalized: %+v", got)
	}

	var v application.View
	e.do(t, http.MethodGet, "/v1/join", nil, &v)
	if v.Open || v.Application.Email != "" {
		t.Fatalf("dialog should be closed and reset, got %+v", v)
	}

	n, err := testutil.GatherAndCount(e.reg, "crackedclub_submissions_total")
	if err != nil || n != 1 {
		t.Fatalf("expected one submission series, got %d (%v)", n, err)
	}
}

func TestJoin_SubmitFailure(t *testing.T) {
	e := newEnv(t, application.SubmitterFunc(func(ctx context.Context, p application.Payload) error {
		return errors.New("backend down")
	}), nil)

	e.do(t, http.MethodPost, "/v1/join/open", nil, nil)
	e.fill(t)

	var body submitBody
	if code := e.do(t, http.MethodPost, "/v1/join/submit", nil, &body); code != http.StatusServiceUnavailable {
		t.Fatalf("want 503 got %d", code)
	}
	if body.Error != http.StatusText(http.StatusServiceUnavailable) || len(body.Notifications) != 1 || body.Notifications[0].Kind != toast.KindDestructive {
		t.Fatalf("unexpected failure body %+v", body)
	}

	var v application.View
	e.do(t, http.MethodGet, "/v1/join", nil, &v)
	if !v.Open || v.Application.Email != "ada@example.com" {
		t.Fatalf("failed submit must keep the form, got %+v", v)
	}
}

func TestJoin_SubmitBusy(t *testing.T) {
	release := make(chan struct{})
	entered := make(chan struct{})
	var once sync.Once
	e := newEnv(t, application.SubmitterFunc(func(ctx context.Context, p application.Payload) error {
		once.Do(func() { close(entered) })
		<-release
		return nil
	}), nil)

	e.do(t, http.MethodPost, "/v1/join/open", nil, nil)
	e.fill(t)

	first := make(chan int, 1)
	go func() {
		res, err := e.client.Post(e.srv.URL+"/v1/join/submit", "application/json", nil)
		if err != nil {
			first <- 0
			return
		}
		res.Body.Close()
		first <- res.StatusCode
	}()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatalf("submitter never called")
	}

	var body submitBody
	if code := e.do(t, http.MethodPost, "/v1/join/submit", nil, &body); code != http.StatusConflict || body.Result != "busy" {
		t.Fatalf("want 409 busy, got %d %+v", code, body)
	}
	var v application.View
	if e.do(t, http.MethodGet, "/v1/join", nil, &v); !v.Submitting {
		t.Fatalf("view should report submitting")
	}

	close(release)
	if code := <-first; code != http.StatusCreated {
		t.Fatalf("first submit: want 201 got %d", code)
	}
}

func TestSubmitOnce(t *testing.T) {
	var calls int
	e := newEnv(t, application.SubmitterFunc(func(ctx context.Context, p application.Payload) error {
		calls++
		return nil
	}), nil)

	var body submitBody
	if code := e.do(t, http.MethodPost, "/v1/applications", validApplication(), &body); code != http.StatusCreated {
		t.Fatalf("want 201 got %d (%+v)", code, body)
	}
	if len(body.Notifications) != 1 || calls != 1 {
		t.Fatalf("unexpected one-shot result %+v calls=%d", body, calls)
	}

	bad := validApplication()
	bad.Interests = []application.Interest{"coding", "robotics", "ai", "gamedev"}
	if code := e.do(t, http.MethodPost, "/v1/applications", bad, &body); code != http.StatusUnprocessableEntity {
		t.Fatalf("want 422 got %d", code)
	}
	if body.Errors["interests"] == "" {
		t.Fatalf("expected interests error, got %+v", body.Errors)
	}
	if e.store.Len() != 0 {
		t.Fatalf("one-shot submits must not create sessions")
	}
}

func TestSubmitOnce_RepeatedTags(t *testing.T) {
	var got application.Payload
	e := newEnv(t, application.SubmitterFunc(func(ctx context.Context, p application.Payload) error {
		got = p
		return nil
	}), nil)

	a := validApplication()
	a.Reasons = []application.Reason{application.ReasonBuild, application.ReasonBuild}
	a.Interests = []application.Interest{application.InterestAI, application.InterestAI, application.InterestAI}

	var body submitBody
	if code := e.do(t, http.MethodPost, "/v1/applications", a, &body); code != http.StatusCreated {
		t.Fatalf("want 201 got %d (%+v)", code, body)
	}
	if len(got.Reasons) != 1 || len(got.Interests) != 1 || got.Interests[0] != application.InterestAI {
		t.Fatalf("expected repeated tags collapsed, got reasons=%v interests=%v", got.Reasons, got.Interests)
	}
}
