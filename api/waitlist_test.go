package api_test

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/garnizeh/crackedclub/internal/toast"
	"github.com/garnizeh/crackedclub/internal/waitlist"
)

func TestWaitlist(t *testing.T) {
	joined := map[string]int{}
	e := newEnv(t, nil, waitlist.SubmitterFunc(func(ctx context.Context, email string) error {
		if email == "down@example.com" {
			return errors.New("store unavailable")
		}
		joined[email]++
		return nil
	}))

	tests := []struct {
		name       string
		email      string
		wantStatus int
		wantResult string
		wantToasts int
	}{
		{name: "Invalid", email: "not-an-email", wantStatus: http.StatusUnprocessableEntity, wantResult: "invalid", wantToasts: 0},
		{name: "Joined", email: "  Ada@Example.com ", wantStatus: http.StatusCreated, wantResult: "joined", wantToasts: 1},
		{name: "JoinedAgain", email: "ada@example.com", wantStatus: http.StatusCreated, wantResult: "joined", wantToasts: 1},
		{name: "Failed", email: "down@example.com", wantStatus: http.StatusServiceUnavailable, wantResult: "failed", wantToasts: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var body submitBody
			code := e.do(t, http.MethodPost, "/v1/waitlist", map[string]string{"email": tt.email}, &body)
			if code != tt.wantStatus || body.Result != tt.wantResult {
				t.Fatalf("want %d %s, got %d %+v", tt.wantStatus, tt.wantResult, code, body)
			}
			if len(body.Notifications) != tt.wantToasts {
				t.Fatalf("want %d notifications, got %#v", tt.wantToasts, body.Notifications)
			}
			if tt.wantResult == "invalid" && body.Errors["email"] != waitlist.ErrInvalidEmail.Error() {
				t.Fatalf("expected email error, got %+v", body.Errors)
			}
		})
	}

	if joined["ada@example.com"] != 2 {
		t.Fatalf("expected the lowercased email submitted twice, got %v", joined)
	}
}

func TestNotifications(t *testing.T) {
	e := newEnv(t, nil, nil)

	var got struct {
		Notifications []toast.Notification `json:"notifications"`
	}
	if code := e.do(t, http.MethodGet, "/v1/notifications", nil, &got); code != http.StatusOK || len(got.Notifications) != 0 {
		t.Fatalf("expected empty notifications, got %d %+v", code, got)
	}

	sess, _ := e.store.Get(sessionID(t, e))
	sess.Toasts.Notify(toast.Success("hi", "there"))
	e.do(t, http.MethodGet, "/v1/notifications", nil, &got)
	if len(got.Notifications) != 1 || got.Notifications[0].Title != "hi" {
		t.Fatalf("expected queued notification, got %+v", got)
	}
	e.do(t, http.MethodGet, "/v1/notifications", nil, &got)
	if len(got.Notifications) != 0 {
		t.Fatalf("notifications must be drained once, got %+v", got)
	}
}

func sessionID(t *testing.T, e *testEnv) string {
	t.Helper()
	req, _ := http.NewRequest(http.MethodGet, e.srv.URL, nil)
	for _, c := range e.client.Jar.Cookies(req.URL) {
		if c.Name == e.cfg.Session.CookieName {
			return c.Value
		}
	}
	t.Fatalf("no session cookie")
	return ""
}
