package api_test

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"strings"
	"testing"

	"github.com/garnizeh/crackedclub/internal/application"
)

func (e *testEnv) page(t *testing.T) string {
	t.Helper()
	res, err := e.client.Get(e.srv.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusOK {
		t.Fatalf("GET /: status %d", res.StatusCode)
	}
	if ct := res.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Fatalf("unexpected content type %q", ct)
	}
	b, _ := io.ReadAll(res.Body)
	return string(b)
}

func (e *testEnv) postForm(t *testing.T, path string, form url.Values) string {
	t.Helper()
	res, err := e.client.PostForm(e.srv.URL+path, form)
	if err != nil {
		t.Fatalf("POST %s: %v", path, err)
	}
	defer res.Body.Close()
	if res.StatusCode != http.StatusSeeOther {
		t.Fatalf("POST %s: want 303 got %d", path, res.StatusCode)
	}
	return res.Header.Get("Location")
}

func TestPage_Landing(t *testing.T) {
	e := newEnv(t, nil, nil)
	body := e.page(t)
	for _, want := range []string{"cracked engineers club", "humans doing cool shit", "join the club", `action="/waitlist"`} {
		if !strings.Contains(body, want) {
			t.Fatalf("landing page missing %q", want)
		}
	}
	if strings.Contains(body, "<dialog") {
		t.Fatalf("dialog must start closed")
	}

	e.postForm(t, "/join/open", nil)
	body = e.page(t)
	if !strings.Contains(body, "join the cracked engineers club") || !strings.Contains(body, "to build cool shit") {
		t.Fatalf("expected open dialog with reasons")
	}
	e.postForm(t, "/join/close", nil)
	if strings.Contains(e.page(t), "<dialog") {
		t.Fatalf("dialog should be closed")
	}
}

func TestPage_SubmitInvalidKeepsValues(t *testing.T) {
	e := newEnv(t, nil, nil)
	e.postForm(t, "/join", url.Values{
		"email":     {"ada@example.com"},
		"discovery": {"other"},
		"interests": {"robotics"},
	})

	body := e.page(t)
	for _, want := range []string{`value="ada@example.com"`, "please enter your twitter/x handle", "please specify how you found us", `value="robotics" checked`} {
		if !strings.Contains(body, want) {
			t.Fatalf("page missing %q", want)
		}
	}
}

func TestPage_SubmitSuccess(t *testing.T) {
	var got application.Payload
	e := newEnv(t, application.SubmitterFunc(func(ctx context.Context, p application.Payload) error {
		got = p
		return nil
	}), nil)

	a := validApplication()
	if loc := e.postForm(t, "/join", url.Values{
		"email":        {a.Email},
		"twitter":      {a.Twitter},
		"website":      {a.Website},
		"why":          {a.Why},
		"reasons":      {"build", "learn"},
		"interests":    {"robotics"},
		"skillLevel":   {string(a.SkillLevel)},
		"discovery":    {string(a.Discovery)},
		"expectations": {a.Expectations},
	}); loc != "/" {
		t.Fatalf("expected redirect to /, got %q", loc)
	}
	if got.Email != a.Email || len(got.Reasons) != 2 {
		t.Fatalf("unexpected payload %+v", got)
	}

	body := e.page(t)
	if !strings.Contains(body, "application submitted!") {
		t.Fatalf("expected success toast on the page")
	}
	if strings.Contains(e.page(t), "application submitted!") {
		t.Fatalf("toast must show only once")
	}
}

func TestPage_Waitlist(t *testing.T) {
	e := newEnv(t, nil, nil)
	if loc := e.postForm(t, "/waitlist", url.Values{"email": {"nope"}}); loc != "/?waitlist=invalid" {
		t.Fatalf("unexpected redirect %q", loc)
	}
	res, err := e.client.Get(e.srv.URL + "/?waitlist=invalid")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	b, _ := io.ReadAll(res.Body)
	res.Body.Close()
	if !strings.Contains(string(b), "please enter a valid email") || !strings.Contains(string(b), `value="nope"`) {
		t.Fatalf("expected waitlist error and kept email")
	}

	e.postForm(t, "/waitlist", url.Values{"email": {"ada@example.com"}})
	if !strings.Contains(e.page(t), "welcome to the club!") {
		t.Fatalf("expected waitlist success toast")
	}
}

func TestPage_SubmitRepeatedCheckboxes(t *testing.T) {
	var got application.Payload
	e := newEnv(t, application.SubmitterFunc(func(ctx context.Context, p application.Payload) error {
		got = p
		return nil
	}), nil)

	a := validApplication()
	e.postForm(t, "/join", url.Values{
		"email":        {a.Email},
		"twitter":      {a.Twitter},
		"why":          {a.Why},
		"reasons":      {"build", "build"},
		"interests":    {"ai", "ai", "ai", "robotics"},
		"skillLevel":   {string(a.SkillLevel)},
		"discovery":    {string(a.Discovery)},
		"expectations": {a.Expectations},
	})

	if len(got.Reasons) != 1 || len(got.Interests) != 2 {
		t.Fatalf("expected repeated tags collapsed, got reasons=%v interests=%v", got.Reasons, got.Interests)
	}
	if !strings.Contains(e.page(t), "application submitted!") {
		t.Fatalf("expected success toast on the page")
	}
}
