package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/garnizeh/crackedclub/api"
	"github.com/garnizeh/crackedclub/internal/application"
	"github.com/garnizeh/crackedclub/internal/config"
	"github.com/garnizeh/crackedclub/internal/metrics"
	"github.com/garnizeh/crackedclub/internal/session"
	"github.com/garnizeh/crackedclub/internal/toast"
	"github.com/garnizeh/crackedclub/internal/waitlist"
	"github.com/garnizeh/crackedclub/pkg/repository/mock"
)

func init() {
	api.SetLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

const testSecret = "testsecret"

type testEnv struct {
	srv    *httptest.Server
	client *http.Client
	store  *session.Store
	mocks  *mock.Mocks
	reg    *prometheus.Registry
	cfg    *config.Config
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg := &config.Config{
		Addr:          ":0",
		JWTSecret:     testSecret,
		DatabasePath:  "unused.db",
		TokenDuration: time.Hour,
		Join:          config.JoinConfig{ShowWaitlist: true},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	return cfg
}

func newEnv(t *testing.T, sub application.Submitter, wl waitlist.Submitter) *testEnv {
	t.Helper()
	if sub == nil {
		sub = application.SubmitterFunc(func(ctx context.Context, p application.Payload) error { return nil })
	}
	if wl == nil {
		wl = waitlist.SubmitterFunc(func(ctx context.Context, email string) error { return nil })
	}
	factory := func(q *toast.Queue) (*application.Controller, *waitlist.Controller) {
		return application.NewController(sub, q), waitlist.NewController(wl, q, nil)
	}

	cfg := testConfig(t)
	reg := prometheus.NewRegistry()
	store := session.NewStore(factory, time.Minute, nil)
	mocks := mock.NewMocks()
	r := api.SetupRoutes(cfg, "test", "now", api.Deps{
		Sessions: store,
		Factory:  factory,
		Apps:     mocks.Apps,
		Waitlist: mocks.Waitlist,
		Metrics:  metrics.New(reg),
		Gatherer: reg,
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	jar, err := cookiejar.New(nil)
	if err != nil {
		t.Fatalf("cookiejar: %v", err)
	}
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
	return &testEnv{srv: srv, client: client, store: store, mocks: mocks, reg: reg, cfg: cfg}
}

// do sends body as JSON and decodes the response into out when non-nil.
func (e *testEnv) do(t *testing.T, method, path string, body, out any) int {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		r = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, e.srv.URL+path, r)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	res, err := e.client.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer res.Body.Close()
	data, _ := io.ReadAll(res.Body)
	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			t.Fatalf("%s %s: decode %s: %v", method, path, data, err)
		}
	}
	return res.StatusCode
}

func validApplication() application.Application {
	return application.Application{
		Email:        "ada@example.com",
		Twitter:      "ada",
		Website:      "ada.dev",
		Why:          "i build robots on weekends",
		Reasons:      []application.Reason{application.ReasonBuild},
		Interests:    []application.Interest{application.InterestRobotics, application.InterestAI},
		SkillLevel:   application.SkillPro,
		Discovery:    application.DiscoveryFriend,
		Expectations: "people to build with",
	}
}

// fill enters a valid application field by field through the session API.
func (e *testEnv) fill(t *testing.T) {
	t.Helper()
	a := validApplication()
	fields := map[string]string{
		application.FieldEmail:        a.Email,
		application.FieldTwitter:      a.Twitter,
		application.FieldWebsite:      a.Website,
		application.FieldWhy:          a.Why,
		application.FieldSkillLevel:   string(a.SkillLevel),
		application.FieldDiscovery:    string(a.Discovery),
		application.FieldExpectations: a.Expectations,
	}
	for name, v := range fields {
		if code := e.do(t, http.MethodPut, "/v1/join/fields/"+name, map[string]string{"value": v}, nil); code != http.StatusOK {
			t.Fatalf("set %s: status %d", name, code)
		}
	}
	for _, r := range a.Reasons {
		e.do(t, http.MethodPost, "/v1/join/toggle", map[string]any{"field": application.FieldReasons, "tag": r, "checked": true}, nil)
	}
	for _, i := range a.Interests {
		e.do(t, http.MethodPost, "/v1/join/toggle", map[string]any{"field": application.FieldInterests, "tag": i, "checked": true}, nil)
	}
}

type submitBody struct {
	Result        string               `json:"result"`
	Errors        map[string]string    `json:"errors"`
	Error         string               `json:"error"`
	Message       string               `json:"message"`
	Notifications []toast.Notification `json:"notifications"`
}
