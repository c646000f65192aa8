package session

import (
	"context"
	"testing"
	"time"

	"go.uber.org/goleak"

	"github.com/garnizeh/crackedclub/internal/application"
	"github.com/garnizeh/crackedclub/internal/toast"
	"github.com/garnizeh/crackedclub/internal/waitlist"
)

func TestMain(m *testing.M) {
	// the janitor must not outlive Stop
	goleak.VerifyTestMain(m)
}

func testFactory(q *toast.Queue) (*application.Controller, *waitlist.Controller) {
	noop := application.SubmitterFunc(func(ctx context.Context, p application.Payload) error { return nil })
	join := application.NewController(noop, q)
	wl := waitlist.NewController(waitlist.SubmitterFunc(func(ctx context.Context, email string) error { return nil }), q, nil)
	return join, wl
}

func TestStore_GetCreatesAndReuses(t *testing.T) {
	s := NewStore(testFactory, time.Minute, nil)

	a, created := s.Get("")
	if !created || a.ID == "" {
		t.Fatalf("expected new session")
	}
	b, created := s.Get(a.ID)
	if created || b != a {
		t.Fatalf("expected same session back")
	}
	c, created := s.Get("unknown-id")
	if !created || c.ID == a.ID {
		t.Fatalf("expected fresh session for unknown id")
	}
	if s.Len() != 2 {
		t.Fatalf("expected 2 sessions, got %d", s.Len())
	}
}

func TestStore_ExpiredSessionIsReplaced(t *testing.T) {
	now := time.Now()
	s := NewStore(testFactory, time.Minute, nil)
	s.now = func() time.Time { return now }

	a, _ := s.Get("")
	now = now.Add(2 * time.Minute)
	b, created := s.Get(a.ID)
	if !created || b.ID == a.ID {
		t.Fatalf("expected expired session to be replaced")
	}

	if removed := s.Sweep(); removed != 1 {
		t.Fatalf("expected 1 swept, got %d", removed)
	}
	if s.Len() != 1 {
		t.Fatalf("expected 1 live session, got %d", s.Len())
	}
}

func TestStore_SessionNotificationsShared(t *testing.T) {
	s := NewStore(testFactory, time.Minute, nil)
	sess, _ := s.Get("")
	sess.Waitlist.SetEmail("ada@example.com")
	if _, err := sess.Waitlist.Submit(context.Background()); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if got := sess.Toasts.Drain(); len(got) != 1 {
		t.Fatalf("expected notification routed to the session queue, got %#v", got)
	}
}

func TestStore_StartStop(t *testing.T) {
	s := NewStore(testFactory, time.Millisecond, nil)
	_, _ = s.Get("")
	s.Start(5 * time.Millisecond)

	deadline := time.Now().Add(2 * time.Second)
	for s.Len() > 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	s.Stop()
	s.Stop()
	if s.Len() != 0 {
		t.Fatalf("expected janitor to sweep idle sessions")
	}
}

func TestStore_StopWithoutStart(t *testing.T) {
	s := NewStore(testFactory, time.Minute, nil)
	s.Stop()
}

func TestStore_LimitEvictsLeastRecentlySeen(t *testing.T) {
	now := time.Now()
	s := NewStore(testFactory, time.Hour, nil, WithMaxSessions(2))
	s.now = func() time.Time { return now }

	a, _ := s.Get("")
	now = now.Add(time.Second)
	b, _ := s.Get("")
	now = now.Add(time.Second)
	if _, created := s.Get(a.ID); created {
		t.Fatalf("expected a to be reused")
	}

	now = now.Add(time.Second)
	s.Get("")
	if s.Len() != 2 {
		t.Fatalf("expected the cap to hold, got %d sessions", s.Len())
	}
	if _, created := s.Get(a.ID); created {
		t.Fatalf("recently seen session was evicted")
	}
	if got, created := s.Get(b.ID); !created || got.ID == b.ID {
		t.Fatalf("expected the least recently seen session to be evicted")
	}
}

func TestStore_LimitDropsExpiredFirst(t *testing.T) {
	now := time.Now()
	s := NewStore(testFactory, time.Minute, nil, WithMaxSessions(3))
	s.now = func() time.Time { return now }

	s.Get("")
	s.Get("")
	now = now.Add(2 * time.Minute)
	fresh, _ := s.Get("")
	s.Get("")

	if s.Len() != 2 {
		t.Fatalf("expected expired sessions dropped, got %d", s.Len())
	}
	if _, created := s.Get(fresh.ID); created {
		t.Fatalf("live session was evicted")
	}
}

func TestStore_CookielessFloodStaysBounded(t *testing.T) {
	s := NewStore(testFactory, time.Hour, nil, WithMaxSessions(50))
	for i := 0; i < 500; i++ {
		s.Get("")
	}
	if s.Len() > 50 {
		t.Fatalf("store grew past its limit: %d", s.Len())
	}
}

func TestStore_StartAfterStopDoesNotRun(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := NewStore(testFactory, time.Minute, nil)
	s.Stop()
	s.Start(time.Millisecond)
	s.Stop()
}

func TestStore_StartTwiceStopsOnce(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	s := NewStore(testFactory, time.Minute, nil)
	s.Start(time.Millisecond)
	s.Start(time.Millisecond)
	s.Stop()
}
