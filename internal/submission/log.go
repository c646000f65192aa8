package submission

import (
	"context"
	"log/slog"
	"time"

	"github.com/garnizeh/crackedclub/internal/application"
)

// LogSubmitter acknowledges every submission after logging it. Delay
// simulates a slow backend.
type LogSubmitter struct {
	Delay time.Duration
}

func (s LogSubmitter) Submit(ctx context.Context, p application.Payload) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	logger.Info("application received",
		slog.String("email", p.Email),
		slog.String("twitter", p.Twitter),
		slog.Any("payload", p),
		slog.String("client_ip", ClientIP(ctx)),
	)
	return nil
}

func (s LogSubmitter) Join(ctx context.Context, email string) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	logger.Info("waitlist signup", slog.String("email", email), slog.String("client_ip", ClientIP(ctx)))
	return nil
}

func (s LogSubmitter) wait(ctx context.Context) error {
	if s.Delay <= 0 {
		return nil
	}
	t := time.NewTimer(s.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
