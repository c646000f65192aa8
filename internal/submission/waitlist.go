package submission

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/garnizeh/crackedclub/pkg/repository"
)

// WaitlistStore records waitlist emails. Joining twice is not an error.
type WaitlistStore struct {
	Repo repository.WaitlistRepo
}

func (s *WaitlistStore) Join(ctx context.Context, email string) error {
	added, err := s.Repo.AddToWaitlist(ctx, email)
	if err != nil {
		return fmt.Errorf("add to waitlist: %w", err)
	}
	logger.Info("waitlist signup", slog.String("email", email), slog.Bool("new", added))
	return nil
}
