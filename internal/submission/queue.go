package submission

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/garnizeh/crackedclub/internal/application"
	"github.com/garnizeh/crackedclub/internal/jobs"
	"github.com/garnizeh/crackedclub/pkg/models"
	"github.com/garnizeh/crackedclub/pkg/repository"
)

// Validator checks a document against a stored schema version.
type Validator interface {
	Validate(ctx context.Context, version string, doc []byte) error
}

// DeliverJob is the payload of an application.deliver or application.screen job.
type DeliverJob struct {
	ApplicationID string `json:"application_id"`
}

// QueueSubmitter persists accepted applications and schedules their delivery.
type QueueSubmitter struct {
	Schemas       Validator
	Apps          repository.ApplicationRepo
	Jobs          jobs.Queue
	SchemaVersion string
	MaxAttempts   int
}

func (s *QueueSubmitter) Submit(ctx context.Context, p application.Payload) error {
	doc, err := json.Marshal(p)
	if err != nil {
		return &application.SubmissionError{Op: "encode", Err: err}
	}
	if s.Schemas != nil {
		if err := s.Schemas.Validate(ctx, s.SchemaVersion, doc); err != nil {
			return &application.SubmissionError{Op: "contract", Err: err}
		}
	}

	a := &models.Application{
		ID:            uuid.NewString(),
		Email:         p.Email,
		PayloadJSON:   doc,
		SchemaVersion: s.SchemaVersion,
		Status:        models.StatusQueued,
		ClientIP:      ClientIP(ctx),
	}
	if err := s.Apps.CreateApplication(ctx, a); err != nil {
		return &application.SubmissionError{Op: "store", Err: err}
	}

	jobID, err := jobs.Enqueue(ctx, s.Jobs, jobs.TypeDeliverApplication, DeliverJob{ApplicationID: a.ID}, 10, s.MaxAttempts)
	if err != nil {
		if uerr := s.Apps.UpdateApplicationStatus(ctx, a.ID, models.StatusFailed, "enqueue: "+err.Error()); uerr != nil {
			logger.Error("mark application failed", slog.String("id", a.ID), slog.Any("err", uerr))
		}
		return &application.SubmissionError{Op: "enqueue", Err: fmt.Errorf("application %s: %w", a.ID, err)}
	}

	logger.Info("application queued", slog.String("id", a.ID), slog.Int64("job_id", jobID))
	return nil
}
