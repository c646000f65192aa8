package submission

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/garnizeh/crackedclub/internal/jobs"
	"github.com/garnizeh/crackedclub/pkg/models"
	"github.com/garnizeh/crackedclub/pkg/repository"
)

var tracer = otel.Tracer("github.com/garnizeh/crackedclub/internal/submission")

// Deliverer forwards queued applications to the configured webhook.
type Deliverer struct {
	Apps       repository.ApplicationRepo
	Jobs       jobs.Queue
	WebhookURL string
	Client     *http.Client
	Timeout    time.Duration
	// Screen enqueues an application.screen job after each delivery.
	Screen      bool
	MaxAttempts int
}

// Handle is the jobs.Handler for application.deliver.
func (d *Deliverer) Handle(ctx context.Context, j *models.BackgroundJob) error {
	var dj DeliverJob
	if err := json.Unmarshal(j.Payload, &dj); err != nil || dj.ApplicationID == "" {
		return jobs.Permanent(fmt.Errorf("bad deliver payload %q", j.Payload))
	}

	a, err := d.Apps.GetApplication(ctx, dj.ApplicationID)
	if err != nil {
		return fmt.Errorf("load application %s: %w", dj.ApplicationID, err)
	}
	if a == nil {
		return jobs.Permanent(fmt.Errorf("application %s not found", dj.ApplicationID))
	}
	if a.Status == models.StatusDelivered {
		return nil
	}

	if d.WebhookURL != "" {
		if err := d.post(ctx, a); err != nil {
			return err
		}
	}

	if err := d.Apps.UpdateApplicationStatus(ctx, a.ID, models.StatusDelivered, ""); err != nil {
		return fmt.Errorf("mark delivered: %w", err)
	}
	logger.Info("application delivered", slog.String("id", a.ID), slog.Bool("webhook", d.WebhookURL != ""))

	if d.Screen {
		if _, err := jobs.Enqueue(ctx, d.Jobs, jobs.TypeScreenApplication, DeliverJob{ApplicationID: a.ID}, 50, d.MaxAttempts); err != nil {
			// screening is best effort
			logger.Error("enqueue screening", slog.String("id", a.ID), slog.Any("err", err))
		}
	}
	return nil
}

// WebhookError reports a non-2xx webhook answer.
type WebhookError struct {
	Status int
	Body   string
}

func (e *WebhookError) Error() string {
	return fmt.Sprintf("webhook returned %d: %s", e.Status, e.Body)
}

func (d *Deliverer) post(ctx context.Context, a *models.Application) (err error) {
	ctx, span := tracer.Start(ctx, "submission.webhook")
	span.SetAttributes(attribute.String("application.id", a.ID))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	timeout := d.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.WebhookURL, bytes.NewReader(a.PayloadJSON))
	if err != nil {
		return jobs.Permanent(fmt.Errorf("build webhook request: %w", err))
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "crackedclub-deliverer/1")
	// receivers deduplicate retries on this id
	req.Header.Set("Idempotency-Key", a.ID)

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	werr := &WebhookError{Status: resp.StatusCode, Body: string(bytes.TrimSpace(body))}
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusRequestTimeout && resp.StatusCode != http.StatusTooManyRequests {
		return jobs.Permanent(werr)
	}
	return werr
}

// OnDeadLetter marks the application failed once its delivery job gives up.
func (d *Deliverer) OnDeadLetter(ctx context.Context, j *models.BackgroundJob, cause error) {
	if j.Type != jobs.TypeDeliverApplication {
		return
	}
	var dj DeliverJob
	if err := json.Unmarshal(j.Payload, &dj); err != nil || dj.ApplicationID == "" {
		return
	}
	msg := j.LastError
	if cause != nil {
		msg = cause.Error()
	}
	if err := d.Apps.UpdateApplicationStatus(ctx, dj.ApplicationID, models.StatusFailed, msg); err != nil {
		logger.Error("mark application failed", slog.String("id", dj.ApplicationID), slog.Any("err", err))
	}
}

// IsWebhookStatus reports whether err came from a webhook answering status.
func IsWebhookStatus(err error, status int) bool {
	var werr *WebhookError
	return errors.As(err, &werr) && werr.Status == status
}
