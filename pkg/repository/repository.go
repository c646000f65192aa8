package repository

import (
	"context"

	"github.com/garnizeh/crackedclub/pkg/models"
)

// Repository interfaces for persisted entities. These are the public contracts
// consumers should depend on; concrete implementations live under internal/.

type ApplicationRepo interface {
	CreateApplication(ctx context.Context, a *models.Application) error
	GetApplication(ctx context.Context, id string) (*models.Application, error)
	ListApplications(ctx context.Context, status string, limit, offset int) ([]models.Application, error)
	CountApplications(ctx context.Context, status string) (int64, error)
	UpdateApplicationStatus(ctx context.Context, id, status, lastError string) error
	SetScreening(ctx context.Context, id string, screeningJSON []byte) error
}

type WaitlistRepo interface {
	// AddToWaitlist reports whether the email was newly added.
	AddToWaitlist(ctx context.Context, email string) (bool, error)
	ListWaitlist(ctx context.Context, limit, offset int) ([]models.WaitlistEntry, error)
	CountWaitlist(ctx context.Context) (int64, error)
}

type JobRepo interface {
	Enqueue(ctx context.Context, j *models.BackgroundJob) (int64, error)
	FetchNext(ctx context.Context) (*models.BackgroundJob, error)
	UpdateJob(ctx context.Context, j *models.BackgroundJob) error
	MoveToDeadLetter(ctx context.Context, j *models.BackgroundJob) error
	RequeueRunning(ctx context.Context) (int64, error)
	ListDeadLetters(ctx context.Context, limit int) ([]models.DeadLetterJob, error)
}

type SchemaRepo interface {
	CreateSchema(ctx context.Context, version, description, schemaJSON string) (int64, error)
	GetSchemaByVersion(ctx context.Context, version string) (*models.Schema, error)
	ListSchemas(ctx context.Context) ([]models.Schema, error)
	DeleteSchema(ctx context.Context, version string) error
}

type TemplateRepo interface {
	CreateTemplate(ctx context.Context, name, version, templateText string, schemaVersion *string, metadata *string) (int64, error)
	GetTemplate(ctx context.Context, name, version string) (*models.Template, error)
	ListTemplates(ctx context.Context) ([]models.Template, error)
	DeleteTemplate(ctx context.Context, name, version string) error
}
