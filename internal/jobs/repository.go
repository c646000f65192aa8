package jobs

import (
	"context"

	"github.com/garnizeh/crackedclub/pkg/models"
)

// Queue is the storage the pool polls. The sqlite repository implements it.
type Queue interface {
	Enqueue(ctx context.Context, j *models.BackgroundJob) (int64, error)
	FetchNext(ctx context.Context) (*models.BackgroundJob, error)
	UpdateJob(ctx context.Context, j *models.BackgroundJob) error
	MoveToDeadLetter(ctx context.Context, j *models.BackgroundJob) error
	RequeueRunning(ctx context.Context) (int64, error)
}
