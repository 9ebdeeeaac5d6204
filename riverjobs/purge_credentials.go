package riverjobs

import (
	"context"
	"errors"
	"time"

	"github.com/riverqueue/river"

	"github.com/open-rails/coursekit/core"
	"github.com/open-rails/coursekit/logging"
)

type PurgeCredentialsArgs struct {
	// TokenRetentionDays keeps spent auth tokens around so a stale link
	// can still be answered with "already used" instead of "not found".
	TokenRetentionDays int `json:"token_retention_days,omitempty"`
	BatchSize          int `json:"batch_size,omitempty"`
}

func (PurgeCredentialsArgs) Kind() string { return "coursekit_purge_credentials" }

func (args PurgeCredentialsArgs) InsertOpts() river.InsertOpts {
	return river.InsertOpts{
		Queue: river.QueueDefault,
		UniqueOpts: river.UniqueOpts{
			ByArgs:   true,
			ByPeriod: time.Hour,
			ByQueue:  true,
		},
	}
}

// PurgeCredentialsWorker deletes expired sessions and spent or expired
// one-time tokens. Expired rows are already rejected at resolve time;
// this keeps the tables from growing without bound.
type PurgeCredentialsWorker struct {
	river.WorkerDefaults[PurgeCredentialsArgs]
	svc *core.Service
}

func NewPurgeCredentialsWorker(svc *core.Service) *PurgeCredentialsWorker {
	return &PurgeCredentialsWorker{svc: svc}
}

func (w *PurgeCredentialsWorker) Timeout(*river.Job[PurgeCredentialsArgs]) time.Duration {
	return 10 * time.Minute
}

func (w *PurgeCredentialsWorker) Work(ctx context.Context, job *river.Job[PurgeCredentialsArgs]) error {
	if w == nil || w.svc == nil {
		return errors.New("coursekit purge: service not configured")
	}
	retention := job.Args.TokenRetentionDays
	if retention <= 0 {
		retention = 30
	}
	batch := job.Args.BatchSize
	if batch <= 0 {
		batch = 500
	}

	sessions, err := w.svc.PurgeExpiredSessions(ctx, time.Now(), batch)
	if err != nil {
		return err
	}
	tokens, err := w.svc.PurgeSpentAuthTokens(ctx, time.Now().AddDate(0, 0, -retention), batch)
	if err != nil {
		return err
	}
	if sessions > 0 || tokens > 0 {
		logger := logging.Get()
		logger.Info().
			Int64("sessions", sessions).
			Int64("auth_tokens", tokens).
			Msg("purged expired credentials")
	}
	return nil
}
