package riverjobs

import (
	"fmt"

	"github.com/riverqueue/river"
	"github.com/robfig/cron/v3"

	"github.com/open-rails/coursekit/core"
)

// RegisterPurgeCredentialsWorker adds the purge worker to a River
// workers registry.
func RegisterPurgeCredentialsWorker(ws *river.Workers, svc *core.Service) {
	river.AddWorker(ws, NewPurgeCredentialsWorker(svc))
}

// AddPurgeCredentialsPeriodicJob enqueues the purge job on a cron
// schedule, e.g. "0 * * * *" for hourly.
func AddPurgeCredentialsPeriodicJob[T any](client *river.Client[T], cronSpec string, args PurgeCredentialsArgs, runOnStart bool) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	schedule, err := parser.Parse(cronSpec)
	if err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", cronSpec, err)
	}
	opts := args.InsertOpts()
	_ = client.PeriodicJobs().Add(
		river.NewPeriodicJob(
			schedule,
			func() (river.JobArgs, *river.InsertOpts) { return args, &opts },
			&river.PeriodicJobOpts{RunOnStart: runOnStart},
		),
	)
	return nil
}
