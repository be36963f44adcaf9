// Package cleanup purges signups that never verified their email.
package cleanup

import (
	"context"
	"fmt"
	"time"

	"closer-backend/internal/metrics"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Purger deletes unverified users created before cutoff
type Purger interface {
	PurgeUnverified(ctx context.Context, cutoff time.Time) (int64, error)
}

// Job removes unverified accounts older than TTL. Running it twice is harmless.
type Job struct {
	users   Purger
	TTL     time.Duration
	metrics metrics.Recorder
	now     func() time.Time
}

// NewJob creates a cleanup job
func NewJob(users Purger, ttl time.Duration, rec metrics.Recorder) *Job {
	if rec == nil {
		rec = metrics.Noop{}
	}
	return &Job{users: users, TTL: ttl, metrics: rec, now: time.Now}
}

// Run performs one purge
func (j *Job) Run(ctx context.Context) error {
	start := j.now()
	cutoff := start.Add(-j.TTL)

	deleted, err := j.users.PurgeUnverified(ctx, cutoff)
	if err != nil {
		log.Error().Err(err).Dur("ttl", j.TTL).Msg("Unverified account cleanup failed")
		return fmt.Errorf("failed to purge unverified accounts: %w", err)
	}

	j.metrics.RecordUnverifiedPurged(deleted)
	log.Info().
		Int64("deleted_count", deleted).
		Time("cutoff", cutoff).
		Dur("duration", j.now().Sub(start)).
		Msg("Unverified account cleanup finished")
	return nil
}

// Schedule runs the job on the given cron spec until the returned scheduler is stopped
func Schedule(ctx context.Context, job *Job, spec string) (*cron.Cron, error) {
	c := cron.New()
	_, err := c.AddFunc(spec, func() {
		_ = job.Run(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("invalid cleanup schedule %q: %w", spec, err)
	}
	c.Start()
	return c, nil
}
