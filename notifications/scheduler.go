package notifications

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Scheduler runs the broadcast on a cron schedule. A run still in progress
// when the next one is due makes the next one skip.
type Scheduler struct {
	cron *cron.Cron
}

func NewScheduler(spec, timezone string, b *Broadcaster) (*Scheduler, error) {
	loc, err := time.LoadLocation(timezone)
	if err != nil {
		return nil, errors.Wrapf(err, "load timezone %q", timezone)
	}
	logger := cron.PrintfLogger(log.StandardLogger())
	c := cron.New(
		cron.WithLocation(loc),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)
	_, err = c.AddFunc(spec, func() {
		if _, err := b.Run(context.Background()); err != nil {
			log.WithError(err).Error("Scheduled broadcast failed")
		}
	})
	if err != nil {
		return nil, errors.Wrapf(err, "parse schedule %q", spec)
	}
	return &Scheduler{cron: c}, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Next reports when the broadcast runs next.
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

// Stop prevents new runs and waits for a running one to finish or ctx to end.
func (s *Scheduler) Stop(ctx context.Context) {
	select {
	case <-s.cron.Stop().Done():
	case <-ctx.Done():
	}
}
