/*
scheduler.go - Weekday digest scheduler

PURPOSE:
  Publishes the daily digest to the time-off room once per weekday at the
  org's configured local hour, then prunes past days from the schedule
  ledger (timeoff.Service.RunDailyDigest).

DESIGN:
  - robfig/cron with spec "0 <DigestHour> * * 1-5" in the org's fixed zone
  - SkipIfStillRunning: a slow run never overlaps the next one
  - Reschedule swaps the entry when the settings snapshot changes

USAGE:
  scheduler := NewDigestScheduler(svc, holder, log)
  scheduler.Start()
  // ... later
  <-scheduler.Stop().Done()

SEE ALSO:
  - handlers.go: RunDigest endpoint (manual trigger)
  - timeoff/service.go: RunDailyDigest
*/
package api

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/warp/timee/config"
	"github.com/warp/timee/timeoff"
	"go.uber.org/zap"
)

// digestTimeout bounds one digest run.
const digestTimeout = 2 * time.Minute

// Digester is the part of timeoff.Service the scheduler drives.
type Digester interface {
	RunDailyDigest(ctx context.Context) (timeoff.Digest, error)
}

// DigestScheduler runs the daily digest on weekdays.
type DigestScheduler struct {
	svc Digester
	org timeoff.OrgSource
	log *zap.Logger

	mu    sync.Mutex
	cron  *cron.Cron
	entry cron.EntryID
	spec  string
}

func NewDigestScheduler(svc Digester, org timeoff.OrgSource, log *zap.Logger) *DigestScheduler {
	return &DigestScheduler{svc: svc, org: org, log: log.Named("scheduler")}
}

// DigestSpec returns the cron spec and zone of the digest for org.
func DigestSpec(org *config.OrgConfig) (string, *time.Location) {
	offset := int(org.TimezoneOffset * 3600)
	zone := time.FixedZone(fmt.Sprintf("UTC%+g", org.TimezoneOffset), offset)
	return fmt.Sprintf("0 %d * * 1-5", org.DigestHour), zone
}

// Start schedules the digest and starts the cron loop.
func (s *DigestScheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	spec, zone := DigestSpec(s.org.Get())
	cronLog := cron.PrintfLogger(zap.NewStdLog(s.log))
	s.cron = cron.New(
		cron.WithLocation(zone),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)

	id, err := s.cron.AddFunc(spec, s.RunNow)
	if err != nil {
		return fmt.Errorf("schedule digest %q: %w", spec, err)
	}
	s.entry, s.spec = id, spec
	s.cron.Start()

	s.log.Info("digest scheduled", zap.String("spec", spec), zap.String("zone", zone.String()))
	return nil
}

// Reschedule moves the digest to the hour of the current settings. The
// zone is fixed at Start.
func (s *DigestScheduler) Reschedule() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return nil
	}
	spec, _ := DigestSpec(s.org.Get())
	if spec == s.spec {
		return nil
	}

	id, err := s.cron.AddFunc(spec, s.RunNow)
	if err != nil {
		return fmt.Errorf("schedule digest %q: %w", spec, err)
	}
	s.cron.Remove(s.entry)
	s.entry, s.spec = id, spec

	s.log.Info("digest rescheduled", zap.String("spec", spec))
	return nil
}

// Stop stops scheduling; the returned context is done once a running
// digest has finished.
func (s *DigestScheduler) Stop() context.Context {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		return ctx
	}
	s.log.Info("digest scheduler stopping")
	return s.cron.Stop()
}

// Next returns the next scheduled run, or the zero time when not started.
func (s *DigestScheduler) Next() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cron == nil {
		return time.Time{}
	}
	return s.cron.Entry(s.entry).Next
}

// RunNow runs one digest immediately.
func (s *DigestScheduler) RunNow() {
	ctx, cancel := context.WithTimeout(context.Background(), digestTimeout)
	defer cancel()

	d, err := s.svc.RunDailyDigest(ctx)
	if err != nil {
		s.log.Error("digest failed", zap.Error(err))
		return
	}
	s.log.Info("digest done",
		zap.String("date", d.Date),
		zap.Int("off", len(d.Off)),
		zap.Int("wfh", len(d.WFH)),
		zap.Int("other", len(d.Other)),
	)
}
