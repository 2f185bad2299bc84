package app

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/studyplan/core/model"
	"github.com/kilianp07/studyplan/infra/progress"
)

// NextRun returns the first instant strictly after now whose local wall
// clock reads at.
func NextRun(now time.Time, at model.Clock) time.Time {
	y, m, d := now.Date()
	next := time.Date(y, m, d, int(at)/60, int(at)%60, 0, 0, now.Location())
	if !next.After(now) {
		next = time.Date(y, m, d+1, int(at)/60, int(at)%60, 0, 0, now.Location())
	}
	return next
}

// RunDailyCarryover runs a carryover pass for every student each day at the
// given local time, with the current day as cutoff, until ctx is canceled.
func (s *Service) RunDailyCarryover(ctx context.Context, at model.Clock) {
	for {
		wait := time.Until(NextRun(time.Now(), at))
		s.log.Infof("next carryover in %s", wait.Round(time.Second))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case now := <-timer.C:
			if _, err := s.Carryover(ctx, "", model.DateOf(now)); err != nil {
				s.log.Errorf("scheduled carryover: %v", err)
			}
		}
	}
}

// ListenProgress records plan progress published over MQTT until ctx is
// canceled. It returns immediately when no progress topic is configured.
func (s *Service) ListenProgress(ctx context.Context) error {
	if !s.cfg.Progress.Enabled() {
		return nil
	}
	l, err := progress.NewListener(s.cfg.MQTT, s.cfg.Progress, s.store, prometheus.DefaultRegisterer)
	if err != nil {
		return err
	}
	return l.Start(ctx)
}
