package application

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

// Scheduler runs the periodic bill sweeps: expiring unpaid bills past their
// issuance window and marking paid bills overdue after the grace period.
type Scheduler struct {
	app  *App
	cron *cron.Cron
}

// NewScheduler creates a scheduler over the application facade.
func NewScheduler(app *App) *Scheduler {
	return &Scheduler{
		app:  app,
		cron: cron.New(),
	}
}

// Start registers the sweeps on the given cron schedules and starts the
// scheduler.
func (s *Scheduler) Start(expireSchedule, overdueSchedule string) error {
	if _, err := s.cron.AddFunc(expireSchedule, s.runExpireSweep); err != nil {
		return fmt.Errorf("failed to schedule expire sweep: %w", err)
	}
	if _, err := s.cron.AddFunc(overdueSchedule, s.runOverdueSweep); err != nil {
		return fmt.Errorf("failed to schedule overdue sweep: %w", err)
	}

	s.cron.Start()
	log.WithFields(log.Fields{
		"expireSchedule":  expireSchedule,
		"overdueSchedule": overdueSchedule,
	}).Info("Bill sweep scheduler started")
	return nil
}

// Stop stops the scheduler and waits for running sweeps to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Bill sweep scheduler stopped")
}

func (s *Scheduler) runExpireSweep() {
	count, err := s.app.ExpireBills(context.Background())
	if err != nil {
		log.WithError(err).Error("Expire sweep failed")
		return
	}
	log.WithField("count", count).Debug("Expire sweep completed")
}

func (s *Scheduler) runOverdueSweep() {
	count, err := s.app.MarkOverdueBills(context.Background())
	if err != nil {
		log.WithError(err).Error("Overdue sweep failed")
		return
	}
	log.WithField("count", count).Debug("Overdue sweep completed")
}
