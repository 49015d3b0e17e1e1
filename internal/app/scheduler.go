/**
 * @description
 * Cron scheduler running periodic differential imports.
 */
package app

import (
	"context"
	"log"

	"github.com/robfig/cron/v3"

	"github.com/cloudlens/billing-service/internal/domain"
)

// Scheduler runs differential imports on a cron schedule.
type Scheduler struct {
	cron     *cron.Cron
	service  *Service
	schedule string
}

// NewScheduler creates a scheduler for the given cron expression.
func NewScheduler(service *Service, schedule string) *Scheduler {
	c := cron.New(cron.WithChain(cron.Recover(cron.PrintfLogger(log.Default()))))
	return &Scheduler{
		cron:     c,
		service:  service,
		schedule: schedule,
	}
}

// Start registers the import job and starts the cron scheduler.
func (s *Scheduler) Start() {
	job := func() {
		run, err := s.service.RunImport(context.Background(), ImportOptions{Type: domain.ImportTypeDifferential})
		if err != nil {
			log.Printf("level=error component=scheduler msg=\"scheduled import failed\" error=\"%v\"", err)
			return
		}
		log.Printf("level=info component=scheduler msg=\"scheduled import finished\" run_id=%s bills=%d failures=%d",
			run.ID, run.BillsImported, run.Failures)
	}

	if _, err := s.cron.AddFunc(s.schedule, job); err != nil {
		log.Printf("level=error component=scheduler msg=\"failed to schedule import job\" schedule=%q error=\"%v\"", s.schedule, err)
		return
	}
	log.Printf("level=info component=scheduler msg=\"scheduled differential import\" schedule=%q", s.schedule)
	s.cron.Start()
}

// Stop gracefully stops the cron scheduler.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
