// services/scheduler.go
package services

import (
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartSweeps runs the autonomous timers: ready timeouts, per-turn deadlines
// and liveness grace. Sessions breach these without any further client input.
func (s *SessionService) StartSweeps() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	// Every 5 seconds: expire deadlines
	_, _ = sched.NewJob(
		gocron.DurationJob(5*time.Second),
		gocron.NewTask(func() {
			now := time.Now()
			s.SweepReadyTimeouts(now)
			s.SweepTurnTimeouts(now)
			s.SweepLiveness(now)
		}),
	)

	log.Println("✅ Session sweep scheduler started (5s interval)")
}
