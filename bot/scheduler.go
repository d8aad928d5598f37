package bot

import (
	"context"
	"log"
	"sync"
	"time"

	"punish-bot/scanner"
)

// Scheduler runs the periodic expiry sweep.
type Scheduler struct {
	bot         *Bot
	timer       *scanner.PunishmentTimer
	done        chan struct{}
	wg          sync.WaitGroup
	sweepTicker *time.Ticker
}

// NewScheduler creates a new scheduler. Expiries that happened while the bot was down
// are not reported.
func NewScheduler(bot *Bot) *Scheduler {
	return &Scheduler{
		bot:   bot,
		timer: scanner.NewPunishmentTimer(bot.Store, bot.Commands, time.Now()),
		done:  make(chan struct{}),
	}
}

// Start begins all scheduled tasks.
func (s *Scheduler) Start() {
	s.wg.Add(1)
	go s.startExpirySweep()
}

// Stop terminates all scheduled tasks gracefully.
func (s *Scheduler) Stop() {
	log.Println("Stopping scheduler...")
	close(s.done)
	s.wg.Wait()
	log.Println("Scheduler stopped.")
}

func (s *Scheduler) startExpirySweep() {
	defer s.wg.Done()
	s.sweepTicker = time.NewTicker(s.bot.GetConfig().SweepInterval)
	defer s.sweepTicker.Stop()

	for {
		select {
		case now := <-s.sweepTicker.C:
			s.sweep(now)
		case <-s.done:
			return
		}
	}
}

func (s *Scheduler) sweep(now time.Time) {
	ctx, cancel := context.WithTimeout(context.Background(), s.bot.GetConfig().SweepInterval)
	defer cancel()

	n, err := s.timer.Sweep(ctx, now)
	if err != nil {
		log.Printf("[Scheduler] Expiry sweep failed after %d notices: %v", n, err)
		return
	}
	if n > 0 {
		log.Printf("[Scheduler] Reported %d expired punishments", n)
	}
}
