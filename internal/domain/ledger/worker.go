package ledger

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Worker drives scheduled vesting transitions
type Worker struct {
	svc      *Service
	interval time.Duration
	stopCh   chan struct{}
}

// NewWorker creates a new vesting sweep worker
func NewWorker(svc *Service, interval time.Duration) *Worker {
	if interval == 0 {
		interval = 1 * time.Hour
	}
	return &Worker{
		svc:      svc,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the background worker
func (w *Worker) Start() {
	log.Info().Dur("interval", w.interval).Msg("Starting vesting sweep worker...")
	go w.loop()
}

// Stop gracefully stops the background worker
func (w *Worker) Stop() {
	log.Info().Msg("Stopping vesting sweep worker...")
	close(w.stopCh)
}

func (w *Worker) loop() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	// Run once immediately on startup
	w.sweep()

	for {
		select {
		case <-ticker.C:
			w.sweep()
		case <-w.stopCh:
			return
		}
	}
}

func (w *Worker) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	log.Debug().Msg("Starting vesting sweep...")

	count, err := w.svc.Sweep(ctx)
	if err != nil {
		log.Error().Err(err).Msg("Vesting sweep failed")
		return
	}
	if count > 0 {
		log.Info().Int("transitions", count).Msg("Advanced due vesting transitions")
	}

	log.Debug().Msg("Finished vesting sweep")
}
