// Package worker hosts the pipeline's scheduled loops (scan, drain, sweep)
// and the RabbitMQ consumer for on-demand single-item publishes.
package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/crosscasthq/crosscast-be/internal/domain"
	"github.com/crosscasthq/crosscast-be/internal/pipeline"
	"github.com/crosscasthq/crosscast-be/shared/rabbitmq"
)

// Config holds worker configuration
type Config struct {
	Logger        *slog.Logger
	RabbitClient  *rabbitmq.Client
	Scanner       *pipeline.Scanner
	Processor     *pipeline.Processor
	Sweeper       *pipeline.Sweeper
	WorkerID      string
	Concurrency   int
	PrefetchCount int
	ScanInterval  time.Duration
	DrainInterval time.Duration
	SweepInterval time.Duration
}

// Worker runs the pipeline's background loops
type Worker struct {
	logger        *slog.Logger
	rabbitClient  *rabbitmq.Client
	scanner       *pipeline.Scanner
	processor     *pipeline.Processor
	sweeper       *pipeline.Sweeper
	workerID      string
	concurrency   int
	prefetchCount int
	scanInterval  time.Duration
	drainInterval time.Duration
	sweepInterval time.Duration
	itemsChan     chan *domain.ItemMessage
	wg            sync.WaitGroup
	stopChan      chan struct{}
	stopOnce      sync.Once
}

// NewWorker creates a new worker instance
func NewWorker(cfg *Config) *Worker {
	return &Worker{
		logger:        cfg.Logger,
		rabbitClient:  cfg.RabbitClient,
		scanner:       cfg.Scanner,
		processor:     cfg.Processor,
		sweeper:       cfg.Sweeper,
		workerID:      cfg.WorkerID,
		concurrency:   cfg.Concurrency,
		prefetchCount: cfg.PrefetchCount,
		scanInterval:  cfg.ScanInterval,
		drainInterval: cfg.DrainInterval,
		sweepInterval: cfg.SweepInterval,
		itemsChan:     make(chan *domain.ItemMessage),
		stopChan:      make(chan struct{}),
	}
}

// Start begins the scheduled loops and the on-demand consumer. Blocks until
// the context is canceled or Stop is called.
func (w *Worker) Start(ctx context.Context) error {
	w.logger.Info("Starting worker",
		slog.String("worker_id", w.workerID),
		slog.Int("concurrency", w.concurrency),
		slog.Duration("scan_interval", w.scanInterval),
		slog.Duration("drain_interval", w.drainInterval),
		slog.Duration("sweep_interval", w.sweepInterval),
	)

	w.spawnWorkerPool(ctx)

	deliveries, err := w.setupConsumer()
	if err != nil {
		return err
	}

	go w.startMessageDispatcher(ctx, deliveries)

	w.runSchedule(ctx)
	return nil
}

// runSchedule drives the scan, drain, and sweep tickers until shutdown.
func (w *Worker) runSchedule(ctx context.Context) {
	scanTicker := time.NewTicker(w.scanInterval)
	defer scanTicker.Stop()

	drainTicker := time.NewTicker(w.drainInterval)
	defer drainTicker.Stop()

	sweepTicker := time.NewTicker(w.sweepInterval)
	defer sweepTicker.Stop()

	for {
		select {
		case <-w.stopChan:
			w.logger.Info("Schedule stopping - stopChan closed")
			return

		case <-ctx.Done():
			w.logger.Info("Schedule stopping - context canceled")
			return

		case <-scanTicker.C:
			report, err := w.scanner.Run(ctx)
			if err != nil {
				w.logger.Error("Scheduled scan failed",
					slog.String("error", err.Error()),
				)
				continue
			}
			w.logger.Info("Scheduled scan complete",
				slog.Int("workflows", report.ProcessedWorkflowCount),
			)

		case <-drainTicker.C:
			report, err := w.processor.Drain(ctx, "")
			if err != nil {
				w.logger.Error("Scheduled drain failed",
					slog.String("error", err.Error()),
				)
				continue
			}
			if report.ProcessedCount > 0 {
				w.logger.Info("Scheduled drain complete",
					slog.Int("processed", report.ProcessedCount),
				)
			}

		case <-sweepTicker.C:
			if _, err := w.sweeper.Run(ctx); err != nil {
				w.logger.Error("Scheduled sweep failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// Stop gracefully stops the worker
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	w.stopOnce.Do(func() {
		close(w.stopChan)
	})
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}
