package worker

import (
	"context"
	"fmt"
	"log/slog"
)

// spawnWorkerPool spawns N goroutines draining single-item publish messages.
func (w *Worker) spawnWorkerPool(ctx context.Context) {
	w.logger.Info("Spawning worker pool",
		slog.Int("concurrency", w.concurrency),
		slog.String("worker_id", w.workerID),
	)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.workerLoop(ctx, i)
	}
}

// workerLoop is the processing loop for each pool goroutine. Each message
// triggers a drain scoped to that single item; the recorded outcome (success
// or failure) lives in the queue, so the message is ACKed either way.
func (w *Worker) workerLoop(ctx context.Context, workerNum int) {
	defer w.wg.Done()

	workerName := fmt.Sprintf("%s-%d", w.workerID, workerNum)
	w.logger.Info("Worker goroutine started",
		slog.String("worker_name", workerName),
	)

	for {
		select {
		case <-w.stopChan:
			w.logger.Info("Worker goroutine stopping - stopChan closed",
				slog.String("worker_name", workerName),
			)
			return

		case <-ctx.Done():
			w.logger.Info("Worker goroutine stopping - context canceled",
				slog.String("worker_name", workerName),
			)
			return

		case msg, ok := <-w.itemsChan:
			if !ok {
				w.logger.Info("Worker goroutine stopping - itemsChan closed",
					slog.String("worker_name", workerName),
				)
				return
			}

			w.logger.Info("Worker received publish request",
				slog.String("worker_name", workerName),
				slog.String("item_id", msg.ItemID),
				slog.Uint64("delivery_tag", msg.DeliveryTag),
			)

			_, err := w.processor.Drain(ctx, msg.ItemID)

			channel := w.rabbitClient.GetChannel()
			if channel == nil {
				w.logger.Error("Failed to get RabbitMQ channel for ACK/NACK",
					slog.String("worker_name", workerName),
					slog.String("item_id", msg.ItemID),
				)
				continue
			}

			if err != nil {
				// Store-level failure: the item was never claimed, so a
				// requeue is safe and lets a healthy invocation retry.
				w.logger.Error("Single-item drain failed",
					slog.String("worker_name", workerName),
					slog.String("item_id", msg.ItemID),
					slog.String("error", err.Error()),
				)

				if nackErr := channel.Nack(msg.DeliveryTag, false, true); nackErr != nil {
					w.logger.Error("Failed to NACK message",
						slog.String("worker_name", workerName),
						slog.String("item_id", msg.ItemID),
						slog.String("error", nackErr.Error()),
					)
				}
				continue
			}

			if ackErr := channel.Ack(msg.DeliveryTag, false); ackErr != nil {
				w.logger.Error("Failed to ACK message",
					slog.String("worker_name", workerName),
					slog.String("item_id", msg.ItemID),
					slog.String("error", ackErr.Error()),
				)
			}
		}
	}
}
