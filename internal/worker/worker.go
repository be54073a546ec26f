// Package worker consumes planned batch fetch jobs from RabbitMQ and runs
// them one at a time.
package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	"github.com/dpalacios/newsdesk-be/internal/batchfetch"
	"github.com/dpalacios/newsdesk-be/shared/rabbitmq"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Config holds worker configuration
type Config struct {
	Logger       *slog.Logger
	RabbitClient *rabbitmq.Client
	Runner       *batchfetch.Runner
	ConsumerTag  string
}

// Worker is the background batch fetch executor. It consumes with a
// prefetch of one and runs deliveries on a single loop: jobs never overlap,
// matching the single-active-job invariant enforced at the trigger.
type Worker struct {
	logger       *slog.Logger
	rabbitClient *rabbitmq.Client
	runner       *batchfetch.Runner
	consumerTag  string
	wg           sync.WaitGroup
	stopChan     chan struct{}
}

// NewWorker creates a worker instance
func NewWorker(cfg *Config) *Worker {
	return &Worker{
		logger:       cfg.Logger,
		rabbitClient: cfg.RabbitClient,
		runner:       cfg.Runner,
		consumerTag:  cfg.ConsumerTag,
		stopChan:     make(chan struct{}),
	}
}

// Start begins consuming batch fetch jobs until the context is canceled
func (w *Worker) Start(ctx context.Context) error {
	channel := w.rabbitClient.GetChannel()
	if channel == nil {
		return fmt.Errorf("rabbitmq channel is nil")
	}

	// One unacked delivery at a time: the queue itself serializes jobs.
	if err := channel.Qos(1, 0, false); err != nil {
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	deliveries, err := w.rabbitClient.Consume(w.consumerTag)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	w.logger.Info("Batch fetch worker started",
		slog.String("consumer_tag", w.consumerTag),
	)

	w.wg.Add(1)
	go w.consumeLoop(ctx, deliveries)

	<-ctx.Done()
	w.logger.Info("Worker context canceled, stopping...")

	return nil
}

// Stop waits for the in-flight job to finish
func (w *Worker) Stop() {
	w.logger.Info("Stopping worker...")
	close(w.stopChan)
	w.wg.Wait()
	w.logger.Info("Worker stopped")
}

func (w *Worker) consumeLoop(ctx context.Context, deliveries <-chan amqp.Delivery) {
	defer w.wg.Done()

	for {
		select {
		case <-w.stopChan:
			w.logger.Info("Consume loop stopping - stopChan closed")
			return

		case <-ctx.Done():
			w.logger.Info("Consume loop stopping - context canceled")
			return

		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Warn("RabbitMQ delivery channel closed")
				return
			}

			w.handleDelivery(ctx, delivery)
		}
	}
}

// handleDelivery runs one job message to completion. Malformed messages
// are dropped (nack without requeue); execution failures are recorded on
// the job row by the runner, so the message is acked either way. A later
// run, not a redelivery, is the retry mechanism.
func (w *Worker) handleDelivery(ctx context.Context, delivery amqp.Delivery) {
	var msg batchfetch.JobMessage
	if err := json.Unmarshal(delivery.Body, &msg); err != nil {
		w.logger.Error("Failed to parse job message",
			slog.String("error", err.Error()),
			slog.String("body", string(delivery.Body)),
		)
		w.nack(delivery)
		return
	}

	if _, err := uuid.Parse(msg.JobID); err != nil {
		w.logger.Error("Invalid job_id in message",
			slog.String("job_id", msg.JobID),
			slog.String("error", err.Error()),
		)
		w.nack(delivery)
		return
	}

	w.logger.Info("Executing batch fetch job",
		slog.String("job_id", msg.JobID),
		slog.Uint64("delivery_tag", delivery.DeliveryTag),
	)

	if err := w.runner.Execute(ctx, msg.JobID); err != nil {
		w.logger.Error("Batch fetch job failed",
			slog.String("job_id", msg.JobID),
			slog.String("error", err.Error()),
		)
	}

	if err := delivery.Ack(false); err != nil {
		w.logger.Error("Failed to ACK job message",
			slog.String("job_id", msg.JobID),
			slog.String("error", err.Error()),
		)
	}
}

func (w *Worker) nack(delivery amqp.Delivery) {
	if err := delivery.Nack(false, false); err != nil {
		w.logger.Error("Failed to NACK message",
			slog.String("error", err.Error()),
		)
	}
}
