package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cuongbtq/job-tracker/internal/api/events"
	"github.com/cuongbtq/job-tracker/internal/worker/domain"
)

// setupConsumer starts consuming with manual acks and the configured prefetch
func (w *Worker) setupConsumer() (<-chan amqp.Delivery, error) {
	deliveries, err := w.consumer.Consume(w.workerID, w.prefetchCount)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	w.logger.Info("RabbitMQ consumer started",
		slog.String("consumer_tag", w.workerID),
		slog.Int("prefetch_count", w.prefetchCount),
	)
	return deliveries, nil
}

// startMessageDispatcher decodes deliveries and hands them to the worker pool
func (w *Worker) startMessageDispatcher(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			w.logger.Info("Message dispatcher stopped - context canceled")
			return

		case <-w.stopChan:
			w.logger.Info("Message dispatcher stopped - stop requested")
			return

		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Warn("RabbitMQ delivery channel closed")
				return
			}

			req, err := decodeRequest(delivery)
			if err != nil {
				w.logger.Error("Dropping malformed message",
					slog.String("routing_key", delivery.RoutingKey),
					slog.String("body", string(delivery.Body)),
					slog.Any("error", err),
				)
				// malformed messages are not requeued
				if nackErr := delivery.Nack(false, false); nackErr != nil {
					w.logger.Error("Failed to NACK malformed message", slog.Any("error", nackErr))
				}
				continue
			}

			select {
			case w.jobsChan <- &domain.Message{Request: req, Delivery: delivery}:
				w.logger.Debug("Message dispatched to worker pool",
					slog.Int64("job_id", req.JobID),
					slog.Uint64("delivery_tag", delivery.DeliveryTag),
				)
			case <-ctx.Done():
				w.requeueOnShutdown(delivery)
				return
			case <-w.stopChan:
				w.requeueOnShutdown(delivery)
				return
			}
		}
	}
}

func (w *Worker) requeueOnShutdown(delivery amqp.Delivery) {
	w.logger.Info("Message dispatcher stopped while dispatching")
	if err := delivery.Nack(false, true); err != nil {
		w.logger.Error("Failed to NACK message on shutdown", slog.Any("error", err))
	}
}

func decodeRequest(delivery amqp.Delivery) (events.ReconcileRequest, error) {
	var req events.ReconcileRequest
	if err := json.Unmarshal(delivery.Body, &req); err != nil {
		return req, fmt.Errorf("%w: %v", domain.ErrInvalidMessage, err)
	}
	if err := req.Validate(); err != nil {
		return req, fmt.Errorf("%w: %v", domain.ErrInvalidMessage, err)
	}
	return req, nil
}
