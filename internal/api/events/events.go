// Package events publishes domain messages to the message broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/cuongbtq/job-tracker/internal/api/domain"
	"github.com/cuongbtq/job-tracker/internal/api/storage"
	"github.com/cuongbtq/job-tracker/shared/rabbitmq"
)

// Routing keys
const (
	KeyJobEventCreated = "job_event.created"
	KeyStatusReconcile = "status.reconcile"
	KeyProviderChanged = "provider.changed"
)

// JobEventCreated announces a stored lifecycle event
type JobEventCreated struct {
	Provider  storage.Name     `json:"provider"`
	OwnerID   string           `json:"ownerId,omitempty"`
	JobID     int64            `json:"jobId"`
	EventID   int64            `json:"eventId"`
	EventType domain.EventType `json:"eventType"`
}

// ReconcileRequest asks the worker to recompute a job's status from its events
type ReconcileRequest struct {
	Provider storage.Name `json:"provider"`
	OwnerID  string       `json:"ownerId,omitempty"`
	JobID    int64        `json:"jobId"`
	Reason   string       `json:"reason,omitempty"`
}

// Validate rejects requests the worker cannot act on
func (r ReconcileRequest) Validate() error {
	if _, err := storage.ParseName(string(r.Provider)); err != nil {
		return err
	}
	if r.JobID <= 0 {
		return fmt.Errorf("%w: jobId must be positive", domain.ErrInvalidInput)
	}
	return nil
}

// ProviderChanged announces a storage provider switch of the session
type ProviderChanged struct {
	From          storage.Name `json:"from"`
	To            storage.Name `json:"to"`
	Authenticated bool         `json:"authenticated"`
	Reason        string       `json:"reason"`
}

// Publisher sends a payload under a routing key
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload any) error
}

type sender interface {
	PublishWithRetry(ctx context.Context, msg rabbitmq.Message) error
}

// RabbitPublisher encodes payloads as JSON and sends them through the broker client
type RabbitPublisher struct {
	client sender
	newID  func() string
}

func NewRabbitPublisher(client *rabbitmq.Client) *RabbitPublisher {
	return newRabbitPublisher(client)
}

func newRabbitPublisher(client sender) *RabbitPublisher {
	return &RabbitPublisher{client: client, newID: uuid.NewString}
}

func (p *RabbitPublisher) Publish(ctx context.Context, routingKey string, payload any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s message: %w", routingKey, err)
	}
	return p.client.PublishWithRetry(ctx, rabbitmq.Message{
		RoutingKey:  routingKey,
		MessageID:   p.newID(),
		ContentType: "application/json",
		Body:        body,
	})
}

// NopPublisher drops every message, used when the broker is disabled
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, string, any) error { return nil }

const notifyTimeout = 5 * time.Second

// Notifier turns failed status writes into reconciliation requests
type Notifier struct {
	publisher Publisher
	logger    *slog.Logger
}

var _ storage.StatusFailureNotifier = (*Notifier)(nil)

func NewNotifier(publisher Publisher, logger *slog.Logger) *Notifier {
	return &Notifier{publisher: publisher, logger: logger}
}

func (n *Notifier) StatusWriteFailed(ctx context.Context, f storage.StatusFailure) {
	// the request may already be answered, the message should still go out
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), notifyTimeout)
	defer cancel()

	err := n.publisher.Publish(ctx, KeyStatusReconcile, ReconcileRequest{
		Provider: f.Provider,
		OwnerID:  f.OwnerID,
		JobID:    f.JobID,
		Reason:   "status write failed",
	})
	if err != nil {
		n.logger.Error("Failed to request status reconciliation",
			slog.Int64("job_id", f.JobID),
			slog.String("provider", string(f.Provider)),
			slog.Any("error", err),
		)
	}
}
