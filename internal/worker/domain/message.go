package domain

import (
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cuongbtq/job-tracker/internal/api/events"
)

// Message is a decoded reconcile request together with its delivery
type Message struct {
	Request  events.ReconcileRequest
	Delivery amqp.Delivery
}
