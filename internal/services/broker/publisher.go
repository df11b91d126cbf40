// internal/services/broker/publisher.go
package broker

import (
	"context"

	"pdfwatch/internal/domain/events"
	"pdfwatch/pkg/messaging"
)

const (
	QueuedRoutingKey   = "print.queued"
	finishedRoutingKey = "print.finished"
)

// Bindings is the queue topology print events are routed to.
var Bindings = []messaging.Binding{
	{Queue: "print.queued", RoutingKey: QueuedRoutingKey},
	{Queue: "print.finished", RoutingKey: finishedRoutingKey + ".*"},
}

// EventPublisher is satisfied by *messaging.RabbitMQClient.
type EventPublisher interface {
	PublishEvent(ctx context.Context, exchange, routingKey string, event any) error
	Close() error
}

// Publisher sends print job lifecycle events to a topic exchange.
type Publisher struct {
	client   EventPublisher
	exchange string
}

func NewPublisher(client EventPublisher, exchange string) *Publisher {
	return &Publisher{client: client, exchange: exchange}
}

func (p *Publisher) Name() string { return "rabbitmq" }

func (p *Publisher) JobQueued(ctx context.Context, job events.PrintJob) error {
	return p.client.PublishEvent(ctx, p.exchange, QueuedRoutingKey, job)
}

func (p *Publisher) JobFinished(ctx context.Context, job events.PrintJob, result events.PrintResult) error {
	return p.client.PublishEvent(ctx, p.exchange, FinishedRoutingKey(result.Status), events.JobFinishedEvent{
		Job:    job,
		Result: result,
	})
}

func (p *Publisher) Close() error {
	return p.client.Close()
}

// FinishedRoutingKey is print.finished.<status>, e.g. print.finished.printed.
func FinishedRoutingKey(status events.PrintStatus) string {
	return finishedRoutingKey + "." + string(status)
}
