package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "github.com/powdertracker/powdertracker/internal/worker"

// Subscriber feeds job messages from a Pub/Sub subscription to a Dispatcher.
type Subscriber struct {
	client       *pubsub.Client
	subscriber   *pubsub.Subscriber
	subscription string
	dispatcher   *Dispatcher
	logger       zerolog.Logger
}

// PubSubConfig holds configuration for the Pub/Sub subscriber.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	Dispatcher       *Dispatcher
	Logger           zerolog.Logger
}

// NewSubscriber connects to Pub/Sub and prepares the subscription.
func NewSubscriber(ctx context.Context, cfg PubSubConfig) (*Subscriber, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	sub := client.Subscriber(cfg.SubscriptionName)

	// A refresh fans out to every provider; keep few in flight.
	sub.ReceiveSettings.MaxOutstandingMessages = 2
	sub.ReceiveSettings.MaxExtension = 10 * time.Minute

	return &Subscriber{
		client:       client,
		subscriber:   sub,
		subscription: cfg.SubscriptionName,
		dispatcher:   cfg.Dispatcher,
		logger:       cfg.Logger,
	}, nil
}

// Start receives messages until ctx is done.
func (s *Subscriber) Start(ctx context.Context) error {
	s.logger.Info().
		Str("subscription", s.subscription).
		Msg("starting pubsub subscriber")

	return s.subscriber.Receive(ctx, func(ctx context.Context, msg *pubsub.Message) {
		s.dispatcher.handle(ctx, delivery{
			id:          msg.ID,
			data:        msg.Data,
			attributes:  msg.Attributes,
			publishedAt: msg.PublishTime,
			attempt:     msg.DeliveryAttempt,
			settler:     msg,
		})
	})
}

// Close closes the Pub/Sub client.
func (s *Subscriber) Close() error {
	return s.client.Close()
}

// settler is the acknowledgement half of a Pub/Sub message.
type settler interface {
	Ack()
	Nack()
}

type delivery struct {
	id          string
	data        []byte
	attributes  map[string]string
	publishedAt time.Time
	attempt     *int
	settler     settler
}

// handle runs one delivery under a consumer span linked to the publisher's
// trace context, then acks or nacks it.
func (d *Dispatcher) handle(ctx context.Context, m delivery) {
	start := time.Now()

	ctx = otel.GetTextMapPropagator().Extract(ctx, propagation.MapCarrier(m.attributes))
	ctx, span := otel.Tracer(tracerName).Start(ctx, "worker.job",
		trace.WithSpanKind(trace.SpanKindConsumer),
		trace.WithAttributes(
			attribute.String("messaging.system", "gcp_pubsub"),
			attribute.String("messaging.message.id", m.id),
		),
	)
	defer span.End()

	logger := d.logger.With().
		Str("message_id", m.id).
		Time("published_at", m.publishedAt).
		Logger()
	if m.attempt != nil {
		logger = logger.With().Int("delivery_attempt", *m.attempt).Logger()
	}
	logger.Debug().Msg("received job message")

	jobType, err := d.Dispatch(ctx, m.data)
	span.SetAttributes(attribute.String("worker.job_type", jobType))

	switch {
	case err == nil:
		logger.Info().
			Str("job_type", jobType).
			Dur("duration", time.Since(start)).
			Msg("job completed")
		m.settler.Ack()
	case permanent(err):
		logger.Warn().Err(err).Str("job_type", jobType).Msg("dropping job message")
		m.settler.Ack()
	default:
		span.RecordError(err)
		span.SetStatus(codes.Error, "job failed")
		logger.Error().Err(err).Str("job_type", jobType).Msg("job failed, will be redelivered")
		m.settler.Nack()
	}
}

// permanent reports whether redelivering the message could never help.
func permanent(err error) bool {
	return errors.Is(err, ErrMalformedJob) || errors.Is(err, ErrUnknownJobType)
}
