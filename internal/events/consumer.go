package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"account-service/internal/domain"
	apperrors "account-service/internal/errors"
)

// AccountLifecycle is the slice of the account service the event intake
// drives.
type AccountLifecycle interface {
	CreateDefaultAccount(customerID int64) (*domain.Account, error)
	DeleteAllByCustomer(customerID int64) error
}

// Consumer reads customer lifecycle events from a Redis stream through a
// consumer group and forwards them to the account service. Messages are
// acked once handled; handler failures that redelivery cannot fix (malformed
// payloads, validation-class errors) are logged and acked as well, everything
// else is left pending for the broker to redeliver.
type Consumer struct {
	client        *redis.Client
	stream        string
	group         string
	consumer      string
	service       AccountLifecycle
	logger        *slog.Logger
	batchSize     int64
	blockDuration time.Duration
	claimMinIdle  time.Duration
}

type ConsumerConfig struct {
	Stream        string
	Group         string
	Consumer      string
	BatchSize     int64
	BlockDuration time.Duration
	ClaimMinIdle  time.Duration
}

func NewConsumer(client *redis.Client, cfg ConsumerConfig, service AccountLifecycle, logger *slog.Logger) *Consumer {
	if cfg.Stream == "" {
		cfg.Stream = DefaultCustomerStream
	}
	if cfg.Consumer == "" {
		// The name must survive restarts so pending entries stay claimable;
		// the hostname is stable per instance. Entries stranded under a dead
		// name are swept by the startup claim.
		host, err := os.Hostname()
		if err != nil || host == "" {
			host = uuid.NewString()
		}
		cfg.Consumer = "account-service-" + host
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 10
	}
	if cfg.BlockDuration == 0 {
		cfg.BlockDuration = 5 * time.Second
	}
	if cfg.ClaimMinIdle == 0 {
		cfg.ClaimMinIdle = time.Minute
	}

	return &Consumer{
		client:        client,
		stream:        cfg.Stream,
		group:         cfg.Group,
		consumer:      cfg.Consumer,
		service:       service,
		logger:        logger,
		batchSize:     cfg.BatchSize,
		blockDuration: cfg.BlockDuration,
		claimMinIdle:  cfg.ClaimMinIdle,
	}
}

// Start blocks reading the stream until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.stream, c.group, "0").Err()
	if err != nil && err.Error() != "BUSYGROUP Consumer Group name already exists" {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	c.logger.Info("Customer event consumer started",
		"stream", c.stream, "group", c.group, "consumer", c.consumer)

	// Adopt entries left pending by consumers that never came back.
	if err := c.claimPending(ctx); err != nil && ctx.Err() == nil {
		c.logger.Error("Failed to claim pending customer events", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Customer event consumer stopping", "stream", c.stream)
			return ctx.Err()
		default:
			if err := c.readMessages(ctx); err != nil {
				if ctx.Err() != nil {
					continue
				}
				c.logger.Error("Error reading customer events", "error", err)
				time.Sleep(time.Second)
			}
		}
	}
}

// claimPending transfers group entries idle longer than claimMinIdle to this
// consumer and runs them through the normal handling path.
func (c *Consumer) claimPending(ctx context.Context) error {
	start := "0-0"
	for {
		messages, next, err := c.client.XAutoClaim(ctx, &redis.XAutoClaimArgs{
			Stream:   c.stream,
			Group:    c.group,
			Consumer: c.consumer,
			MinIdle:  c.claimMinIdle,
			Start:    start,
			Count:    c.batchSize,
		}).Result()
		if err != nil {
			return fmt.Errorf("failed to claim pending entries: %w", err)
		}

		c.handleMessages(ctx, messages)

		if next == "0-0" || len(messages) == 0 {
			return nil
		}
		start = next
	}
}

func (c *Consumer) readMessages(ctx context.Context) error {
	streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
		Group:    c.group,
		Consumer: c.consumer,
		Streams:  []string{c.stream, ">"},
		Count:    c.batchSize,
		Block:    c.blockDuration,
	}).Result()

	if err == redis.Nil {
		return nil // no messages
	}
	if err != nil {
		return fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, stream := range streams {
		c.handleMessages(ctx, stream.Messages)
	}

	return nil
}

func (c *Consumer) handleMessages(ctx context.Context, messages []redis.XMessage) {
	for _, message := range messages {
		if err := c.processMessage(message); err != nil {
			if !isTerminal(err) {
				c.logger.Error("Failed to process customer event, leaving for redelivery",
					"message_id", message.ID, "error", err)
				continue
			}
			c.logger.Warn("Dropping unprocessable customer event",
				"message_id", message.ID, "error", err)
		}

		if err := c.client.XAck(ctx, c.stream, c.group, message.ID).Err(); err != nil {
			c.logger.Error("Failed to ack customer event", "message_id", message.ID, "error", err)
		}
	}
}

func (c *Consumer) processMessage(message redis.XMessage) error {
	eventData, ok := message.Values["event"].(string)
	if !ok {
		return errInvalidMessage
	}

	var event Event
	if err := json.Unmarshal([]byte(eventData), &event); err != nil {
		return fmt.Errorf("%w: %v", errInvalidMessage, err)
	}

	return c.dispatch(event)
}

func (c *Consumer) dispatch(event Event) error {
	switch event.Type {
	case CustomerCreated:
		c.logger.Debug("Customer created event received",
			"event_id", event.ID, "customer_id", event.Data.CustomerID)
		_, err := c.service.CreateDefaultAccount(event.Data.CustomerID)
		return err
	case CustomerDeleted:
		c.logger.Debug("Customer deleted event received",
			"event_id", event.ID, "customer_id", event.Data.CustomerID)
		return c.service.DeleteAllByCustomer(event.Data.CustomerID)
	default:
		return fmt.Errorf("%w: unknown event type %q", errInvalidMessage, event.Type)
	}
}

var errInvalidMessage = errors.New("invalid event message")

// isTerminal reports whether redelivering the message could change the
// outcome. Malformed payloads and validation-class failures stay failed on
// every attempt; only infrastructure errors are worth a retry.
func isTerminal(err error) bool {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Code != apperrors.InternalError
	}
	return errors.Is(err, errInvalidMessage)
}
