package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/savepoint/savepoint/backend/server/notifications/email"
	cache "github.com/savepoint/savepoint/backend/storage/cache"
	"github.com/savepoint/savepoint/lib/metrics"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// ReminderKind selects which email template a reminder message renders.
type ReminderKind string

const (
	KindConfirmation  ReminderKind = "confirmation"
	KindStreakWarning ReminderKind = "streak_warning"
	KindHabitReminder ReminderKind = "habit_reminder"
)

// dedupeTTL bounds how long processed-message markers live in the cache.
// Redeliveries beyond this window would re-send, which is acceptable for
// notification email.
const dedupeTTL = 48 * time.Hour

// ReminderMessage is the wire format of the reminder queue. One message maps to
// one outbound email; Id makes processing idempotent across redeliveries.
type ReminderMessage struct {
	Id         string       `json:"id"`
	Kind       ReminderKind `json:"kind"`
	To         string       `json:"to"`
	Username   string       `json:"username,omitempty"`
	Token      string       `json:"token,omitempty"`
	HabitTitle string       `json:"habit_title,omitempty"`
	Streak     int          `json:"streak,omitempty"`
}

// NewConfirmation builds a confirmation-token reminder for a new user.
func NewConfirmation(to, token string) *ReminderMessage {
	return &ReminderMessage{Id: uuid.NewString(), Kind: KindConfirmation, To: to, Token: token}
}

// NewStreakWarning builds a streak-at-risk warning.
func NewStreakWarning(to, username string, streak int) *ReminderMessage {
	return &ReminderMessage{Id: uuid.NewString(), Kind: KindStreakWarning, To: to, Username: username, Streak: streak}
}

// NewHabitReminder builds a nudge about an unfinished habit.
func NewHabitReminder(to, username, habitTitle string) *ReminderMessage {
	return &ReminderMessage{Id: uuid.NewString(), Kind: KindHabitReminder, To: to, Username: username, HabitTitle: habitTitle}
}

// ReminderProducerFactory creates ReminderProducer instances.
type ReminderProducerFactory struct{}

// ReminderConsumerFactory creates ReminderConsumer instances sharing one dedupe
// cache. A nil Cache falls back to a process-local in-memory cache, which still
// dedupes redeliveries within this process.
type ReminderConsumerFactory struct {
	Cache  cache.CacheInterface
	Logger *zap.Logger
}

// ReminderProducer publishes reminder messages onto the AMQP queue.
type ReminderProducer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   *amqp.Queue
}

// ReminderConsumer reads reminder messages off the AMQP queue, skips the ones
// already processed according to the dedupe cache, and sends the rest as email.
type ReminderConsumer struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   *amqp.Queue
	cache   cache.CacheInterface
	logger  *zap.Logger
}

func (f *ReminderProducerFactory) CreateProducer(conn *amqp.Connection, ch *amqp.Channel, queue *amqp.Queue) (Producer, error) {
	return &ReminderProducer{conn: conn, channel: ch, queue: queue}, nil
}

func (f *ReminderConsumerFactory) CreateConsumer(conn *amqp.Connection, ch *amqp.Channel, queue *amqp.Queue) (Consumer, error) {
	dedupe := f.Cache
	if dedupe == nil {
		dedupe = cache.NewMemoryCache()
	}
	return &ReminderConsumer{conn: conn, channel: ch, queue: queue, cache: dedupe, logger: f.Logger}, nil
}

func (rp *ReminderProducer) Publish(body []byte) error {
	err := rp.channel.Publish(
		"",            // exchange
		rp.queue.Name, // routing key
		false,         // mandatory
		false,         // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		})
	if err != nil {
		return fmt.Errorf("failed to publish a message: %w", err)
	}
	return nil
}

// Consume sets up the AMQP consumer and launches a worker goroutine that
// handles deliveries until ctx is cancelled. Malformed messages and transient
// failures are nacked for redelivery; the dedupe cache keeps a redelivered
// message from producing a second email.
func (rc *ReminderConsumer) Consume(ctx context.Context) (<-chan amqp.Delivery, error) {
	msgs, err := rc.channel.Consume(
		rc.queue.Name,
		"",
		false,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return nil, err
	}

	go func() {
		for {
			select {
			case d, ok := <-msgs:
				if !ok {
					return
				}
				rc.handle(ctx, d)
			case <-ctx.Done():
				return
			}
		}
	}()

	return msgs, nil
}

func (rc *ReminderConsumer) handle(ctx context.Context, d amqp.Delivery) {
	message := &ReminderMessage{}
	if err := json.Unmarshal(d.Body, message); err != nil {
		rc.logger.Warn("failed to unmarshal reminder message", zap.Error(err))
		d.Nack(false, true)
		return
	}

	var processed bool
	err := rc.cache.Get(ctx, "reminder_"+message.Id, &processed)
	if err != nil && !errors.Is(err, cache.ErrCacheMiss) {
		rc.logger.Warn("error checking dedupe cache", zap.Error(err))
		d.Nack(false, true)
		return
	}
	if processed {
		d.Ack(false)
		return
	}

	if err := Deliver(message); err != nil {
		rc.logger.Warn("failed to send reminder email",
			zap.String("kind", string(message.Kind)), zap.Error(err))
		d.Nack(false, true)
		return
	}

	d.Ack(false)
	if err := rc.cache.Set(ctx, "reminder_"+message.Id, true, dedupeTTL); err != nil {
		rc.logger.Warn("failed to mark reminder as processed", zap.Error(err))
	}
}

// Deliver renders and sends the email for a reminder message.
func Deliver(message *ReminderMessage) error {
	switch message.Kind {
	case KindConfirmation:
		return email.SendConfirmation(message.To, message.Token)
	case KindStreakWarning:
		return email.SendStreakWarning(message.To, message.Username, message.Streak)
	case KindHabitReminder:
		return email.SendHabitReminder(message.To, message.Username, message.HabitTitle)
	}
	return fmt.Errorf("unknown reminder kind %q", message.Kind)
}

// BuildReminderQueue initializes the reminder queue with the given number of
// producers and consumers, all sharing one dedupe cache. A nil dedupe gets a
// shared in-memory cache so consumers still dedupe within this process.
func BuildReminderQueue(rabbitMQURL string, numProducers, numConsumers int, dedupe cache.CacheInterface, logger *zap.Logger) (*Queue, error) {
	if dedupe == nil {
		dedupe = cache.NewMemoryCache()
	}

	prodFactories := make([]ProducerFactory, numProducers)
	for i := 0; i < numProducers; i++ {
		prodFactories[i] = &ReminderProducerFactory{}
	}

	consFactories := make([]ConsumerFactory, numConsumers)
	for i := 0; i < numConsumers; i++ {
		consFactories[i] = &ReminderConsumerFactory{Cache: dedupe, Logger: logger}
	}

	return InitQueue(rabbitMQURL, "reminderQueue", prodFactories, consFactories, logger)
}

// ProcessReminder serializes a reminder message and publishes it onto the queue.
func ProcessReminder(message *ReminderMessage, q *Queue) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("failed to marshal reminder message: %w", err)
	}
	if err := q.Publish(body); err != nil {
		return fmt.Errorf("failed to publish reminder message: %w", err)
	}
	metrics.RemindersEnqueuedTotal.Inc()
	return nil
}
