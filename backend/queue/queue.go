package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// Producer interface provides the Publish method to publish messages to RabbitMQ.
type Producer interface {
	Publish(body []byte) error
}

// Consumer interface provides the Consume method to consume messages from RabbitMQ.
// Consume starts handling the message stream and returns it.
type Consumer interface {
	Consume(ctx context.Context) (<-chan amqp.Delivery, error)
}

// ProducerFactory instantiates a Producer bound to a declared queue.
type ProducerFactory interface {
	CreateProducer(conn *amqp.Connection, ch *amqp.Channel, queue *amqp.Queue) (Producer, error)
}

// ConsumerFactory instantiates a Consumer bound to a declared queue.
type ConsumerFactory interface {
	CreateConsumer(conn *amqp.Connection, ch *amqp.Channel, queue *amqp.Queue) (Consumer, error)
}

// Queue holds the producers and consumers bound to one RabbitMQ queue.
// Messages published through it are spread over the producers round-robin.
type Queue struct {
	Producers []Producer
	Consumers []Consumer

	mu     sync.Mutex
	next   int
	logger *zap.Logger
}

// connect establishes a connection to RabbitMQ and opens a confirmed channel.
// Connection closure is logged so an operator can tell why consumers stopped.
func connect(url string, logger *zap.Logger) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("error connecting to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("error opening channel: %w", err)
	}

	if err = ch.Confirm(false); err != nil {
		return nil, nil, fmt.Errorf("error enabling publish confirms: %w", err)
	}

	notifyClose := make(chan *amqp.Error)
	conn.NotifyClose(notifyClose)

	go func() {
		if err := <-notifyClose; err != nil {
			logger.Error("RabbitMQ connection closed", zap.Error(err))
		}
	}()

	return conn, ch, nil
}

// InitQueue connects to RabbitMQ, declares a durable queue with the given name,
// and builds producers and consumers for it from the provided factories.
func InitQueue(url, queueName string, prodFactories []ProducerFactory, consFactories []ConsumerFactory, logger *zap.Logger) (*Queue, error) {
	conn, ch, err := connect(url, logger)
	if err != nil {
		return nil, err
	}

	queue, err := ch.QueueDeclare(
		queueName,
		true,  // Durable
		false, // Delete when unused
		false, // Exclusive
		false, // No-wait
		nil,   // Arguments
	)
	if err != nil {
		return nil, fmt.Errorf("error declaring queue: %w", err)
	}

	var producers []Producer
	var consumers []Consumer

	for _, prodFactory := range prodFactories {
		producer, err := prodFactory.CreateProducer(conn, ch, &queue)
		if err != nil {
			return nil, fmt.Errorf("error creating producer: %w", err)
		}
		producers = append(producers, producer)
	}

	for _, consFactory := range consFactories {
		consumer, err := consFactory.CreateConsumer(conn, ch, &queue)
		if err != nil {
			return nil, fmt.Errorf("error creating consumer: %w", err)
		}
		consumers = append(consumers, consumer)
	}

	return &Queue{
		Producers: producers,
		Consumers: consumers,
		logger:    logger,
	}, nil
}

// Publish sends a message body through the queue's producers round-robin.
func (q *Queue) Publish(body []byte) error {
	q.mu.Lock()
	if len(q.Producers) == 0 {
		q.mu.Unlock()
		return fmt.Errorf("no producers available")
	}
	producer := q.Producers[q.next%len(q.Producers)]
	q.next++
	q.mu.Unlock()

	return producer.Publish(body)
}

// StartConsumers starts every consumer in its own goroutine. The consumers run
// until ctx is cancelled, or until the optional runFor duration elapses. The
// returned cancel function stops them early; the WaitGroup lets callers wait
// for them to drain.
func (q *Queue) StartConsumers(ctx context.Context, runFor ...time.Duration) (context.CancelFunc, *sync.WaitGroup, error) {
	cancel := context.CancelFunc(func() {})
	if len(runFor) > 0 {
		ctx, cancel = context.WithTimeout(ctx, runFor[0])
	}

	var wg sync.WaitGroup
	for _, consumer := range q.Consumers {
		wg.Add(1)
		go func(c Consumer) {
			defer wg.Done()
			if _, err := c.Consume(ctx); err != nil {
				q.logger.Error("error starting consumer", zap.Error(err))
			}
		}(consumer)
	}

	return cancel, &wg, nil
}
