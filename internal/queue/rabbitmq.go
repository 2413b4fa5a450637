package queue

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

type RabbitMQConfig struct {
	Host      string
	Port      int
	User      string
	Password  string
	VHost     string
	Heartbeat time.Duration
}

// RabbitMQ wraps one connection and channel on a durable queue, with close
// notification and reconnect signalling.
type RabbitMQ struct {
	config        *RabbitMQConfig
	conn          *amqp.Connection
	channel       *amqp.Channel
	logger        *logrus.Logger
	queueName     string
	reconnect     chan bool
	maxRetries    int
	prefetchCount int // should match the consumer worker count

	mu            sync.RWMutex
	closed        bool
	connNotify    chan *amqp.Error
	channelNotify chan *amqp.Error
}

func NewRabbitMQ(config *RabbitMQConfig, queueName string, logger *logrus.Logger) (*RabbitMQ, error) {
	return NewRabbitMQWithPrefetch(config, queueName, 1, logger)
}

func NewRabbitMQWithPrefetch(config *RabbitMQConfig, queueName string, prefetchCount int, logger *logrus.Logger) (*RabbitMQ, error) {
	if prefetchCount <= 0 {
		prefetchCount = 1
	}
	if config.Heartbeat == 0 {
		config.Heartbeat = 10 * time.Second
	}

	mq := &RabbitMQ{
		config:        config,
		logger:        logger,
		queueName:     queueName,
		reconnect:     make(chan bool, 10),
		maxRetries:    10,
		prefetchCount: prefetchCount,
	}

	if err := mq.connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	return mq, nil
}

func (mq *RabbitMQ) connect() error {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	url := fmt.Sprintf("amqp://%s:%s@%s:%d/%s",
		mq.config.User,
		mq.config.Password,
		mq.config.Host,
		mq.config.Port,
		mq.config.VHost,
	)

	conn, err := amqp.DialConfig(url, amqp.Config{
		Heartbeat: mq.config.Heartbeat,
		Locale:    "en_US",
	})
	if err != nil {
		return fmt.Errorf("failed to dial: %w", err)
	}
	mq.conn = conn

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return fmt.Errorf("failed to open channel: %w", err)
	}
	mq.channel = ch

	if err := ch.Qos(mq.prefetchCount, 0, false); err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to set QoS: %w", err)
	}

	_, err = ch.QueueDeclare(
		mq.queueName,
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return fmt.Errorf("failed to declare queue: %w", err)
	}

	mq.connNotify = make(chan *amqp.Error, 1)
	mq.channelNotify = make(chan *amqp.Error, 1)
	mq.conn.NotifyClose(mq.connNotify)
	mq.channel.NotifyClose(mq.channelNotify)

	mq.logger.WithFields(logrus.Fields{
		"host":           mq.config.Host,
		"port":           mq.config.Port,
		"queue":          mq.queueName,
		"heartbeat":      mq.config.Heartbeat,
		"prefetch_count": mq.prefetchCount,
	}).Info("Connected to RabbitMQ")

	return nil
}

// StartConnectionWatcher watches both connection and channel close events
// until the client is closed deliberately.
func (mq *RabbitMQ) StartConnectionWatcher() {
	go func() {
		for {
			mq.mu.RLock()
			if mq.closed {
				mq.mu.RUnlock()
				mq.logger.Info("Connection watcher stopped: RabbitMQ client closed")
				return
			}
			connNotify := mq.connNotify
			channelNotify := mq.channelNotify
			mq.mu.RUnlock()

			select {
			case err, ok := <-connNotify:
				if !ok {
					mq.mu.RLock()
					closed := mq.closed
					mq.mu.RUnlock()
					if closed {
						return
					}
				}
				if err != nil {
					mq.logger.WithError(err).Error("RabbitMQ connection closed unexpectedly")
				} else {
					mq.logger.Warn("RabbitMQ connection closed")
				}
				mq.triggerReconnect()

			case err, ok := <-channelNotify:
				if !ok {
					mq.mu.RLock()
					closed := mq.closed
					mq.mu.RUnlock()
					if closed {
						return
					}
				}
				if err != nil {
					mq.logger.WithError(err).Error("RabbitMQ channel closed unexpectedly")
				} else {
					mq.logger.Warn("RabbitMQ channel closed")
				}
				mq.triggerReconnect()
			}
		}
	}()
}

func (mq *RabbitMQ) triggerReconnect() {
	select {
	case mq.reconnect <- true:
		mq.logger.Debug("Reconnect signal sent")
	default:
		mq.logger.Debug("Reconnect signal already pending")
	}
}

// Reconnect re-dials with linear backoff, up to maxRetries attempts.
func (mq *RabbitMQ) Reconnect() error {
	mq.closeConnections()

	retries := 0
	for retries < mq.maxRetries {
		mq.logger.Infof("Attempting to reconnect to RabbitMQ (attempt %d/%d)", retries+1, mq.maxRetries)

		if err := mq.connect(); err != nil {
			mq.logger.WithError(err).Error("Failed to reconnect")
			retries++
			time.Sleep(time.Duration(retries) * time.Second)
			continue
		}

		mq.logger.Info("Successfully reconnected to RabbitMQ")
		return nil
	}

	return fmt.Errorf("failed to reconnect after %d attempts", mq.maxRetries)
}

func (mq *RabbitMQ) closeConnections() {
	mq.mu.Lock()
	defer mq.mu.Unlock()

	if mq.channel != nil {
		mq.channel.Close()
		mq.channel = nil
	}
	if mq.conn != nil {
		mq.conn.Close()
		mq.conn = nil
	}
}

func (mq *RabbitMQ) Publish(ctx context.Context, body []byte) error {
	if mq.channel == nil {
		return fmt.Errorf("channel is nil")
	}

	return mq.channel.PublishWithContext(
		ctx,
		"",           // exchange
		mq.queueName, // routing key
		false,        // mandatory
		false,        // immediate
		amqp.Publishing{
			DeliveryMode: amqp.Persistent,
			ContentType:  "application/json",
			Body:         body,
			Timestamp:    time.Now(),
		},
	)
}

func (mq *RabbitMQ) Consume() (<-chan amqp.Delivery, error) {
	if mq.channel == nil {
		return nil, fmt.Errorf("channel is nil")
	}

	msgs, err := mq.channel.Consume(
		mq.queueName,
		"",    // consumer
		false, // manual ack
		false, // exclusive
		false, // no-local
		false, // no-wait
		nil,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to consume: %w", err)
	}
	return msgs, nil
}

func (mq *RabbitMQ) GetQueueStats() (messageCount, consumerCount int, err error) {
	if mq.channel == nil {
		return 0, 0, fmt.Errorf("channel is nil")
	}

	queue, err := mq.channel.QueueInspect(mq.queueName)
	if err != nil {
		return 0, 0, err
	}
	return queue.Messages, queue.Consumers, nil
}

// PurgeQueue drops every pending message. Used at startup before queued
// jobs are republished from the database, so nothing is delivered twice.
func (mq *RabbitMQ) PurgeQueue() (int, error) {
	if mq.channel == nil {
		return 0, fmt.Errorf("channel is nil")
	}

	purged, err := mq.channel.QueuePurge(mq.queueName, false)
	if err != nil {
		return 0, fmt.Errorf("failed to purge queue: %w", err)
	}
	return purged, nil
}

func (mq *RabbitMQ) Close() error {
	mq.mu.Lock()
	mq.closed = true
	mq.mu.Unlock()

	if mq.channel != nil {
		if err := mq.channel.Close(); err != nil {
			mq.logger.WithError(err).Error("Failed to close channel")
		}
	}
	if mq.conn != nil {
		if err := mq.conn.Close(); err != nil {
			mq.logger.WithError(err).Error("Failed to close connection")
		}
	}

	mq.logger.Info("RabbitMQ connection closed")
	return nil
}

func (mq *RabbitMQ) GetReconnectChan() <-chan bool {
	return mq.reconnect
}

func (mq *RabbitMQ) IsConnected() bool {
	return mq.conn != nil && !mq.conn.IsClosed()
}
