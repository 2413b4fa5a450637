package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// JobHandler processes one dequeued vetting job.
type JobHandler func(ctx context.Context, msg *JobMessage) error

// Consumer pulls jobs off the queue and fans them out to a fixed number of
// workers. Deliveries are acked only after the handler succeeds.
type Consumer struct {
	mq            *RabbitMQ
	logger        *logrus.Logger
	handler       JobHandler
	workerPool    int
	stopChan      chan struct{}
	workerWg      sync.WaitGroup
	activeWorkers int32
	mu            sync.Mutex
	running       bool
	cancelFunc    context.CancelFunc
}

func NewConsumer(mq *RabbitMQ, handler JobHandler, workerPool int, logger *logrus.Logger) *Consumer {
	if workerPool <= 0 {
		workerPool = 1
	}

	return &Consumer{
		mq:         mq,
		logger:     logger,
		handler:    handler,
		workerPool: workerPool,
		stopChan:   make(chan struct{}, 1),
	}
}

func (c *Consumer) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.running {
		c.mu.Unlock()
		c.logger.Warn("Consumer already running, skipping start")
		return nil
	}
	c.running = true
	c.mu.Unlock()

	c.logger.Infof("Starting consumer with %d workers", c.workerPool)

	msgs, err := c.mq.Consume()
	if err != nil {
		c.mu.Lock()
		c.running = false
		c.mu.Unlock()
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	workerCtx, cancel := context.WithCancel(ctx)
	c.cancelFunc = cancel

	for i := 0; i < c.workerPool; i++ {
		c.workerWg.Add(1)
		go c.worker(workerCtx, i, msgs)
	}

	c.logger.Info("Consumer started successfully")

	c.mq.StartConnectionWatcher()
	go c.handleReconnect(ctx)

	return nil
}

func (c *Consumer) worker(ctx context.Context, id int, msgs <-chan amqp.Delivery) {
	defer c.workerWg.Done()
	atomic.AddInt32(&c.activeWorkers, 1)
	defer atomic.AddInt32(&c.activeWorkers, -1)

	c.logger.Infof("Worker %d started", id)

	for {
		select {
		case <-ctx.Done():
			c.logger.Infof("Worker %d stopped by context", id)
			return
		case <-c.stopChan:
			c.logger.Infof("Worker %d stopped by signal", id)
			return
		case msg, ok := <-msgs:
			if !ok {
				c.logger.Warnf("Worker %d: message channel closed", id)
				return
			}
			c.processMessage(ctx, id, msg)
		}
	}
}

func (c *Consumer) processMessage(ctx context.Context, workerID int, delivery amqp.Delivery) {
	startTime := time.Now()

	var msg JobMessage
	if err := json.Unmarshal(delivery.Body, &msg); err != nil {
		c.logger.WithError(err).Error("Failed to unmarshal message")
		delivery.Nack(false, false) // poison message, do not requeue
		return
	}

	c.logger.WithFields(logrus.Fields{
		"worker_id": workerID,
		"job_id":    msg.JobID,
		"domain":    msg.Domain,
	}).Info("Processing vetting job")

	if err := c.handler(ctx, &msg); err != nil {
		c.logger.WithError(err).WithFields(logrus.Fields{
			"worker_id": workerID,
			"job_id":    msg.JobID,
		}).Error("Job processing failed")

		// Failure state lives in the job row; requeueing here would loop
		// on deterministic failures.
		delivery.Nack(false, false)
		return
	}

	if err := delivery.Ack(false); err != nil {
		c.logger.WithError(err).Error("Failed to acknowledge message")
	}

	c.logger.WithFields(logrus.Fields{
		"worker_id": workerID,
		"job_id":    msg.JobID,
		"duration":  time.Since(startTime).Seconds(),
	}).Info("Job completed successfully")
}

func (c *Consumer) handleReconnect(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case _, ok := <-c.mq.GetReconnectChan():
			if !ok {
				c.logger.Info("Reconnect channel closed, stopping reconnect handler")
				return
			}

			c.logger.Warn("Connection lost, attempting to reconnect...")

			c.stopWorkers()

			if err := c.mq.Reconnect(); err != nil {
				c.logger.WithError(err).Error("Failed to reconnect, will retry on next signal")
				continue
			}

			if err := c.restart(ctx); err != nil {
				c.logger.WithError(err).Error("Failed to restart consumer")
			}
		}
	}
}

// stopWorkers cancels the workers and waits for in-flight jobs, bounded at
// 30 seconds.
func (c *Consumer) stopWorkers() {
	c.mu.Lock()
	if c.cancelFunc != nil {
		c.cancelFunc()
		c.cancelFunc = nil
	}
	c.running = false
	c.mu.Unlock()

	done := make(chan struct{})
	go func() {
		c.workerWg.Wait()
		close(done)
	}()

	select {
	case <-done:
		c.logger.Info("All workers stopped gracefully")
	case <-time.After(30 * time.Second):
		c.logger.Warn("Timeout waiting for workers to stop")
	}
}

func (c *Consumer) restart(ctx context.Context) error {
	c.mu.Lock()
	c.running = false
	c.mu.Unlock()

	return c.Start(ctx)
}

func (c *Consumer) Stop() {
	c.logger.Info("Stopping consumer...")

	c.mu.Lock()
	if c.cancelFunc != nil {
		c.cancelFunc()
	}
	c.running = false
	c.mu.Unlock()

	select {
	case c.stopChan <- struct{}{}:
	default:
	}

	c.workerWg.Wait()
	c.logger.Info("Consumer stopped")
}

func (c *Consumer) GetActiveWorkers() int {
	return int(atomic.LoadInt32(&c.activeWorkers))
}

func (c *Consumer) IsRunning() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.running
}
