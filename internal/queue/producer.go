package queue

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/sirupsen/logrus"
)

// JobMessage is one queued vetting job.
type JobMessage struct {
	JobID    string `json:"job_id"`
	Domain   string `json:"domain"`
	InputURL string `json:"input_url"`
	OrgName  string `json:"org_name,omitempty"`
}

type Producer struct {
	mq     *RabbitMQ
	logger *logrus.Logger
}

func NewProducer(mq *RabbitMQ, logger *logrus.Logger) *Producer {
	return &Producer{mq: mq, logger: logger}
}

func (p *Producer) PublishJob(ctx context.Context, msg *JobMessage) error {
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	if err := p.mq.Publish(ctx, body); err != nil {
		p.logger.WithError(err).WithField("job_id", msg.JobID).Error("Failed to publish job")
		return fmt.Errorf("failed to publish: %w", err)
	}

	p.logger.WithFields(logrus.Fields{
		"job_id": msg.JobID,
		"domain": msg.Domain,
	}).Info("Job published to queue")

	return nil
}

func (p *Producer) GetQueueSize() (int, error) {
	messageCount, _, err := p.mq.GetQueueStats()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue stats: %w", err)
	}
	return messageCount, nil
}
