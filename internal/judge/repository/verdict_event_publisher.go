package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"codejudge/internal/common/mq"
	"codejudge/internal/judge/model"
	appErr "codejudge/pkg/errors"
)

// MQVerdictPublisher publishes a verdict event per finished submit.
type MQVerdictPublisher struct {
	producer mq.Producer
	topic    string
}

// NewMQVerdictPublisher creates a new MQ verdict publisher.
func NewMQVerdictPublisher(producer mq.Producer, topic string) *MQVerdictPublisher {
	return &MQVerdictPublisher{producer: producer, topic: topic}
}

func (p *MQVerdictPublisher) Name() string { return "mq" }

// Save publishes the event keyed by record id. Source code is not included.
func (p *MQVerdictPublisher) Save(ctx context.Context, record model.VerdictRecord) error {
	if p == nil || p.producer == nil {
		return appErr.New(appErr.ServiceUnavailable).WithMessage("verdict publisher is not configured")
	}
	if p.topic == "" {
		return appErr.New(appErr.InvalidParams).WithMessage("verdict topic is required")
	}
	if record.ID == "" {
		return appErr.ValidationError("record_id", "required")
	}
	event := model.VerdictEvent{
		EventID:   record.ID,
		ProblemID: record.ProblemID,
		Language:  record.Language,
		Verdict:   record.Verdict,
		Accepted:  record.Accepted,
		TraceID:   record.TraceID,
		CreatedAt: record.At.Unix(),
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal verdict event failed: %w", err)
	}
	message := mq.NewMessage(payload)
	message.ID = record.ID
	message.Timestamp = record.At
	message.SetHeader("x-problem-id", record.ProblemID)
	if err := p.producer.Publish(ctx, p.topic, message); err != nil {
		return appErr.Wrapf(err, appErr.QueueError, "publish verdict event failed")
	}
	return nil
}
