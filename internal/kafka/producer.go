package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"

	"fairfinder/internal/models"
)

type Producer struct {
	Writer *kafka.Writer
}

func NewProducer(brokers []string, topic string) *Producer {
	writer := kafka.NewWriter(kafka.WriterConfig{
		Brokers: brokers,
		Topic:   topic,
	})
	return &Producer{Writer: writer}
}

// PublishMergeCompleted streams a finished merge's audit record so
// downstream consumers (search index, activity feed) can react to the
// deleted duplicate.
func (p *Producer) PublishMergeCompleted(record models.MergeRecord) error {
	msgBytes, err := json.Marshal(record)
	if err != nil {
		return err
	}

	return p.Writer.WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(fmt.Sprintf("%s:%s", record.EntityType, record.PrimaryID)),
			Value: msgBytes,
		},
	)
}

// PublishScanCompleted streams a duplicate scan summary.
func (p *Producer) PublishScanCompleted(summary models.DuplicateScanSummary) error {
	msgBytes, err := json.Marshal(summary)
	if err != nil {
		return err
	}

	return p.Writer.WriteMessages(context.Background(),
		kafka.Message{
			Key:   []byte(summary.EntityType),
			Value: msgBytes,
		},
	)
}

func (p *Producer) Close() error {
	if p.Writer == nil {
		return nil
	}
	return p.Writer.Close()
}
