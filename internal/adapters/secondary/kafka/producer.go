package kafka

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/IBM/sarama"
	"github.com/goccy/go-json"

	"github.com/admin/tg-bots/learnify-bot/internal/ports/queue"
)

// HeaderEventType тип события в заголовке, чтобы consumer мог отфильтровать без декодирования
const HeaderEventType = "event_type"

// Producer публикует задачи сброса кэша в топик
type Producer struct {
	producer sarama.SyncProducer
	topic    string
	log      *slog.Logger
}

func NewProducer(cfg *Config, log *slog.Logger) (*Producer, error) {
	config := cfg.SaramaConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForLocal
	config.Producer.Retry.Max = 3
	// ключ user_id: задачи одного пользователя идут в одну партицию по порядку
	config.Producer.Partitioner = sarama.NewHashPartitioner

	producer, err := sarama.NewSyncProducer(cfg.GetBrokers(), config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	log.Info("kafka producer created", "brokers", cfg.Brokers, "topic", cfg.Topic)
	return newProducer(producer, cfg, log), nil
}

func newProducer(producer sarama.SyncProducer, cfg *Config, log *slog.Logger) *Producer {
	return &Producer{producer: producer, topic: cfg.Topic, log: log}
}

// PublishInvalidation подходит как invalidation.ApplierFunc
func (p *Producer) PublishInvalidation(ctx context.Context, task queue.Invalidation) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	value, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("failed to marshal invalidation: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(strconv.FormatInt(task.UserID, 10)),
		Value: sarama.ByteEncoder(value),
		Headers: []sarama.RecordHeader{
			{Key: []byte(HeaderEventType), Value: []byte(task.EventType)},
		},
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("kafka publish invalidation [topic=%s, user_id=%d]: %w", p.topic, task.UserID, err)
	}

	p.log.Debug("invalidation published",
		"user_id", task.UserID,
		"event_type", task.EventType,
		"partition", partition,
		"offset", offset,
	)
	return nil
}

func (p *Producer) Close() error {
	if err := p.producer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka producer: %w", err)
	}
	p.log.Info("kafka producer closed", "topic", p.topic)
	return nil
}
