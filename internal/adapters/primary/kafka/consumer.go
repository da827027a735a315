package kafka

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/IBM/sarama"

	kafkaAdapter "github.com/admin/tg-bots/learnify-bot/internal/adapters/secondary/kafka"
	"github.com/admin/tg-bots/learnify-bot/internal/domain"
)

const consumeRetryDelay = 5 * time.Second

// MessageHandler обработчик одного сообщения топика
type MessageHandler interface {
	HandleMessage(ctx context.Context, key string, value []byte) error
}

// Consumer реализация Kafka consumer group
type Consumer struct {
	consumer sarama.ConsumerGroup
	cfg      *kafkaAdapter.Config
	handler  MessageHandler
	log      *slog.Logger
}

func NewConsumer(cfg *kafkaAdapter.Config, handler MessageHandler, log *slog.Logger) (*Consumer, error) {
	config := cfg.SaramaConfig()
	config.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	// старые сбросы кэша после рестарта не нужны
	config.Consumer.Offsets.Initial = sarama.OffsetNewest

	consumer, err := sarama.NewConsumerGroup(cfg.GetBrokers(), cfg.ConsumerGroup, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka consumer: %w", err)
	}

	log.Info("kafka consumer created",
		"brokers", cfg.Brokers,
		"topic", cfg.Topic,
		"consumer_group", cfg.ConsumerGroup,
	)

	return &Consumer{
		consumer: consumer,
		cfg:      cfg,
		handler:  handler,
		log:      log,
	}, nil
}

// Start блокирует до отмены контекста. Ошибка брокера не роняет приложение:
// consumer переподключается с паузой, кэш пока доживает до ttl
func (c *Consumer) Start(ctx context.Context) error {
	handler := &consumerGroupHandler{
		handler: c.handler,
		log:     c.log,
		topic:   c.cfg.Topic,
	}

	for {
		err := c.consumer.Consume(ctx, []string{c.cfg.Topic}, handler)
		switch {
		case errors.Is(err, sarama.ErrClosedConsumerGroup):
			return nil
		case ctx.Err() != nil:
			c.log.Info("kafka consumer stopping", "topic", c.cfg.Topic)
			return nil
		case err != nil:
			c.log.Error("kafka consume failed, retrying", "error", err, "topic", c.cfg.Topic, "retry_in", consumeRetryDelay)
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(consumeRetryDelay):
			}
		}
	}
}

func (c *Consumer) Close() error {
	if err := c.consumer.Close(); err != nil {
		return fmt.Errorf("failed to close kafka consumer: %w", err)
	}
	c.log.Info("kafka consumer closed", "topic", c.cfg.Topic)
	return nil
}

// consumerGroupHandler реализует sarama.ConsumerGroupHandler
type consumerGroupHandler struct {
	handler MessageHandler
	log     *slog.Logger
	topic   string
}

func (h *consumerGroupHandler) Setup(sarama.ConsumerGroupSession) error {
	h.log.Info("kafka consumer group session setup", "topic", h.topic)
	return nil
}

func (h *consumerGroupHandler) Cleanup(sarama.ConsumerGroupSession) error {
	h.log.Info("kafka consumer group session cleanup", "topic", h.topic)
	return nil
}

// ConsumeClaim сбой обработки не останавливает чтение, offset фиксируется в любом случае:
// сброс кэша допускает потерю
func (h *consumerGroupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for {
		select {
		case <-session.Context().Done():
			return nil
		case message, ok := <-claim.Messages():
			if !ok {
				return nil
			}

			if err := h.handler.HandleMessage(session.Context(), string(message.Key), message.Value); err != nil && !domain.IsBusinessError(err) {
				h.log.Error("failed to handle kafka message",
					"error", err,
					"topic", message.Topic,
					"partition", message.Partition,
					"offset", message.Offset,
				)
			}

			session.MarkMessage(message, "")
		}
	}
}
