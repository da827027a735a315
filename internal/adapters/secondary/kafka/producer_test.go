package kafka

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/admin/tg-bots/learnify-bot/internal/domain"
	"github.com/admin/tg-bots/learnify-bot/internal/ports/queue"
)

func TestProducer_PublishInvalidation(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		var task queue.Invalidation
		require.NoError(t, json.Unmarshal(val, &task))
		assert.Equal(t, queue.Invalidation{UserID: 42, EventType: domain.EventCreateMark}, task)
		return nil
	})

	p := newProducer(sp, &Config{Topic: "invalidations"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	require.NoError(t, p.PublishInvalidation(context.Background(), queue.Invalidation{UserID: 42, EventType: domain.EventCreateMark}))
	require.NoError(t, p.Close())
}

func TestProducer_SendFailure(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)
	sp.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	p := newProducer(sp, &Config{Topic: "invalidations"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	err := p.PublishInvalidation(context.Background(), queue.Invalidation{UserID: 1, EventType: domain.EventCreateMark})
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
}

func TestProducer_CanceledContextSkipsSend(t *testing.T) {
	sp := mocks.NewSyncProducer(t, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	p := newProducer(sp, &Config{Topic: "invalidations"}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	err := p.PublishInvalidation(ctx, queue.Invalidation{UserID: 1})
	assert.ErrorIs(t, err, context.Canceled)
	require.NoError(t, p.Close())
}

func TestKafkaConfigs_Find(t *testing.T) {
	kc := KafkaConfigs{List: []KafkaConfig{
		{Name: "other", Config: &Config{Topic: "a"}},
		{Name: TopicInvalidations, Config: &Config{Topic: "b"}},
	}}
	require.NotNil(t, kc.Find(TopicInvalidations))
	assert.Equal(t, "b", kc.Find(TopicInvalidations).Topic)
	assert.Nil(t, kc.Find("missing"))
	assert.Equal(t, []string{"localhost:9092"}, (&Config{}).GetBrokers())
}
