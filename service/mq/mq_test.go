package mq

import (
	"context"
	"errors"
	"testing"

	c "github.com/apache/rocketmq-client-go/v2/consumer"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func resetHandlers(t *testing.T) {
	t.Helper()
	handlers = make(map[string]map[string]MessageHandler)
	t.Cleanup(func() {
		handlers = make(map[string]map[string]MessageHandler)
	})
}

func noopHandler(context.Context, *primitive.MessageExt) error {
	return nil
}

func taggedMessage(topic, tag string) *primitive.MessageExt {
	return &primitive.MessageExt{
		Message: *primitive.NewMessage(topic, nil).WithTag(tag),
	}
}

// 同一topic下注册多个tag时必须合并成一条订阅表达式，
// 逐个订阅会让后注册的tag覆盖先注册的
func TestTagExpressionMergesTopicTags(t *testing.T) {
	resetHandlers(t)

	RegisterHandler(TopicKnowledge, TagIngest, noopHandler)
	RegisterHandler(TopicKnowledge, TagDelete, noopHandler)

	assert.Equal(t, "tag_delete || tag_ingest", tagExpression(TopicKnowledge))
}

func TestTagExpressionUntaggedHandlerSubscribesAll(t *testing.T) {
	resetHandlers(t)

	RegisterHandler(TopicKnowledge, TagIngest, noopHandler)
	RegisterHandler(TopicKnowledge, "", noopHandler)

	assert.Equal(t, "*", tagExpression(TopicKnowledge))
}

func TestDispatchRoutesByTag(t *testing.T) {
	resetHandlers(t)

	var consumed []string
	record := func(name string) MessageHandler {
		return func(ctx context.Context, msg *primitive.MessageExt) error {
			consumed = append(consumed, name)
			return nil
		}
	}
	RegisterHandler(TopicKnowledge, TagIngest, record("ingest"))
	RegisterHandler(TopicKnowledge, TagDelete, record("delete"))

	result, err := dispatchMessages(context.Background(),
		taggedMessage(TopicKnowledge, TagDelete),
		taggedMessage(TopicKnowledge, TagIngest),
	)
	require.NoError(t, err)
	assert.Equal(t, c.ConsumeSuccess, result)

	// 两类消息各自到达对应的处理器
	assert.Equal(t, []string{"delete", "ingest"}, consumed)
}

func TestDispatchUnknownTagIsSkipped(t *testing.T) {
	resetHandlers(t)

	RegisterHandler(TopicKnowledge, TagIngest, func(context.Context, *primitive.MessageExt) error {
		t.Fatal("handler should not be called for an unknown tag")
		return nil
	})

	result, err := dispatchMessages(context.Background(), taggedMessage(TopicKnowledge, "tag_unknown"))
	require.NoError(t, err)
	assert.Equal(t, c.ConsumeSuccess, result)
}

func TestDispatchHandlerErrorRequestsRetry(t *testing.T) {
	resetHandlers(t)

	RegisterHandler(TopicKnowledge, TagIngest, func(context.Context, *primitive.MessageExt) error {
		return errors.New("transient failure")
	})

	result, err := dispatchMessages(context.Background(), taggedMessage(TopicKnowledge, TagIngest))
	require.Error(t, err)
	assert.Equal(t, c.ConsumeRetryLater, result)
}
