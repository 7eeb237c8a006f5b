package mq

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/apache/rocketmq-client-go/v2"
	c "github.com/apache/rocketmq-client-go/v2/consumer"
	"github.com/apache/rocketmq-client-go/v2/primitive"
	"github.com/apache/rocketmq-client-go/v2/producer"
	"github.com/apache/rocketmq-client-go/v2/rlog"
	"github.com/avast/retry-go/v4"

	"knowledge-agent-backend/config"
)

const (
	TopicKnowledge = "topic_knowledge"

	// 摄取任务：解析、向量化一条知识
	TagIngest = "tag_ingest"

	// 清理任务：删除知识对应的向量分片和OSS对象
	TagDelete = "tag_delete"

	consumeGroupKnowledge = "cg_knowledge"

	sendMessageAttempts  = 3
	maxReconsumeTimes    = 5
	consumeGoroutineNums = 10
)

var (
	// 全局生产者
	producerInstance rocketmq.Producer

	// 知识业务消费者
	consumerKnowledge rocketmq.PushConsumer

	// 消息处理器表，topic → tag → handler
	handlers = make(map[string]map[string]MessageHandler)
)

type MessageHandler func(context.Context, *primitive.MessageExt) error

type Message struct {
	Topic   string
	Tag     string
	Payload any
}

// IngestMessage 摄取任务载荷
type IngestMessage struct {
	KnowledgeID string `json:"knowledge_id"`
}

// DeleteMessage 清理任务载荷
type DeleteMessage struct {
	KnowledgeIDs []string `json:"knowledge_ids"`
	ObjectNames  []string `json:"object_names"`
}

func init() {
	// 设置RocketMQ客户端（使用rlog）的日志级别
	rlog.SetLogLevel("warn")

	var err error
	consumerKnowledge, err = rocketmq.NewPushConsumer(
		c.WithNameServer(config.Cfg.MQ.NameServer),
		c.WithGroupName(consumeGroupKnowledge),
		c.WithConsumerModel(c.Clustering),
		c.WithConsumeFromWhere(c.ConsumeFromLastOffset),
		c.WithMaxReconsumeTimes(maxReconsumeTimes),
		c.WithConsumeGoroutineNums(consumeGoroutineNums),
	)
	if err != nil {
		panic(fmt.Sprintf("Failed to create consumer: %v", err))
	}

	producerInstance, err = rocketmq.NewProducer(
		producer.WithNameServer(config.Cfg.MQ.NameServer),
	)
	if err != nil {
		panic(fmt.Sprintf("Failed to create producer: %v", err))
	}
}

// RegisterHandler 注册消息处理器，必须在RunConsumer之前调用
func RegisterHandler(topic string, tag string, handler MessageHandler) {
	if handlers[topic] == nil {
		handlers[topic] = make(map[string]MessageHandler)
	}
	handlers[topic][tag] = handler
}

// tagExpression 合并topic下注册的全部tag；存在未指定tag的处理器时订阅全量
func tagExpression(topic string) string {
	tags := make([]string, 0, len(handlers[topic]))
	for tag := range handlers[topic] {
		if tag == "" {
			return "*"
		}
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return strings.Join(tags, " || ")
}

func lookupHandler(topic, tag string) MessageHandler {
	byTag := handlers[topic]
	if h, ok := byTag[tag]; ok {
		return h
	}
	// 未指定tag注册的处理器接收该topic的全部消息
	return byTag[""]
}

func dispatchMessages(ctx context.Context, messages ...*primitive.MessageExt) (c.ConsumeResult, error) {
	for _, msg := range messages {
		h := lookupHandler(msg.Topic, msg.GetTags())
		if h == nil {
			slog.Warn("No message handler found",
				"topic", msg.Topic,
				"tag", msg.GetTags(),
			)
			continue
		}

		if err := h(ctx, msg); err != nil {
			slog.Error("Failed to process message",
				"topic", msg.Topic,
				"msg_id", msg.MsgId,
				"error", err)
			return c.ConsumeRetryLater, err
		}
	}
	return c.ConsumeSuccess, nil
}

// RunProducer 启动生产者，API进程和Worker进程都需要
func RunProducer() error {
	if err := producerInstance.Start(); err != nil {
		return fmt.Errorf("failed to start producer: %v", err)
	}
	return nil
}

// RunConsumer 启动消费者，只在Worker进程调用。
// 客户端按topic保存订阅表达式和回调，同一topic重复Subscribe会相互覆盖，
// 因此每个topic只订阅一次，tag合并成OR表达式，消费时再按tag分发
func RunConsumer() error {
	for topic := range handlers {
		selector := c.MessageSelector{}
		if expr := tagExpression(topic); expr != "*" {
			selector = c.MessageSelector{
				Type:       c.TAG,
				Expression: expr,
			}
		}

		if err := consumerKnowledge.Subscribe(topic, selector, dispatchMessages); err != nil {
			return fmt.Errorf("failed to subscribe to topic %s: %v", topic, err)
		}
	}

	if err := consumerKnowledge.Start(); err != nil {
		return fmt.Errorf("failed to start consumer: %v", err)
	}
	return nil
}

// SendMessage 向MQ发送消息
func SendMessage(ctx context.Context, message *Message) error {
	payloadJSON, err := json.Marshal(message.Payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %v", err)
	}

	msg := primitive.NewMessage(message.Topic, payloadJSON)
	if message.Tag != "" {
		msg = msg.WithTag(message.Tag)
	}

	err = retry.Do(
		func() error {
			_, err := producerInstance.SendSync(ctx, msg)
			return err
		},
		retry.Attempts(sendMessageAttempts),
		retry.DelayType(retry.BackOffDelay),
		retry.OnRetry(func(n uint, err error) {
			slog.Warn("Retrying to send message",
				"attempt", n+1,
				"topic", msg.Topic,
				"err", err)
		}),
	)
	if err != nil {
		return fmt.Errorf("failed to send message to topic %s after retries: %v", msg.Topic, err)
	}

	return nil
}

// Shutdown 关闭MQ服务
func Shutdown() {
	if producerInstance != nil {
		producerInstance.Shutdown()
	}
	if consumerKnowledge != nil {
		consumerKnowledge.Shutdown()
	}
}
