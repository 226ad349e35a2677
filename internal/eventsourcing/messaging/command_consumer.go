package messaging

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/wyfcoding/tradecore/internal/eventsourcing"
	"github.com/wyfcoding/tradecore/pkg/mq"
)

// CommandEnvelope Kafka 命令主题上的消息信封
type CommandEnvelope struct {
	MessageID   string          `json:"message_id"`
	CommandType string          `json:"command_type"`
	Payload     json.RawMessage `json:"payload"`
}

// CommandDecoder 把命令负载解码为具体命令
type CommandDecoder func(payload json.RawMessage) (eventsourcing.Command, error)

// DecodeAs 返回解码到指定命令类型的 CommandDecoder
func DecodeAs[T eventsourcing.Command](payload json.RawMessage) (eventsourcing.Command, error) {
	var cmd T
	if err := json.Unmarshal(payload, &cmd); err != nil {
		return nil, err
	}
	return cmd, nil
}

// CommandConsumer 从 Kafka 命令主题消费外部命令并投递到命令总线。
// 未注册的命令类型与解码失败的消息记录日志后跳过，不中断消费
type CommandConsumer struct {
	consumer *mq.KafkaConsumer
	commands *eventsourcing.CommandBus
	decoders map[string]CommandDecoder
	logger   *slog.Logger
}

// NewCommandConsumer 创建命令消费者
func NewCommandConsumer(consumer *mq.KafkaConsumer, commands *eventsourcing.CommandBus, logger *slog.Logger) *CommandConsumer {
	return &CommandConsumer{
		consumer: consumer,
		commands: commands,
		decoders: make(map[string]CommandDecoder),
		logger:   logger.With("component", "command_consumer"),
	}
}

// RegisterCommand 注册可从命令主题接收的命令类型。需在 Run 前调用
func (c *CommandConsumer) RegisterCommand(commandType string, decoder CommandDecoder) {
	c.decoders[commandType] = decoder
}

// Run 循环消费直到 ctx 取消
func (c *CommandConsumer) Run(ctx context.Context) error {
	for {
		msg, err := c.consumer.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}

		var env CommandEnvelope
		if err := msg.UnmarshalPayload(&env); err != nil {
			c.logger.Error("failed to decode command envelope",
				"topic", msg.Topic,
				"offset", msg.Offset,
				"error", err,
			)
			continue
		}

		decoder, ok := c.decoders[env.CommandType]
		if !ok {
			c.logger.Warn("unknown command type on command topic",
				"command_type", env.CommandType,
				"message_id", env.MessageID,
			)
			continue
		}

		cmd, err := decoder(env.Payload)
		if err != nil {
			c.logger.Error("failed to decode command payload",
				"command_type", env.CommandType,
				"message_id", env.MessageID,
				"error", err,
			)
			continue
		}

		if err := c.commands.Dispatch(ctx, cmd); err != nil {
			c.logger.Error("failed to dispatch external command",
				"command_type", env.CommandType,
				"message_id", env.MessageID,
				"error", err,
			)
		}
	}
}
