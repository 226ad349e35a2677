package eventsourcing

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Command 聚合命令。TargetID 决定命令路由到哪个聚合的串行信箱
type Command interface {
	CommandType() string
	TargetID() string
	Validate() error
}

// CommandHandler 命令处理函数
type CommandHandler func(ctx context.Context, cmd Command) error

// CommandBus 命令总线。每个聚合标识由一个 FIFO 信箱 goroutine 串行处理，
// 保证同一聚合上的命令不会并发执行（单写者）。Dispatch 同步校验后异步投递，
// 处理器内再派发命令不会造成重入死锁
type CommandBus struct {
	mu        sync.Mutex
	idle      *sync.Cond
	pending   int
	handlers  map[string]CommandHandler
	mailboxes map[string]*mailbox
	closed    bool
	observer  func(commandType string, elapsed time.Duration)
	logger    *slog.Logger
}

// NewCommandBus 创建命令总线
func NewCommandBus(logger *slog.Logger) *CommandBus {
	b := &CommandBus{
		handlers:  make(map[string]CommandHandler),
		mailboxes: make(map[string]*mailbox),
		logger:    logger.With("component", "command_bus"),
	}
	b.idle = sync.NewCond(&b.mu)
	return b
}

// Observe 注册命令处理回调，用于指标上报。需在 Dispatch 前设置
func (b *CommandBus) Observe(fn func(commandType string, elapsed time.Duration)) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.observer = fn
}

// Register 注册命令处理器
func (b *CommandBus) Register(commandType string, handler CommandHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, exists := b.handlers[commandType]; exists {
		panic(fmt.Sprintf("command handler already registered: %s", commandType))
	}
	b.handlers[commandType] = handler
}

// Dispatch 同步校验命令并投递到目标聚合的信箱。校验失败立即返回错误；
// 处理阶段的业务拒绝以领域事件表达，不通过返回值传递
func (b *CommandBus) Dispatch(ctx context.Context, cmd Command) error {
	if err := cmd.Validate(); err != nil {
		return fmt.Errorf("invalid command %s: %w", cmd.CommandType(), err)
	}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return fmt.Errorf("command bus closed, dropped %s", cmd.CommandType())
	}
	handler, ok := b.handlers[cmd.CommandType()]
	if !ok {
		b.mu.Unlock()
		return fmt.Errorf("no handler registered for command %s", cmd.CommandType())
	}
	box := b.mailboxes[cmd.TargetID()]
	if box == nil {
		box = newMailbox()
		b.mailboxes[cmd.TargetID()] = box
		go b.serve(box)
	}
	b.pending++
	b.mu.Unlock()

	box.push(envelope{ctx: ctx, cmd: cmd, handler: handler})
	return nil
}

// Drain 阻塞直到所有已投递命令（包括处理过程中派生的命令）全部处理完毕。
// 在途计数用互斥量保护，与并发 Dispatch 同时调用是安全的
func (b *CommandBus) Drain() {
	b.mu.Lock()
	for b.pending > 0 {
		b.idle.Wait()
	}
	b.mu.Unlock()
}

// Close 停止接收新命令并等待在途命令处理完毕
func (b *CommandBus) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	boxes := make([]*mailbox, 0, len(b.mailboxes))
	for _, box := range b.mailboxes {
		boxes = append(boxes, box)
	}
	b.mu.Unlock()

	b.Drain()
	for _, box := range boxes {
		box.stop()
	}
}

func (b *CommandBus) serve(box *mailbox) {
	for {
		env, ok := box.pop()
		if !ok {
			return
		}
		start := time.Now()
		if err := env.handler(env.ctx, env.cmd); err != nil {
			b.logger.Error("command handling failed",
				"command_type", env.cmd.CommandType(),
				"target_id", env.cmd.TargetID(),
				"error", err,
			)
		}
		if b.observer != nil {
			b.observer(env.cmd.CommandType(), time.Since(start))
		}
		b.taskDone()
	}
}

func (b *CommandBus) taskDone() {
	b.mu.Lock()
	b.pending--
	if b.pending == 0 {
		b.idle.Broadcast()
	}
	b.mu.Unlock()
}

type envelope struct {
	ctx     context.Context
	cmd     Command
	handler CommandHandler
}

// mailbox 无界 FIFO 队列，由单个 goroutine 消费
type mailbox struct {
	mu      sync.Mutex
	cond    *sync.Cond
	queue   []envelope
	stopped bool
}

func newMailbox() *mailbox {
	m := &mailbox{}
	m.cond = sync.NewCond(&m.mu)
	return m
}

func (m *mailbox) push(env envelope) {
	m.mu.Lock()
	m.queue = append(m.queue, env)
	m.mu.Unlock()
	m.cond.Signal()
}

func (m *mailbox) pop() (envelope, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for len(m.queue) == 0 && !m.stopped {
		m.cond.Wait()
	}
	if len(m.queue) == 0 {
		return envelope{}, false
	}
	env := m.queue[0]
	m.queue = m.queue[1:]
	return env, true
}

func (m *mailbox) stop() {
	m.mu.Lock()
	m.stopped = true
	m.mu.Unlock()
	m.cond.Broadcast()
}

// EventHandler 事件订阅处理函数
type EventHandler func(ctx context.Context, event DomainEvent)

// EventBus 事件总线。Publish 在调用方（聚合信箱）goroutine 内同步按序分发，
// 因此同一聚合产生的事件对每个订阅者保持产生顺序
type EventBus struct {
	mu       sync.RWMutex
	handlers []EventHandler
}

// NewEventBus 创建事件总线
func NewEventBus() *EventBus {
	return &EventBus{}
}

// Subscribe 注册订阅者
func (b *EventBus) Subscribe(handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handler)
}

// Publish 按序分发事件到全部订阅者
func (b *EventBus) Publish(ctx context.Context, events ...DomainEvent) {
	b.mu.RLock()
	handlers := b.handlers
	b.mu.RUnlock()

	for _, event := range events {
		for _, handler := range handlers {
			handler(ctx, event)
		}
	}
}
