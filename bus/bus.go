package bus

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/medisync/medisync/core"
	"github.com/medisync/medisync/logging"
)

// DefaultMaxQueueSize bounds the message queue when no explicit size is given.
const DefaultMaxQueueSize = 1000

// Handler processes one dispatched message. A non-nil returned message is
// treated as a response and surfaced to the drain caller; a returned error
// moves the message to the failed set. Errors never propagate to the caller
// of Process or ProcessQueue.
type Handler func(msg core.Message) (*core.Message, error)

// DispatchPolicy selects the ordering of handler buckets when both a generic
// (no sender filter) and a sender-specific handler match a message.
type DispatchPolicy int

const (
	// DispatchGenericFirst tries handlers registered without a sender filter
	// before sender-specific ones. This is the reference ordering.
	DispatchGenericFirst DispatchPolicy = iota
	// DispatchSpecificFirst tries sender-specific handlers before generic ones.
	DispatchSpecificFirst
)

// Options configures a Bus instance.
type Options struct {
	// MaxQueueSize bounds the queue; enqueuing beyond it evicts the oldest
	// queued message. Zero or negative selects DefaultMaxQueueSize.
	MaxQueueSize int
	// Policy selects the handler dispatch ordering.
	Policy DispatchPolicy
	// Logger receives warnings and dispatch telemetry. Defaults to NoOpLogger.
	Logger logging.Logger
}

// WithMaxQueueSize overrides the bounded queue capacity.
func WithMaxQueueSize(n int) func(*Options) {
	return func(o *Options) { o.MaxQueueSize = n }
}

// WithDispatchPolicy overrides the handler dispatch ordering.
func WithDispatchPolicy(p DispatchPolicy) func(*Options) {
	return func(o *Options) { o.Policy = p }
}

// WithLogger supplies a structured logger.
func WithLogger(l logging.Logger) func(*Options) {
	return func(o *Options) { o.Logger = l }
}

// Stats is a snapshot of the bus counters and derived sizes.
type Stats struct {
	TotalMessages     int `json:"total_messages"`
	ProcessedMessages int `json:"processed_messages"`
	FailedMessages    int `json:"failed_messages"`
	RegisteredAgents  int `json:"registered_agents"`
	QueueSize         int `json:"queue_size"`
	ProcessedCount    int `json:"processed_count"`
	FailedCount       int `json:"failed_count"`
	Topics            int `json:"topics"`
}

// Bus owns the message queue, agent registry, topic subscriptions, handler
// table and delivery statistics for one in-process agent mesh. Construct it
// explicitly with New and pass it to every component that needs it; there is
// no implicit global instance.
//
// All public methods are safe for concurrent use. Handlers run outside the
// internal lock, so a handler may call back into the bus (for example to send
// a response) without deadlocking.
type Bus struct {
	mu     sync.Mutex
	opts   Options
	logger logging.Logger

	queue     []core.Message
	processed []core.Message
	failed    []core.Message

	handlers    map[string][]Handler
	subscribers map[string]map[string]struct{}
	agents      map[string]struct{}

	totalMessages     int
	processedMessages int
	failedMessages    int
}

// New constructs an empty Bus.
func New(optFns ...func(*Options)) *Bus {
	opts := Options{
		MaxQueueSize: DefaultMaxQueueSize,
		Policy:       DispatchGenericFirst,
		Logger:       logging.NoOpLogger{},
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	if opts.MaxQueueSize <= 0 {
		opts.MaxQueueSize = DefaultMaxQueueSize
	}
	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}
	return &Bus{
		opts:        opts,
		logger:      opts.Logger,
		handlers:    make(map[string][]Handler),
		subscribers: make(map[string]map[string]struct{}),
		agents:      make(map[string]struct{}),
	}
}

// RegisterAgent adds an agent to the registry. Registering an agent twice is
// a no-op that only emits a warning.
func (b *Bus) RegisterAgent(agentID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.agents[agentID]; ok {
		b.logger.Warn("agent already registered", "agent_id", agentID)
		return
	}
	b.agents[agentID] = struct{}{}
	b.logger.Info("agent registered", "agent_id", agentID)
}

// UnregisterAgent removes an agent from the registry. Unregistering an
// unknown agent is a no-op that only emits a warning.
func (b *Bus) UnregisterAgent(agentID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.agents[agentID]; !ok {
		b.logger.Warn("agent not found in registry", "agent_id", agentID)
		return
	}
	delete(b.agents, agentID)
	b.logger.Info("agent unregistered", "agent_id", agentID)
}

// AgentIDs returns the registered agent identifiers in sorted order.
func (b *Bus) AgentIDs() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]string, 0, len(b.agents))
	for id := range b.agents {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Subscribe adds the agent to a topic's subscriber set. Subscribing twice is
// idempotent.
func (b *Bus) Subscribe(agentID, topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	set, ok := b.subscribers[topic]
	if !ok {
		set = make(map[string]struct{})
		b.subscribers[topic] = set
	}
	set[agentID] = struct{}{}
	b.logger.Info("agent subscribed", "agent_id", agentID, "topic", topic)
}

// Unsubscribe removes the agent from a topic's subscriber set.
func (b *Bus) Unsubscribe(agentID, topic string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if set, ok := b.subscribers[topic]; ok {
		delete(set, agentID)
		b.logger.Info("agent unsubscribed", "agent_id", agentID, "topic", topic)
	}
}

// Subscribers returns the current subscriber set of a topic in sorted order.
func (b *Bus) Subscribers(topic string) []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.subscribersLocked(topic)
}

func (b *Bus) subscribersLocked(topic string) []string {
	set := b.subscribers[topic]
	subs := make([]string, 0, len(set))
	for id := range set {
		subs = append(subs, id)
	}
	sort.Strings(subs)
	return subs
}

// handlerKey builds the bucket key for a (type, sender filter) pair. An empty
// sender filter matches any sender.
func handlerKey(mt core.MessageType, sender string) string {
	if sender == "" {
		sender = "all"
	}
	return fmt.Sprintf("%s:%s", mt, sender)
}

// RegisterHandler appends a handler to the bucket keyed by message type and
// optional sender filter, preserving registration order. It returns the
// bucket key.
func (b *Bus) RegisterHandler(fn Handler, mt core.MessageType, senderFilter string) string {
	key := handlerKey(mt, senderFilter)
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[key] = append(b.handlers[key], fn)
	b.logger.Info("handler registered", "key", key)
	return key
}

// Send enqueues a message and returns its identifier. When the queue is at
// capacity the oldest queued message is evicted first. An unregistered sender
// only triggers a warning; the send always proceeds.
func (b *Bus) Send(msg core.Message) string {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, ok := b.agents[msg.Sender]; !ok {
		b.logger.Warn("sender not registered", "sender", msg.Sender)
	}

	if len(b.queue) >= b.opts.MaxQueueSize {
		evicted := b.queue[0]
		b.queue = append(b.queue[:0:0], b.queue[1:]...)
		b.logger.Warn("message queue full, evicted oldest message", "message_id", evicted.ID)
	}

	b.queue = append(b.queue, msg)
	b.totalMessages++

	b.logger.Info("message sent",
		"sender", msg.Sender,
		"recipient", msg.Recipient,
		"message_type", string(msg.Type),
		"message_id", msg.ID,
	)
	return msg.ID
}

// SendRequest builds and enqueues a request message carrying the action and
// its data, with a fresh correlation identifier. It returns the message ID.
func (b *Bus) SendRequest(sender, recipient, action string, data map[string]any, priority core.MessagePriority) string {
	return b.Send(core.NewRequest(sender, recipient, action, data, priority))
}

// SendResponse builds and enqueues a response message tagged with the given
// correlation identifier. It returns the message ID.
func (b *Bus) SendResponse(sender, recipient, correlationID string, result map[string]any, success bool) string {
	return b.Send(core.NewResponse(sender, recipient, correlationID, result, success))
}

// Broadcast builds and enqueues a broadcast message for a topic. The
// subscriber set is snapshotted at send time; later subscription changes do
// not affect an already-sent broadcast.
func (b *Bus) Broadcast(sender, topic string, data map[string]any, priority core.MessagePriority) string {
	b.mu.Lock()
	subs := b.subscribersLocked(topic)
	b.mu.Unlock()
	return b.Send(core.NewBroadcast(sender, subs, topic, data, priority))
}

// Notify builds and enqueues a one-way notification. It returns the message ID.
func (b *Bus) Notify(sender, recipient, event string, details map[string]any) string {
	return b.Send(core.NewNotification(sender, recipient, event, details))
}

// MessagesForAgent returns the currently queued messages addressed to the
// agent, either directly or via the broadcast marker. Processed and failed
// messages are not included.
func (b *Bus) MessagesForAgent(agentID string) []core.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []core.Message
	for _, msg := range b.queue {
		if msg.IsAddressedTo(agentID) {
			out = append(out, msg)
		}
	}
	return out
}

// MessageByID looks a message up across the queued, processed and failed
// sets, in that order.
func (b *Bus) MessageByID(messageID string) (core.Message, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, set := range [][]core.Message{b.queue, b.processed, b.failed} {
		for _, msg := range set {
			if msg.ID == messageID {
				return msg, true
			}
		}
	}
	return core.Message{}, false
}

// CorrelationChain returns every retained message sharing the given
// correlation identifier, across queued, processed and failed sets.
func (b *Bus) CorrelationChain(correlationID string) []core.Message {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []core.Message
	for _, set := range [][]core.Message{b.queue, b.processed, b.failed} {
		for _, msg := range set {
			if msg.CorrelationID == correlationID {
				out = append(out, msg)
			}
		}
	}
	return out
}

// Statistics returns a snapshot of counters and derived sizes.
func (b *Bus) Statistics() Stats {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Stats{
		TotalMessages:     b.totalMessages,
		ProcessedMessages: b.processedMessages,
		FailedMessages:    b.failedMessages,
		RegisteredAgents:  len(b.agents),
		QueueSize:         len(b.queue),
		ProcessedCount:    len(b.processed),
		FailedCount:       len(b.failed),
		Topics:            len(b.subscribers),
	}
}

// ClearHistory drops the processed and failed message sets. Queued messages
// and counters are untouched.
func (b *Bus) ClearHistory() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.processed = nil
	b.failed = nil
	b.logger.Info("message history cleared")
}

// Reset restores the bus to its freshly constructed state. Intended for test
// isolation.
func (b *Bus) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.queue = nil
	b.processed = nil
	b.failed = nil
	b.handlers = make(map[string][]Handler)
	b.subscribers = make(map[string]map[string]struct{})
	b.agents = make(map[string]struct{})
	b.totalMessages = 0
	b.processedMessages = 0
	b.failedMessages = 0
}

// ExportMessages serializes retained messages (queued, then processed, then
// failed) to indented JSON in the wire format. A positive limit keeps only
// the most recent messages of that combined sequence.
func (b *Bus) ExportMessages(limit int) ([]byte, error) {
	b.mu.Lock()
	combined := make([]core.Message, 0, len(b.queue)+len(b.processed)+len(b.failed))
	combined = append(combined, b.queue...)
	combined = append(combined, b.processed...)
	combined = append(combined, b.failed...)
	b.mu.Unlock()

	if limit > 0 && len(combined) > limit {
		combined = combined[len(combined)-limit:]
	}
	return json.MarshalIndent(combined, "", "  ")
}
