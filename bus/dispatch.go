package bus

import (
	"fmt"

	"github.com/medisync/medisync/core"
)

// Process routes a single message to its first matching handler.
//
// The candidate handler list is the concatenation of the generic bucket
// (type, any sender) and the sender-specific bucket (type, message sender);
// the configured DispatchPolicy decides which bucket comes first. Only the
// first handler of the combined list runs. A message with no matching
// handler, or whose handler fails, moves to the failed set; handler errors
// and panics are absorbed and never reach the caller.
//
// The returned message, when non-nil, is the response produced by the handler.
func (b *Bus) Process(msg core.Message) *core.Message {
	handler, ok := b.firstHandler(msg)
	if !ok {
		b.logger.Warn("no handler found for message type",
			"message_type", string(msg.Type),
			"message_id", msg.ID,
		)
		b.recordFailure(msg)
		return nil
	}

	resp, err := runHandler(handler, msg)
	if err != nil {
		b.logger.Error("error processing message",
			"message_id", msg.ID,
			"error", err.Error(),
		)
		b.recordFailure(msg)
		return nil
	}

	b.recordSuccess(msg)
	b.logger.Info("message processed", "message_id", msg.ID)
	return resp
}

// ProcessQueue drains the entire current queue as one atomic snapshot and
// processes each message in original enqueue order. Messages sent during the
// drain (for example responses produced by handlers) land in the queue for a
// later pass. The returned slice contains the responses generated by this
// drain.
func (b *Bus) ProcessQueue() []core.Message {
	b.mu.Lock()
	pending := b.queue
	b.queue = nil
	b.mu.Unlock()

	var responses []core.Message
	for _, msg := range pending {
		if resp := b.Process(msg); resp != nil {
			responses = append(responses, *resp)
		}
	}
	b.logger.Info("queue drained", "processed", len(pending))
	return responses
}

// firstHandler resolves the single handler Process will invoke for a message.
func (b *Bus) firstHandler(msg core.Message) (Handler, bool) {
	genericKey := handlerKey(msg.Type, "")
	specificKey := handlerKey(msg.Type, msg.Sender)

	b.mu.Lock()
	defer b.mu.Unlock()

	first, second := b.handlers[genericKey], b.handlers[specificKey]
	if b.opts.Policy == DispatchSpecificFirst {
		first, second = second, first
	}
	if len(first) > 0 {
		return first[0], true
	}
	if len(second) > 0 {
		return second[0], true
	}
	return nil, false
}

// runHandler invokes a handler, converting panics into errors so a misbehaving
// handler cannot take down the drain loop.
func runHandler(h Handler, msg core.Message) (resp *core.Message, err error) {
	defer func() {
		if r := recover(); r != nil {
			resp = nil
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return h(msg)
}

func (b *Bus) recordFailure(msg core.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failed = append(b.failed, msg)
	b.failedMessages++
}

func (b *Bus) recordSuccess(msg core.Message) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.processed = append(b.processed, msg)
	b.processedMessages++
}
