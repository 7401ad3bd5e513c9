package core

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// MessageType identifies the communication pattern a message belongs to.
type MessageType string

const (
	// MessageTypeRequest asks another agent to perform an action.
	MessageTypeRequest MessageType = "request"
	// MessageTypeResponse answers a previously sent request.
	MessageTypeResponse MessageType = "response"
	// MessageTypeBroadcast targets every subscriber of a topic.
	MessageTypeBroadcast MessageType = "broadcast"
	// MessageTypeNotification is a one-way event with no response expected.
	MessageTypeNotification MessageType = "notification"
	// MessageTypeAck acknowledges receipt of a message.
	MessageTypeAck MessageType = "ack"
)

// Valid reports whether the type is one of the known message types.
func (t MessageType) Valid() bool {
	switch t {
	case MessageTypeRequest, MessageTypeResponse, MessageTypeBroadcast,
		MessageTypeNotification, MessageTypeAck:
		return true
	default:
		return false
	}
}

// MessagePriority orders messages by urgency. Values are comparable: a higher
// value means a more urgent message.
type MessagePriority int

const (
	// PriorityLow marks background traffic.
	PriorityLow MessagePriority = iota + 1
	// PriorityNormal is the default priority.
	PriorityNormal
	// PriorityHigh marks urgent traffic.
	PriorityHigh
	// PriorityCritical marks traffic that must be surfaced immediately.
	PriorityCritical
)

// String returns the wire name of the priority (LOW, NORMAL, HIGH, CRITICAL).
func (p MessagePriority) String() string {
	switch p {
	case PriorityLow:
		return "LOW"
	case PriorityNormal:
		return "NORMAL"
	case PriorityHigh:
		return "HIGH"
	case PriorityCritical:
		return "CRITICAL"
	default:
		return "NORMAL"
	}
}

// ParsePriority maps a wire name back to a MessagePriority, defaulting to
// PriorityNormal for unknown names.
func ParsePriority(name string) MessagePriority {
	switch name {
	case "LOW":
		return PriorityLow
	case "HIGH":
		return PriorityHigh
	case "CRITICAL":
		return PriorityCritical
	default:
		return PriorityNormal
	}
}

// MarshalJSON encodes the priority as its wire name.
func (p MessagePriority) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.String())
}

// UnmarshalJSON decodes a priority wire name.
func (p *MessagePriority) UnmarshalJSON(data []byte) error {
	var name string
	if err := json.Unmarshal(data, &name); err != nil {
		return fmt.Errorf("priority must be a string: %w", err)
	}
	*p = ParsePriority(name)
	return nil
}

const (
	// BroadcastRecipient is the literal recipient marker addressing every agent.
	BroadcastRecipient = "all"
	// DefaultResponseTimeout is the advisory response timeout in seconds
	// attached to new messages. The bus stores it but never enforces it.
	DefaultResponseTimeout = 30
)

// Message is one unit of inter-agent communication. Treat it as immutable
// after creation: the bus copies messages into its retention sets and later
// mutation would corrupt correlation lookups.
type Message struct {
	// ID uniquely identifies the message for the lifetime of a bus instance.
	ID string
	// Sender is the originating agent identifier.
	Sender string
	// Recipient is an agent identifier, a comma-joined list of identifiers
	// for broadcasts, or the BroadcastRecipient marker.
	Recipient string
	// Type is the communication pattern of the message.
	Type MessageType
	// Payload is an open key/value structure, opaque to the bus.
	Payload map[string]any
	// CorrelationID links a response to its originating request, or groups
	// related messages. Empty when the message is uncorrelated.
	CorrelationID string
	// Timestamp is the UTC creation instant.
	Timestamp time.Time
	// Priority orders the message by urgency.
	Priority MessagePriority
	// RequiresResponse signals that the sender expects a response.
	RequiresResponse bool
	// ResponseTimeout is an advisory timeout in seconds. Not on the wire and
	// never enforced by the bus.
	ResponseTimeout int
}

// wireMessage is the JSON shape exchanged with external consumers.
type wireMessage struct {
	MessageID        string          `json:"message_id"`
	Sender           string          `json:"sender"`
	Recipient        string          `json:"recipient"`
	MessageType      MessageType     `json:"message_type"`
	Payload          map[string]any  `json:"payload"`
	CorrelationID    *string         `json:"correlation_id"`
	Timestamp        time.Time       `json:"timestamp"`
	Priority         MessagePriority `json:"priority"`
	RequiresResponse bool            `json:"requires_response"`
}

// MarshalJSON encodes the message in its wire representation. An empty
// correlation identifier serializes as null.
func (m Message) MarshalJSON() ([]byte, error) {
	w := wireMessage{
		MessageID:        m.ID,
		Sender:           m.Sender,
		Recipient:        m.Recipient,
		MessageType:      m.Type,
		Payload:          m.Payload,
		Timestamp:        m.Timestamp,
		Priority:         m.Priority,
		RequiresResponse: m.RequiresResponse,
	}
	if m.CorrelationID != "" {
		w.CorrelationID = &m.CorrelationID
	}
	return json.Marshal(w)
}

// UnmarshalJSON decodes a message from its wire representation.
func (m *Message) UnmarshalJSON(data []byte) error {
	var w wireMessage
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	m.ID = w.MessageID
	m.Sender = w.Sender
	m.Recipient = w.Recipient
	m.Type = w.MessageType
	m.Payload = w.Payload
	if w.CorrelationID != nil {
		m.CorrelationID = *w.CorrelationID
	} else {
		m.CorrelationID = ""
	}
	m.Timestamp = w.Timestamp
	m.Priority = w.Priority
	m.RequiresResponse = w.RequiresResponse
	m.ResponseTimeout = DefaultResponseTimeout
	return nil
}

// NewMessage creates a message with a fresh unique ID, UTC timestamp, normal
// priority and the default advisory response timeout.
func NewMessage(sender, recipient string, mt MessageType, payload map[string]any) Message {
	return Message{
		ID:              NewID(),
		Sender:          sender,
		Recipient:       recipient,
		Type:            mt,
		Payload:         payload,
		Timestamp:       time.Now().UTC(),
		Priority:        PriorityNormal,
		ResponseTimeout: DefaultResponseTimeout,
	}
}

// NewRequest builds a request message carrying an action name and its data.
// Requests expect a response and receive a freshly generated correlation ID.
func NewRequest(sender, recipient, action string, data map[string]any, priority MessagePriority) Message {
	m := NewMessage(sender, recipient, MessageTypeRequest, map[string]any{
		"action": action,
		"data":   data,
	})
	m.Priority = priority
	m.RequiresResponse = true
	m.CorrelationID = NewID()
	return m
}

// NewResponse builds a response message tagged with the request's correlation ID.
func NewResponse(sender, recipient, correlationID string, result map[string]any, success bool) Message {
	m := NewMessage(sender, recipient, MessageTypeResponse, map[string]any{
		"success": success,
		"result":  result,
	})
	m.CorrelationID = correlationID
	return m
}

// NewBroadcast builds a broadcast message for a topic. The recipient field is
// the comma-joined subscriber list, or the BroadcastRecipient marker when the
// topic has no subscribers.
func NewBroadcast(sender string, subscribers []string, topic string, data map[string]any, priority MessagePriority) Message {
	recipient := BroadcastRecipient
	if len(subscribers) > 0 {
		recipient = strings.Join(subscribers, ",")
	}
	m := NewMessage(sender, recipient, MessageTypeBroadcast, map[string]any{
		"topic": topic,
		"data":  data,
	})
	m.Priority = priority
	return m
}

// NewNotification builds a one-way notification message.
func NewNotification(sender, recipient, event string, details map[string]any) Message {
	return NewMessage(sender, recipient, MessageTypeNotification, map[string]any{
		"event":   event,
		"details": details,
	})
}

// IsAddressedTo reports whether the message targets the given agent: either
// the recipient field contains the agent identifier or the message is a
// broadcast to every agent.
func (m Message) IsAddressedTo(agentID string) bool {
	return strings.Contains(m.Recipient, agentID) || m.Recipient == BroadcastRecipient
}

// NewID generates a new unique identifier for messages, correlations,
// invocations and resources.
func NewID() string { return uuid.NewString() }
