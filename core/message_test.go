package core

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMessageDefaults(t *testing.T) {
	m := NewMessage("analyzer", "pharmacist", MessageTypeRequest, map[string]any{"k": 1})

	assert.NotEmpty(t, m.ID)
	assert.Equal(t, "analyzer", m.Sender)
	assert.Equal(t, "pharmacist", m.Recipient)
	assert.Equal(t, MessageTypeRequest, m.Type)
	assert.Equal(t, PriorityNormal, m.Priority)
	assert.Equal(t, DefaultResponseTimeout, m.ResponseTimeout)
	assert.False(t, m.RequiresResponse)
	assert.False(t, m.Timestamp.IsZero())
}

func TestMessageIDsAreUnique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		m := NewMessage("a", "b", MessageTypeNotification, nil)
		assert.False(t, seen[m.ID], "duplicate message ID %s", m.ID)
		seen[m.ID] = true
	}
}

func TestNewRequest(t *testing.T) {
	m := NewRequest("analyzer", "pharmacist", "check_interactions", map[string]any{"patient": "p1"}, PriorityHigh)

	assert.Equal(t, MessageTypeRequest, m.Type)
	assert.Equal(t, PriorityHigh, m.Priority)
	assert.True(t, m.RequiresResponse)
	assert.NotEmpty(t, m.CorrelationID)
	assert.Equal(t, "check_interactions", m.Payload["action"])
	assert.Equal(t, map[string]any{"patient": "p1"}, m.Payload["data"])
}

func TestNewResponse(t *testing.T) {
	m := NewResponse("pharmacist", "analyzer", "corr-1", map[string]any{"risk": "low"}, true)

	assert.Equal(t, MessageTypeResponse, m.Type)
	assert.Equal(t, "corr-1", m.CorrelationID)
	assert.Equal(t, true, m.Payload["success"])
	assert.Equal(t, map[string]any{"risk": "low"}, m.Payload["result"])
	assert.False(t, m.RequiresResponse)
}

func TestNewBroadcastRecipient(t *testing.T) {
	m := NewBroadcast("coordinator", []string{"a", "b"}, "alerts", map[string]any{"k": 1}, PriorityNormal)
	assert.Equal(t, "a,b", m.Recipient)
	assert.Equal(t, "alerts", m.Payload["topic"])
	assert.Equal(t, map[string]any{"k": 1}, m.Payload["data"])

	empty := NewBroadcast("coordinator", nil, "alerts", nil, PriorityNormal)
	assert.Equal(t, BroadcastRecipient, empty.Recipient)
}

func TestNewNotification(t *testing.T) {
	m := NewNotification("analyzer", "coordinator", "analysis_complete", map[string]any{"patient": "p1"})
	assert.Equal(t, MessageTypeNotification, m.Type)
	assert.Equal(t, "analysis_complete", m.Payload["event"])
	assert.False(t, m.RequiresResponse)
}

func TestIsAddressedTo(t *testing.T) {
	m := NewBroadcast("s", []string{"agent_a", "agent_b"}, "t", nil, PriorityNormal)
	assert.True(t, m.IsAddressedTo("agent_a"))
	assert.True(t, m.IsAddressedTo("agent_b"))
	assert.False(t, m.IsAddressedTo("agent_c"))

	all := NewBroadcast("s", nil, "t", nil, PriorityNormal)
	assert.True(t, all.IsAddressedTo("anyone"))
}

func TestMessageWireFormat(t *testing.T) {
	m := NewRequest("analyzer", "pharmacist", "check", map[string]any{"x": float64(1)}, PriorityCritical)

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, m.ID, raw["message_id"])
	assert.Equal(t, "request", raw["message_type"])
	assert.Equal(t, "CRITICAL", raw["priority"])
	assert.Equal(t, true, raw["requires_response"])
	assert.Equal(t, m.CorrelationID, raw["correlation_id"])
	assert.Contains(t, raw, "timestamp")

	var decoded Message
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, m.ID, decoded.ID)
	assert.Equal(t, m.Type, decoded.Type)
	assert.Equal(t, m.Priority, decoded.Priority)
	assert.Equal(t, m.CorrelationID, decoded.CorrelationID)
}

func TestMessageWireNullCorrelation(t *testing.T) {
	m := NewNotification("a", "b", "ev", nil)

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	v, ok := raw["correlation_id"]
	assert.True(t, ok, "correlation_id must be present on the wire")
	assert.Nil(t, v)
}

func TestPriorityOrdering(t *testing.T) {
	assert.True(t, PriorityLow < PriorityNormal)
	assert.True(t, PriorityNormal < PriorityHigh)
	assert.True(t, PriorityHigh < PriorityCritical)
}

func TestParsePriority(t *testing.T) {
	assert.Equal(t, PriorityLow, ParsePriority("LOW"))
	assert.Equal(t, PriorityCritical, ParsePriority("CRITICAL"))
	assert.Equal(t, PriorityNormal, ParsePriority("bogus"))
}

func TestMessageTypeValid(t *testing.T) {
	assert.True(t, MessageTypeAck.Valid())
	assert.False(t, MessageType("carrier_pigeon").Valid())
}
