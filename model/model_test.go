package model

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockCompleterCannedResponse(t *testing.T) {
	m := NewMockCompleter("test")
	m.AddResponse("ping", "pong")

	resp, err := m.Complete(context.Background(), "ping")
	require.NoError(t, err)
	assert.Equal(t, "pong", resp)
}

func TestMockCompleterEchoFallback(t *testing.T) {
	m := NewMockCompleter("test")

	resp, err := m.Complete(context.Background(), "anything")
	require.NoError(t, err)
	assert.Equal(t, "Mock completion for: anything", resp)
}

func TestMockCompleterInfo(t *testing.T) {
	m := NewMockCompleter("test")
	info := m.Info()
	assert.Equal(t, "test", info.Name)
	assert.Equal(t, "mock", info.Provider)
}
