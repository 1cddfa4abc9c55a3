package provider

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSSESimpleEvent(t *testing.T) {
	p := NewSSEParser()
	events := p.Feed("data: hello\n\n")
	require.Len(t, events, 1)
	assert.Equal(t, "hello", events[0].Data)
	assert.Equal(t, "", events[0].Event)
}

func TestSSEEventWithType(t *testing.T) {
	p := NewSSEParser()
	events := p.Feed("event: message_start\ndata: {\"foo\":1}\n\n")
	require.Len(t, events, 1)
	assert.Equal(t, "message_start", events[0].Event)
	assert.Equal(t, `{"foo":1}`, events[0].Data)
}

func TestSSEMultipleEvents(t *testing.T) {
	p := NewSSEParser()
	events := p.Feed("data: first\n\ndata: second\n\n")
	require.Len(t, events, 2)
	assert.Equal(t, "first", events[0].Data)
	assert.Equal(t, "second", events[1].Data)
}

func TestSSEPartialEvent(t *testing.T) {
	p := NewSSEParser()
	events := p.Feed("data: partia")
	assert.Empty(t, events)
	assert.True(t, p.HasPending())

	events = p.Feed("l\n\n")
	require.Len(t, events, 1)
	assert.Equal(t, "partial", events[0].Data)
	assert.False(t, p.HasPending())
}

func TestSSEMultilineData(t *testing.T) {
	p := NewSSEParser()
	events := p.Feed("data: line one\ndata: line two\n\n")
	require.Len(t, events, 1)
	assert.Equal(t, "line one\nline two", events[0].Data)
}

func TestSSECommentIgnored(t *testing.T) {
	p := NewSSEParser()
	events := p.Feed(": keep-alive\ndata: hi\n\n")
	require.Len(t, events, 1)
	assert.Equal(t, "hi", events[0].Data)
}

func TestSSEEventWithoutDataLineDropped(t *testing.T) {
	p := NewSSEParser()
	events := p.Feed("event: ping\n\n")
	assert.Empty(t, events)
}

func TestSSEAnthropicStyleEvent(t *testing.T) {
	p := NewSSEParser()
	events := p.Feed("event: content_block_delta\ndata: {\"type\":\"content_block_delta\",\"index\":0,\"delta\":{\"type\":\"text_delta\",\"text\":\"Hi\"}}\n\n")
	require.Len(t, events, 1)
	assert.Equal(t, "content_block_delta", events[0].Event)
}

func TestSSEOpenAIStyleEvent(t *testing.T) {
	p := NewSSEParser()
	events := p.Feed("data: {\"id\":\"chatcmpl-1\",\"choices\":[{\"delta\":{\"content\":\"Hi\"}}]}\n\n")
	require.Len(t, events, 1)
	assert.Equal(t, "", events[0].Event)
}

func TestSSEDoneMarker(t *testing.T) {
	p := NewSSEParser()
	events := p.Feed("data: [DONE]\n\n")
	require.Len(t, events, 1)
	assert.Equal(t, "[DONE]", events[0].Data)
}

func TestSSEOnlySingleLeadingSpaceStripped(t *testing.T) {
	p := NewSSEParser()
	events := p.Feed("data:  foo\n\n")
	require.Len(t, events, 1)
	assert.Equal(t, " foo", events[0].Data)
}

func TestSSEFeedAcrossChunkBoundaries(t *testing.T) {
	p := NewSSEParser()
	var all []Event
	chunks := []string{"data: a", "bc\n", "\ndata: d", "ef\n\n"}
	for _, c := range chunks {
		all = append(all, p.Feed(c)...)
	}
	require.Len(t, all, 2)
	assert.Equal(t, "abc", all[0].Data)
	assert.Equal(t, "def", all[1].Data)
}
