package provider

import (
	"encoding/json"
	"strings"

	"llmbridge/logger"
)

// ToolBuilder accumulates one tool call's fragmented JSON-argument deltas
// as they arrive out of a streaming response. OpenAI-compatible backends
// give the id/name up front and then stream only argument fragments;
// Anthropic gives id/name at content_block_start and argument fragments
// via input_json_delta. Both shapes funnel through Push/WithIDName here.
type ToolBuilder struct {
	id    string
	name  string
	parts []string
}

// WithIDName records the tool call's identity. Safe to call more than once:
// an empty id or name leaves the previously recorded value in place, and a
// non-empty one replaces it, since some backends repeat the id on every
// delta and others send it only on the first.
func (b *ToolBuilder) WithIDName(id, name string) {
	if id != "" {
		b.id = id
	}
	if name != "" {
		b.name = name
	}
}

// Push appends one fragment of the arguments JSON string.
func (b *ToolBuilder) Push(part string) {
	if part != "" {
		b.parts = append(b.parts, part)
	}
}

func (b *ToolBuilder) HasIdentity() bool {
	return b.id != "" && b.name != ""
}

// Finish assembles the accumulated fragments into a ToolCallEvent. Returns
// false if id or name is missing (nothing to finish) — a builder needs
// both before it's a usable tool call. A JSON parse failure on the
// assembled arguments does not abort the call: it logs a warning and
// reports Arguments as nil, matching how a malformed fragment stream
// degrades gracefully rather than dropping the whole tool call.
func (b *ToolBuilder) Finish() (ToolCallEvent, bool) {
	if b.id == "" || b.name == "" {
		return ToolCallEvent{}, false
	}

	jsonStr := strings.Join(b.parts, "")
	var args any
	if jsonStr == "" {
		args = map[string]any{}
	} else if err := json.Unmarshal([]byte(jsonStr), &args); err != nil {
		preview := jsonStr
		if len(preview) > 100 {
			preview = preview[:100]
		}
		logger.Get().Warn().
			Str("tool", b.name).
			Err(err).
			Str("argsPreview", preview).
			Msg("failed to parse tool call arguments, falling back to null")
		args = nil
	}

	return ToolCallEvent{ID: b.id, Name: b.name, Arguments: args}, true
}

// ToolBuilderSet tracks one ToolBuilder per pending tool call, keyed by the
// integer index OpenAI-compatible deltas use to multiplex concurrent tool
// calls in a single streamed response. Indexes are sparse-safe: an index
// arriving before its predecessors gets its own builder, and no builders
// are created for the indexes in between.
type ToolBuilderSet struct {
	byIndex map[int]*ToolBuilder
	order   []int
}

func NewToolBuilderSet() *ToolBuilderSet {
	return &ToolBuilderSet{byIndex: make(map[int]*ToolBuilder)}
}

// At returns the ToolBuilder for index, creating it (and recording
// insertion order) on first use.
func (s *ToolBuilderSet) At(index int) *ToolBuilder {
	b, ok := s.byIndex[index]
	if !ok {
		b = &ToolBuilder{}
		s.byIndex[index] = b
		s.order = append(s.order, index)
	}
	return b
}

// FinishAll returns completed ToolCallEvents for every builder that has an
// identity, in the order their index first appeared.
func (s *ToolBuilderSet) FinishAll() []ToolCallEvent {
	var out []ToolCallEvent
	for _, idx := range s.order {
		if ev, ok := s.byIndex[idx].Finish(); ok {
			out = append(out, ev)
		}
	}
	return out
}
