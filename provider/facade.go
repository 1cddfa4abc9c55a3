package provider

import (
	"context"
	"fmt"
)

// Streamer is the contract every backend adaptor satisfies: the streaming
// chat call, its non-streaming counterpart, and catalog discovery. The
// caller owns the events channel's lifecycle: Stream sends EventDone or EventError
// as its last write but never closes the channel.
type Streamer interface {
	Stream(ctx context.Context, req ChatRequest, events chan<- StreamEvent) error
	Complete(ctx context.Context, req ChatRequest) (Message, error)
	ListModels(ctx context.Context) ([]ModelInfo, error)
}

// Facade dispatches a ChatRequest to the right backend adaptor by Backend
// id, so callers depend on one entry point instead of importing every
// concrete provider type. This is the "polymorphism over providers" seam:
// adding a backend means adding one case here and one Streamer
// implementation, nothing else in the call chain changes.
type Facade struct {
	registry *ModelRegistry
}

func NewFacade(registry *ModelRegistry) *Facade {
	return &Facade{registry: registry}
}

// Resolve builds the Streamer for backend using whatever credentials are
// present in the environment. Returns an error naming the missing env vars
// when the backend has no usable API key (Ollama never errors here, since
// it needs none).
func (f *Facade) Resolve(backend Backend) (Streamer, error) {
	if !backend.IsAvailable() {
		return nil, fmt.Errorf("provider %s: no credentials found in %v", backend.Name(), backend.EnvVars())
	}
	key, _ := backend.APIKey()

	switch backend {
	case BackendOpenAI:
		return NewOpenAICompatProvider("", key, QuirksOpenAI), nil
	case BackendGroq:
		return NewOpenAICompatProvider("", key, QuirksGroq), nil
	case BackendOpenRouter:
		return NewOpenAICompatProvider("", key, QuirksOpenRouter), nil
	case BackendAnthropic:
		return NewAnthropicProvider(key), nil
	case BackendOllama:
		return NewOllamaProvider(), nil
	case BackendGoogle:
		return NewGoogleProvider(key), nil
	default:
		return nil, fmt.Errorf("provider %s: unknown backend", backend.Name())
	}
}

// Stream resolves backend's Streamer and runs it in one call, for callers
// that don't need to cache the resolved Streamer across turns.
func (f *Facade) Stream(ctx context.Context, backend Backend, req ChatRequest, events chan<- StreamEvent) error {
	s, err := f.Resolve(backend)
	if err != nil {
		events <- StreamEvent{Type: EventError, Err: err}
		return err
	}
	return s.Stream(ctx, req, events)
}

// Complete resolves backend's Streamer and issues a non-streaming request.
func (f *Facade) Complete(ctx context.Context, backend Backend, req ChatRequest) (Message, error) {
	s, err := f.Resolve(backend)
	if err != nil {
		return Message{}, err
	}
	return s.Complete(ctx, req)
}

// ListModels resolves backend's Streamer and lists the models it reports
// directly from its own endpoint — distinct from Registry(), which serves
// the OpenRouter/models.dev-backed cross-backend catalog.
func (f *Facade) ListModels(ctx context.Context, backend Backend) ([]ModelInfo, error) {
	s, err := f.Resolve(backend)
	if err != nil {
		return nil, err
	}
	return s.ListModels(ctx)
}

// Registry exposes the facade's model catalog for callers building model
// pickers or cost estimates.
func (f *Facade) Registry() *ModelRegistry {
	return f.registry
}
