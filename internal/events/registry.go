package events

import (
	"encoding/json"
	"fmt"
)

// EventFactory creates a new zero-value event of a specific type.
type EventFactory func() Event

// Registry maps event types to their factories for deserialization.
type Registry struct {
	factories map[string]EventFactory
}

// NewRegistry creates a new event registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]EventFactory),
	}
}

// Register adds an event type to the registry.
func (r *Registry) Register(eventType string, factory EventFactory) {
	r.factories[eventType] = factory
}

// Unmarshal deserializes a raw event into its concrete type.
// Error variants come back without the original error value; only its message survives.
func (r *Registry) Unmarshal(raw RawEvent) (Event, error) {
	factory, ok := r.factories[raw.EventType]
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", raw.EventType)
	}

	event := factory()
	if err := json.Unmarshal([]byte(raw.Payload), event); err != nil {
		return nil, fmt.Errorf("unmarshal event payload: %w", err)
	}

	return event, nil
}

// DefaultRegistry returns a registry with all import event types registered.
func DefaultRegistry() *Registry {
	r := NewRegistry()

	// Lifecycle
	r.Register(EventLoadingImage, func() Event { return &LoadingImage{} })
	r.Register(EventLoadedImage, func() Event { return &LoadedImage{} })
	r.Register(EventBeginPostProcess, func() Event { return &BeginPostProcess{} })
	r.Register(EventEndPostProcess, func() Event { return &EndPostProcess{} })
	r.Register(EventBeginSaveToDB, func() Event { return &BeginSaveToDB{} })
	r.Register(EventEndSaveToDB, func() Event { return &EndSaveToDB{} })
	r.Register(EventDatasetStored, func() Event { return &DatasetStored{} })
	r.Register(EventImportStep, func() Event { return &ImportStep{} })
	r.Register(EventDataStored, func() Event { return &DataStored{} })
	r.Register(EventImportArchiving, func() Event { return &ImportArchiving{} })
	r.Register(EventImportOverlays, func() Event { return &ImportOverlays{} })
	r.Register(EventImportThumbnailing, func() Event { return &ImportThumbnailing{} })
	r.Register(EventImportDone, func() Event { return &ImportDone{} })
	r.Register(EventReaderStatus, func() Event { return &ReaderStatus{} })
	r.Register(EventErrorsComplete, func() Event { return &ErrorsComplete{} })

	// Errors
	r.Register(EventUnknownFormat, func() Event { return &UnknownFormat{} })
	r.Register(EventFileException, func() Event { return &FileException{} })
	r.Register(EventMissingLibrary, func() Event { return &MissingLibrary{} })
	r.Register(EventInternalException, func() Event { return &InternalException{} })

	return r
}
