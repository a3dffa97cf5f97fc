package telemetry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event represents a telemetry event in the incus-composer pipeline.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// Source identifies where the event originated.
	Source string `json:"source"`

	// RunID is the associated journal run ID, if applicable.
	RunID string `json:"run_id,omitempty"`

	// Document is the associated document path, if applicable.
	Document string `json:"document,omitempty"`

	// Container is the associated container name, if applicable.
	Container string `json:"container,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Level is the event severity level (info, warning, error).
	Level string `json:"level"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// EventType constants for common event types.
const (
	EventTypeDocumentParsed      = "document.parsed"
	EventTypeValidationCompleted = "validation.completed"
	EventTypeViolationFound      = "violation.found"
	EventTypePlanComputed        = "plan.computed"
	EventTypeLockfileWritten     = "lockfile.written"
	EventTypeWatchReloaded       = "watch.reloaded"
	EventTypeError               = "error"
)

// EventLevel constants for event severity.
const (
	EventLevelInfo    = "info"
	EventLevelWarning = "warning"
	EventLevelError   = "error"
)

// EventSubscriber is a function that handles events.
type EventSubscriber func(event Event)

// EventFilter determines if an event should be processed.
type EventFilter func(event Event) bool

// EventPublisher manages event publishing and subscriptions.
type EventPublisher struct {
	config      EventsConfig
	buffer      chan Event
	subscribers []subscriberEntry
	filters     []EventFilter
	wg          sync.WaitGroup
	mu          sync.RWMutex
	ctx         context.Context
	cancel      context.CancelFunc
}

type subscriberEntry struct {
	subscriber EventSubscriber
	filter     EventFilter
}

// NewEventPublisher creates a new event publisher with the given configuration.
func NewEventPublisher(cfg EventsConfig) (*EventPublisher, error) {
	if !cfg.Enabled {
		return &EventPublisher{config: cfg}, nil
	}

	ctx, cancel := context.WithCancel(context.Background())

	ep := &EventPublisher{
		config:      cfg,
		buffer:      make(chan Event, cfg.BufferSize),
		subscribers: make([]subscriberEntry, 0),
		filters:     make([]EventFilter, 0),
		ctx:         ctx,
		cancel:      cancel,
	}

	// Start the event processing goroutine
	if cfg.EnableAsync {
		ep.wg.Add(1)
		go ep.processEvents()
	}

	// Start the periodic flush goroutine
	if cfg.FlushInterval > 0 {
		ep.wg.Add(1)
		go ep.periodicFlush()
	}

	return ep, nil
}

// Publish publishes an event to all subscribers.
func (ep *EventPublisher) Publish(event Event) error {
	if !ep.config.Enabled {
		return nil
	}

	// Set ID and timestamp if not already set
	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	// Apply global filters
	ep.mu.RLock()
	for _, filter := range ep.filters {
		if !filter(event) {
			ep.mu.RUnlock()
			return nil // Event filtered out
		}
	}
	ep.mu.RUnlock()

	// Send to buffer if async, otherwise process immediately
	if ep.config.EnableAsync {
		select {
		case ep.buffer <- event:
			return nil
		case <-ep.ctx.Done():
			return fmt.Errorf("event publisher stopped")
		default:
			// Buffer full, drop event or log warning
			return fmt.Errorf("event buffer full, event dropped")
		}
	}

	// Synchronous publishing
	ep.deliverEvent(event)
	return nil
}

// PublishDocumentParsed publishes a document parsed event.
func (ep *EventPublisher) PublishDocumentParsed(document string, containers int) error {
	return ep.Publish(Event{
		Type:     EventTypeDocumentParsed,
		Source:   "compose",
		Document: document,
		Message:  fmt.Sprintf("Parsed %s with %d containers", document, containers),
		Level:    EventLevelInfo,
		Data: map[string]interface{}{
			"containers": containers,
		},
	})
}

// PublishValidationCompleted publishes a validation completed event.
func (ep *EventPublisher) PublishValidationCompleted(document, outcome string, violations int, duration time.Duration) error {
	level := EventLevelInfo
	if outcome != "valid" {
		level = EventLevelWarning
	}
	return ep.Publish(Event{
		Type:     EventTypeValidationCompleted,
		Source:   "engine",
		Document: document,
		Message:  fmt.Sprintf("Validation of %s completed: %s", document, outcome),
		Level:    level,
		Data: map[string]interface{}{
			"outcome":    outcome,
			"violations": violations,
			"duration":   duration.Seconds(),
		},
	})
}

// PublishViolationFound publishes a violation found event.
func (ep *EventPublisher) PublishViolationFound(document, container, kind, message string) error {
	return ep.Publish(Event{
		Type:      EventTypeViolationFound,
		Source:    "engine",
		Document:  document,
		Container: container,
		Message:   fmt.Sprintf("Violation on %s: %s - %s", container, kind, message),
		Level:     EventLevelWarning,
		Data: map[string]interface{}{
			"kind":   kind,
			"detail": message,
		},
	})
}

// PublishPlanComputed publishes a plan computed event.
func (ep *EventPublisher) PublishPlanComputed(document string, containers, levels int) error {
	return ep.Publish(Event{
		Type:     EventTypePlanComputed,
		Source:   "engine",
		Document: document,
		Message:  fmt.Sprintf("Start plan for %s: %d containers in %d levels", document, containers, levels),
		Level:    EventLevelInfo,
		Data: map[string]interface{}{
			"containers": containers,
			"levels":     levels,
		},
	})
}

// PublishLockfileWritten publishes a lockfile written event.
func (ep *EventPublisher) PublishLockfileWritten(document, path string, addresses int) error {
	return ep.Publish(Event{
		Type:     EventTypeLockfileWritten,
		Source:   "lockfile",
		Document: document,
		Message:  fmt.Sprintf("Lockfile %s written with %d pinned addresses", path, addresses),
		Level:    EventLevelInfo,
		Data: map[string]interface{}{
			"path":      path,
			"addresses": addresses,
		},
	})
}

// PublishWatchReloaded publishes a watch reloaded event.
func (ep *EventPublisher) PublishWatchReloaded(document, trigger string) error {
	return ep.Publish(Event{
		Type:     EventTypeWatchReloaded,
		Source:   "watch",
		Document: document,
		Message:  fmt.Sprintf("Revalidated %s after %s", document, trigger),
		Level:    EventLevelInfo,
		Data: map[string]interface{}{
			"trigger": trigger,
		},
	})
}

// Subscribe adds a new event subscriber.
func (ep *EventPublisher) Subscribe(subscriber EventSubscriber, filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.subscribers = append(ep.subscribers, subscriberEntry{
		subscriber: subscriber,
		filter:     filter,
	})
}

// AddFilter adds a global event filter.
func (ep *EventPublisher) AddFilter(filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()

	ep.filters = append(ep.filters, filter)
}

// processEvents processes events from the buffer asynchronously.
func (ep *EventPublisher) processEvents() {
	defer ep.wg.Done()

	batch := make([]Event, 0, ep.config.MaxBatchSize)

	for {
		select {
		case event := <-ep.buffer:
			batch = append(batch, event)

			// Flush batch if it reaches max size
			if len(batch) >= ep.config.MaxBatchSize {
				ep.flushBatch(batch)
				batch = make([]Event, 0, ep.config.MaxBatchSize)
			}

		case <-ep.ctx.Done():
			// Flush remaining events before shutting down
			if len(batch) > 0 {
				ep.flushBatch(batch)
			}
			return
		}
	}
}

// periodicFlush flushes events periodically.
func (ep *EventPublisher) periodicFlush() {
	defer ep.wg.Done()

	ticker := time.NewTicker(ep.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			// Trigger flush by draining buffer
			// This is handled by the processEvents goroutine
		case <-ep.ctx.Done():
			return
		}
	}
}

// flushBatch delivers a batch of events to subscribers.
func (ep *EventPublisher) flushBatch(events []Event) {
	for _, event := range events {
		ep.deliverEvent(event)
	}
}

// deliverEvent delivers an event to all subscribers.
func (ep *EventPublisher) deliverEvent(event Event) {
	ep.mu.RLock()
	defer ep.mu.RUnlock()

	for _, entry := range ep.subscribers {
		// Apply subscriber-specific filter
		if entry.filter != nil && !entry.filter(event) {
			continue
		}

		// Call subscriber in a goroutine to avoid blocking
		go entry.subscriber(event)
	}
}

// Shutdown gracefully shuts down the event publisher.
func (ep *EventPublisher) Shutdown(ctx context.Context) error {
	if !ep.config.Enabled {
		return nil
	}

	// Signal shutdown
	ep.cancel()

	// Wait for processing to complete with timeout
	done := make(chan struct{})
	go func() {
		ep.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("event publisher shutdown timeout")
	}
}

// Common event filters.

// FilterByLevel creates a filter that only allows events of a specific level or higher.
func FilterByLevel(minLevel string) EventFilter {
	levels := map[string]int{
		EventLevelInfo:    0,
		EventLevelWarning: 1,
		EventLevelError:   2,
	}

	minLevelValue := levels[minLevel]

	return func(event Event) bool {
		return levels[event.Level] >= minLevelValue
	}
}

// FilterByType creates a filter that only allows events of specific types.
func FilterByType(types ...string) EventFilter {
	typeSet := make(map[string]bool)
	for _, t := range types {
		typeSet[t] = true
	}

	return func(event Event) bool {
		return typeSet[event.Type]
	}
}

// FilterByRunID creates a filter that only allows events for a specific run.
func FilterByRunID(runID string) EventFilter {
	return func(event Event) bool {
		return event.RunID == runID
	}
}

// FilterByContainer creates a filter that only allows events for a specific container.
func FilterByContainer(container string) EventFilter {
	return func(event Event) bool {
		return event.Container == container
	}
}
