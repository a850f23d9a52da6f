package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Event is a domain event emitted by the knowledge base and workflow engine.
type Event struct {
	// ID is the unique identifier for this event.
	ID string `json:"id"`

	// Timestamp is when the event occurred.
	Timestamp time.Time `json:"timestamp"`

	// Type is the event type.
	Type string `json:"type"`

	// Class is the associated class name, if applicable.
	Class string `json:"class,omitempty"`

	// InstanceID is the associated instance id, if applicable.
	InstanceID string `json:"instance_id,omitempty"`

	// Handler is the associated handler name, if applicable.
	Handler string `json:"handler,omitempty"`

	// ExecutionID is the associated workflow execution id, if applicable.
	ExecutionID string `json:"execution_id,omitempty"`

	// Message is a human-readable event message.
	Message string `json:"message"`

	// Data contains additional event-specific data.
	Data map[string]interface{} `json:"data,omitempty"`
}

// Event types.
const (
	EventTypeClassDefined      = "class.defined"
	EventTypeInstanceCreated   = "instance.created"
	EventTypeInstanceUpdated   = "instance.updated"
	EventTypeInstanceDeleted   = "instance.deleted"
	EventTypeHandlerRegistered = "handler.registered"
	EventTypeExecutionStarted  = "execution.started"
	EventTypeExecutionFinished = "execution.finished"
	EventTypeRuleNoted         = "rule.noted"
)

// EventSubscriber handles delivered events.
type EventSubscriber func(event Event)

// EventFilter determines whether an event is delivered.
type EventFilter func(event Event) bool

// EventPublisher fans domain events out to subscribers, either synchronously
// or through a buffered goroutine when async delivery is enabled. A disabled
// configuration yields a no-op publisher.
type EventPublisher struct {
	config      EventsConfig
	buffer      chan Event
	subscribers []subscriberEntry
	wg          sync.WaitGroup
	mu          sync.RWMutex
	closed      bool
}

type subscriberEntry struct {
	subscriber EventSubscriber
	filter     EventFilter
}

// NewEventPublisher creates an event publisher with the given configuration.
func NewEventPublisher(cfg EventsConfig) (*EventPublisher, error) {
	ep := &EventPublisher{config: cfg}
	if !cfg.Enabled {
		return ep, nil
	}

	if cfg.EnableAsync {
		ep.buffer = make(chan Event, cfg.BufferSize)
		ep.wg.Add(1)
		go ep.deliverLoop()
	}
	return ep, nil
}

// Subscribe registers a subscriber. A nil filter receives every event.
func (ep *EventPublisher) Subscribe(sub EventSubscriber, filter EventFilter) {
	ep.mu.Lock()
	defer ep.mu.Unlock()
	ep.subscribers = append(ep.subscribers, subscriberEntry{subscriber: sub, filter: filter})
}

// Publish delivers an event to all matching subscribers. Missing id and
// timestamp are filled in. When the async buffer is full the event is
// dropped rather than blocking the caller.
func (ep *EventPublisher) Publish(event Event) {
	if !ep.config.Enabled {
		return
	}

	if event.ID == "" {
		event.ID = uuid.New().String()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	if ep.buffer != nil {
		ep.mu.RLock()
		closed := ep.closed
		ep.mu.RUnlock()
		if closed {
			return
		}
		select {
		case ep.buffer <- event:
		default:
		}
		return
	}

	ep.deliver(event)
}

func (ep *EventPublisher) deliverLoop() {
	defer ep.wg.Done()
	for event := range ep.buffer {
		ep.deliver(event)
	}
}

func (ep *EventPublisher) deliver(event Event) {
	ep.mu.RLock()
	subs := make([]subscriberEntry, len(ep.subscribers))
	copy(subs, ep.subscribers)
	ep.mu.RUnlock()

	for _, entry := range subs {
		if entry.filter != nil && !entry.filter(event) {
			continue
		}
		entry.subscriber(event)
	}
}

// Shutdown stops the publisher, draining any buffered events first.
func (ep *EventPublisher) Shutdown(ctx context.Context) error {
	if !ep.config.Enabled || ep.buffer == nil {
		return nil
	}

	ep.mu.Lock()
	if ep.closed {
		ep.mu.Unlock()
		return nil
	}
	ep.closed = true
	ep.mu.Unlock()

	close(ep.buffer)

	done := make(chan struct{})
	go func() {
		ep.wg.Wait()
		close(done)
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-done:
		return nil
	}
}
