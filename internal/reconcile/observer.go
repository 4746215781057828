package reconcile

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/zojovano/azuresamples-fabric-observability-sub000/internal/platform/fabric"
)

// Observer receives structured convergence events.
type Observer interface {
	// Printf emits a plain progress line.
	Printf(format string, v ...interface{})

	// Event emits a structured convergence event.
	Event(event Event)
}

// Event represents one structured convergence event.
type Event struct {
	Type      EventType
	Kind      fabric.Kind
	Resource  string
	Message   string
	Timestamp time.Time
	Fields    map[string]string
}

// EventType represents the type of convergence event.
type EventType string

const (
	// EventRunStarted indicates a convergence run has started.
	EventRunStarted EventType = "run.started"
	// EventRunCompleted indicates a convergence run finished.
	EventRunCompleted EventType = "run.completed"

	// EventResourceChecking indicates an existence check is in flight.
	EventResourceChecking EventType = "resource.checking"
	// EventResourceExists indicates the resource was found.
	EventResourceExists EventType = "resource.exists"
	// EventResourceCreating indicates a create call is in flight.
	EventResourceCreating EventType = "resource.creating"
	// EventResourceCreated indicates the resource was created.
	EventResourceCreated EventType = "resource.created"
	// EventResourceFailed indicates the resource could not be resolved.
	EventResourceFailed EventType = "resource.failed"
)

// ConsoleObserver implements Observer using the standard log package.
type ConsoleObserver struct{}

// NewConsoleObserver creates a console-based observer.
func NewConsoleObserver() *ConsoleObserver {
	return &ConsoleObserver{}
}

// Printf implements Observer.
func (o *ConsoleObserver) Printf(format string, v ...interface{}) {
	log.Printf(format, v...)
}

// Event implements Observer.
func (o *ConsoleObserver) Event(event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	parts := []string{string(event.Type)}
	if event.Kind != "" {
		parts = append(parts, fmt.Sprintf("kind=%s", event.Kind))
	}
	if event.Resource != "" {
		parts = append(parts, fmt.Sprintf("resource=%s", event.Resource))
	}
	if event.Message != "" {
		parts = append(parts, event.Message)
	}
	for k, v := range event.Fields {
		parts = append(parts, fmt.Sprintf("%s=%s", k, v))
	}
	log.Print(strings.Join(parts, " "))
}

// nopObserver discards everything. Used when no observer is configured.
type nopObserver struct{}

func (nopObserver) Printf(string, ...interface{}) {}
func (nopObserver) Event(Event)                   {}
