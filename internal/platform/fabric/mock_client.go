package fabric

import (
	"context"
	"fmt"
	"net/http"
	"sync"
)

// Call records one invocation against the mock control plane.
type Call struct {
	Op     string // "check", "create" or "probe"
	Kind   Kind
	Name   string
	Parent string
}

// MockControlPlane is a scripted in-memory ControlPlane for tests.
// Resources can be seeded as pre-existing, and errors can be queued
// per resource to simulate transient or fatal control-plane behavior.
type MockControlPlane struct {
	mu         sync.Mutex
	existing   map[string]string
	createErrs map[string][]error
	checkErrs  map[string][]error
	probeErr   error
	calls      []Call
	nextID     int
}

// NewMockControlPlane creates an empty mock.
func NewMockControlPlane() *MockControlPlane {
	return &MockControlPlane{
		existing:   make(map[string]string),
		createErrs: make(map[string][]error),
		checkErrs:  make(map[string][]error),
	}
}

func resourceKey(kind Kind, parentID, name string) string {
	return string(kind) + "|" + parentID + "|" + name
}

// Seed marks a resource as already existing with the given id.
func (m *MockControlPlane) Seed(kind Kind, parentID, name, id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.existing[resourceKey(kind, parentID, name)] = id
}

// FailCreate queues errors returned by successive Create calls for the
// resource. Once the queue drains, Create behaves normally.
func (m *MockControlPlane) FailCreate(kind Kind, parentID, name string, errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := resourceKey(kind, parentID, name)
	m.createErrs[key] = append(m.createErrs[key], errs...)
}

// FailCheck queues errors returned by successive CheckExists calls.
func (m *MockControlPlane) FailCheck(kind Kind, parentID, name string, errs ...error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := resourceKey(kind, parentID, name)
	m.checkErrs[key] = append(m.checkErrs[key], errs...)
}

// SetProbeError makes Probe fail with the given error.
func (m *MockControlPlane) SetProbeError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.probeErr = err
}

// Calls returns a copy of every recorded invocation in order.
func (m *MockControlPlane) Calls() []Call {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Call, len(m.calls))
	copy(out, m.calls)
	return out
}

// CallCount counts recorded invocations matching op and kind. Empty
// values match everything.
func (m *MockControlPlane) CallCount(op string, kind Kind) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, c := range m.calls {
		if (op == "" || c.Op == op) && (kind == "" || c.Kind == kind) {
			n++
		}
	}
	return n
}

// CheckExists implements ControlPlane.
func (m *MockControlPlane) CheckExists(_ context.Context, kind Kind, name, parentID string) (bool, string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: "check", Kind: kind, Name: name, Parent: parentID})

	key := resourceKey(kind, parentID, name)
	if errs := m.checkErrs[key]; len(errs) > 0 {
		m.checkErrs[key] = errs[1:]
		return false, "", errs[0]
	}
	if id, ok := m.existing[key]; ok {
		return true, id, nil
	}
	return false, "", nil
}

// Create implements ControlPlane. Creating a resource that already
// exists returns a conflict, mirroring the real control plane.
func (m *MockControlPlane) Create(_ context.Context, kind Kind, name, parentID string, _ Definition) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: "create", Kind: kind, Name: name, Parent: parentID})

	key := resourceKey(kind, parentID, name)
	if errs := m.createErrs[key]; len(errs) > 0 {
		m.createErrs[key] = errs[1:]
		// A scripted conflict means a concurrent actor won the race;
		// the resource exists for subsequent checks.
		if IsAlreadyExists(errs[0]) {
			if _, ok := m.existing[key]; !ok {
				m.existing[key] = "raced-" + name
			}
		}
		return "", errs[0]
	}
	if _, ok := m.existing[key]; ok {
		return "", &APIError{StatusCode: http.StatusConflict, Code: "EntityAlreadyExists", Message: name}
	}

	m.nextID++
	id := fmt.Sprintf("%s-id-%d", kind, m.nextID)
	m.existing[key] = id
	return id, nil
}

// Probe implements ControlPlane.
func (m *MockControlPlane) Probe(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, Call{Op: "probe"})
	return m.probeErr
}

// MockDataPlane is a scripted DataPlane for tests.
type MockDataPlane struct {
	mu sync.Mutex
	// QueryFunc handles each query; when nil, Rows/Err are returned.
	QueryFunc func(database, expression string) (Rows, error)
	Rows      Rows
	Err       error
	queries   int
}

// Query implements DataPlane.
func (m *MockDataPlane) Query(_ context.Context, database, expression string) (Rows, error) {
	m.mu.Lock()
	m.queries++
	fn := m.QueryFunc
	m.mu.Unlock()

	if fn != nil {
		return fn(database, expression)
	}
	return m.Rows, m.Err
}

// Queries returns how many queries were issued.
func (m *MockDataPlane) Queries() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queries
}
