package queue

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Request carries the job fields a handler needs to run its operation.
type Request struct {
	InputRef   string
	OutputRef  string
	Parameters Params
}

// Handler executes one operation. Progress percentages in [0,100] are pushed
// to the sink; the executor drains it and closes it after the handler
// returns. Handlers must send without blocking on a full sink (drop updates
// rather than stall the external process).
//
// A nil error means success and the returned Outcome is stored on the job.
// Any error marks the job failed; progress decisions never influence the
// result.
type Handler func(ctx context.Context, req Request, progress chan<- float64) (*Outcome, error)

// Registry maps operation names to handlers. Lookup of an unknown name is a
// resolution failure surfaced on the job, not a panic.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string]Handler
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{handlers: make(map[string]Handler)}
}

// Register adds a handler under the given operation name.
func (r *Registry) Register(name string, handler Handler) error {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return fmt.Errorf("register operation: empty name")
	}
	if handler == nil {
		return fmt.Errorf("register operation %q: nil handler", name)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.handlers[name]; exists {
		return fmt.Errorf("register operation %q: already registered", name)
	}
	r.handlers[name] = handler
	return nil
}

// Resolve returns the handler for an operation name.
func (r *Registry) Resolve(name string) (Handler, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	handler, ok := r.handlers[strings.ToLower(strings.TrimSpace(name))]
	return handler, ok
}

// Names returns the sorted list of registered operation names.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.handlers))
	for name := range r.handlers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
