package notifier

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Recorder receives delivery outcomes.
type Recorder interface {
	RecordNotification(notifier, status string)
}

// Registry manages notifier instances
type Registry struct {
	mu        sync.RWMutex
	notifiers map[string]Notifier
	metrics   Recorder
}

// NewRegistry creates a new notifier registry
func NewRegistry() *Registry {
	return &Registry{
		notifiers: make(map[string]Notifier),
	}
}

// SetMetrics records the outcome of every delivery.
func (r *Registry) SetMetrics(m Recorder) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics = m
}

// Register adds a notifier to the registry
func (r *Registry) Register(n Notifier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := n.Name()
	if _, exists := r.notifiers[name]; exists {
		return fmt.Errorf("notifier %s already registered", name)
	}

	r.notifiers[name] = n
	return nil
}

// Get retrieves a notifier by name
func (r *Registry) Get(name string) (Notifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, exists := r.notifiers[name]
	if !exists {
		return nil, fmt.Errorf("notifier %s not found", name)
	}
	return n, nil
}

// GetAll returns all registered notifiers sorted by name
func (r *Registry) GetAll() []Notifier {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Notifier, 0, len(r.notifiers))
	for _, n := range r.notifiers {
		result = append(result, n)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name() < result[j].Name() })
	return result
}

// Len returns the number of registered notifiers.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.notifiers)
}

// NotifyAll sends an alert to all registered notifiers
func (r *Registry) NotifyAll(ctx context.Context, alert Alert) map[string]error {
	return r.each(func(n Notifier) error { return n.Send(ctx, alert) })
}

// NotifyAllBatch sends several alerts to all registered notifiers
func (r *Registry) NotifyAllBatch(ctx context.Context, alerts []Alert) map[string]error {
	return r.each(func(n Notifier) error { return n.SendBatch(ctx, alerts) })
}

func (r *Registry) each(send func(n Notifier) error) map[string]error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	errs := make(map[string]error)
	for name, n := range r.notifiers {
		status := "success"
		if err := send(n); err != nil {
			errs[name] = err
			status = "error"
		}
		if r.metrics != nil {
			r.metrics.RecordNotification(name, status)
		}
	}
	return errs
}
