// Package health keeps the process-wide record of plugin and module
// outcomes. A single Monitor is created at startup and handed to every
// component that can observe a failure; the status endpoint reads it.
package health

import (
	"sort"
	"sync"
	"time"
)

// Status classifies the current outcome for a unit or module.
type Status string

const (
	StatusLoaded   Status = "loaded"
	StatusFailed   Status = "failed"
	StatusDisabled Status = "disabled"
)

// Outcome is the latest recorded result for one named unit, module, or
// component. The most recent write for a name wins.
type Outcome struct {
	Name   string    `json:"name"`
	Status Status    `json:"status"`
	Error  string    `json:"error,omitempty"`
	Time   time.Time `json:"time"`
}

// Monitor is a concurrently writable outcome record. Failures can be
// reported from any goroutine, including request-serving ones.
type Monitor struct {
	outcomes map[string]Outcome
	mu       sync.RWMutex
}

// NewMonitor creates an empty monitor.
func NewMonitor() *Monitor {
	return &Monitor{
		outcomes: make(map[string]Outcome),
	}
}

// RecordOutcome upserts the outcome for a name. A zero Time is stamped with
// the current time.
func (m *Monitor) RecordOutcome(o Outcome) {
	if o.Time.IsZero() {
		o.Time = time.Now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outcomes[o.Name] = o
}

// RecordLoaded marks a name as successfully loaded.
func (m *Monitor) RecordLoaded(name string) {
	m.RecordOutcome(Outcome{Name: name, Status: StatusLoaded})
}

// RecordDisabled marks a name as administratively disabled.
func (m *Monitor) RecordDisabled(name string) {
	m.RecordOutcome(Outcome{Name: name, Status: StatusDisabled})
}

// RecordFailure marks a name as failed with the given error. Used by
// discovery, registration, and rendering alike.
func (m *Monitor) RecordFailure(name string, err error) {
	o := Outcome{Name: name, Status: StatusFailed}
	if err != nil {
		o.Error = err.Error()
	}
	m.RecordOutcome(o)
}

// Get returns the current outcome for a name.
func (m *Monitor) Get(name string) (Outcome, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.outcomes[name]
	return o, ok
}

// List returns all outcomes sorted by name.
func (m *Monitor) List() []Outcome {
	m.mu.RLock()
	result := make([]Outcome, 0, len(m.outcomes))
	for _, o := range m.outcomes {
		result = append(result, o)
	}
	m.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		return result[i].Name < result[j].Name
	})
	return result
}

// Count returns the number of recorded outcomes with the given status.
func (m *Monitor) Count(status Status) int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	n := 0
	for _, o := range m.outcomes {
		if o.Status == status {
			n++
		}
	}
	return n
}
