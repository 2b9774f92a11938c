package testutil

import (
	"context"
	"sync"
	"time"

	"github.com/specialistvlad/layerstage/internal/model"
	"github.com/specialistvlad/layerstage/internal/probe"
)

// MockProber is a shared, self-contained prober for pipeline tests. It
// answers from Results and records the execution time of every probe.
// Dependencies missing from Results are reported as not found.
type MockProber struct {
	Results        map[string]model.ProbeResult
	ExecutionTimes map[string]*ExecutionRecord
	mu             sync.Mutex
	sleepDuration  time.Duration
	completionChan chan<- string
}

// NewMockProber creates a prober that sleeps for sleep on every call and,
// when completionChan is non-nil, reports each finished dependency on it.
func NewMockProber(results map[string]model.ProbeResult, completionChan chan<- string, sleep time.Duration) *MockProber {
	if results == nil {
		results = map[string]model.ProbeResult{}
	}
	return &MockProber{
		Results:        results,
		ExecutionTimes: make(map[string]*ExecutionRecord),
		sleepDuration:  sleep,
		completionChan: completionChan,
	}
}

// Probe implements pipeline.Prober.
func (m *MockProber) Probe(ctx context.Context, dep model.DependencySpec, _ probe.SearchPaths) model.ProbeResult {
	startTime := time.Now()
	select {
	case <-time.After(m.sleepDuration):
	case <-ctx.Done():
		return model.Failed(dep.Name, model.ReasonCancelled)
	}
	endTime := time.Now()

	m.mu.Lock()
	m.ExecutionTimes[dep.Name] = &ExecutionRecord{Start: startTime, End: endTime}
	res, ok := m.Results[dep.Name]
	m.mu.Unlock()

	if m.completionChan != nil {
		m.completionChan <- dep.Name
	}
	if !ok {
		return model.Failed(dep.Name, model.ReasonModuleNotFound)
	}
	res.Dependency = dep.Name
	return res
}

// Calls returns how many dependencies were probed.
func (m *MockProber) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.ExecutionTimes)
}
