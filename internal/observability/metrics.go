package observability

import (
	"strconv"
	"sync"
	"time"
)

// Workflow run outcomes. NoQualifiedModerator is a business outcome,
// not a fault, so it gets its own counter bucket.
const (
	OutcomeCompleted            = "completed"
	OutcomeNotFound             = "not_found"
	OutcomeClassificationFailed = "classification_failed"
	OutcomeNoQualifiedModerator = "no_qualified_moderator"
	OutcomeFailed               = "failed"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	requestCount map[string]int64
	errorCount   map[string]int64
	runCount     map[string]int64
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		runCount:     make(map[string]int64),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + strconv.Itoa(status)
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[key]++
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	key := path + "|" + method + "|" + code
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[key]++
}

// RecordWorkflowRun increments the counter for a workflow run outcome.
func (m *Metrics) RecordWorkflowRun(workflow, outcome string) {
	if m == nil {
		return
	}
	key := workflow + "|" + outcome
	m.mu.Lock()
	defer m.mu.Unlock()
	m.runCount[key]++
}

// WorkflowRuns returns the counter for a workflow/outcome pair.
func (m *Metrics) WorkflowRuns(workflow, outcome string) int64 {
	if m == nil {
		return 0
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.runCount[workflow+"|"+outcome]
}
