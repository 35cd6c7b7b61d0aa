package workflow

import (
	"sync"

	"commentguard/internal/models"
)

// DefaultLogCapacity is how many executions the log keeps.
const DefaultLogCapacity = 100

// ExecutionLog is a bounded ring of executions. When full, the oldest record
// is dropped.
type ExecutionLog struct {
	mu   sync.Mutex
	buf  []models.WorkflowExecution
	next int
	size int
}

// NewExecutionLog returns an empty log holding at most capacity records.
func NewExecutionLog(capacity int) *ExecutionLog {
	if capacity <= 0 {
		capacity = DefaultLogCapacity
	}
	return &ExecutionLog{buf: make([]models.WorkflowExecution, capacity)}
}

// Append records exec as the most recent entry.
func (l *ExecutionLog) Append(exec models.WorkflowExecution) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.buf[l.next] = exec
	l.next = (l.next + 1) % len(l.buf)
	if l.size < len(l.buf) {
		l.size++
	}
}

// List returns up to limit records, most recent first. A non-positive limit
// returns everything retained.
func (l *ExecutionLog) List(limit int) []models.WorkflowExecution {
	l.mu.Lock()
	defer l.mu.Unlock()
	if limit <= 0 || limit > l.size {
		limit = l.size
	}
	out := make([]models.WorkflowExecution, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (l.next - i + len(l.buf)) % len(l.buf)
		out = append(out, l.buf[idx])
	}
	return out
}

// Len returns the number of retained records.
func (l *ExecutionLog) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.size
}

// Capacity returns the retention bound.
func (l *ExecutionLog) Capacity() int {
	return len(l.buf)
}

// Restore replaces the contents with execs, given most recent first.
func (l *ExecutionLog) Restore(execs []models.WorkflowExecution) {
	l.mu.Lock()
	defer l.mu.Unlock()
	clear(l.buf)
	if len(execs) > len(l.buf) {
		execs = execs[:len(l.buf)]
	}
	n := len(execs)
	for i, exec := range execs {
		l.buf[n-1-i] = exec
	}
	l.size = n
	l.next = n % len(l.buf)
}
