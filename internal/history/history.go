// Package history keeps an audit trail of asked questions and the rule that
// answered them.
package history

import (
	"context"
	"errors"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("history entry not found")

const (
	DefaultListLimit = 50
	MaxListLimit     = 1000
)

type Entry struct {
	ID         string    `json:"id"`
	Question   string    `json:"question"`
	RuleID     string    `json:"rule_id"`
	Shape      string    `json:"shape"`
	SQL        string    `json:"sql,omitempty"`
	Recognized bool      `json:"recognized"`
	Executed   bool      `json:"executed"`
	RowCount   int       `json:"row_count"`
	DurationMS int64     `json:"duration_ms"`
	Subject    string    `json:"subject,omitempty"`
	Error      string    `json:"error,omitempty"`
	AskedAt    time.Time `json:"asked_at"`
}

type RuleUsage struct {
	RuleID      string    `json:"rule_id"`
	Count       int64     `json:"count"`
	LastAskedAt time.Time `json:"last_asked_at"`
}

type Store interface {
	Record(ctx context.Context, entry Entry) (Entry, error)
	Get(ctx context.Context, id string) (Entry, error)
	List(ctx context.Context, limit int) ([]Entry, error)
	RuleUsage(ctx context.Context) ([]RuleUsage, error)
}

// ClampLimit applies the default and upper bound to a requested page size.
func ClampLimit(limit int) int {
	switch {
	case limit <= 0:
		return DefaultListLimit
	case limit > MaxListLimit:
		return MaxListLimit
	default:
		return limit
	}
}

// NewID returns a fresh entry identifier.
func NewID() string {
	return uuid.NewString()
}

// Memory is a bounded in-process Store used when no database is configured.
// The oldest entries are dropped once capacity is reached.
type Memory struct {
	mu       sync.RWMutex
	entries  []Entry
	capacity int
	now      func() time.Time
}

func NewMemory(capacity int) *Memory {
	if capacity <= 0 {
		capacity = MaxListLimit
	}
	return &Memory{capacity: capacity, now: func() time.Time { return time.Now().UTC() }}
}

func (m *Memory) Record(_ context.Context, entry Entry) (Entry, error) {
	if entry.ID == "" {
		entry.ID = NewID()
	}
	if entry.AskedAt.IsZero() {
		entry.AskedAt = m.now()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry)
	if overflow := len(m.entries) - m.capacity; overflow > 0 {
		m.entries = slices.Delete(m.entries, 0, overflow)
	}
	return entry, nil
}

func (m *Memory) Get(_ context.Context, id string) (Entry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, entry := range m.entries {
		if entry.ID == id {
			return entry, nil
		}
	}
	return Entry{}, ErrNotFound
}

func (m *Memory) List(_ context.Context, limit int) ([]Entry, error) {
	limit = ClampLimit(limit)
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]Entry, 0, min(limit, len(m.entries)))
	for i := len(m.entries) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, m.entries[i])
	}
	return out, nil
}

func (m *Memory) RuleUsage(_ context.Context) ([]RuleUsage, error) {
	m.mu.RLock()
	byRule := map[string]*RuleUsage{}
	for _, entry := range m.entries {
		usage, ok := byRule[entry.RuleID]
		if !ok {
			usage = &RuleUsage{RuleID: entry.RuleID}
			byRule[entry.RuleID] = usage
		}
		usage.Count++
		if entry.AskedAt.After(usage.LastAskedAt) {
			usage.LastAskedAt = entry.AskedAt
		}
	}
	m.mu.RUnlock()

	out := make([]RuleUsage, 0, len(byRule))
	for _, usage := range byRule {
		out = append(out, *usage)
	}
	slices.SortFunc(out, func(a, b RuleUsage) int {
		if a.Count != b.Count {
			if a.Count > b.Count {
				return -1
			}
			return 1
		}
		switch {
		case a.RuleID < b.RuleID:
			return -1
		case a.RuleID > b.RuleID:
			return 1
		}
		return 0
	})
	return out, nil
}
