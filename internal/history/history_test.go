package history

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRecordAssignsIDAndTime(t *testing.T) {
	store := NewMemory(10)
	entry, err := store.Record(context.Background(), Entry{Question: "Top 5 products", RuleID: "top_n"})
	require.NoError(t, err)
	assert.NotEmpty(t, entry.ID)
	assert.False(t, entry.AskedAt.IsZero())

	got, err := store.Get(context.Background(), entry.ID)
	require.NoError(t, err)
	assert.Equal(t, entry, got)

	_, err = store.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryListNewestFirstAndBounded(t *testing.T) {
	store := NewMemory(3)
	base := time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, rule := range []string{"a", "b", "c", "d"} {
		_, err := store.Record(context.Background(), Entry{RuleID: rule, AskedAt: base.Add(time.Duration(i) * time.Minute)})
		require.NoError(t, err)
	}

	entries, err := store.List(context.Background(), 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "d", entries[0].RuleID)
	assert.Equal(t, "b", entries[2].RuleID)

	entries, err = store.List(context.Background(), 1)
	require.NoError(t, err)
	require.Len(t, entries, 1)
}

func TestMemoryRuleUsage(t *testing.T) {
	store := NewMemory(0)
	base := time.Date(2023, 3, 1, 0, 0, 0, 0, time.UTC)
	for i, rule := range []string{"total", "top_n", "total", "fallback", "top_n", "total"} {
		_, err := store.Record(context.Background(), Entry{RuleID: rule, AskedAt: base.Add(time.Duration(i) * time.Hour)})
		require.NoError(t, err)
	}

	usage, err := store.RuleUsage(context.Background())
	require.NoError(t, err)
	require.Len(t, usage, 3)
	assert.Equal(t, RuleUsage{RuleID: "total", Count: 3, LastAskedAt: base.Add(5 * time.Hour)}, usage[0])
	assert.Equal(t, "top_n", usage[1].RuleID)
	assert.Equal(t, "fallback", usage[2].RuleID)
}

func TestClampLimit(t *testing.T) {
	assert.Equal(t, DefaultListLimit, ClampLimit(0))
	assert.Equal(t, 7, ClampLimit(7))
	assert.Equal(t, MaxListLimit, ClampLimit(MaxListLimit+1))
}
