package event

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRef() *ListenerRef {
	return RefFunc(func(ctx context.Context, e *Event) error {
		return nil
	})
}

func TestNewRegistry(t *testing.T) {
	r := NewRegistry()

	require.NotNil(t, r)
	assert.Nil(t, r.Names())
	assert.False(t, r.Has("x"))
}

func TestRegistry_Add_PriorityOrder(t *testing.T) {
	r := NewRegistry()

	low, high, normal, critical := newTestRef(), newTestRef(), newTestRef(), newTestRef()

	// Add in non-priority order
	r.Add("test", low, 300)
	r.Add("test", high, 100)
	r.Add("test", normal, 200)
	r.Add("test", critical, -100)

	groups := r.Groups("test")
	require.Len(t, groups, 4)

	wantPriorities := []Priority{-100, 100, 200, 300}
	wantRefs := []*ListenerRef{critical, high, normal, low}
	for i, g := range groups {
		assert.Equal(t, wantPriorities[i], g.Priority, "position %d", i)
		assert.Equal(t, []*ListenerRef{wantRefs[i]}, g.Listeners, "position %d", i)
	}
}

func TestRegistry_Add_SamePriority(t *testing.T) {
	r := NewRegistry()
	a, b := newTestRef(), newTestRef()

	r.Add("test", a, 0)
	r.Add("test", b, 0)
	r.Add("test", a, 0)

	groups := r.Groups("test")
	require.Len(t, groups, 1)
	assert.Equal(t, []*ListenerRef{a, b, a}, groups[0].Listeners)
	assert.Len(t, r.snapshot("test"), 3)
}

func TestRegistry_Remove(t *testing.T) {
	r := NewRegistry()
	a, b := newTestRef(), newTestRef()

	r.Add("test", a, 0)
	r.Add("test", b, 0)
	r.Add("test", a, 5)
	r.Add("test", a, 5)

	assert.Equal(t, 3, r.Remove("test", a))
	assert.Equal(t, []entry{{ref: b, priority: 0}}, r.snapshot("test"))

	// Try to remove again
	assert.Equal(t, 0, r.Remove("test", a))
	assert.Equal(t, 0, r.Remove("non-existent", a))
	assert.Equal(t, 0, r.Remove("test", nil))
}

func TestRegistry_Remove_KeepsEmptyGroups(t *testing.T) {
	r := NewRegistry()
	ref := newTestRef()

	r.Add("test", ref, 0)
	r.Add("test", ref, 1)
	r.Remove("test", ref)

	assert.False(t, r.Has("test"))
	assert.Equal(t, []string{"test"}, r.Names())

	groups := r.Groups("test")
	require.Len(t, groups, 2)
	assert.Empty(t, groups[0].Listeners)
	assert.Empty(t, groups[1].Listeners)
	assert.Nil(t, r.snapshot("test"))

	// Re-adding reuses the empty group
	r.Add("test", ref, 1)
	assert.Len(t, r.Groups("test"), 2)
	assert.True(t, r.Has("test"))
}

func TestRegistry_Snapshot(t *testing.T) {
	r := NewRegistry()
	a, b, c := newTestRef(), newTestRef(), newTestRef()

	r.Add("test", c, 10)
	r.Add("test", a, -1)
	r.Add("test", b, 10)

	snap := r.snapshot("test")
	require.Len(t, snap, 3)
	assert.Equal(t, entry{ref: a, priority: -1}, snap[0])
	assert.Equal(t, entry{ref: c, priority: 10}, snap[1])
	assert.Equal(t, entry{ref: b, priority: 10}, snap[2])

	// Later changes do not affect a taken snapshot
	r.Remove("test", c)
	assert.Equal(t, c, snap[1].ref)
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				ref := newTestRef()
				r.Add("test", ref, Priority(j%7))
				_ = r.snapshot("test")
				_ = r.Groups("test")
				r.Remove("test", ref)
			}
		}(i)
	}
	wg.Wait()

	assert.False(t, r.Has("test"))
	assert.Len(t, r.Groups("test"), 7)
}
