package event

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sourced(source string, data map[string]any) *Event {
	return NewEventWithMetadata("test.event", data, Metadata{Source: source})
}

func TestFilterBySource(t *testing.T) {
	f := FilterBySource("signup")

	assert.True(t, f(sourced("signup", nil)))
	assert.False(t, f(sourced("admin", nil)))
	assert.False(t, f(sourced("", nil)))
}

func TestFilterBySourcePrefix(t *testing.T) {
	f := FilterBySourcePrefix("api.")

	assert.True(t, f(sourced("api.v1", nil)))
	assert.False(t, f(sourced("cli", nil)))
	assert.False(t, f(sourced("", nil)))
	assert.False(t, FilterBySourcePrefix("")(sourced("", nil)))
}

func TestFilterBySources(t *testing.T) {
	f := FilterBySources("a", "b")

	assert.True(t, f(sourced("a", nil)))
	assert.True(t, f(sourced("b", nil)))
	assert.False(t, f(sourced("c", nil)))
	assert.False(t, FilterBySources()(sourced("a", nil)))
}

func TestFilterExcludeSource(t *testing.T) {
	f := FilterExcludeSource("internal")

	assert.False(t, f(sourced("internal", nil)))
	assert.True(t, f(sourced("external", nil)))
}

func TestFilterData(t *testing.T) {
	e := sourced("", map[string]any{"plan": "pro", "seats": 3, "tags": []any{"x"}})

	assert.True(t, FilterHasData("plan")(e))
	assert.False(t, FilterHasData("missing")(e))

	assert.True(t, FilterDataEquals("plan", "pro")(e))
	assert.False(t, FilterDataEquals("plan", "free")(e))
	assert.True(t, FilterDataEquals("seats", 3)(e))
	assert.False(t, FilterDataEquals("seats", int64(3))(e), "types must match")
	assert.True(t, FilterDataEquals("tags", []any{"x"})(e))
	assert.False(t, FilterDataEquals("missing", nil)(e))
}

func TestFilterCombinators(t *testing.T) {
	yes := func(*Event) bool { return true }
	no := func(*Event) bool { return false }
	e := NewEvent("x", nil)

	assert.True(t, FilterAnd()(e))
	assert.True(t, FilterAnd(yes, yes)(e))
	assert.False(t, FilterAnd(yes, no)(e))

	assert.False(t, FilterOr()(e))
	assert.True(t, FilterOr(no, yes)(e))
	assert.False(t, FilterOr(no, no)(e))

	assert.False(t, FilterNot(yes)(e))
	assert.True(t, FilterNot(no)(e))
}

func TestFiltered(t *testing.T) {
	d := NewDispatcher()
	rec := &recorder{}

	require.NoError(t, d.AddListener("test.event", NewListenerRef(Filtered(rec.listener("filtered", nil), FilterBySource("signup")))))
	require.NoError(t, d.AddListener("test.event", NewListenerRef(Filtered(rec.listener("all", nil), nil))))

	_, err := d.Dispatch(context.Background(), sourced("admin", nil))
	require.NoError(t, err)
	_, err = d.Dispatch(context.Background(), sourced("signup", nil))
	require.NoError(t, err)

	assert.Equal(t, []string{"all", "filtered", "all"}, rec.Calls())
	assert.Equal(t, uint64(4), d.Stats().ListenersInvoked, "skipped listeners still count as invoked")
}
