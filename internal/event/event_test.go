package event

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewEvent(t *testing.T) {
	data := map[string]any{
		"name":  "John Doe",
		"email": "john@example.com",
	}

	evt := NewEvent("user.registered", data)

	assert.Equal(t, "user.registered", evt.Name())
	assert.Equal(t, data, evt.Data())
	assert.NotEmpty(t, evt.Metadata().ID)
	assert.False(t, evt.Metadata().Timestamp.IsZero())
	assert.Empty(t, evt.Metadata().Source)
}

func TestNewEvent_NilData(t *testing.T) {
	evt := NewEvent("x", nil)

	data := evt.Data()
	require.NotNil(t, data)
	assert.Empty(t, data)
}

func TestNewEvent_UniqueIDs(t *testing.T) {
	a := NewEvent("x", nil)
	b := NewEvent("x", nil)
	assert.NotEqual(t, a.Metadata().ID, b.Metadata().ID)
}

func TestNewEventWithMetadata(t *testing.T) {
	meta := Metadata{
		ID:        "custom-id",
		Timestamp: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Source:    "signup",
	}

	evt := NewEventWithMetadata("user.registered", nil, meta)
	assert.Equal(t, meta, evt.Metadata())

	filled := NewEventWithMetadata("user.registered", nil, Metadata{Source: "signup"})
	assert.NotEmpty(t, filled.Metadata().ID)
	assert.False(t, filled.Metadata().Timestamp.IsZero())
	assert.Equal(t, "signup", filled.Metadata().Source)
}

func TestEvent_ConstructorCopiesData(t *testing.T) {
	data := map[string]any{"email": "john@example.com"}
	evt := NewEvent("x", data)

	data["email"] = "changed@example.com"
	data["extra"] = true

	assert.Equal(t, map[string]any{"email": "john@example.com"}, evt.Data())
}

func TestEvent_DataIsDefensiveCopy(t *testing.T) {
	evt := NewEvent("x", map[string]any{
		"roles":  []any{"admin", "dev"},
		"tags":   []string{"a"},
		"nested": map[string]any{"k": "v"},
	})

	data := evt.Data()
	data["roles"].([]any)[0] = "guest"
	data["tags"].([]string)[0] = "b"
	data["nested"].(map[string]any)["k"] = "changed"
	delete(data, "roles")

	fresh := evt.Data()
	assert.Equal(t, []any{"admin", "dev"}, fresh["roles"])
	assert.Equal(t, []string{"a"}, fresh["tags"])
	assert.Equal(t, map[string]any{"k": "v"}, fresh["nested"])
}

func TestEvent_Get(t *testing.T) {
	evt := NewEvent("x", map[string]any{
		"email":  "john@example.com",
		"nested": map[string]any{"k": "v"},
	})

	v, ok := evt.Get("email")
	assert.True(t, ok)
	assert.Equal(t, "john@example.com", v)

	nested, ok := evt.Get("nested")
	require.True(t, ok)
	nested.(map[string]any)["k"] = "changed"
	again, _ := evt.Get("nested")
	assert.Equal(t, map[string]any{"k": "v"}, again)

	_, ok = evt.Get("missing")
	assert.False(t, ok)
}

func TestEvent_Validate(t *testing.T) {
	tests := []struct {
		name    string
		evt     *Event
		wantErr bool
	}{
		{"named", NewEvent("x", nil), false},
		{"empty name", NewEvent("", nil), true},
		{"nil event", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.evt.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidEvent)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
