package dispatch

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResult_IsSuccess(t *testing.T) {
	tests := []struct {
		name     string
		result   Result
		expected bool
	}{
		{"success", Result{}, true},
		{"error", Result{Error: errors.New("error")}, false},
		{"panic", Result{Panicked: true}, false},
		{"skipped", Result{Skipped: true}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.result.IsSuccess())
		})
	}
}

func TestExecutor_Success(t *testing.T) {
	e := NewExecutor()

	result := e.Execute(context.Background(), func(ctx context.Context) error {
		time.Sleep(time.Millisecond)
		return nil
	})

	assert.True(t, result.IsSuccess())
	assert.GreaterOrEqual(t, result.Duration, time.Millisecond)
}

func TestExecutor_Error(t *testing.T) {
	e := NewExecutor()
	wantErr := errors.New("listener failed")

	result := e.Execute(context.Background(), func(ctx context.Context) error {
		return wantErr
	})

	assert.False(t, result.IsSuccess())
	assert.Equal(t, wantErr, result.Error)
	assert.False(t, result.Panicked)
}

func TestExecutor_SkipsDoneContext(t *testing.T) {
	e := NewExecutor()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	result := e.Execute(ctx, func(ctx context.Context) error {
		called = true
		return nil
	})

	assert.False(t, called)
	assert.True(t, result.Skipped)
	assert.ErrorIs(t, result.Error, context.Canceled)
}

func TestExecutor_PanicPropagatesByDefault(t *testing.T) {
	e := NewExecutor()

	assert.PanicsWithValue(t, "boom", func() {
		e.Execute(context.Background(), func(ctx context.Context) error {
			panic("boom")
		})
	})
}

func TestExecutor_RecoverPanic(t *testing.T) {
	var handled atomic.Value
	e := NewExecutor(
		WithRecover(),
		WithPanicHandler(func(v any, stack []byte) {
			handled.Store(v)
		}),
	)

	result := e.Execute(context.Background(), func(ctx context.Context) error {
		panic("boom")
	})

	require.True(t, result.Panicked)
	assert.Equal(t, "boom", result.PanicValue)
	assert.NotEmpty(t, result.PanicStack)
	assert.Nil(t, result.Error)
	assert.Equal(t, "boom", handled.Load())
}

func TestExecutor_PanicHandlerPanics(t *testing.T) {
	e := NewExecutor(
		WithRecover(),
		WithPanicHandler(func(v any, stack []byte) {
			panic("handler broke")
		}),
	)

	assert.NotPanics(t, func() {
		result := e.Execute(context.Background(), func(ctx context.Context) error {
			panic("boom")
		})
		assert.True(t, result.Panicked)
	})
}

func TestExecutor_Timeout(t *testing.T) {
	e := NewExecutor(WithTimeout(10 * time.Millisecond))

	result := e.Execute(context.Background(), func(ctx context.Context) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Second):
			return nil
		}
	})

	assert.ErrorIs(t, result.Error, context.DeadlineExceeded)
	assert.Less(t, result.Duration, time.Second)
}

func TestExecutor_NilPanicHandlerIgnored(t *testing.T) {
	e := NewExecutor(WithRecover(), WithPanicHandler(nil))

	assert.NotPanics(t, func() {
		e.Execute(context.Background(), func(ctx context.Context) error {
			panic("boom")
		})
	})
}
