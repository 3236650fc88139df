package main

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
[log]
level = "disabled"

[[listeners]]
event = "user.registered"
action = "echo"

[[listeners]]
event = "order.placed"
priority = -1
action = "stop"

[[listeners]]
event = "order.placed"
action = "echo"
`

type result struct {
	stdout string
	stderr string
	err    error
}

func execute(t *testing.T, stdin string, args ...string) result {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o644))

	var out, errOut bytes.Buffer
	cmd := newRootCmd(strings.NewReader(stdin), &out, &errOut)
	cmd.SetArgs(append([]string{"--config", path}, args...))
	err := cmd.ExecuteContext(context.Background())

	return result{stdout: out.String(), stderr: errOut.String(), err: err}
}

func TestPublish(t *testing.T) {
	res := execute(t, "", "publish", "user.registered",
		"--data", `{"email":"a@example.com"}`,
		"--set", "age=30",
		"--set", "profile.plan=pro")
	require.NoError(t, res.err)

	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(res.stdout)), &got))
	assert.Equal(t, "user.registered", got["name"])
	assert.Equal(t, map[string]any{
		"email":   "a@example.com",
		"age":     float64(30),
		"profile": map[string]any{"plan": "pro"},
	}, got["data"])
}

func TestPublish_StopPropagation(t *testing.T) {
	res := execute(t, "", "publish", "order.placed")
	require.NoError(t, res.err)
	assert.Empty(t, res.stdout)
}

func TestPublish_NoListeners(t *testing.T) {
	res := execute(t, "", "publish", "nobody.cares")
	require.NoError(t, res.err)
	assert.Contains(t, res.stderr, `no listeners for "nobody.cares"`)
}

func TestPublish_BadInput(t *testing.T) {
	res := execute(t, "", "publish", "x", "--data", "[1,2]")
	assert.Error(t, res.err)

	res = execute(t, "", "publish", "x", "--set", "novalue")
	assert.Error(t, res.err)

	res = execute(t, "", "publish")
	assert.Error(t, res.err)
}

func TestRun(t *testing.T) {
	stdin := strings.Join([]string{
		`{"name":"user.registered","data":{"n":1}}`,
		`garbage`,
		`{"name":"order.placed"}`,
		`{"name":"user.registered","data":{"n":2}}`,
	}, "\n")

	res := execute(t, stdin, "run")
	require.NoError(t, res.err)

	lines := strings.Split(strings.TrimSpace(res.stdout), "\n")
	require.Len(t, lines, 2)
	assert.Contains(t, lines[0], `"n":1`)
	assert.Contains(t, lines[1], `"n":2`)
	assert.Contains(t, res.stderr, "4 events: 3 dispatched, 0 failed, 1 skipped")
}

func TestRun_Interrupted(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(testConfig), 0o644))

	pr, pw := io.Pipe()
	t.Cleanup(func() { _ = pw.Close() })

	var out, errOut bytes.Buffer
	cmd := newRootCmd(pr, &out, &errOut)
	cmd.SetArgs([]string{"--config", path, "run"})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	_, err := io.WriteString(pw, `{"name":"user.registered"}`+"\n")
	require.NoError(t, err)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("run kept waiting for input after cancellation")
	}
	assert.Contains(t, errOut.String(), "events:")
}

func TestListeners(t *testing.T) {
	res := execute(t, "", "listeners")
	require.NoError(t, res.err)

	assert.Contains(t, res.stdout, "order.placed\n")
	assert.Contains(t, res.stdout, "user.registered\n")
	assert.Less(t, strings.Index(res.stdout, "stop"), strings.Index(res.stdout, "user.registered"))

	res = execute(t, "", "listeners", "unknown")
	require.NoError(t, res.err)
	assert.Equal(t, "unknown\n  (no listeners)\n", res.stdout)
}

func TestMetricsFlag(t *testing.T) {
	res := execute(t, "", "--metrics", "publish", "user.registered")
	require.NoError(t, res.err)
	assert.Contains(t, res.stderr, `evdispatch_dispatch_total{event="user.registered",outcome="completed"} 1`)
}

func TestMissingConfig(t *testing.T) {
	var out, errOut bytes.Buffer
	cmd := newRootCmd(strings.NewReader(""), &out, &errOut)
	cmd.SetArgs([]string{"--config", filepath.Join(t.TempDir(), "none.toml"), "listeners"})

	assert.Error(t, cmd.Execute())
}

func TestBuildPayload(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		sets    []string
		want    map[string]any
		wantErr bool
	}{
		{name: "empty", want: map[string]any{}},
		{name: "data only", data: `{"a":1}`, want: map[string]any{"a": float64(1)}},
		{
			name: "typed sets",
			sets: []string{"n=1.5", "ok=true", "name=ann", "tags=[\"x\"]", "nil=null"},
			want: map[string]any{"n": 1.5, "ok": true, "name": "ann", "tags": []any{"x"}, "nil": nil},
		},
		{name: "set overrides data", data: `{"a":1}`, sets: []string{"a=2"}, want: map[string]any{"a": float64(2)}},
		{name: "nested", sets: []string{"a.b.c=deep"}, want: map[string]any{"a": map[string]any{"b": map[string]any{"c": "deep"}}}},
		{name: "empty value", sets: []string{"a="}, want: map[string]any{"a": ""}},
		{name: "bad data", data: `{`, wantErr: true},
		{name: "array data", data: `[]`, wantErr: true},
		{name: "missing equals", sets: []string{"a"}, wantErr: true},
		{name: "empty key", sets: []string{"=1"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildPayload(tt.data, tt.sets)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
