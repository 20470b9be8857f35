package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/Ljhhhhhh/EchoSoul-sub001/internal/ports"
)

func TestNopLogger(t *testing.T) {
	var logger ports.Logger = NewNopLogger()
	ctx := context.Background()

	logger.Info(ctx, "process started", ports.F("pid", 42))
	logger.Error(ctx, "step failed")

	if logger.With(ports.F("step", "obtain_key")) != logger {
		t.Error("With should return the same logger")
	}
	if logger.Level() != ports.LevelInfo {
		t.Errorf("default level = %v, want %v", logger.Level(), ports.LevelInfo)
	}
	logger.SetLevel(ports.LevelDebug)
	if logger.Level() != ports.LevelDebug {
		t.Errorf("level after SetLevel = %v", logger.Level())
	}
}

// quietConsole returns a console logger without timestamps writing to buf.
func quietConsole(buf *bytes.Buffer, opts ...ConsoleLoggerOption) *ConsoleLogger {
	base := []ConsoleLoggerOption{WithOutput(buf), WithLevel(ports.LevelDebug), WithTimestamp(false)}
	return NewConsoleLogger(append(base, opts...)...)
}

func TestConsoleLogger_Text(t *testing.T) {
	tests := []struct {
		name string
		opts []ConsoleLoggerOption
		log  func(ports.Logger)
		want string
	}{
		{
			name: "level label",
			log:  func(l ports.Logger) { l.Info(context.Background(), "server ready") },
			want: "[INFO] server ready\n",
		},
		{
			name: "fields in order",
			opts: []ConsoleLoggerOption{WithLevelLabel(false)},
			log: func(l ports.Logger) {
				l.Warn(context.Background(), "agent stderr", ports.F("stream", "stderr"), ports.F("attempt", 3))
			},
			want: "agent stderr stream=stderr attempt=3\n",
		},
		{
			name: "base fields come first",
			opts: []ConsoleLoggerOption{WithLevelLabel(false)},
			log: func(l ports.Logger) {
				l.With(ports.F("run_id", "r1")).Debug(context.Background(), "executing", ports.F("step", "decrypt_store"))
			},
			want: "executing run_id=r1 step=decrypt_store\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			tt.log(quietConsole(&buf, tt.opts...))
			if got := buf.String(); got != tt.want {
				t.Errorf("output = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestConsoleLogger_JSON(t *testing.T) {
	var buf bytes.Buffer
	logger := quietConsole(&buf, WithJSONFormat(true))

	logger.Error(context.Background(), "step failed", ports.F("step", "obtain_key"), ports.F("exit_code", 1))

	var record map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &record); err != nil {
		t.Fatalf("invalid JSON %q: %v", buf.String(), err)
	}
	want := map[string]interface{}{"level": "ERROR", "msg": "step failed", "step": "obtain_key", "exit_code": float64(1)}
	for k, v := range want {
		if record[k] != v {
			t.Errorf("%s = %v, want %v", k, record[k], v)
		}
	}
	if _, ok := record["time"]; ok {
		t.Error("time should be omitted when timestamps are off")
	}
}

func TestConsoleLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	logger := quietConsole(&buf, WithLevel(ports.LevelWarn), WithLevelLabel(false))
	ctx := context.Background()

	logger.Debug(ctx, "command finished")
	logger.Info(ctx, "process started")
	logger.Warn(ctx, "health check failed")
	logger.Error(ctx, "server not ready")

	if got := buf.String(); got != "health check failed\nserver not ready\n" {
		t.Errorf("output = %q", got)
	}

	buf.Reset()
	logger.SetLevel(ports.LevelDebug)
	logger.Debug(ctx, "command finished")
	if !strings.Contains(buf.String(), "command finished") {
		t.Errorf("debug should pass after SetLevel, got %q", buf.String())
	}
}

func TestConsoleLogger_WithIsolatesFields(t *testing.T) {
	var parentOut, childOut bytes.Buffer
	logger := quietConsole(&parentOut, WithLevelLabel(false))

	child := logger.With(ports.F("pid", 7))
	child.(*ConsoleLogger).out = &childOut

	logger.Info(context.Background(), "parent")
	child.Info(context.Background(), "child")

	if strings.Contains(parentOut.String(), "pid=") {
		t.Errorf("parent picked up child field: %q", parentOut.String())
	}
	if childOut.String() != "child pid=7\n" {
		t.Errorf("child output = %q", childOut.String())
	}
}

func TestConsoleLogger_SharedLevelAcrossWith(t *testing.T) {
	var buf bytes.Buffer
	logger := quietConsole(&buf, WithLevel(ports.LevelInfo))
	child := logger.With(ports.F("component", "supervisor"))

	logger.SetLevel(ports.LevelError)
	child.Info(context.Background(), "should be filtered")

	if buf.Len() > 0 {
		t.Errorf("child should follow parent level, got %q", buf.String())
	}
}

func TestConsoleLogger_FixedClock(t *testing.T) {
	var buf bytes.Buffer
	logger := NewConsoleLogger(WithOutput(&buf), WithLevelLabel(false))
	logger.now = func() time.Time { return time.Date(2024, 1, 2, 13, 4, 5, 0, time.Local) }

	logger.Info(context.Background(), "tick")

	if got := buf.String(); got != "13:04:05 tick\n" {
		t.Errorf("output = %q", got)
	}
}

func TestEntry_FieldMap(t *testing.T) {
	e := Entry{Fields: []ports.Field{ports.F("a", 1), ports.F("b", "x"), ports.F("a", 2)}}

	m := e.FieldMap()
	if m["a"] != 2 || m["b"] != "x" {
		t.Errorf("FieldMap() = %v", m)
	}
}

func TestSinkLogger_ForwardsAndDelegates(t *testing.T) {
	var buf bytes.Buffer
	console := NewConsoleLogger(WithOutput(&buf), WithTimestamp(false))

	var mu sync.Mutex
	var got []Entry
	logger := NewSinkLogger(console, func(e Entry) {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, e)
	})

	logger.With(ports.F("stream", "stderr")).Warn(context.Background(), "disk almost full", ports.F("pid", 42))

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 1 {
		t.Fatalf("sink received %d entries, want 1", len(got))
	}
	if got[0].Level != ports.LevelWarn || got[0].Message != "disk almost full" {
		t.Errorf("entry = %+v", got[0])
	}
	fields := got[0].FieldMap()
	if fields["stream"] != "stderr" || fields["pid"] != 42 {
		t.Errorf("fields = %v", fields)
	}
	if !strings.Contains(buf.String(), "disk almost full") {
		t.Errorf("delegate should also log, got %q", buf.String())
	}
}

func TestSinkLogger_LevelFilter(t *testing.T) {
	count := 0
	logger := NewSinkLogger(nil, func(Entry) { count++ })
	logger.SetLevel(ports.LevelWarn)

	ctx := context.Background()
	logger.Debug(ctx, "d")
	logger.Info(ctx, "i")
	logger.Error(ctx, "e")

	if count != 1 {
		t.Errorf("sink received %d entries, want 1", count)
	}
	if logger.Level() != ports.LevelWarn {
		t.Errorf("Level() = %v, want WARN", logger.Level())
	}
}

func TestSinkLogger_SetSink(t *testing.T) {
	logger := NewSinkLogger(nil, nil)
	logger.Info(context.Background(), "dropped")

	received := ""
	logger.SetSink(func(e Entry) { received = e.Message })
	logger.Info(context.Background(), "kept")

	if received != "kept" {
		t.Errorf("received = %q, want kept", received)
	}
}
