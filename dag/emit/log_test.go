package emit

import (
	"bytes"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestLogEmitter_Text(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewLogEmitter(&buf, false)

	emitter.Emit(Event{
		RunID:  "run-001",
		NodeID: "validate",
		Type:   NodeStart,
		At:     time.Now(),
	})
	emitter.Emit(Event{
		RunID:  "run-001",
		NodeID: "validate",
		Type:   NodeFailure,
		Err:    "boom",
		At:     time.Now(),
		Meta:   map[string]any{"duration_ms": int64(12)},
	})

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("wrote %d lines, want 2:\n%s", len(lines), buf.String())
	}
	if lines[0] != "[node_start] run=run-001 node=validate" {
		t.Errorf("first line = %q", lines[0])
	}
	if !strings.Contains(lines[1], `error="boom"`) {
		t.Errorf("failure line missing error: %q", lines[1])
	}
	if !strings.Contains(lines[1], `"duration_ms":12`) {
		t.Errorf("failure line missing meta: %q", lines[1])
	}
}

func TestLogEmitter_JSON(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewLogEmitter(&buf, true)

	emitter.Emit(Event{
		RunID:  "run-002",
		NodeID: "payment",
		Type:   NodeSuccess,
		At:     time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
		Meta:   map[string]any{"duration_ms": int64(7)},
	})

	var decoded struct {
		RunID  string         `json:"run_id"`
		NodeID string         `json:"node_id"`
		Type   string         `json:"type"`
		Err    string         `json:"error"`
		At     string         `json:"at"`
		Meta   map[string]any `json:"meta"`
	}
	if err := json.Unmarshal(buf.Bytes(), &decoded); err != nil {
		t.Fatalf("output is not valid JSON: %v\n%s", err, buf.String())
	}
	if decoded.RunID != "run-002" || decoded.NodeID != "payment" || decoded.Type != "node_success" {
		t.Errorf("decoded = %+v", decoded)
	}
	if decoded.Err != "" {
		t.Errorf("error field = %q, want omitted", decoded.Err)
	}
	if !strings.HasPrefix(decoded.At, "2025-03-01T12:00:00") {
		t.Errorf("at = %q", decoded.At)
	}
}

func TestLogEmitter_ConcurrentEmitsDoNotInterleave(t *testing.T) {
	var buf bytes.Buffer
	emitter := NewLogEmitter(&buf, true)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			emitter.Emit(Event{RunID: "run", Type: NodeSuccess, At: time.Now()})
		}()
	}
	wg.Wait()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 20 {
		t.Fatalf("wrote %d lines, want 20", len(lines))
	}
	for _, line := range lines {
		if !json.Valid([]byte(line)) {
			t.Fatalf("interleaved line: %q", line)
		}
	}
}
