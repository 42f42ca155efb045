package notify

import (
	"context"
	"encoding/json"
	"testing"

	"scriptflow/internal/config"
)

func TestNewServiceReturnsNoopWithoutURL(t *testing.T) {
	cfg := config.Default()
	cfg.AMQP.URL = ""

	svc, err := NewService(&cfg)
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	if err := svc.Publish(context.Background(), EventScriptDone, Payload{"session_id": 4}); err != nil {
		t.Fatalf("noop publish returned error: %v", err)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("noop close returned error: %v", err)
	}
}

func TestDialRequiresExchange(t *testing.T) {
	if _, err := Dial("amqp://localhost", ""); err == nil {
		t.Fatal("expected configuration error")
	}
}

func TestEncodeEnvelope(t *testing.T) {
	body, err := encodeEnvelope(EventStageFailed, Payload{
		"session_id": int64(9),
		"stage":      "encoding",
		"error":      "ffmpeg exited 1",
	})
	if err != nil {
		t.Fatalf("encodeEnvelope failed: %v", err)
	}

	var decoded struct {
		Event     string         `json:"event"`
		Timestamp string         `json:"timestamp"`
		Payload   map[string]any `json:"payload"`
	}
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("decode envelope: %v", err)
	}
	if decoded.Event != string(EventStageFailed) {
		t.Fatalf("event = %q", decoded.Event)
	}
	if decoded.Timestamp == "" {
		t.Fatal("timestamp missing")
	}
	if decoded.Payload["stage"] != "encoding" {
		t.Fatalf("payload = %v", decoded.Payload)
	}
}
