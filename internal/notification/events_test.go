package notification

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventMessage(t *testing.T) {
	tests := []struct {
		name     string
		kind     string
		contains []string
	}{
		{"completed", EventCompleted, []string{"batch completed", "3 done", "1 failed", "exit 0"}},
		{"batch failed", EventBatchFailed, []string{"failures", "3 done", "1 failed"}},
		{"circuit open", EventCircuitOpen, []string{"circuit breaker open", "--resume"}},
		{"resource exhausted", EventResourceExhausted, []string{"retry budget exhausted"}},
		{"interrupted", EventInterrupted, []string{"interrupted", "--resume batch-1"}},
		{"unknown kind", "mystery", []string{"event: mystery"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := Event{
				Kind:      tt.kind,
				Project:   "myproject",
				BatchID:   "batch-1",
				Completed: 3,
				Failed:    1,
			}
			msg := e.Message()
			assert.Contains(t, msg, "myproject")
			assert.Contains(t, msg, "batch-1")
			for _, want := range tt.contains {
				assert.Contains(t, msg, want)
			}
		})
	}
}

func TestSenderNoOpWithoutChatID(t *testing.T) {
	// An empty ChatID disables delivery entirely; Send must return without
	// touching the openclaw CLI.
	s := Sender{Webhook: "http://127.0.0.1:1/webhook", Channel: "telegram"}
	s.Send(Event{Kind: EventCompleted, Project: "p", BatchID: "b"})
}
