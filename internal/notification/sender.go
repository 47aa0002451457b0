package notification

import (
	"context"
	"os/exec"
	"time"
)

// sendTimeout bounds how long one delivery attempt may take.
const sendTimeout = 10 * time.Second

// Sender delivers batch outcome events through the openclaw CLI.
// A Sender with an empty ChatID discards every event, which is how
// notifications are disabled.
type Sender struct {
	Webhook string
	Channel string
	ChatID  string
}

// Send delivers the event. Fire-and-forget: errors are swallowed so a
// broken notification channel cannot take down a batch.
func (s Sender) Send(e Event) {
	if s.ChatID == "" {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), sendTimeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "openclaw", "message", "send",
		"--webhook", s.Webhook,
		"--channel", s.Channel,
		"--chat-id", s.ChatID,
		"--message", e.Message(),
	)
	_ = cmd.Run()
}
