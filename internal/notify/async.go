package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

// Async decorates a Notifier so that Notify returns immediately and delivery
// runs in its own goroutine with a detached context. Failures are logged and
// never reach the caller, so a notification outage cannot block or fail the
// engine operation that produced the event.
type Async struct {
	next    Notifier
	timeout time.Duration
}

// NewAsync wraps next with fire-and-forget dispatch. The timeout bounds each
// delivery attempt independently of the originating request's lifetime.
func NewAsync(next Notifier, timeout time.Duration) *Async {
	return &Async{next: next, timeout: timeout}
}

func (a *Async) Notify(_ context.Context, ev Event) error {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
		defer cancel()

		if err := a.next.Notify(ctx, ev); err != nil {
			logJSON(map[string]any{
				"component":     "notify",
				"event":         "notify_dispatch_failed",
				"status":        "error",
				"kind":          string(ev.Kind),
				"recipient":     ev.Recipient,
				"error_message": err.Error(),
			})
		}
	}()
	return nil
}

func logJSON(data map[string]any) {
	data["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	if _, ok := data["level"]; !ok {
		data["level"] = "error"
	}
	b, err := json.Marshal(data)
	if err != nil {
		log.Printf("failed to marshal notify log: %v", err)
		return
	}
	log.SetFlags(0)
	log.Println(string(b))
}
