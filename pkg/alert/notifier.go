package alert

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"nodebell/internal/telemetry"
)

// Event is a notification about a node. It is not stored anywhere.
type Event struct {
	ID         string
	NodeID     string
	Type       string
	ReceivedAt time.Time
}

// Notifier turns events into an audible alert.
//
// Playback runs in its own goroutine and never delays the caller. A failed
// playback is logged and counted, it is not reported back to the submitter.
type Notifier struct {
	player  Player
	sound   string
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewNotifier creates a Notifier that plays sound on every event.
// A zero timeout lets playback run until the player exits.
func NewNotifier(player Player, sound string, timeout time.Duration) *Notifier {
	return &Notifier{
		player:  player,
		sound:   sound,
		timeout: timeout,
	}
}

// Submit logs the event and starts the alert. The event type does not change
// which sound is played.
func (n *Notifier) Submit(ctx context.Context, nodeID, eventType string) Event {
	ev := Event{
		ID:         uuid.NewString(),
		NodeID:     nodeID,
		Type:       eventType,
		ReceivedAt: time.Now(),
	}
	slog.Info("Received event", "event_id", ev.ID, "node_id", nodeID, "event", eventType)
	telemetry.EventsTotal.Inc()

	n.mu.Lock()
	if n.closed {
		n.mu.Unlock()
		slog.Warn("Notifier closed, alert dropped", "event_id", ev.ID)
		telemetry.AlertsTotal.WithLabelValues(telemetry.AlertDropped).Inc()
		return ev
	}
	n.wg.Add(1)
	n.mu.Unlock()

	// playback outlives the request
	go n.play(context.WithoutCancel(ctx), ev)

	return ev
}

func (n *Notifier) play(ctx context.Context, ev Event) {
	defer n.wg.Done()

	if n.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, n.timeout)
		defer cancel()
	}

	if err := n.player.Play(ctx, n.sound); err != nil {
		slog.Warn("Alert playback failed", "event_id", ev.ID, "sound", n.sound, "error", err)
		telemetry.AlertsTotal.WithLabelValues(telemetry.AlertFailed).Inc()
		return
	}
	slog.Debug("Alert played", "event_id", ev.ID, "sound", n.sound)
	telemetry.AlertsTotal.WithLabelValues(telemetry.AlertPlayed).Inc()
}

// Close stops new playbacks and waits for running ones until ctx is done.
func (n *Notifier) Close(ctx context.Context) error {
	n.mu.Lock()
	n.closed = true
	n.mu.Unlock()

	done := make(chan struct{})
	go func() {
		n.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
