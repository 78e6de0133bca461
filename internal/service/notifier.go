package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	ws "forgeline/internal/websocket"
)

// Notifier delivers fire-and-forget human-attention notifications. Delivery
// failures are logged, never propagated — notifications must not fail the
// transaction that triggered them.
type Notifier interface {
	Notify(ctx context.Context, title, message, entityRef string)
}

type hubNotifier struct {
	hub *ws.Hub
}

func NewHubNotifier(hub *ws.Hub) Notifier {
	return &hubNotifier{hub: hub}
}

func (n *hubNotifier) Notify(ctx context.Context, title, message, entityRef string) {
	payload, err := json.Marshal(ws.Event{
		Event:     "notification",
		Title:     title,
		Message:   message,
		EntityRef: entityRef,
		At:        time.Now().UTC(),
	})
	if err != nil {
		log.Printf("notifier: marshal failed: %v", err)
		return
	}
	select {
	case n.hub.Broadcast <- payload:
	default:
		// Hub busy or not running; drop rather than block the caller
		log.Printf("notifier: dropped %q", title)
	}
}
