package queue

import (
	"context"
	"log"
	"time"

	"boostify/internal/metrics"
)

// TypeLogout marks a message whose body is a backend token to invalidate.
const TypeLogout = "logout"

// Logouter invalidates a token on the backend.
type Logouter interface {
	Logout(ctx context.Context, token string) error
}

const publishTimeout = 2 * time.Second

// NotifyLogout enqueues a best-effort backend logout for token.
func NotifyLogout(ctx context.Context, q Queue, token string) {
	if q == nil || token == "" {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()
	if err := q.Publish(ctx, Message{Type: TypeLogout, Body: []byte(token)}); err != nil {
		metrics.LogoutNotifications.WithLabelValues("dropped").Inc()
		log.Printf("queue publish failed: %v", err)
	}
}

// RunLogouts consumes q until ctx ends, calling the backend for each logout
// message. Failures are logged and never retried.
func RunLogouts(ctx context.Context, q Queue, backend Logouter) error {
	messages, err := q.Consume(ctx)
	if err != nil {
		return err
	}
	for msg := range messages {
		if msg.Type != TypeLogout {
			continue
		}
		if err := backend.Logout(ctx, string(msg.Body)); err != nil {
			metrics.LogoutNotifications.WithLabelValues("failed").Inc()
			log.Printf("backend logout failed: %v", err)
			continue
		}
		metrics.LogoutNotifications.WithLabelValues("ok").Inc()
	}
	return nil
}
