package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"boostify/internal/backend"
	"boostify/internal/config"
	"boostify/internal/queue"
	"boostify/internal/session"
	"boostify/internal/store"
)

const purgeInterval = 10 * time.Minute

// Worker delivers queued backend logouts and purges expired Postgres sessions.
func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Println("shutdown signal received")
		cancel()
	}()

	conns, err := store.Open(ctx, cfg)
	if err != nil {
		log.Fatalf("store connect failed: %v", err)
	}
	defer conns.Close()

	if cfg.SessionBackend == "postgres" {
		sessions, err := conns.SessionStore(ctx, cfg)
		if err != nil {
			log.Fatalf("session store init failed: %v", err)
		}
		if pg, ok := sessions.(*session.PostgresStore); ok {
			go purgeLoop(ctx, pg)
		}
	}

	if cfg.QueueBackend != "redis" {
		log.Println("QUEUE_BACKEND is not redis; the web process delivers logouts itself")
		<-ctx.Done()
		log.Println("worker stopped")
		return
	}

	client := backend.New(cfg.BackendURL, cfg.BackendTimeout)
	q := queue.NewRedisQueue(conns.Redis, queue.DefaultRedisKey)

	log.Println("worker started, waiting for messages...")
	if err := queue.RunLogouts(ctx, q, client); err != nil {
		log.Printf("queue consume failed: %v", err)
	}
	log.Println("worker stopped")
}

func purgeLoop(ctx context.Context, pg *session.PostgresStore) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()
	for {
		n, err := pg.PurgeExpired(ctx)
		if err != nil {
			log.Printf("purge expired sessions failed: %v", err)
		} else if n > 0 {
			log.Printf("purged %d expired sessions", n)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
