package main

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"boostify/internal/attendance"
	"boostify/internal/auth"
	"boostify/internal/backend"
	"boostify/internal/config"
	"boostify/internal/httpmiddleware"
	"boostify/internal/queue"
	"boostify/internal/store"
	"boostify/internal/web"
)

func main() {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	if err := runHTTP(cfg); err != nil {
		log.Fatalf("http server failed: %v", err)
	}
}

func runHTTP(cfg config.App) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	conns, err := store.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := conns.Close(); err != nil {
			log.Printf("close connections: %v", err)
		}
	}()

	sessions, err := conns.SessionStore(ctx, cfg)
	if err != nil {
		return err
	}
	client := backend.New(cfg.BackendURL, cfg.BackendTimeout)
	if err := client.Reachable(ctx); err != nil {
		log.Printf("WARNING: attendance backend not reachable: %v", err)
	} else {
		log.Println("attendance backend reachable")
	}

	var q queue.Queue
	if cfg.QueueBackend == "redis" {
		q = queue.NewRedisQueue(conns.Redis, queue.DefaultRedisKey)
	} else {
		mem := queue.NewInMemory(64)
		go func() {
			if err := queue.RunLogouts(ctx, mem, client); err != nil {
				log.Printf("logout consumer stopped: %v", err)
			}
		}()
		q = mem
	}

	cookies := auth.Cookies{
		Key:    signingKey(cfg),
		Issuer: cfg.SessionIssuer,
		TTL:    cfg.SessionTTL,
		Secure: cfg.SecureCookies,
	}
	resolver := &auth.Resolver{Store: sessions, Cookies: cookies}
	if cfg.ValidateSession {
		resolver.Validate = client
	}

	h := &web.Handler{
		Attendance: attendance.NewService(client, cfg.Location()),
		Backend:    client,
		Store:      sessions,
		Cookies:    cookies,
		Resolver:   resolver,
		Logouts:    q,
	}
	h.LoginLimit = httpmiddleware.NewSimpleTokenBucket(cfg.LoginPerMin, cfg.LoginPerMin).Limit(h.LoginRejected)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		SkipPaths: []string{"/healthz", "/metrics"},
	}))
	r.Use(httpmiddleware.SecurityHeaders())
	r.Use(httpmiddleware.NewSimpleTokenBucket(cfg.RateLimitPerMin, cfg.RateLimitPerMin).GinMiddleware())

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	r.GET("/healthz", func(c *gin.Context) {
		health := conns.Health(c.Request.Context())
		status := http.StatusOK
		for _, ok := range health {
			if !ok {
				status = http.StatusServiceUnavailable
			}
		}
		c.JSON(status, gin.H{"status": "ok", "session_backend": cfg.SessionBackend, "deps": health})
	})

	if err := h.Routes(r); err != nil {
		return err
	}

	srv := &http.Server{
		Addr:         ":" + cfg.HTTPPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Starting server on :%s (backend %s)", cfg.HTTPPort, cfg.BackendURL)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced shutdown: %v", err)
	}

	log.Println("Server exited")
	return nil
}

// signingKey returns the configured session secret. Outside production a
// random per-process key is used when none is set, so sessions do not
// survive a restart.
func signingKey(cfg config.App) string {
	if cfg.SessionSecret != "" {
		return cfg.SessionSecret
	}
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		log.Fatalf("generate session key: %v", err)
	}
	log.Println("warning: SESSION_SECRET not set, using a random key")
	return hex.EncodeToString(buf)
}
