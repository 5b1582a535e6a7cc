// cmd/api/main.go
package main

import (
	"context"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpin "github.com/gigagfun/launchium-token-creator/internal/adapters/in/http"
	"github.com/gigagfun/launchium-token-creator/internal/platform/di"
)

func main() {
	ctx := context.Background()

	// ─────────────────────────────────────────────────────────────
	// Log output: stdout, plus LOG_FILE when set
	// ─────────────────────────────────────────────────────────────
	if path := os.Getenv("LOG_FILE"); path != "" {
		if f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644); err == nil {
			defer f.Close()
			log.SetOutput(io.MultiWriter(os.Stdout, f))
			log.Printf("[boot] log output = stdout + %s", path)
		} else {
			log.Printf("[boot] WARN: could not open %s: %v", path, err)
		}
	}

	// ─────────────────────────────────────────────────────────────
	// Lightweight healthz first; keep it even when DI fails
	// ─────────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	var cont *di.Container
	if c, err := di.NewContainer(ctx); err != nil {
		log.Printf("[boot] WARN: di init failed: %v (serving /healthz only)", err)
	} else {
		cont = c
		defer func() {
			if err := cont.Close(); err != nil {
				log.Printf("[boot] WARN: %v", err)
			}
		}()

		if cont.LaunchUC == nil {
			log.Printf("[boot] LaunchUsecase is NIL (launch endpoints answer not_configured)")
		} else {
			cfg := cont.LaunchUC.Config()
			log.Printf("[boot] launch standard decimals=%d supply=%d fee=%s SOL cluster=%s issuer=%s",
				cfg.Decimals, cfg.TotalSupply, cfg.Fee.String(), cont.Config.SolanaCluster, cont.Issuer.Address())
		}
		if cont.Auth != nil {
			log.Printf("[boot] launch endpoints require a Firebase ID token")
		}

		mux.Handle("/", httpin.NewRouter(cont.RouterDeps()))
	}

	// ─────────────────────────────────────────────────────────────
	// Port resolution: config → env:PORT → 8080
	// ─────────────────────────────────────────────────────────────
	port := ""
	if cont != nil {
		port = cont.Config.Port
	}
	if port == "" {
		if p := os.Getenv("PORT"); p != "" {
			port = p
		} else {
			port = "8080"
		}
	}

	// Write timeout covers a full single-shot launch (five confirmations).
	srv := &http.Server{
		Addr:              ":" + port,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       60 * time.Second,
	}

	// ─────────────────────────────────────────────────────────────
	// Graceful shutdown
	// ─────────────────────────────────────────────────────────────
	idleConnsClosed := make(chan struct{})
	go func() {
		c := make(chan os.Signal, 1)
		signal.Notify(c, syscall.SIGINT, syscall.SIGTERM)
		sig := <-c
		log.Printf("[boot] received signal: %v; shutting down...", sig)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Printf("[boot] server shutdown error: %v", err)
		}
		close(idleConnsClosed)
	}()

	log.Printf("[boot] listening on :%s", port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("[boot] server error: %v", err)
	}

	<-idleConnsClosed
	log.Printf("[boot] server stopped")
}
