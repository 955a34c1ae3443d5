package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/crypto/bcrypt"

	"authgate.io/internal/auth"
	"authgate.io/internal/config"
	"authgate.io/internal/httpapi"
	"authgate.io/internal/obs"
	"authgate.io/internal/store/pg"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	if cfg.PostgresDSN == "" {
		log.Fatalf("config: %s is required", "AUTHGATE_PG_DSN")
	}

	store, err := pg.Open(cfg.PostgresDSN)
	if err != nil {
		log.Fatalf("open store: %v", err)
	}

	codec, err := auth.NewJWTCodec(cfg.SecretKey, cfg.Algorithm, "authgate")
	if err != nil {
		log.Fatalf("token codec: %v", err)
	}
	tokens, err := auth.NewTokenService(codec)
	if err != nil {
		log.Fatalf("token service: %v", err)
	}
	svc, err := auth.NewService(store, auth.NewBcryptHasher(bcrypt.DefaultCost), tokens,
		auth.WithAccessTTL(cfg.AccessTTL),
		auth.WithRefreshTTL(cfg.RefreshTTL),
	)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}
	rbac, err := auth.NewRBACService(store)
	if err != nil {
		log.Fatalf("rbac service: %v", err)
	}

	{
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := rbac.EnsureBuiltinPermissions(ctx); err != nil {
			log.Fatalf("seed permissions: %v", err)
		}
		cancel()
	}

	api := httpapi.New(svc, rbac, httpapi.ReadyProbe{DB: store.DB()}, version)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting authgate-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	_ = store.Close()
	log.Println("Stopped")
}
