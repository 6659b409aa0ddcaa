package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tenantcore.org/internal/httpapi"
	"tenantcore.org/internal/obs"
	"tenantcore.org/internal/store/pg"
	"tenantcore.org/internal/tenancy"
)

var (
	version = "1.0.0"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	dsn := os.Getenv("TENANTCORE_PG_DSN")
	if dsn == "" {
		log.Fatal("missing TENANTCORE_PG_DSN")
	}
	store, err := pg.Open(dsn)
	if err != nil {
		log.Fatalf("open db: %v", err)
	}
	defer store.Close()

	cfgPath := os.Getenv("TENANTCORE_AUTHZ_CONFIG")
	if cfgPath == "" {
		cfgPath = "config/authz.json"
	}
	cfg, err := tenancy.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load authz config: %v", err)
	}

	resolver, err := tenancy.NewResolver(store, cfg)
	if err != nil {
		log.Fatalf("resolver: %v", err)
	}
	gate, err := tenancy.NewGate(store, nil)
	if err != nil {
		log.Fatalf("subscription gate: %v", err)
	}
	limits, err := tenancy.NewLimitGate(store, gate)
	if err != nil {
		log.Fatalf("limit gate: %v", err)
	}

	api := httpapi.New(httpapi.Deps{
		ReadyProbe: httpapi.ReadyProbe{DB: store.DB()},
		Version:    version,
		Config:     cfg,
		Resolver:   resolver,
		Gate:       gate,
		Limits:     limits,
		Assets:     store,
		Tenants:    store,
	})

	addr := os.Getenv("TENANTCORE_HTTP_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	handler := api.Handler()
	if os.Getenv("TENANTCORE_RATE_LIMIT") != "off" {
		handler = httpapi.RateLimit(handler, 50, 25)
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting tenantcore-api %s on %s", version, srv.Addr)

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
	log.Println("Stopped")
}
