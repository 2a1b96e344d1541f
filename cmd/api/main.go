package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"medialens.io/internal/audit"
	"medialens.io/internal/auth"
	"medialens.io/internal/catalog"
	"medialens.io/internal/clients"
	"medialens.io/internal/httpapi"
	"medialens.io/internal/insights"
	"medialens.io/internal/obs"
	"medialens.io/internal/scraper"
	"medialens.io/internal/store/pg"
	"medialens.io/internal/stream"
)

var version = "0.3.1"

func main() {
	obs.Init()
	obs.InitBuildInfo(version, os.Getenv("MEDIALENS_COMMIT"))

	secret := os.Getenv("MEDIALENS_AUTH_SECRET")
	if secret == "" {
		log.Fatal("MEDIALENS_AUTH_SECRET is required")
	}

	// Persistence: Postgres when a DSN is configured, in-memory otherwise
	// (dev and tests).
	var (
		authStore     auth.Store
		clientStore   clients.Store
		insightStore  insights.Store
		catalogStore  catalog.Store
		activityStore audit.Store
		probe         httpapi.ReadyProbe
	)
	if dsn := os.Getenv("MEDIALENS_PG_DSN"); dsn != "" {
		store, err := pg.Open(dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		defer store.Close()
		authStore = store.AuthStore()
		clientStore = store.ClientStore()
		insightStore = store.InsightStore()
		catalogStore = store.CatalogStore()
		activityStore = store.ActivityStore()
		probe = httpapi.ReadyProbe{DB: store.DB()}
	} else {
		log.Print("MEDIALENS_PG_DSN not set, using in-memory stores")
		authStore = auth.NewMemoryStore()
		clientStore = clients.NewMemory()
		insightStore = insights.NewMemory()
		catalogStore = catalog.NewMemory()
		activityStore = audit.NewMemoryStore()
	}

	authSvc, err := auth.NewService(authStore, secret,
		auth.WithFallbacks(auth.FallbacksFromEnv()),
		auth.WithThrottle(auth.NewLoginThrottle(10, 5)),
	)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	// Rotation and logout only flag refresh tokens revoked; delete dead rows
	// for real on a timer.
	purgeStop := make(chan struct{})
	purgeDone := make(chan struct{})
	go func() {
		defer close(purgeDone)
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-purgeStop:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				n, err := authSvc.PurgeExpired(ctx)
				cancel()
				if err != nil {
					log.Printf("refresh token purge: %v", err)
				} else if n > 0 {
					log.Printf("refresh token purge: deleted %d", n)
				}
			}
		}
	}()

	events := stream.New()
	api := httpapi.New(httpapi.Deps{
		Auth:     authSvc,
		Users:    authStore.Users(),
		Clients:  clients.NewService(clientStore),
		Insights: insights.NewService(insightStore, events),
		Catalog:  catalog.NewService(catalogStore),
		Activity: activityStore,
		Stream:   events,
		Ready:    probe,
		Version:  version,
	})

	// Scraper trigger: optional, explicit wiring only.
	var sched *scraper.Scheduler
	if cmd := os.Getenv("MEDIALENS_SCRAPER_CMD"); cmd != "" {
		interval := 30 * time.Minute
		if raw := os.Getenv("MEDIALENS_SCRAPE_INTERVAL"); raw != "" {
			parsed, err := time.ParseDuration(raw)
			if err != nil {
				log.Fatalf("parse MEDIALENS_SCRAPE_INTERVAL: %v", err)
			}
			interval = parsed
		}
		runner, err := scraper.NewCommandRunner(cmd, 10*time.Minute)
		if err != nil {
			log.Fatalf("scraper command: %v", err)
		}
		sched = scraper.NewScheduler(runner, interval)
		sched.Start(context.Background())
		log.Printf("scraper scheduled every %s", interval)
	}

	addr := os.Getenv("MEDIALENS_ADDR")
	if addr == "" {
		addr = ":8080"
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      60 * time.Second, // SSE subscribers hold connections
		IdleTimeout:       60 * time.Second,
	}

	log.Printf("Starting medialens-api %s on %s", version, srv.Addr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")

	if sched != nil {
		sched.Stop()
	}
	close(purgeStop)
	<-purgeDone
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = srv.Shutdown(ctx)
	log.Println("Stopped")
}
