// cmd/swap/main.go
package main

import (
	"context"
	"database/sql"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"

	"skillswap/internal/auth"
	"skillswap/internal/clients"
	"skillswap/internal/config"
	"skillswap/internal/rating"
	"skillswap/internal/swap"
	"skillswap/pkg/eventstore"
	"skillswap/pkg/metrics"
	"skillswap/pkg/telemetry"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx := context.Background()
	shutdown, err := telemetry.Setup(ctx, "skillswap-swap", cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}
	defer shutdown(ctx)

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	m := metrics.NewManager("skillswap_swap")
	issuer := auth.NewIssuer(cfg.JWTSecret)

	profiles := clients.NewProfileClient(cfg.ProfileServiceURL)
	catalogClient := clients.NewCatalogClient(cfg.CatalogServiceURL)

	es := eventstore.NewEventStore(db)
	swapSvc := swap.NewService(es, db, profiles, catalogClient, m)
	ratingSvc := rating.NewService(es, db, swapSvc, profiles, m)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return m.Middleware("swap", next)
	})
	swap.NewHandler(swapSvc).Register(r, issuer)
	rating.NewHandler(ratingSvc).Register(r, issuer)
	r.Method(http.MethodGet, "/metrics", m.Handler())

	log.Printf("Swap service listening on %s", cfg.SwapAddr)
	log.Fatal(http.ListenAndServe(cfg.SwapAddr, r))
}
