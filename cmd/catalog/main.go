// cmd/catalog/main.go
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
	"skillswap/internal/catalog"
	"skillswap/internal/config"
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
	shutdown, err := telemetry.Setup(ctx, "skillswap-catalog", cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}
	defer shutdown(ctx)

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	m := metrics.NewManager("skillswap_catalog")
	issuer := auth.NewIssuer(cfg.JWTSecret)

	es := eventstore.NewEventStore(db)
	svc := catalog.NewService(es, db)
	handler := catalog.NewHandler(svc)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return m.Middleware("catalog", next)
	})
	handler.Register(r, issuer)
	r.Method(http.MethodGet, "/metrics", m.Handler())

	log.Printf("Catalog service listening on %s", cfg.CatalogAddr)
	log.Fatal(http.ListenAndServe(cfg.CatalogAddr, r))
}
