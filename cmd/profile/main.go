// cmd/profile/main.go
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
	"skillswap/internal/config"
	"skillswap/internal/profile"
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
	shutdown, err := telemetry.Setup(ctx, "skillswap-profile", cfg.OTLPEndpoint)
	if err != nil {
		log.Fatalf("Failed to set up tracing: %v", err)
	}
	defer shutdown(ctx)

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	m := metrics.NewManager("skillswap_profile")
	issuer := auth.NewIssuer(cfg.JWTSecret)

	es := eventstore.NewEventStore(db)
	svc := profile.NewService(es, db, issuer, cfg.AuthRatePerMinute, cfg.MaxMatches, m)
	handler := profile.NewHandler(svc)

	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return m.Middleware("profile", next)
	})
	handler.Register(r, issuer)
	r.Method(http.MethodGet, "/metrics", m.Handler())

	log.Printf("Profile service listening on %s", cfg.ProfileAddr)
	log.Fatal(http.ListenAndServe(cfg.ProfileAddr, r))
}
