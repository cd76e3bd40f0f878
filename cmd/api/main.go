// cmd/api/main.go
package main

import (
	"log"
	"net/http"
	"net/http/httputil"
	"net/url"

	"github.com/joho/godotenv"

	"skillswap/internal/config"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	profileProxy := proxyFor(cfg.ProfileServiceURL)
	swapProxy := proxyFor(cfg.SwapServiceURL)
	catalogProxy := proxyFor(cfg.CatalogServiceURL)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/profiles/", strip(profileProxy))
	mux.Handle("/api/v1/swaps/", strip(swapProxy))
	mux.Handle("/api/v1/ratings/", strip(swapProxy))
	mux.Handle("/api/v1/skills/", strip(catalogProxy))

	log.Printf("API Gateway listening on %s", cfg.GatewayAddr)
	log.Fatal(http.ListenAndServe(cfg.GatewayAddr, mux))
}

// strip removes the /api/v1 prefix so services see their native routes.
// Service-to-service /internal/ routes stay unreachable: every stripped
// path keeps its resource prefix.
func strip(next http.Handler) http.Handler {
	return http.StripPrefix("/api/v1", next)
}

func proxyFor(rawURL string) *httputil.ReverseProxy {
	target, err := url.Parse(rawURL)
	if err != nil {
		log.Fatalf("Invalid service URL %q: %v", rawURL, err)
	}
	return httputil.NewSingleHostReverseProxy(target)
}
