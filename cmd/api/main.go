package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"assignhelper/internal/api"
	"assignhelper/internal/config"
	"assignhelper/internal/storage"

	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")
	cfg := config.Load()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	db, err := storage.NewDB(ctx, cfg.PostgresURL)
	if err != nil {
		log.Fatal(err)
	}
	if err := storage.Migrate(ctx, db, cfg.EmbedDim); err != nil {
		log.Printf("schema migration skipped: %v", err)
	}
	db.Close()
	cancel()

	h := api.NewServer(cfg)
	defer h.Close()
	log.Printf("assignhelper api listening on %s catalog=%s llm_providers=%q embed_providers=%q", cfg.APIAddr, cfg.CatalogBackend, cfg.LLMProviders, cfg.EmbedProviders)
	if err := http.ListenAndServe(cfg.APIAddr, h.Routes()); err != nil {
		log.Fatal(err)
	}
}
