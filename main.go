package main

import (
	"context"
	"log"
	"net/http"

	"github.com/joho/godotenv"

	"videoChat/chat"
	"videoChat/config"
	"videoChat/qa"
	"videoChat/server"
	"videoChat/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("No .env file loaded: %v", err)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}

	chats, err := chat.Open(cfg.SQLitePath)
	if err != nil {
		log.Fatalf("failed to open chat store: %v", err)
	}
	defer chats.Close()

	embedder := storage.NewOpenAIEmbedder(cfg)

	var generator qa.Generator
	if cfg.HasValidAPI() && cfg.ChatModel != "" {
		generator = qa.NewOpenAIGenerator(cfg)
		log.Printf("Generation enabled (model %s)", cfg.ChatModel)
	} else {
		log.Printf("Generation disabled, serving extractive answers only")
	}

	cache := server.NewAnswerCache(context.Background(), cfg)

	srv := server.New(cfg, chats, embedder, generator, cache)
	backend := cfg.IndexBackend
	if backend == "" {
		backend = "file"
	}
	log.Printf("Index backend: %s", backend)

	log.Printf("Starting HTTP server on %s...", cfg.ListenAddr)
	if err := http.ListenAndServe(cfg.ListenAddr, srv.Router()); err != nil {
		log.Fatalf("HTTP server error: %v", err)
	}
}
