package main

import (
	"log"
	"os"
	"path/filepath"

	"punish-bot/bot"
	"punish-bot/config"
	"punish-bot/handlers"
	"punish-bot/utils/database/punishments"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Error loading config: %v", err)
	}
	if err := os.MkdirAll(filepath.Dir(cfg.DatabasePath), os.ModePerm); err != nil {
		log.Fatalf("Failed to create data directory: %v", err)
	}
	db, err := punishments.Init(cfg.DatabasePath, cfg.MaxDBConns)
	if err != nil {
		log.Fatalf("Error initializing punishment database: %v", err)
	}
	defer db.Close()

	b, err := bot.New(cfg, db)
	if err != nil {
		log.Fatalf("Error creating bot: %v", err)
	}
	defer b.Close()

	handlers.Register(b)

	b.Run()
}
