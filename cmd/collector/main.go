package main

import (
	"flag"
	"log"

	"github.com/relabs-tech/serve_sense/internal/app"
	"github.com/relabs-tech/serve_sense/internal/config"
)

func main() {
	configPath := flag.String("config", "./serve_config.txt", "path to configuration file")
	flag.Parse()

	log.Println("starting ServeSense collector (stream -> CSV + SQLite)")

	// Load configuration
	if err := config.InitGlobal(*configPath); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunCollector(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
