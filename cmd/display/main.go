package main

import (
	"log"

	"github.com/relabs-tech/serve_sense/internal/app"
	"github.com/relabs-tech/serve_sense/internal/config"
)

func main() {
	log.Println("starting ServeSense status display")

	// Load configuration
	if err := config.InitGlobal("serve_config.txt"); err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := app.RunDisplay(); err != nil {
		log.Fatalf("fatal: %v", err)
	}
}
