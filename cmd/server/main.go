package main

import (
	"log"

	"github.com/joho/godotenv"

	"fieldrelay/internal/app"
)

func main() {
	// .env is optional; environment variables win either way.
	if err := godotenv.Load(); err == nil {
		log.Println("Loaded configuration from .env")
	}

	application, err := app.NewApp()
	if err != nil {
		log.Fatalf("Failed to initialize relay: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
