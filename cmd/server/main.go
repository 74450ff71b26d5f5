package main

import (
	"flag"
	"log"

	approuters "blogchat/internal/app_routers"
	"blogchat/internal/configuration"
)

func main() {
	configPath := flag.String("config", "config.json", "path to the JSON config file")
	flag.Parse()

	container, err := configuration.BuildContainer(*configPath)
	if err != nil {
		log.Fatalf("Failed to build container: %v", err)
	}

	// Ensure cleanup on shutdown
	defer func() {
		if err := container.Close(); err != nil {
			log.Printf("cleanup: %v", err)
		}
	}()

	approuters.StartServer(container)
}
